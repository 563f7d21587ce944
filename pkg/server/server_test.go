package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/provider/coingecko"
)

type fakeAnalyzer struct {
	mu    sync.Mutex
	calls int
	opts  []analyzer.Options
	// errs is consumed per call; a nil entry or an exhausted slice succeeds.
	errs []error
}

func (f *fakeAnalyzer) Analyze(_ context.Context, symbol string, opts analyzer.Options) (*analyzer.Report, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opts = append(f.opts, opts)
	call := f.calls
	f.calls++
	if call < len(f.errs) && f.errs[call] != nil {
		return nil, f.errs[call]
	}
	return &analyzer.Report{
		Symbol: symbol,
		Days:   opts.Days,
		Snapshot: analyzer.Snapshot{
			Symbol: strings.ToUpper(symbol),
			Name:   "Bitcoin",
			Market: &coingecko.MarketData{PriceUSD: 100},
			History: &coingecko.PriceHistory{
				Prices: []float64{100, 105, 95, 100},
			},
		},
	}, nil
}

func (f *fakeAnalyzer) lastOpts() analyzer.Options {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.opts[len(f.opts)-1]
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestServer(a Analyzer, ready Pinger) *Server {
	cfg := DefaultConfig()
	cfg.StreamInterval = 20 * time.Millisecond
	return New(a, ready, cfg)
}

func do(t *testing.T, h http.Handler, path string) *http.Response {
	t.Helper()
	req := httptest.NewRequest("GET", path, nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w.Result()
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode body: %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	resp := do(t, newTestServer(&fakeAnalyzer{}, nil).Handler(), "/health")

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	decodeBody(t, resp, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected status ok, got %q", body["status"])
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		pinger     Pinger
		wantStatus int
	}{
		{"no dependency", nil, http.StatusOK},
		{"cache reachable", fakePinger{}, http.StatusOK},
		{"cache down", fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, newTestServer(&fakeAnalyzer{}, tt.pinger).Handler(), "/ready")
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	h := newTestServer(a, nil).Handler()

	resp := do(t, h, "/metrics")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "microanalyst_stream_clients") {
		t.Errorf("Expected stream gauge in metrics output")
	}
}

func TestAnalyzeEndpoint(t *testing.T) {
	a := &fakeAnalyzer{}
	resp := do(t, newTestServer(a, nil).Handler(), "/api/analyze/btc?days=7&btc_volatility=0.05")

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("Expected JSON content type, got %q", ct)
	}

	var body struct {
		analyzer.Report
		View struct {
			Status  string `json:"status"`
			HasData bool   `json:"has_data"`
			Title   string `json:"title"`
			Cards   []struct {
				Title string `json:"title"`
			} `json:"cards"`
			Prices []float64 `json:"prices"`
		} `json:"view"`
	}
	decodeBody(t, resp, &body)
	if body.Symbol != "btc" || body.Days != 7 {
		t.Errorf("Unexpected report: symbol=%q days=%d", body.Symbol, body.Days)
	}
	if body.Snapshot.Market == nil || body.Snapshot.Market.PriceUSD != 100 {
		t.Errorf("Expected snapshot market data in response")
	}
	if body.View.Status != "loaded" || !body.View.HasData || body.View.Title != "Bitcoin (BTC)" {
		t.Errorf("Unexpected view: %+v", body.View)
	}
	if len(body.View.Cards) != 4 || len(body.View.Prices) != 4 {
		t.Errorf("Expected 4 cards and 4 prices, got %d and %d", len(body.View.Cards), len(body.View.Prices))
	}

	opts := a.lastOpts()
	if opts.BenchmarkCV == nil || *opts.BenchmarkCV != 0.05 {
		t.Errorf("Expected benchmark CV 0.05, got %v", opts.BenchmarkCV)
	}
}

func TestAnalyzeEndpoint_DefaultDays(t *testing.T) {
	a := &fakeAnalyzer{}
	resp := do(t, newTestServer(a, nil).Handler(), "/api/analyze/eth")
	resp.Body.Close()

	if got := a.lastOpts(); got.Days != 30 || got.BenchmarkCV != nil {
		t.Errorf("Expected defaults, got days=%d benchmark=%v", got.Days, got.BenchmarkCV)
	}
}

func TestAnalyzeEndpoint_Errors(t *testing.T) {
	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{
			name:       "not found",
			path:       "/api/analyze/nope",
			err:        &client.FetchError{Kind: client.KindNotFound, Provider: "coingecko", Endpoint: "search"},
			wantStatus: http.StatusNotFound,
			wantKind:   "not_found",
		},
		{
			name:       "rate limited",
			path:       "/api/analyze/btc",
			err:        &client.FetchError{Kind: client.KindRateLimited, Provider: "coingecko", StatusCode: 429, RetryAfter: time.Minute},
			wantStatus: http.StatusTooManyRequests,
			wantKind:   "rate_limited",
		},
		{
			name:       "upstream down",
			path:       "/api/analyze/btc",
			err:        &client.FetchError{Kind: client.KindUnavailable, Provider: "coingecko", StatusCode: 503},
			wantStatus: http.StatusBadGateway,
			wantKind:   "unavailable",
		},
		{
			name:       "bad days",
			path:       "/api/analyze/btc?days=abc",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "negative days",
			path:       "/api/analyze/btc?days=-3",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "bad benchmark",
			path:       "/api/analyze/btc?btc_volatility=x",
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := &fakeAnalyzer{errs: []error{tt.err}}
			resp := do(t, newTestServer(a, nil).Handler(), tt.path)

			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, resp.StatusCode)
			}
			var body errorBody
			decodeBody(t, resp, &body)
			if body.Error == "" {
				t.Error("Expected error message in body")
			}
			if body.Kind != tt.wantKind {
				t.Errorf("Expected kind %q, got %q", tt.wantKind, body.Kind)
			}
			if body.Status != tt.wantStatus {
				t.Errorf("Expected body status %d, got %d", tt.wantStatus, body.Status)
			}
		})
	}
}

func TestRequestID(t *testing.T) {
	h := newTestServer(&fakeAnalyzer{}, nil).Handler()

	resp := do(t, h, "/health")
	resp.Body.Close()
	if _, err := uuid.Parse(resp.Header.Get(RequestIDHeader)); err != nil {
		t.Errorf("Expected generated UUID request ID, got %q", resp.Header.Get(RequestIDHeader))
	}

	id := uuid.New().String()
	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(RequestIDHeader, id)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	if got := w.Result().Header.Get(RequestIDHeader); got != id {
		t.Errorf("Expected request ID %q to be echoed, got %q", id, got)
	}
}

func TestIndexPage(t *testing.T) {
	resp := do(t, newTestServer(&fakeAnalyzer{}, nil).Handler(), "/")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", resp.StatusCode)
	}
	page := string(body)
	if !strings.Contains(page, "/api/analyze/") {
		t.Error("Expected dashboard page to call the analyze endpoint")
	}
	if !strings.Contains(page, "body.error") {
		t.Error("Expected dashboard page to show the API error message")
	}
	if !strings.Contains(page, "/api/stream/") {
		t.Error("Expected dashboard page to offer the live stream")
	}
}

type streamView struct {
	Status  string `json:"status"`
	HasData bool   `json:"has_data"`
	Title   string `json:"title"`
	Banner  string `json:"banner"`
}

func TestStreamEndpoint(t *testing.T) {
	a := &fakeAnalyzer{errs: []error{
		nil,
		&client.FetchError{Kind: client.KindRateLimited, Provider: "coingecko", StatusCode: 429, RetryAfter: time.Minute},
	}}
	ts := httptest.NewServer(newTestServer(a, nil).Handler())
	defer ts.Close()

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/api/stream/btc"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("Failed to dial stream: %v", err)
	}
	defer conn.Close()

	want := []string{"loading", "loaded", "loading", "failed"}
	var views []streamView
	for range want {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		var v streamView
		if err := conn.ReadJSON(&v); err != nil {
			t.Fatalf("Failed to read view %d: %v", len(views), err)
		}
		views = append(views, v)
	}

	for i, status := range want {
		if views[i].Status != status {
			t.Errorf("View %d: expected status %q, got %q", i, status, views[i].Status)
		}
	}
	if views[1].Title != "Bitcoin (BTC)" {
		t.Errorf("Expected loaded title, got %q", views[1].Title)
	}
	failed := views[3]
	if !failed.HasData {
		t.Error("Expected failed refresh to keep previous data")
	}
	if !strings.Contains(failed.Banner, "rate limited by coingecko") {
		t.Errorf("Expected rate limit banner, got %q", failed.Banner)
	}
}

func TestStreamEndpoint_BadParams(t *testing.T) {
	resp := do(t, newTestServer(&fakeAnalyzer{}, nil).Handler(), "/api/stream/btc?days=0")
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected status 400, got %d", resp.StatusCode)
	}
}
