package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
)

func scrape(t *testing.T) string {
	t.Helper()
	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	if err != nil {
		t.Fatalf("read metrics body: %v", err)
	}
	return string(body)
}

func TestHandler_ExposesAnalysisMetrics(t *testing.T) {
	AnalysesTotal.WithLabelValues(OutcomeOK).Inc()
	AnalysesTotal.WithLabelValues(OutcomePartial).Inc()
	AnalysisDuration.Observe(0.2)

	body := scrape(t)

	for _, want := range []string{
		`microanalyst_analyses_total{outcome="ok"}`,
		`microanalyst_analyses_total{outcome="partial"}`,
		`microanalyst_analysis_duration_seconds_bucket{le="0.5"}`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %s", want)
		}
	}
}

func TestStreamClients_Gauge(t *testing.T) {
	StreamClients.Inc()
	StreamClients.Inc()
	StreamClients.Dec()
	defer StreamClients.Dec()

	if body := scrape(t); !strings.Contains(body, "microanalyst_stream_clients 1") {
		t.Errorf("expected one connected stream client in output")
	}
}
