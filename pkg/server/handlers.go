package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/JackSmack1971/microanalyst-tools/pkg/analyzer"
	"github.com/JackSmack1971/microanalyst-tools/pkg/client"
	"github.com/JackSmack1971/microanalyst-tools/pkg/dashboard"
)

// analyzeResponse is the report plus the dashboard view rendered from it, so
// the browser page draws exactly what the stream and watch mode draw.
type analyzeResponse struct {
	*analyzer.Report
	View dashboard.View `json:"view"`
}

// errorBody is the JSON shape of every API error.
type errorBody struct {
	Error  string `json:"error"`
	Kind   string `json:"kind,omitempty"`
	Status int    `json:"status"`
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyHandler(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.ready.Ping(ctx); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Msg("Cache backend not ready")
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) analyzeHandler(w http.ResponseWriter, r *http.Request) {
	token := r.PathValue("token")
	opts, err := s.parseOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "", err.Error())
		return
	}

	logger := zerolog.Ctx(r.Context())
	logger.Info().Str("symbol", token).Int("days", opts.Days).Msg("Analyzing token")

	ctx, cancel := context.WithTimeout(r.Context(), s.config.RequestTimeout)
	defer cancel()

	report, err := s.analyzer.Analyze(ctx, token, opts)
	if err != nil {
		status := statusFor(err)
		logger.Warn().Err(err).Str("symbol", token).Int("status_code", status).Msg("Analysis failed")
		writeError(w, status, string(client.KindOf(err)), token+": "+client.Describe(err))
		return
	}
	view := dashboard.New().Load(token).Loaded(report, time.Now()).Render()
	writeJSON(w, http.StatusOK, analyzeResponse{Report: report, View: view})
}

// parseOptions reads the days and btc_volatility query parameters.
func (s *Server) parseOptions(r *http.Request) (analyzer.Options, error) {
	opts := analyzer.Options{Days: s.config.DefaultDays}
	q := r.URL.Query()

	if v := q.Get("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil || days <= 0 {
			return opts, errors.New("days must be a positive integer")
		}
		opts.Days = days
	}
	if v := q.Get("btc_volatility"); v != "" {
		cv, err := strconv.ParseFloat(v, 64)
		if err != nil || cv <= 0 {
			return opts, errors.New("btc_volatility must be a positive number")
		}
		opts.BenchmarkCV = &cv
	}
	return opts, nil
}

// statusFor maps an analysis error to an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, client.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, client.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, analyzer.ErrEmptySymbol), errors.Is(err, analyzer.ErrInvalidDays):
		return http.StatusBadRequest
	default:
		return http.StatusBadGateway
	}
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind, Status: status})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Debug().Err(err).Msg("Failed to write response")
	}
}
