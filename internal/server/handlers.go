// Package server exposes the analyzer over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/qwerty2498888/maxpowertrading/internal/analytics"
	"github.com/qwerty2498888/maxpowertrading/internal/analyzer"
	"github.com/qwerty2498888/maxpowertrading/internal/config"
	"github.com/qwerty2498888/maxpowertrading/internal/forecast"
)

type Server struct {
	analyzer analyzer.Analyzer
	tickers  []string
	config   *config.ServerConfig
	logger   *zap.Logger
}

func NewServer(a analyzer.Analyzer, tickers []string, cfg *config.ServerConfig, logger *zap.Logger) *Server {
	return &Server{
		analyzer: a,
		tickers:  tickers,
		config:   cfg,
		logger:   logger,
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

type tickerInfo struct {
	Symbol   string `json:"symbol"`
	Provider string `json:"provider_symbol"`
}

type tickersResponse struct {
	Tickers []tickerInfo `json:"tickers"`
	Count   int          `json:"count"`
}

type healthResponse struct {
	Status       string `json:"status"`
	ProviderMode string `json:"provider_mode"`
	DataDate     string `json:"data_date,omitempty"`
}

type expirationsResponse struct {
	Ticker      string   `json:"ticker"`
	Expirations []string `json:"expirations"`
}

type resetResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, healthResponse{
		Status:       "ok",
		ProviderMode: s.config.ProviderMode,
		DataDate:     s.config.DataDate,
	})
}

func (s *Server) GetTickers(w http.ResponseWriter, r *http.Request) {
	tickers := make([]tickerInfo, 0, len(s.tickers))
	for _, t := range s.tickers {
		tickers = append(tickers, tickerInfo{
			Symbol:   analytics.DisplayTicker(t),
			Provider: analytics.NormalizeTicker(t),
		})
	}
	s.writeJSON(w, http.StatusOK, tickersResponse{Tickers: tickers, Count: len(tickers)})
}

func (s *Server) GetExpirations(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	exps, err := s.analyzer.Expirations(r.Context(), ticker)
	if err != nil {
		s.writeError(w, ticker, err)
		return
	}
	s.writeJSON(w, http.StatusOK, expirationsResponse{
		Ticker:      analytics.DisplayTicker(ticker),
		Expirations: exps,
	})
}

func (s *Server) GetAnalysis(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) GetForecast(w http.ResponseWriter, r *http.Request) {
	result, ok := s.analyze(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(forecast.Render(result)))
}

// ResetCache drops cached chains for ?ticker=, or for every ticker when omitted.
func (s *Server) ResetCache(w http.ResponseWriter, r *http.Request) {
	ticker := r.URL.Query().Get("ticker")

	count, err := s.analyzer.ResetCache(r.Context(), ticker)
	if err != nil {
		s.logger.Error("cache reset failed", zap.Error(err))
		s.writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	message := "All cached chains dropped"
	if ticker != "" {
		message = "Cached chains dropped for " + analytics.DisplayTicker(ticker)
	}

	s.logger.Info("cache reset",
		zap.String("ticker", ticker),
		zap.Int("count", count),
	)

	s.writeJSON(w, http.StatusOK, resetResponse{Status: "success", Message: message, Count: count})
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) (*analytics.AnalysisResult, bool) {
	ticker := chi.URLParam(r, "ticker")
	exps := parseExpirations(r.URL.Query()["expirations"])

	result, err := s.analyzer.Analyze(r.Context(), ticker, exps)
	if err != nil {
		s.writeError(w, ticker, err)
		return nil, false
	}
	return result, true
}

// parseExpirations accepts repeated and comma separated values.
func parseExpirations(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, analyzer.ErrInvalidExpiration):
		return http.StatusBadRequest
	case errors.Is(err, analyzer.ErrUnknownTicker), errors.Is(err, analyzer.ErrNoExpirations):
		return http.StatusNotFound
	case errors.Is(err, analytics.ErrMalformedRow):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func (s *Server) writeError(w http.ResponseWriter, ticker string, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.logger.Warn("request failed", zap.String("ticker", ticker), zap.Error(err))
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.Error(err))
	}
}
