package server

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"premium-scanner/models"
	"premium-scanner/services"
)

// OptionsAnalyzer is the pipeline the handlers serve
type OptionsAnalyzer interface {
	Analyze(ctx context.Context, req services.Request, status services.StatusFunc) (*models.AnalysisResult, error)
	Expirations(ctx context.Context, ticker string) ([]int64, error)
	Quote(ctx context.Context, ticker string) (*models.SpotQuote, error)
}

// Handlers serves the HTTP API
type Handlers struct {
	svc           OptionsAnalyzer
	defaultWindow int
	timeout       time.Duration
}

// NewHandlers creates the API handlers
func NewHandlers(svc OptionsAnalyzer, defaultWindow int, timeout time.Duration) *Handlers {
	return &Handlers{
		svc:           svc,
		defaultWindow: defaultWindow,
		timeout:       timeout,
	}
}

// ExpirationInfo is one listed expiration
type ExpirationInfo struct {
	Timestamp int64  `json:"timestamp"`
	Date      string `json:"date"`
}

// GetOptionAnalysis runs the full analysis for ?ticker=&expiry=&window=
func (h *Handlers) GetOptionAnalysis(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	ticker := services.NormalizeTicker(q.Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker")
		return
	}

	req := services.Request{Ticker: ticker, HalfWindow: h.defaultWindow}

	if expStr := q.Get("expiry"); expStr != "" {
		target, err := time.Parse("2006-01-02", expStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid expiry date")
			return
		}
		req.TargetDate = target
	}

	if windowStr := q.Get("window"); windowStr != "" {
		window, err := strconv.Atoi(windowStr)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid window")
			return
		}
		req.HalfWindow = window
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	result, err := h.svc.Analyze(ctx, req, nil)
	if err != nil {
		writeServiceError(w, ticker, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Response[*models.AnalysisResult]{
		Data: result,
		Meta: models.Meta{
			Ticker:     ticker,
			TargetDate: result.TargetDate,
			Expiry:     result.ExpirationDate,
			Window:     result.HalfWindow,
			Count:      len(result.Ranked),
		},
	})
}

// GetOptionExpirations lists the expirations for ?ticker=
func (h *Handlers) GetOptionExpirations(w http.ResponseWriter, r *http.Request) {
	ticker := services.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	expirations, err := h.svc.Expirations(ctx, ticker)
	if err != nil {
		writeServiceError(w, ticker, err)
		return
	}

	out := make([]ExpirationInfo, 0, len(expirations))
	for _, ts := range expirations {
		out = append(out, ExpirationInfo{Timestamp: ts, Date: services.FormatExpiration(ts)})
	}

	writeJSON(w, http.StatusOK, models.Response[[]ExpirationInfo]{
		Data: out,
		Meta: models.Meta{Ticker: ticker, Count: len(out)},
	})
}

// GetQuote returns the spot quote for ?ticker=
func (h *Handlers) GetQuote(w http.ResponseWriter, r *http.Request) {
	ticker := services.NormalizeTicker(r.URL.Query().Get("ticker"))
	if ticker == "" {
		writeError(w, http.StatusBadRequest, "missing ticker")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	quote, err := h.svc.Quote(ctx, ticker)
	if err != nil {
		writeServiceError(w, ticker, err)
		return
	}

	writeJSON(w, http.StatusOK, models.Response[*models.SpotQuote]{
		Data: quote,
		Meta: models.Meta{Ticker: ticker},
	})
}

func writeServiceError(w http.ResponseWriter, ticker string, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrEmptyTicker):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrDataUnavailable):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrRelayExhausted):
		status = http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		log.Printf("request for %s failed: %v", ticker, err)
	}
	writeError(w, status, err.Error())
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encoding response: %v", err)
	}
}
