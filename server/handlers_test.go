package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"premium-scanner/models"
	"premium-scanner/services"
)

type stubAnalyzer struct {
	lastReq services.Request
	err     error
}

func (s *stubAnalyzer) Analyze(ctx context.Context, req services.Request, status services.StatusFunc) (*models.AnalysisResult, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &models.AnalysisResult{
		Quote:          models.SpotQuote{Ticker: req.Ticker, Price: 101, DisplayName: "Acme Corp"},
		TargetDate:     "2026-10-23",
		Expiration:     1792713600,
		ExpirationDate: "2026-10-23",
		HalfWindow:     req.HalfWindow,
		Ranked:         []models.RankedOption{{Rank: 1}, {Rank: 2}},
	}, nil
}

func (s *stubAnalyzer) Expirations(ctx context.Context, ticker string) ([]int64, error) {
	if s.err != nil {
		return nil, s.err
	}
	return []int64{1792108800, 1792713600}, nil
}

func (s *stubAnalyzer) Quote(ctx context.Context, ticker string) (*models.SpotQuote, error) {
	if s.err != nil {
		return nil, s.err
	}
	return &models.SpotQuote{Ticker: ticker, Price: 101, DisplayName: "Acme Corp"}, nil
}

func newTestRouter(svc OptionsAnalyzer) http.Handler {
	return NewRouter(NewHandlers(svc, 8, time.Second))
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func TestGetOptionAnalysis(t *testing.T) {
	svc := &stubAnalyzer{}
	rec := get(t, newTestRouter(svc), "/api/v1/options/analysis?ticker=acme&expiry=2026-10-23&window=5")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	if svc.lastReq.Ticker != "ACME" || svc.lastReq.HalfWindow != 5 {
		t.Fatalf("request = %+v", svc.lastReq)
	}
	if !svc.lastReq.TargetDate.Equal(time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("target = %s", svc.lastReq.TargetDate)
	}

	var resp models.Response[*models.AnalysisResult]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Meta.Ticker != "ACME" || resp.Meta.Expiry != "2026-10-23" || resp.Meta.Count != 2 || resp.Meta.Window != 5 {
		t.Fatalf("meta = %+v", resp.Meta)
	}
	if resp.Data == nil || resp.Data.Quote.Price != 101 {
		t.Fatalf("data = %+v", resp.Data)
	}
}

func TestGetOptionAnalysisDefaults(t *testing.T) {
	svc := &stubAnalyzer{}
	rec := get(t, newTestRouter(svc), "/api/v1/options/analysis?ticker=ACME")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if svc.lastReq.HalfWindow != 8 || !svc.lastReq.TargetDate.IsZero() {
		t.Fatalf("request = %+v", svc.lastReq)
	}
}

func TestBadRequests(t *testing.T) {
	tests := []struct {
		target string
		msg    string
	}{
		{"/api/v1/options/analysis", "missing ticker"},
		{"/api/v1/options/analysis?ticker=ACME&expiry=23-10-2026", "invalid expiry date"},
		{"/api/v1/options/analysis?ticker=ACME&window=wide", "invalid window"},
		{"/api/v1/options/expirations?ticker=%20", "missing ticker"},
		{"/api/v1/quote", "missing ticker"},
	}
	for _, tt := range tests {
		t.Run(tt.target, func(t *testing.T) {
			rec := get(t, newTestRouter(&stubAnalyzer{}), tt.target)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatal(err)
			}
			if body["error"] != tt.msg {
				t.Fatalf("error = %q, want %q", body["error"], tt.msg)
			}
		})
	}
}

func TestServiceErrorStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"empty ticker", services.ErrEmptyTicker, http.StatusBadRequest},
		{"no data", fmt.Errorf("fetching option chain: %w", &services.DataUnavailableError{Ticker: "ACME", What: "option chain"}), http.StatusNotFound},
		{"relays down", fmt.Errorf("fetching spot price: %w", &services.RelayExhaustedError{Label: "spot price for ACME", Attempts: 12}), http.StatusBadGateway},
		{"timeout", fmt.Errorf("fetching spot price: %w", context.DeadlineExceeded), http.StatusGatewayTimeout},
		{"other", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(&stubAnalyzer{err: tt.err})
			for _, target := range []string{
				"/api/v1/options/analysis?ticker=ACME",
				"/api/v1/options/expirations?ticker=ACME",
				"/api/v1/quote?ticker=ACME",
			} {
				if rec := get(t, h, target); rec.Code != tt.want {
					t.Fatalf("%s: status = %d, want %d", target, rec.Code, tt.want)
				}
			}
		})
	}
}

func TestGetOptionExpirations(t *testing.T) {
	rec := get(t, newTestRouter(&stubAnalyzer{}), "/api/v1/options/expirations?ticker=acme")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	var resp models.Response[[]ExpirationInfo]
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Meta.Count != 2 || resp.Data[0].Date != "2026-10-16" || resp.Data[1].Timestamp != 1792713600 {
		t.Fatalf("response = %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestRouter(&stubAnalyzer{}).ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/quote?ticker=ACME", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("status = %d, want 405", rec.Code)
	}
}

func TestZstdResponses(t *testing.T) {
	h := newTestRouter(&stubAnalyzer{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/quote?ticker=acme", nil)
	req.Header.Set("Accept-Encoding", "gzip, zstd")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Header().Get("Content-Encoding") != "zstd" {
		t.Fatalf("content encoding = %q", rec.Header().Get("Content-Encoding"))
	}

	dec, err := zstd.NewReader(rec.Body)
	if err != nil {
		t.Fatal(err)
	}
	defer dec.Close()
	raw, err := io.ReadAll(dec)
	if err != nil {
		t.Fatal(err)
	}

	var resp models.Response[*models.SpotQuote]
	if err := json.Unmarshal(raw, &resp); err != nil {
		t.Fatalf("decoded body is not JSON: %v", err)
	}
	if resp.Data.Ticker != "ACME" {
		t.Fatalf("quote = %+v", resp.Data)
	}

	plain := get(t, h, "/api/v1/quote?ticker=acme")
	if plain.Header().Get("Content-Encoding") != "" {
		t.Fatal("uncompressed request got an encoded response")
	}
	if plain.Header().Get("Vary") != "Accept-Encoding" {
		t.Fatalf("vary = %q", plain.Header().Get("Vary"))
	}
}
