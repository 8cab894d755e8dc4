package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"premium-scanner/config"
	"premium-scanner/models"
)

const (
	oct16 = int64(1792108800)
	oct23 = int64(1792713600)
	oct30 = int64(1793318400)
)

const acmeCalls = `[
	{"contractSymbol":"ACME261023C00095000","strike":95,"bid":6.4,"ask":6.6,"lastPrice":6.5,"delta":0.8},
	{"contractSymbol":"ACME261023C00100000","strike":100,"bid":2.9,"ask":3.1,"lastPrice":3.0,"delta":0.55},
	{"contractSymbol":"ACME261023C00105000","strike":105,"bid":1.1,"ask":1.3,"lastPrice":1.2,"delta":0.35},
	{"contractSymbol":"ACME261023C00110000","strike":110,"bid":0,"ask":0,"lastPrice":0.005}
]`

// fakeFeed serves chart and option chain documents for a single ticker
type fakeFeed struct {
	expirations string
	calls       string
	dates       []string
}

func (f *fakeFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case strings.HasPrefix(r.URL.Path, "/chart/"):
		fmt.Fprint(w, `{"chart":{"result":[{"meta":{"symbol":"ACME","shortName":"Acme Corp","regularMarketPrice":101}}],"error":null}}`)
	case strings.HasPrefix(r.URL.Path, "/options/"):
		date := r.URL.Query().Get("date")
		f.dates = append(f.dates, date)
		calls := "[]"
		if date != "" {
			calls = f.calls
		}
		fmt.Fprintf(w, `{"optionChain":{"result":[{"underlyingSymbol":"ACME","expirationDates":%s,"options":[{"calls":%s,"puts":[]}]}],"error":null}}`,
			f.expirations, calls)
	default:
		http.NotFound(w, r)
	}
}

func newTestService(t *testing.T, feed *fakeFeed) *OptionsService {
	t.Helper()
	srv := httptest.NewServer(feed)
	t.Cleanup(srv.Close)

	cfg := config.GetTestConfig()
	cfg.Relay.MaxRetries = 1
	cfg.MarketData.ChartBaseURL = srv.URL + "/chart"
	cfg.MarketData.OptionsBaseURL = srv.URL + "/options"

	s := NewOptionsServiceWithFetcher(cfg, NewRelayFetcher(cfg.Relay).WithRelays(DirectRelay))
	s.now = func() time.Time { return time.Date(2026, 10, 15, 14, 0, 0, 0, time.UTC) }
	s.loc = time.UTC
	return s
}

func defaultFeed() *fakeFeed {
	return &fakeFeed{
		expirations: fmt.Sprintf("[%d,%d,%d]", oct16, oct23, oct30),
		calls:       acmeCalls,
	}
}

func TestAnalyzeEndToEnd(t *testing.T) {
	feed := defaultFeed()
	s := newTestService(t, feed)

	var messages []string
	result, err := s.Analyze(context.Background(), Request{
		Ticker:     " acme ",
		TargetDate: time.Date(2026, 10, 23, 0, 0, 0, 0, time.UTC),
		HalfWindow: 8,
	}, func(msg string) { messages = append(messages, msg) })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.Quote.Ticker != "ACME" || result.Quote.Price != 101 || result.Quote.DisplayName != "Acme Corp" {
		t.Fatalf("quote = %+v", result.Quote)
	}
	if result.Expiration != oct23 || result.ExpirationDate != "2026-10-23" || result.TargetDate != "2026-10-23" {
		t.Fatalf("expiration = %d (%s), target %s", result.Expiration, result.ExpirationDate, result.TargetDate)
	}
	if len(feed.dates) != 2 || feed.dates[0] != "" || feed.dates[1] != fmt.Sprint(oct23) {
		t.Fatalf("option chain requests = %v", feed.dates)
	}

	if len(result.Options) != 4 {
		t.Fatalf("expected 4 analyzed options, got %d", len(result.Options))
	}
	for _, o := range result.Options {
		if o.DTE != 8 {
			t.Fatalf("dte = %d, want 8", o.DTE)
		}
	}
	wantMoneyness := []models.Moneyness{models.MoneynessITM, models.MoneynessATM, models.MoneynessOTM, models.MoneynessOTM}
	for i, o := range result.Options {
		if o.Moneyness != wantMoneyness[i] {
			t.Fatalf("moneyness of %v = %s, want %s", o.Strike, o.Moneyness, wantMoneyness[i])
		}
	}

	var got []float64
	for _, r := range result.Ranked {
		got = append(got, r.Strike)
	}
	want := []float64{100, 105, 95}
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("ranking = %v, want %v", got, want)
	}
	if result.Ranked[0].Rank != 1 || result.Ranked[2].Rank != 3 {
		t.Fatalf("ranks = %d..%d", result.Ranked[0].Rank, result.Ranked[2].Rank)
	}

	found := false
	for _, m := range messages {
		if strings.Contains(m, "Using expiration 2026-10-23") {
			found = true
		}
	}
	if !found {
		t.Fatalf("no expiration message in %v", messages)
	}
}

func TestAnalyzeDefaultsToNextFriday(t *testing.T) {
	s := newTestService(t, defaultFeed())

	result, err := s.Analyze(context.Background(), Request{Ticker: "ACME", HalfWindow: 1}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TargetDate != "2026-10-16" || result.Expiration != oct16 {
		t.Fatalf("target %s, expiration %s", result.TargetDate, result.ExpirationDate)
	}
	// A window below the minimum is clamped
	if result.HalfWindow != config.MinHalfWindow {
		t.Fatalf("half window = %d, want %d", result.HalfWindow, config.MinHalfWindow)
	}
}

func TestAnalyzeFailures(t *testing.T) {
	tests := []struct {
		name   string
		feed   *fakeFeed
		ticker string
		want   error
	}{
		{"empty ticker", defaultFeed(), "   ", ErrEmptyTicker},
		{"no expirations", &fakeFeed{expirations: "[]", calls: acmeCalls}, "ACME", ErrDataUnavailable},
		{"no calls", &fakeFeed{expirations: fmt.Sprintf("[%d]", oct23), calls: "[]"}, "ACME", ErrDataUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestService(t, tt.feed)

			result, err := s.Analyze(context.Background(), Request{Ticker: tt.ticker, HalfWindow: 8}, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if result != nil {
				t.Fatal("a failed run must not return a partial result")
			}
		})
	}
}

func TestAnalyzeRelayFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := config.GetTestConfig()
	cfg.MarketData.ChartBaseURL = srv.URL + "/chart"
	cfg.MarketData.OptionsBaseURL = srv.URL + "/options"
	s := NewOptionsServiceWithFetcher(cfg, NewRelayFetcher(cfg.Relay).WithRelays(DirectRelay))

	_, err := s.Analyze(context.Background(), Request{Ticker: "ACME", HalfWindow: 8}, nil)
	if !errors.Is(err, ErrRelayExhausted) {
		t.Fatalf("expected ErrRelayExhausted, got %v", err)
	}
	if !strings.HasPrefix(err.Error(), "fetching spot price:") {
		t.Fatalf("error = %v", err)
	}
}

func TestExpirationsAndQuote(t *testing.T) {
	s := newTestService(t, defaultFeed())

	exps, err := s.Expirations(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exps) != 3 || exps[0] != oct16 || exps[2] != oct30 {
		t.Fatalf("expirations = %v", exps)
	}

	quote, err := s.Quote(context.Background(), "acme")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.Ticker != "ACME" || quote.Price != 101 {
		t.Fatalf("quote = %+v", quote)
	}

	if _, err := s.Quote(context.Background(), ""); !errors.Is(err, ErrEmptyTicker) {
		t.Fatalf("expected ErrEmptyTicker, got %v", err)
	}
	if _, err := s.Expirations(context.Background(), " "); !errors.Is(err, ErrEmptyTicker) {
		t.Fatalf("expected ErrEmptyTicker, got %v", err)
	}
}

func TestNotifyRecoversPanics(t *testing.T) {
	notify(nil, "ignored")
	notify(func(string) { panic("boom") }, "ignored")
}
