package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"premium-scanner/analysis"
	"premium-scanner/config"
	"premium-scanner/models"
)

// Request describes one analysis run
type Request struct {
	Ticker     string
	TargetDate time.Time // zero means the next Friday
	HalfWindow int
}

// OptionsService runs the spot → chain → analyze → rank pipeline
type OptionsService struct {
	fetcher *RelayFetcher
	cfg     *config.Config
	loc     *time.Location
	now     func() time.Time
}

// NewOptionsService creates a new options service from configuration
func NewOptionsService(cfg *config.Config) *OptionsService {
	return NewOptionsServiceWithFetcher(cfg, NewRelayFetcher(cfg.Relay))
}

// NewOptionsServiceWithFetcher creates an options service around an existing fetcher
func NewOptionsServiceWithFetcher(cfg *config.Config, fetcher *RelayFetcher) *OptionsService {
	return &OptionsService{
		fetcher: fetcher,
		cfg:     cfg,
		loc:     time.Local,
		now:     time.Now,
	}
}

// NormalizeTicker upper-cases and trims a ticker symbol
func NormalizeTicker(ticker string) string {
	return strings.ToUpper(strings.TrimSpace(ticker))
}

func (s *OptionsService) marketData(status StatusFunc) *MarketDataClient {
	return NewMarketDataClient(s.fetcher.WithStatus(status), s.cfg.MarketData)
}

// Analyze runs the full pipeline for one ticker. Any stage failure aborts the
// run and no partial result is returned.
func (s *OptionsService) Analyze(ctx context.Context, req Request, status StatusFunc) (*models.AnalysisResult, error) {
	ticker := NormalizeTicker(req.Ticker)
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	now := s.now()
	target := req.TargetDate
	if target.IsZero() {
		target = analysis.UpcomingFridays(now, 1)[0]
	}
	window := config.ClampHalfWindow(req.HalfWindow)

	md := s.marketData(status)

	quote, err := md.FetchSpotPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching spot price: %w", err)
	}

	chain, err := md.FetchOptionChain(ctx, ticker, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching expirations: %w", err)
	}
	if len(chain.ExpirationDates) == 0 {
		return nil, &DataUnavailableError{Ticker: ticker, What: "option expirations"}
	}

	expiration, err := analysis.ClosestExpiration(chain.ExpirationDates, target, s.loc)
	if err != nil {
		return nil, err
	}
	expirationDate := FormatExpiration(expiration)
	notify(status, fmt.Sprintf("Using expiration %s for target %s", expirationDate, target.Format("2006-01-02")))

	scoped, err := md.FetchOptionChain(ctx, ticker, &expiration)
	if err != nil {
		return nil, fmt.Errorf("fetching option chain: %w", err)
	}
	if len(scoped.Calls) == 0 {
		return nil, &DataUnavailableError{Ticker: ticker, What: fmt.Sprintf("calls expiring %s", expirationDate)}
	}

	options := analysis.AnalyzeAt(now, scoped.Calls, quote.Price, expiration, window)
	ranked := analysis.Rank(options)

	return &models.AnalysisResult{
		Quote:          *quote,
		TargetDate:     target.Format("2006-01-02"),
		Expiration:     expiration,
		ExpirationDate: expirationDate,
		HalfWindow:     window,
		Options:        options,
		Ranked:         ranked,
		GeneratedAt:    now,
	}, nil
}

// Expirations returns the expiration timestamps listed for ticker
func (s *OptionsService) Expirations(ctx context.Context, ticker string) ([]int64, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	chain, err := s.marketData(nil).FetchOptionChain(ctx, ticker, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching expirations: %w", err)
	}
	return chain.ExpirationDates, nil
}

// Quote returns the spot quote for ticker
func (s *OptionsService) Quote(ctx context.Context, ticker string) (*models.SpotQuote, error) {
	ticker = NormalizeTicker(ticker)
	if ticker == "" {
		return nil, ErrEmptyTicker
	}

	quote, err := s.marketData(nil).FetchSpotPrice(ctx, ticker)
	if err != nil {
		return nil, fmt.Errorf("fetching spot price: %w", err)
	}
	return quote, nil
}

// notify reports progress; a panicking callback is ignored
func notify(status StatusFunc, msg string) {
	if status == nil {
		return
	}
	defer func() { _ = recover() }()
	status(msg)
}
