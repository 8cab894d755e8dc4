package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"premium-scanner/config"
	"premium-scanner/models"
)

// JSONFetcher fetches a JSON document from a URL
type JSONFetcher interface {
	Fetch(ctx context.Context, target, label string) (json.RawMessage, error)
}

// YahooChartResponse represents the response from Yahoo Finance Chart API.
// Every field is optional; mistyped values decode as absent.
type YahooChartResponse struct {
	Chart struct {
		Result flexList[YahooChartResult] `json:"result"`
		Error  json.RawMessage            `json:"error"`
	} `json:"chart"`
}

// YahooChartResult is one entry of chart.result
type YahooChartResult struct {
	Meta struct {
		Currency           flexString `json:"currency"`
		Symbol             flexString `json:"symbol"`
		ShortName          flexString `json:"shortName"`
		LongName           flexString `json:"longName"`
		ExchangeName       flexString `json:"exchangeName"`
		RegularMarketPrice flexNumber `json:"regularMarketPrice"`
		ChartPreviousClose flexNumber `json:"chartPreviousClose"`
	} `json:"meta"`
	Timestamp  flexList[flexNumber] `json:"timestamp"`
	Indicators struct {
		Quote    flexList[chartQuote]    `json:"quote"`
		AdjClose flexList[chartAdjClose] `json:"adjclose"`
	} `json:"indicators"`
}

type chartQuote struct {
	Close flexList[flexNumber] `json:"close"`
}

type chartAdjClose struct {
	AdjClose flexList[flexNumber] `json:"adjclose"`
}

// YahooOptionsResponse represents the response from Yahoo Finance Options API
type YahooOptionsResponse struct {
	OptionChain struct {
		Result flexList[YahooOptionsResult] `json:"result"`
		Error  json.RawMessage              `json:"error"`
	} `json:"optionChain"`
}

// YahooOptionsResult is one entry of optionChain.result
type YahooOptionsResult struct {
	UnderlyingSymbol flexString             `json:"underlyingSymbol"`
	ExpirationDates  flexList[flexNumber]   `json:"expirationDates"`
	Strikes          flexList[flexNumber]   `json:"strikes"`
	Quote            json.RawMessage        `json:"quote"`
	Options          flexList[optionsEntry] `json:"options"`
}

type optionsEntry struct {
	ExpirationDate flexNumber              `json:"expirationDate"`
	Calls          flexList[yahooContract] `json:"calls"`
	Puts           flexList[yahooContract] `json:"puts"`
}

type yahooContract struct {
	ContractSymbol    flexString `json:"contractSymbol"`
	Strike            flexNumber `json:"strike"`
	Bid               flexNumber `json:"bid"`
	Ask               flexNumber `json:"ask"`
	LastPrice         flexNumber `json:"lastPrice"`
	Volume            flexNumber `json:"volume"`
	OpenInterest      flexNumber `json:"openInterest"`
	ImpliedVolatility flexNumber `json:"impliedVolatility"`
	Delta             flexNumber `json:"delta"`
	Gamma             flexNumber `json:"gamma"`
	Theta             flexNumber `json:"theta"`
	Vega              flexNumber `json:"vega"`
	Rho               flexNumber `json:"rho"`
	InTheMoney        flexBool   `json:"inTheMoney"`
}

// MarketDataClient reads spot prices and option chains from the upstream feed
type MarketDataClient struct {
	fetcher JSONFetcher
	cfg     config.MarketDataConfig
}

// NewMarketDataClient creates a new market data client
func NewMarketDataClient(fetcher JSONFetcher, cfg config.MarketDataConfig) *MarketDataClient {
	return &MarketDataClient{
		fetcher: fetcher,
		cfg:     cfg,
	}
}

// ChartURL returns the 5-day daily chart URL for ticker
func (c *MarketDataClient) ChartURL(ticker string) string {
	return fmt.Sprintf("%s/%s?range=5d&interval=1d",
		strings.TrimRight(c.cfg.ChartBaseURL, "/"), url.PathEscape(ticker))
}

// OptionsURL returns the option chain URL for ticker, scoped to expiration
// when it is not nil
func (c *MarketDataClient) OptionsURL(ticker string, expiration *int64) string {
	u := fmt.Sprintf("%s/%s", strings.TrimRight(c.cfg.OptionsBaseURL, "/"), url.PathEscape(ticker))
	if expiration != nil {
		u += fmt.Sprintf("?date=%d", *expiration)
	}
	return u
}

// FetchSpotPrice fetches the current price of ticker. The live market price
// is preferred; the last close of the recent history is the fallback.
func (c *MarketDataClient) FetchSpotPrice(ctx context.Context, ticker string) (*models.SpotQuote, error) {
	raw, err := c.fetcher.Fetch(ctx, c.ChartURL(ticker), fmt.Sprintf("spot price for %s", ticker))
	if err != nil {
		return nil, err
	}

	var chartResp YahooChartResponse
	if err := json.Unmarshal(raw, &chartResp); err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, What: "price data", Err: err}
	}

	if len(chartResp.Chart.Result) == 0 {
		return nil, &DataUnavailableError{Ticker: ticker, What: "price data"}
	}
	result := &chartResp.Chart.Result[0]

	price, ok := spotFromChart(result)
	if !ok {
		return nil, &DataUnavailableError{Ticker: ticker, What: "spot price"}
	}

	name := string(result.Meta.ShortName)
	if name == "" {
		name = string(result.Meta.Symbol)
	}
	if name == "" {
		name = ticker
	}

	return &models.SpotQuote{
		Ticker:      ticker,
		Price:       price,
		DisplayName: name,
	}, nil
}

func spotFromChart(result *YahooChartResult) (float64, bool) {
	if p := result.Meta.RegularMarketPrice; p.Valid && p.Value > 0 {
		return p.Value, true
	}

	if len(result.Indicators.AdjClose) > 0 {
		if p, ok := lastPositive(result.Indicators.AdjClose[0].AdjClose); ok {
			return p, true
		}
	}

	if len(result.Indicators.Quote) > 0 {
		if p, ok := lastPositive(result.Indicators.Quote[0].Close); ok {
			return p, true
		}
	}

	return 0, false
}

func lastPositive(series []flexNumber) (float64, bool) {
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Valid && series[i].Value > 0 {
			return series[i].Value, true
		}
	}
	return 0, false
}

// FetchOptionChain fetches the option chain of ticker. A nil expiration lets
// the feed pick its nearest expiration; the list of all expirations is
// returned either way.
func (c *MarketDataClient) FetchOptionChain(ctx context.Context, ticker string, expiration *int64) (*models.OptionChain, error) {
	label := fmt.Sprintf("option chain for %s", ticker)
	if expiration != nil {
		label = fmt.Sprintf("option chain for %s (%s)", ticker, FormatExpiration(*expiration))
	}

	raw, err := c.fetcher.Fetch(ctx, c.OptionsURL(ticker, expiration), label)
	if err != nil {
		return nil, err
	}

	var optResp YahooOptionsResponse
	if err := json.Unmarshal(raw, &optResp); err != nil {
		return nil, &DataUnavailableError{Ticker: ticker, What: "option chain", Err: err}
	}

	if len(optResp.OptionChain.Result) == 0 {
		return nil, &DataUnavailableError{Ticker: ticker, What: "option chain"}
	}
	result := &optResp.OptionChain.Result[0]

	chain := &models.OptionChain{
		ExpirationDates: make([]int64, 0, len(result.ExpirationDates)),
		Calls:           []models.RawOptionContract{},
		Puts:            []models.RawOptionContract{},
		Quote:           rawObject(result.Quote),
	}

	for _, ts := range result.ExpirationDates {
		if ts.Valid {
			chain.ExpirationDates = append(chain.ExpirationDates, int64(ts.Value))
		}
	}

	if len(result.Options) > 0 {
		chain.Calls = convertContracts(result.Options[0].Calls)
		chain.Puts = convertContracts(result.Options[0].Puts)
	}

	return chain, nil
}

func convertContracts(in []yahooContract) []models.RawOptionContract {
	out := make([]models.RawOptionContract, 0, len(in))
	for _, c := range in {
		out = append(out, models.RawOptionContract{
			ContractSymbol:    string(c.ContractSymbol),
			Strike:            c.Strike.Value,
			Bid:               c.Bid.Value,
			Ask:               c.Ask.Value,
			LastPrice:         c.LastPrice.Value,
			Volume:            int64(c.Volume.Value),
			OpenInterest:      int64(c.OpenInterest.Value),
			ImpliedVolatility: c.ImpliedVolatility.Value,
			Delta:             c.Delta.Ptr(),
			Gamma:             c.Gamma.Ptr(),
			Theta:             c.Theta.Ptr(),
			Vega:              c.Vega.Ptr(),
			Rho:               c.Rho.Ptr(),
			InTheMoney:        bool(c.InTheMoney),
		})
	}
	return out
}

// FormatExpiration renders an expiration timestamp as its UTC calendar date
func FormatExpiration(ts int64) string {
	return time.Unix(ts, 0).UTC().Format("2006-01-02")
}
