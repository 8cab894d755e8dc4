package models

import "time"

// SpotQuote represents the live price of the underlying stock
type SpotQuote struct {
	Ticker      string  `json:"ticker"`
	Price       float64 `json:"price"`
	DisplayName string  `json:"display_name"`
}

// RawOptionContract represents one exchange-reported option contract.
// Greeks are nil when the feed does not report them; zero is a real value.
type RawOptionContract struct {
	ContractSymbol    string   `json:"contract_symbol"`
	Strike            float64  `json:"strike"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	LastPrice         float64  `json:"last_price"`
	Volume            int64    `json:"volume"`
	OpenInterest      int64    `json:"open_interest"`
	ImpliedVolatility float64  `json:"implied_volatility"`
	Delta             *float64 `json:"delta"`
	Gamma             *float64 `json:"gamma"`
	Theta             *float64 `json:"theta"`
	Vega              *float64 `json:"vega"`
	Rho               *float64 `json:"rho"`
	InTheMoney        bool     `json:"in_the_money"`
}

// OptionChain represents the option chain for one expiration
type OptionChain struct {
	ExpirationDates []int64             `json:"expiration_dates"`
	Calls           []RawOptionContract `json:"calls"`
	Puts            []RawOptionContract `json:"puts"`
	Quote           map[string]any      `json:"quote,omitempty"`
}

// Moneyness classifies a strike relative to spot
type Moneyness string

const (
	MoneynessATM Moneyness = "ATM"
	MoneynessITM Moneyness = "ITM"
	MoneynessOTM Moneyness = "OTM"
)

// AnalyzedOption is a contract with its derived premium metrics
type AnalyzedOption struct {
	RawOptionContract

	Mid             float64   `json:"mid"`
	Intrinsic       float64   `json:"intrinsic"`
	Extrinsic       float64   `json:"extrinsic"`
	ExtrinsicPerDTE float64   `json:"extrinsic_per_dte"`
	EfficiencyScore *float64  `json:"efficiency_score"`
	FallbackScore   float64   `json:"fallback_score"`
	AnnualizedYield float64   `json:"annualized_yield"`
	DTE             int       `json:"dte"`
	Moneyness       Moneyness `json:"moneyness"`
}

// RankedOption is an analyzed contract with its 1-based rank
type RankedOption struct {
	AnalyzedOption
	Rank int `json:"rank"`
}

// AnalysisResult is the complete output of one analysis run
type AnalysisResult struct {
	Quote          SpotQuote        `json:"quote"`
	TargetDate     string           `json:"target_date"`
	Expiration     int64            `json:"expiration"`
	ExpirationDate string           `json:"expiration_date"`
	HalfWindow     int              `json:"half_window"`
	Options        []AnalyzedOption `json:"options"`
	Ranked         []RankedOption   `json:"ranked"`
	GeneratedAt    time.Time        `json:"generated_at"`
}
