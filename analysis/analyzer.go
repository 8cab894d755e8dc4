package analysis

import (
	"math"
	"sort"
	"time"

	"premium-scanner/models"
)

const (
	secondsPerDay = 86400

	// minDelta guards the efficiency ratio against near-zero delta
	minDelta = 0.01

	// atmBand is the fraction of the strike increment counted as at the money
	atmBand = 0.6
)

// Analyze derives premium metrics for the calls nearest to spot, using the
// current time to compute days to expiry
func Analyze(calls []models.RawOptionContract, spot float64, expiration int64, halfWindow int) []models.AnalyzedOption {
	return AnalyzeAt(time.Now(), calls, spot, expiration, halfWindow)
}

// AnalyzeAt is Analyze with an explicit clock.
//
// Contracts are sorted by strike and the slice of halfWindow strikes on each
// side of the at-the-money strike is analyzed. The input is not modified.
func AnalyzeAt(now time.Time, calls []models.RawOptionContract, spot float64, expiration int64, halfWindow int) []models.AnalyzedOption {
	if len(calls) == 0 {
		return []models.AnalyzedOption{}
	}
	if halfWindow < 0 {
		halfWindow = 0
	}

	sorted := make([]models.RawOptionContract, len(calls))
	copy(sorted, calls)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Strike < sorted[j].Strike
	})

	atm := atmIndex(sorted, spot)
	increment := strikeIncrement(sorted, atm)

	lo := max(0, atm-halfWindow)
	hi := min(len(sorted), atm+halfWindow+1)

	dte := DaysToExpiry(now, expiration)

	out := make([]models.AnalyzedOption, 0, hi-lo)
	for _, c := range sorted[lo:hi] {
		out = append(out, analyzeContract(c, spot, increment, dte))
	}
	return out
}

// atmIndex returns the index of the strike closest to spot; the first wins ties
func atmIndex(sorted []models.RawOptionContract, spot float64) int {
	best := 0
	bestDist := math.Inf(1)
	for i, c := range sorted {
		if d := math.Abs(c.Strike - spot); d < bestDist {
			best, bestDist = i, d
		}
	}
	return best
}

// strikeIncrement estimates the strike spacing from the neighborhood of the
// ATM strike
func strikeIncrement(sorted []models.RawOptionContract, atm int) float64 {
	lo := max(0, atm-1)
	hi := min(len(sorted), atm+2)
	if hi-lo < 2 {
		return 1
	}
	return sorted[lo+1].Strike - sorted[lo].Strike
}

// DaysToExpiry returns whole days from now until expiration, rounded up and
// never below 1
func DaysToExpiry(now time.Time, expiration int64) int {
	secs := float64(expiration - now.Unix())
	days := int(math.Ceil(secs / secondsPerDay))
	if days < 1 {
		return 1
	}
	return days
}

// MidPrice returns the bid/ask midpoint, or the last trade when either side
// is missing
func MidPrice(c models.RawOptionContract) float64 {
	if c.Bid > 0 && c.Ask > 0 {
		return (c.Bid + c.Ask) / 2
	}
	if c.LastPrice > 0 {
		return c.LastPrice
	}
	return 0
}

func analyzeContract(c models.RawOptionContract, spot, increment float64, dte int) models.AnalyzedOption {
	mid := MidPrice(c)
	intrinsic := math.Max(0, spot-c.Strike)
	extrinsic := math.Max(0, mid-intrinsic)
	perDTE := extrinsic / float64(dte)

	var efficiency *float64
	if c.Delta != nil && math.Abs(*c.Delta) > minDelta {
		score := perDTE / math.Abs(*c.Delta)
		efficiency = &score
	}

	var yield float64
	if c.Strike > 0 {
		yield = (extrinsic / c.Strike) * (365 / float64(dte)) * 100
	}

	return models.AnalyzedOption{
		RawOptionContract: c,
		Mid:               mid,
		Intrinsic:         intrinsic,
		Extrinsic:         extrinsic,
		ExtrinsicPerDTE:   perDTE,
		EfficiencyScore:   efficiency,
		FallbackScore:     perDTE,
		AnnualizedYield:   yield,
		DTE:               dte,
		Moneyness:         classify(c.Strike, spot, increment),
	}
}

// classify labels a strike; the ATM band takes priority over ITM
func classify(strike, spot, increment float64) models.Moneyness {
	switch {
	case math.Abs(strike-spot) <= atmBand*increment:
		return models.MoneynessATM
	case strike < spot:
		return models.MoneynessITM
	default:
		return models.MoneynessOTM
	}
}
