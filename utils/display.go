package utils

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"premium-scanner/analysis"
	"premium-scanner/models"
)

// Colors for terminal output
const (
	ColorReset  = "\033[0m"
	ColorRed    = "\033[31m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
	ColorBold   = "\033[1m"
)

const separatorWidth = 110

// DisplayAnalysis prints the per-strike analysis, the ranking and a summary
func DisplayAnalysis(w io.Writer, result *models.AnalysisResult, showColors bool, maxResults int) {
	if result == nil {
		fmt.Fprintln(w, "No results to display!")
		return
	}

	displayHeader(w, result, showColors)
	displayStrikeTable(w, result.Options, showColors)

	ranked := result.Ranked
	if maxResults > 0 && len(ranked) > maxResults {
		ranked = ranked[:maxResults]
	}
	displayRankedTable(w, ranked, showColors)
	displaySummary(w, result, showColors)
}

// DisplayJSON writes results as indented JSON
func DisplayJSON(w io.Writer, results []*models.AnalysisResult) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if len(results) == 1 {
		return enc.Encode(results[0])
	}
	return enc.Encode(results)
}

// displayHeader displays the report header
func displayHeader(w io.Writer, result *models.AnalysisResult, showColors bool) {
	separator := strings.Repeat("=", separatorWidth)
	title := fmt.Sprintf("%s (%s) @ $%s - expiration %s (target %s) - %s",
		result.Quote.DisplayName,
		result.Quote.Ticker,
		formatMoney(result.Quote.Price),
		result.ExpirationDate,
		result.TargetDate,
		result.GeneratedAt.Format("2006-01-02 15:04:05"))

	if showColors {
		fmt.Fprintf(w, "%s%s%s%s\n", ColorBold, ColorCyan, separator, ColorReset)
		fmt.Fprintf(w, "%s%s%s%s\n", ColorBold, ColorCyan, title, ColorReset)
		fmt.Fprintf(w, "%s%s%s%s\n", ColorBold, ColorCyan, separator, ColorReset)
	} else {
		fmt.Fprintln(w, separator)
		fmt.Fprintln(w, title)
		fmt.Fprintln(w, separator)
	}
}

// displayStrikeTable displays every analyzed strike in strike order
func displayStrikeTable(w io.Writer, options []models.AnalyzedOption, showColors bool) {
	header := fmt.Sprintf("%-9s %-8s %-8s %-8s %-10s %-10s %-9s %-7s %-7s %-9s %-8s %-8s %-5s",
		"Strike", "Mid", "Bid", "Ask", "Intrinsic", "Extrinsic", "Ext/Day", "Delta", "IV", "Yield", "Volume", "OI", "Money")
	if showColors {
		fmt.Fprintf(w, "%s%s%s\n", ColorBold, header, ColorReset)
	} else {
		fmt.Fprintln(w, header)
	}
	fmt.Fprintln(w, strings.Repeat("-", separatorWidth))

	for _, o := range options {
		fmt.Fprintf(w, "%s%-9s %-8s %-8s %-8s %-10s %-10s %-9s %-7s %-7s %-9s %-8d %-8d %-5s%s\n",
			moneynessColor(o.Moneyness, showColors),
			formatMoney(o.Strike),
			formatMoney(o.Mid),
			formatMoney(o.Bid),
			formatMoney(o.Ask),
			formatMoney(o.Intrinsic),
			formatMoney(o.Extrinsic),
			formatFixed(o.ExtrinsicPerDTE, 4),
			formatOptional(o.Delta, 3),
			formatFixed(o.ImpliedVolatility*100, 1)+"%",
			formatFixed(o.AnnualizedYield, 1)+"%",
			o.Volume,
			o.OpenInterest,
			o.Moneyness,
			resetColor(showColors))
	}
	fmt.Fprintln(w)
}

// displayRankedTable displays the ranking
func displayRankedTable(w io.Writer, ranked []models.RankedOption, showColors bool) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No contracts with extrinsic value to rank.")
		return
	}

	header := fmt.Sprintf("%-5s %-9s %-10s %-9s %-7s %-11s %-9s %-5s %-5s",
		"Rank", "Strike", "Extrinsic", "Ext/Day", "Delta", "Efficiency", "Yield", "DTE", "Money")
	if showColors {
		fmt.Fprintf(w, "%s%s%s\n", ColorBold, header, ColorReset)
	} else {
		fmt.Fprintln(w, header)
	}
	fmt.Fprintln(w, strings.Repeat("-", separatorWidth))

	for _, r := range ranked {
		fmt.Fprintf(w, "%s#%-4d %-9s %-10s %-9s %-7s %-11s %-9s %-5d %-5s%s\n",
			moneynessColor(r.Moneyness, showColors),
			r.Rank,
			formatMoney(r.Strike),
			formatMoney(r.Extrinsic),
			formatFixed(r.ExtrinsicPerDTE, 4),
			formatOptional(r.Delta, 3),
			formatOptional(r.EfficiencyScore, 4),
			formatFixed(r.AnnualizedYield, 1)+"%",
			r.DTE,
			r.Moneyness,
			resetColor(showColors))
	}
}

// displaySummary displays summary statistics
func displaySummary(w io.Writer, result *models.AnalysisResult, showColors bool) {
	separator := strings.Repeat("=", separatorWidth)

	lines := []string{
		fmt.Sprintf("Strikes analyzed: %d (window +/-%d)", len(result.Options), result.HalfWindow),
		fmt.Sprintf("Contracts ranked: %d", len(result.Ranked)),
	}
	if best, ok := analysis.BestPick(result.Ranked); ok {
		basis := "efficiency"
		if best.EfficiencyScore == nil {
			basis = "extrinsic/day"
		}
		lines = append(lines, fmt.Sprintf("Best pick: %s strike $%s, extrinsic $%s over %d days, %s%% annualized (by %s)",
			best.ContractSymbol, formatMoney(best.Strike), formatMoney(best.Extrinsic), best.DTE,
			formatFixed(best.AnnualizedYield, 1), basis))
	}

	if showColors {
		fmt.Fprintf(w, "\n%s%s%s%s\n", ColorBold, ColorCyan, separator, ColorReset)
		fmt.Fprintf(w, "%sSummary:%s\n", ColorBold, ColorReset)
		for i, line := range lines {
			if i == 2 {
				fmt.Fprintf(w, "%s%s%s\n", ColorGreen, line, ColorReset)
				continue
			}
			fmt.Fprintln(w, line)
		}
		fmt.Fprintf(w, "%s%s%s%s\n", ColorBold, ColorCyan, separator, ColorReset)
	} else {
		fmt.Fprintf(w, "\n%s\n", separator)
		fmt.Fprintln(w, "Summary:")
		for _, line := range lines {
			fmt.Fprintln(w, line)
		}
		fmt.Fprintln(w, separator)
	}
}

func moneynessColor(m models.Moneyness, showColors bool) string {
	if !showColors {
		return ""
	}
	switch m {
	case models.MoneynessATM:
		return ColorYellow
	case models.MoneynessITM:
		return ColorGreen
	default:
		return ColorRed
	}
}

func resetColor(showColors bool) string {
	if showColors {
		return ColorReset
	}
	return ""
}

// formatMoney renders a price with two decimals
func formatMoney(v float64) string {
	return formatFixed(v, 2)
}

func formatFixed(v float64, places int32) string {
	return decimal.NewFromFloat(v).StringFixed(places)
}

// formatOptional renders nil as "N/A"
func formatOptional(v *float64, places int32) string {
	if v == nil {
		return "N/A"
	}
	return formatFixed(*v, places)
}

// progressMu keeps progress lines from different runs from interleaving
var progressMu sync.Mutex

// ShowProgress displays a progress line for ticker
func ShowProgress(ticker, msg string) {
	progressMu.Lock()
	defer progressMu.Unlock()

	if IsTerminal() {
		ClearLine()
		fmt.Printf("\r[%s] %s", ticker, msg)
		return
	}
	fmt.Printf("[%s] %s\n", ticker, msg)
}

// ClearLine clears the current line in the terminal
func ClearLine() {
	fmt.Print("\r" + strings.Repeat(" ", 80) + "\r")
}

// IsTerminal checks if stdout is a terminal
func IsTerminal() bool {
	fileInfo, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fileInfo.Mode() & os.ModeCharDevice) != 0
}
