package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"premium-scanner/config"
	"premium-scanner/models"
	"premium-scanner/server"
	"premium-scanner/services"
	"premium-scanner/utils"
)

func main() {
	// Command line flags
	var (
		tickerList = flag.String("ticker", "", "Ticker symbol(s), comma separated")
		tickerFile = flag.String("tickers", "", "Path to ticker CSV file (first column, header row)")
		expiry     = flag.String("expiry", "", "Target expiration date YYYY-MM-DD (default: next Friday)")
		window     = flag.Int("window", 8, "Strikes on each side of the money to analyze (3-20)")
		maxWorkers = flag.Int("workers", 4, "Maximum number of tickers analyzed in parallel")
		showColors = flag.Bool("colors", true, "Enable colored output")
		progress   = flag.Bool("progress", true, "Show progress messages")
		maxResults = flag.Int("limit", 0, "Maximum number of ranked contracts to show (0 = no limit)")
		jsonOut    = flag.Bool("json", false, "Print results as JSON")
		directOnly = flag.Bool("direct", false, "Skip public relays and call the feed directly")
		serveAddr  = flag.String("serve", "", "Serve the HTTP API on this address (e.g. :8080)")
		envFile    = flag.String("env", ".env", "Path to an optional .env file")
		help       = flag.Bool("help", false, "Show help message")
	)
	flag.Parse()

	if *help {
		showHelp()
		return
	}

	// Load configuration
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadEnv(*envFile); err != nil {
		log.Fatalf("Configuration loading failed: %v", err)
	}

	// Explicit flags override the environment
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "window":
			cfg.Analysis.HalfWindow = *window
		case "workers":
			cfg.Processing.MaxWorkers = *maxWorkers
		case "direct":
			cfg.Relay.DirectOnly = *directOnly
		case "serve":
			cfg.Server.Addr = *serveAddr
		}
	})
	cfg.Output.ShowColors = *showColors && utils.IsTerminal()
	cfg.Output.ShowProgress = *progress
	cfg.Output.MaxResults = *maxResults
	cfg.Output.JSON = *jsonOut

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	app := NewApplication(cfg)

	if cfg.Server.Addr != "" {
		if err := app.Serve(); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
		return
	}

	tickers := services.ParseTickers(*tickerList)
	if *tickerFile != "" {
		fromFile, err := services.LoadTickersFromCSV(*tickerFile)
		if err != nil {
			log.Fatalf("Failed to load tickers: %v", err)
		}
		tickers = services.ParseTickers(strings.Join(append(tickers, fromFile...), ","))
	}
	if len(tickers) == 0 {
		showHelp()
		os.Exit(2)
	}

	var target time.Time
	if *expiry != "" {
		t, err := time.ParseInLocation("2006-01-02", *expiry, time.Local)
		if err != nil {
			log.Fatalf("Invalid -expiry %q: expected YYYY-MM-DD", *expiry)
		}
		target = t
	}

	if err := app.Run(tickers, target); err != nil {
		log.Fatalf("Application failed: %v", err)
	}
}

// Application represents the main application
type Application struct {
	config  *config.Config
	service *services.OptionsService
}

// NewApplication creates a new application instance
func NewApplication(cfg *config.Config) *Application {
	return &Application{
		config:  cfg,
		service: services.NewOptionsService(cfg),
	}
}

// tickerResult is the outcome of one ticker's run
type tickerResult struct {
	ticker string
	result *models.AnalysisResult
	err    error
}

// Run analyzes every ticker and displays the results in input order
func (app *Application) Run(tickers []string, target time.Time) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	results := app.processTickers(ctx, tickers, target)

	var (
		ok     []*models.AnalysisResult
		failed []tickerResult
	)
	for _, r := range results {
		if r.err != nil {
			failed = append(failed, r)
			continue
		}
		ok = append(ok, r.result)
	}

	if app.config.Output.JSON {
		if len(ok) > 0 {
			if err := utils.DisplayJSON(os.Stdout, ok); err != nil {
				return fmt.Errorf("failed to encode results: %w", err)
			}
		}
	} else {
		for _, r := range ok {
			utils.DisplayAnalysis(os.Stdout, r, app.config.Output.ShowColors, app.config.Output.MaxResults)
			fmt.Println()
		}
	}

	// Report errors if any
	if len(failed) > 0 {
		fmt.Fprintf(os.Stderr, "\nWarning: %d of %d tickers failed:\n", len(failed), len(tickers))
		for _, r := range failed {
			fmt.Fprintf(os.Stderr, "  - %s: %v\n", r.ticker, r.err)
		}
	}

	if len(ok) == 0 {
		return errors.New("no ticker could be analyzed")
	}
	return nil
}

// processTickers runs one independent analysis per ticker on the worker pool
func (app *Application) processTickers(ctx context.Context, tickers []string, target time.Time) []tickerResult {
	results := make([]tickerResult, len(tickers))

	workerPool := utils.NewWorkerPool(app.config.Processing.MaxWorkers)

	var wg sync.WaitGroup
	for i, ticker := range tickers {
		wg.Add(1)
		workerPool.Submit(func() {
			defer wg.Done()
			result, err := app.processTicker(ctx, ticker, target)
			results[i] = tickerResult{ticker: ticker, result: result, err: err}
		})
	}
	wg.Wait()
	workerPool.Close()

	if app.config.Output.ShowProgress && !app.config.Output.JSON && utils.IsTerminal() {
		utils.ClearLine()
	}

	return results
}

// processTicker runs the pipeline for a single ticker
func (app *Application) processTicker(ctx context.Context, ticker string, target time.Time) (*models.AnalysisResult, error) {
	ctx, cancel := context.WithTimeout(ctx, app.config.Processing.RunTimeout)
	defer cancel()

	var status services.StatusFunc
	if app.config.Output.ShowProgress && !app.config.Output.JSON {
		status = func(msg string) { utils.ShowProgress(ticker, msg) }
	}

	return app.service.Analyze(ctx, services.Request{
		Ticker:     ticker,
		TargetDate: target,
		HalfWindow: app.config.Analysis.HalfWindow,
	}, status)
}

// Serve runs the HTTP API until interrupted
func (app *Application) Serve() error {
	handlers := server.NewHandlers(app.service, app.config.Analysis.HalfWindow, app.config.Processing.RunTimeout)

	srv := &http.Server{
		Addr:              app.config.Server.Addr,
		Handler:           server.NewRouter(handlers),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Printf("API server listening on %s", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Println("Shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// showHelp displays help information
func showHelp() {
	fmt.Println("Covered Call Premium Scanner")
	fmt.Println("============================")
	fmt.Println()
	fmt.Println("Ranks the call options of a stock by how much time value they pay per day")
	fmt.Println("for each unit of delta risk, using live data from Yahoo Finance:")
	fmt.Println("- extrinsic value = mid price minus intrinsic value")
	fmt.Println("- efficiency = extrinsic per day / |delta| (extrinsic per day when delta is missing)")
	fmt.Println("- annualized yield = extrinsic / strike x 365 / days to expiry")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  premium-scanner -ticker SYMBOL[,SYMBOL...] [options]")
	fmt.Println("  premium-scanner -serve :8080")
	fmt.Println()
	fmt.Println("Options:")
	flag.PrintDefaults()
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  premium-scanner -ticker AAPL")
	fmt.Println("  premium-scanner -ticker AAPL,MSFT -expiry 2026-11-20 -window 5")
	fmt.Println("  premium-scanner -tickers data/watchlist.csv -limit 5 -json")
	fmt.Println("  premium-scanner -serve :8080")
	fmt.Println()
}
