package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"golang.org/x/net/publicsuffix"

	"premium-scanner/config"
	"premium-scanner/utils"
)

// maxResponseBytes caps how much of a relay response is read
const maxResponseBytes = 16 << 20

// RelayBuilder turns a target URL into the URL actually requested
type RelayBuilder func(target string) string

// StatusFunc receives human-readable progress messages
type StatusFunc func(msg string)

// DirectRelay requests the target unmodified
func DirectRelay(target string) string { return target }

// PrefixRelay returns a builder that appends the escaped target to prefix
func PrefixRelay(prefix string) RelayBuilder {
	return func(target string) string {
		return prefix + url.QueryEscape(target)
	}
}

// DefaultRelays returns the public relays in the order they are tried,
// ending with the direct request
func DefaultRelays() []RelayBuilder {
	return []RelayBuilder{
		PrefixRelay("https://corsproxy.io/?url="),
		PrefixRelay("https://api.allorigins.win/raw?url="),
		PrefixRelay("https://api.codetabs.com/v1/proxy?quest="),
		DirectRelay,
	}
}

// RelayFetcher fetches JSON documents through a rotating list of relays
type RelayFetcher struct {
	httpClient *http.Client
	relays     []RelayBuilder
	cfg        config.RelayConfig
	limiter    *utils.RateLimiter
	status     StatusFunc
}

// NewRelayFetcher creates a new relay fetcher from configuration
func NewRelayFetcher(cfg config.RelayConfig) *RelayFetcher {
	jar, _ := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})

	relays := DefaultRelays()
	if cfg.DirectOnly {
		relays = []RelayBuilder{DirectRelay}
	}

	return &RelayFetcher{
		httpClient: &http.Client{
			Jar: jar,
		},
		relays:  relays,
		cfg:     cfg,
		limiter: utils.NewRateLimiter(cfg.RequestsPerSecond),
	}
}

// WithRelays returns a copy of the fetcher using the given relays
func (rf *RelayFetcher) WithRelays(relays ...RelayBuilder) *RelayFetcher {
	cp := *rf
	cp.relays = append([]RelayBuilder(nil), relays...)
	return &cp
}

// WithStatus returns a copy of the fetcher reporting progress to fn.
// The copy shares the HTTP client and the rate limiter.
func (rf *RelayFetcher) WithStatus(fn StatusFunc) *RelayFetcher {
	cp := *rf
	cp.status = fn
	return &cp
}

// Fetch requests target through every relay, round after round, and returns
// the first response body that is a JSON object or array. label names what is being
// fetched in progress messages and in the final error.
func (rf *RelayFetcher) Fetch(ctx context.Context, target, label string) (json.RawMessage, error) {
	n := len(rf.relays)
	if n == 0 {
		return nil, &RelayExhaustedError{Label: label, LastErr: errors.New("no relays configured")}
	}

	total := n * rf.cfg.MaxRetries
	attempts := 0
	var lastErr error

	for round := 0; round < rf.cfg.MaxRetries; round++ {
		for i := 0; i < n; i++ {
			idx := (round + i) % n
			attempts++
			notify(rf.status, fmt.Sprintf("Fetching %s (attempt %d/%d)...", label, attempts, total))

			body, err := rf.attempt(ctx, rf.relays[idx](target))
			if err == nil {
				return body, nil
			}
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		}

		if round < rf.cfg.MaxRetries-1 {
			if err := sleepContext(ctx, rf.cfg.Backoff*time.Duration(round+1)); err != nil {
				return nil, err
			}
		}
	}

	return nil, &RelayExhaustedError{Label: label, Attempts: attempts, LastErr: lastErr}
}

// attempt performs one request. Every returned error is a soft failure.
func (rf *RelayFetcher) attempt(ctx context.Context, requestURL string) (json.RawMessage, error) {
	if err := rf.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, rf.cfg.RequestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	rf.setRequestHeaders(req)

	resp, err := rf.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("relay returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	body = bytes.TrimSpace(body)
	if err := rf.checkPayload(body); err != nil {
		return nil, err
	}

	if looksLikeHTML(body) {
		body, err = unwrapHTML(body)
		if err != nil {
			return nil, err
		}
		// Same rules for the unwrapped payload
		if err := rf.checkPayload(body); err != nil {
			return nil, fmt.Errorf("unwrapped %w", err)
		}
		if !looksLikeDocument(body) {
			return nil, errors.New("unwrapped response is not a JSON document")
		}
	}

	if !json.Valid(body) {
		return nil, errors.New("response is not valid JSON")
	}
	if !looksLikeDocument(body) {
		return nil, errors.New("response is not a JSON document")
	}

	return json.RawMessage(body), nil
}

func (rf *RelayFetcher) checkPayload(body []byte) error {
	if len(body) < rf.cfg.MinBodyBytes {
		return fmt.Errorf("response too short (%d bytes)", len(body))
	}
	return nil
}

// looksLikeDocument reports whether body is a JSON object or array
func looksLikeDocument(body []byte) bool {
	return len(body) > 0 && (body[0] == '{' || body[0] == '[')
}

// setRequestHeaders sets browser-like headers
func (rf *RelayFetcher) setRequestHeaders(req *http.Request) {
	if rf.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", rf.cfg.UserAgent)
	}
	req.Header.Set("Accept", "application/json,text/plain;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "en-US,en;q=0.5")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
