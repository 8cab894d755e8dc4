package services

import (
	"errors"
	"fmt"
)

var (
	// ErrRelayExhausted is matched by every RelayExhaustedError
	ErrRelayExhausted = errors.New("all relays failed")
	// ErrDataUnavailable is matched by every DataUnavailableError
	ErrDataUnavailable = errors.New("data unavailable")
	// ErrEmptyTicker is returned when the ticker is blank after trimming
	ErrEmptyTicker = errors.New("ticker is required")
)

// RelayExhaustedError is returned when every relay failed in every round
type RelayExhaustedError struct {
	Label    string
	Attempts int
	LastErr  error
}

func (e *RelayExhaustedError) Error() string {
	if e.LastErr == nil {
		return fmt.Sprintf("failed to fetch %s after %d attempts", e.Label, e.Attempts)
	}
	return fmt.Sprintf("failed to fetch %s after %d attempts: %v", e.Label, e.Attempts, e.LastErr)
}

func (e *RelayExhaustedError) Is(target error) bool { return target == ErrRelayExhausted }

func (e *RelayExhaustedError) Unwrap() error { return e.LastErr }

// DataUnavailableError is returned when the feed answered but lacked the
// expected data for a ticker. Err holds the decode failure, if any.
type DataUnavailableError struct {
	Ticker string
	What   string
	Err    error
}

func (e *DataUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s not available for %s: %v", e.What, e.Ticker, e.Err)
	}
	return fmt.Sprintf("%s not available for %s", e.What, e.Ticker)
}

func (e *DataUnavailableError) Unwrap() error { return e.Err }

func (e *DataUnavailableError) Is(target error) bool { return target == ErrDataUnavailable }
