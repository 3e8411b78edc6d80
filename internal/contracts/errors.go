package contracts

import (
	"errors"
	"fmt"
	"strings"
)

// Error taxonomy shared by every stage
var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrFetchFailure        = errors.New("fetch failure")
	ErrLookupFailure       = errors.New("fundamental lookup failure")
	ErrDegenerateRisk      = errors.New("degenerate risk")
	ErrInvalidConfig       = errors.New("invalid scan config")
	ErrEmptyUniverse       = errors.New("empty universe")
	ErrNoData              = errors.New("no data for symbol")
)

// FetchError reports a whole-batch market data failure
type FetchError struct {
	Batch   int
	Symbols int
	Err     error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("batch %d (%d symbols): %v", e.Batch, e.Symbols, e.Err)
}

// Unwrap makes errors.Is(err, ErrFetchFailure) hold for every FetchError
func (e *FetchError) Unwrap() []error {
	return []error{ErrFetchFailure, e.Err}
}

// ValidationError is a single invalid config field
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigError collects every invalid field of a ScanConfig
type ConfigError struct {
	Errors []ValidationError
}

func (e *ConfigError) Error() string {
	parts := make([]string, len(e.Errors))
	for i, v := range e.Errors {
		parts[i] = v.Error()
	}
	return fmt.Sprintf("%v: %s", ErrInvalidConfig, strings.Join(parts, "; "))
}

// Unwrap lets errors.Is(err, ErrInvalidConfig) match
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfig
}
