package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/wonny/swingscreener/internal/contracts"
)

var namePattern = regexp.MustCompile(`^[a-z0-9_]+$`)

// ValidationError aborts loading
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Unwrap lets errors.Is(err, contracts.ErrInvalidConfig) match
func (e ValidationError) Unwrap() error {
	return contracts.ErrInvalidConfig
}

// UnknownPresetError is returned by File.Get
type UnknownPresetError struct {
	Name  string
	Known []string
}

func (e *UnknownPresetError) Error() string {
	return fmt.Sprintf("unknown preset %q (known: %v)", e.Name, e.Known)
}

// Validate checks every preset. Scan values are checked after defaults are
// applied, with a placeholder budget when the preset leaves it to the environment.
func Validate(f *File) error {
	if f.Version != 1 {
		return ValidationError{"version", fmt.Sprintf("unsupported version %d", f.Version)}
	}
	if len(f.Presets) == 0 {
		return ValidationError{"presets", "at least one preset required"}
	}

	seen := make(map[string]bool, len(f.Presets))
	for i, p := range f.Presets {
		field := fmt.Sprintf("presets[%d]", i)
		if !namePattern.MatchString(p.Name) {
			return ValidationError{field + ".name", "must match [a-z0-9_]+"}
		}
		if seen[p.Name] {
			return ValidationError{field + ".name", fmt.Sprintf("duplicate preset %q", p.Name)}
		}
		seen[p.Name] = true

		if p.Scan.TotalBudget < 0 {
			return ValidationError{field + ".scan.total_budget", "must be >= 0"}
		}

		if err := p.Config(1, 1).Validate(); err != nil {
			var cfgErr *contracts.ConfigError
			if errors.As(err, &cfgErr) && len(cfgErr.Errors) > 0 {
				first := cfgErr.Errors[0]
				return ValidationError{field + ".scan." + first.Field, first.Message}
			}
			return ValidationError{field + ".scan", err.Error()}
		}
	}

	return nil
}
