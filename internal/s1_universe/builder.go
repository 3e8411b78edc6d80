package s1_universe

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

// IDX equity codes are four letters. Warrants and rights carry -W / -R.
var codePattern = regexp.MustCompile(`^[A-Z0-9]{4,}(\.[A-Z]{1,3})?$`)

// Builder normalizes a provider's identifiers into a scan universe
type Builder struct {
	config Config
	logger *logger.Logger
}

// Config holds universe filter criteria
type Config struct {
	Suffix        string   `yaml:"suffix"`         // exchange suffix appended to bare codes
	MinCodeLength int      `yaml:"min_code_length"` // shorter codes are dropped
	Dedupe        bool     `yaml:"dedupe"`
	Exclude       []string `yaml:"exclude"` // explicit symbols to drop
}

// DefaultConfig targets the Indonesia Stock Exchange
func DefaultConfig() Config {
	return Config{
		Suffix:        ".JK",
		MinCodeLength: 4,
		Dedupe:        true,
	}
}

// NewBuilder creates a new Universe Builder
func NewBuilder(config Config, log *logger.Logger) *Builder {
	return &Builder{
		config: config,
		logger: log.WithField("module", "universe"),
	}
}

// Build reads the provider and filters its identifiers
// ⭐ SSOT: S1 universe construction
func (b *Builder) Build(ctx context.Context, provider contracts.UniverseProvider) (*contracts.Universe, error) {
	raw, err := provider.Symbols(ctx)
	if err != nil {
		return nil, fmt.Errorf("read universe %s: %w", provider.Name(), err)
	}

	universe := b.Filter(raw)
	universe.Source = provider.Name()

	b.logger.WithFields(map[string]interface{}{
		"source":   universe.Source,
		"total":    universe.TotalCount,
		"symbols":  universe.Count(),
		"excluded": len(universe.Excluded),
	}).Info("Universe built")

	if universe.Count() == 0 {
		return universe, fmt.Errorf("%w: source %s", contracts.ErrEmptyUniverse, universe.Source)
	}
	return universe, nil
}

// Filter applies the exclusion rules in order, keeping the input order
func (b *Builder) Filter(raw []string) *contracts.Universe {
	universe := &contracts.Universe{
		Symbols:    make([]string, 0, len(raw)),
		Excluded:   make(map[string]string),
		TotalCount: len(raw),
	}

	exclude := make(map[string]bool, len(b.config.Exclude))
	for _, s := range b.config.Exclude {
		exclude[contracts.NormalizeSymbol(s, b.config.Suffix)] = true
	}

	seen := make(map[string]bool, len(raw))
	for _, r := range raw {
		symbol := contracts.NormalizeSymbol(r, b.config.Suffix)
		if reason := b.checkExclusion(symbol, seen, exclude); reason != "" {
			universe.Excluded[r] = reason
			continue
		}
		seen[symbol] = true
		universe.Symbols = append(universe.Symbols, symbol)
	}

	return universe
}

// checkExclusion returns why a symbol is dropped, or "" when it stays
func (b *Builder) checkExclusion(symbol string, seen, exclude map[string]bool) string {
	if symbol == "" {
		return "empty"
	}

	code := symbol
	if i := strings.Index(symbol, "."); i >= 0 {
		code = symbol[:i]
	}
	if len(code) < b.config.MinCodeLength {
		return fmt.Sprintf("code too short (%d)", len(code))
	}
	if !codePattern.MatchString(symbol) {
		return "invalid code"
	}
	if exclude[symbol] {
		return "excluded"
	}
	if b.config.Dedupe && seen[symbol] {
		return "duplicate"
	}
	return ""
}
