package s1_universe

import "context"

// Static is an in-memory universe
type Static struct {
	name    string
	symbols []string
}

// NewStatic returns a provider over a fixed list
func NewStatic(name string, symbols []string) *Static {
	return &Static{name: name, symbols: symbols}
}

// Name implements contracts.UniverseProvider
func (s *Static) Name() string {
	return s.name
}

// Symbols returns a copy of the list
func (s *Static) Symbols(_ context.Context) ([]string, error) {
	out := make([]string, len(s.symbols))
	copy(out, s.symbols)
	return out, nil
}
