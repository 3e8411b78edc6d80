package strategyconfig

import (
	"time"

	"github.com/wonny/swingscreener/internal/contracts"
)

// File is a preset library as stored on disk
type File struct {
	Version int      `yaml:"version" json:"version"`
	Presets []Preset `yaml:"presets" json:"presets"`
}

// Preset is a named scan configuration
type Preset struct {
	Name        string               `yaml:"name" json:"name"`
	Description string               `yaml:"description" json:"description"`
	Scan        contracts.ScanConfig `yaml:"scan" json:"scan"`
}

// Get returns the preset called name
func (f *File) Get(name string) (Preset, error) {
	for _, p := range f.Presets {
		if p.Name == name {
			return p, nil
		}
	}
	return Preset{}, &UnknownPresetError{Name: name, Known: f.Names()}
}

// Names lists preset names in file order
func (f *File) Names() []string {
	names := make([]string, len(f.Presets))
	for i, p := range f.Presets {
		names[i] = p.Name
	}
	return names
}

// Config returns the preset's scan config. A zero budget or risk percent in
// the preset is taken from the process environment.
func (p Preset) Config(totalBudget, riskPct float64) contracts.ScanConfig {
	cfg := p.Scan
	if cfg.TotalBudget == 0 {
		cfg.TotalBudget = totalBudget
	}
	if cfg.RiskPerTradePct == 0 {
		cfg.RiskPerTradePct = riskPct
	}
	return cfg.WithDefaults()
}

// DecisionSnapshot records which preset drove a scan (reproducibility)
type DecisionSnapshot struct {
	Preset     string    `json:"preset"`
	ConfigHash string    `json:"config_hash"`
	Source     string    `json:"source"` // builtin or file path
	CreatedAt  time.Time `json:"created_at"`
}
