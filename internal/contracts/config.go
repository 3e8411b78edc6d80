package contracts

// RiskParams holds the position sizing constants
type RiskParams struct {
	StopMultiplier float64 `json:"stop_multiplier" yaml:"stop_multiplier"` // stop = SMA short * multiplier
	BandMin        float64 `json:"band_min" yaml:"band_min"`
	BandMax        float64 `json:"band_max" yaml:"band_max"`
	FallbackRisk   float64 `json:"fallback_risk" yaml:"fallback_risk"`
	RewardRatio    float64 `json:"reward_ratio" yaml:"reward_ratio"`
	LotSize        int     `json:"lot_size" yaml:"lot_size"`
}

// DefaultRiskParams returns stop at 98% of SMA20, band [2%,10%], 5% fallback, 1:2, 100-share lots
func DefaultRiskParams() RiskParams {
	return RiskParams{
		StopMultiplier: 0.98,
		BandMin:        0.02,
		BandMax:        0.10,
		FallbackRisk:   0.05,
		RewardRatio:    2,
		LotSize:        100,
	}
}

// ScanConfig is the immutable per-run filter and risk configuration
// ⭐ SSOT: passed by value into every scan, never stored globally
type ScanConfig struct {
	RSIMin          float64 `json:"rsi_min" yaml:"rsi_min"`
	VolumeRatioMin  float64 `json:"volume_ratio_min" yaml:"volume_ratio_min"`
	PctChange1MMin  float64 `json:"pct_change_1m_min" yaml:"pct_change_1m_min"`
	MarketCapMin    float64 `json:"market_cap_min" yaml:"market_cap_min"`
	TotalBudget     float64 `json:"total_budget" yaml:"total_budget"`
	RiskPerTradePct float64 `json:"risk_per_trade_pct" yaml:"risk_per_trade_pct"`

	Windows Windows    `json:"windows" yaml:"windows"`
	Risk    RiskParams `json:"risk" yaml:"risk"`
}

// DefaultScanConfig returns a moderate configuration on a 10M budget
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		RSIMin:          50,
		VolumeRatioMin:  1.5,
		PctChange1MMin:  0,
		MarketCapMin:    0,
		TotalBudget:     10_000_000,
		RiskPerTradePct: 1,
		Windows:         DefaultWindows(),
		Risk:            DefaultRiskParams(),
	}
}

// WithDefaults fills zero-valued windows and risk params
func (c ScanConfig) WithDefaults() ScanConfig {
	w, dw := &c.Windows, DefaultWindows()
	if w.SMAShort == 0 {
		w.SMAShort = dw.SMAShort
	}
	if w.SMALong == 0 {
		w.SMALong = dw.SMALong
	}
	if w.RSI == 0 {
		w.RSI = dw.RSI
	}
	if w.Volume == 0 {
		w.Volume = dw.Volume
	}
	if w.PctChange == 0 {
		w.PctChange = dw.PctChange
	}

	r, dr := &c.Risk, DefaultRiskParams()
	if r.StopMultiplier == 0 {
		r.StopMultiplier = dr.StopMultiplier
	}
	if r.BandMin == 0 {
		r.BandMin = dr.BandMin
	}
	if r.BandMax == 0 {
		r.BandMax = dr.BandMax
	}
	if r.FallbackRisk == 0 {
		r.FallbackRisk = dr.FallbackRisk
	}
	if r.RewardRatio == 0 {
		r.RewardRatio = dr.RewardRatio
	}
	if r.LotSize == 0 {
		r.LotSize = dr.LotSize
	}
	return c
}

// Validate rejects out-of-range values. Returns *ConfigError.
func (c ScanConfig) Validate() error {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{Field: field, Message: msg})
	}

	if c.TotalBudget <= 0 {
		add("total_budget", "must be > 0")
	}
	if c.RiskPerTradePct <= 0 || c.RiskPerTradePct > 100 {
		add("risk_per_trade_pct", "must be in (0, 100]")
	}
	if c.RSIMin < 0 || c.RSIMin > 100 {
		add("rsi_min", "must be in [0, 100]")
	}
	if c.VolumeRatioMin < 0 {
		add("volume_ratio_min", "must be >= 0")
	}
	if c.MarketCapMin < 0 {
		add("market_cap_min", "must be >= 0")
	}

	w := c.Windows
	if w.SMAShort <= 0 || w.SMALong <= 0 || w.RSI < 2 || w.Volume <= 0 || w.PctChange <= 0 {
		add("windows", "must be positive (rsi >= 2)")
	}
	if w.SMALong > 0 && w.SMAShort >= w.SMALong {
		add("windows.sma_long", "must be longer than sma_short")
	}

	r := c.Risk
	if r.StopMultiplier <= 0 || r.StopMultiplier >= 1 {
		add("risk.stop_multiplier", "must be in (0, 1)")
	}
	if r.BandMin <= 0 || r.BandMax >= 1 || r.BandMin >= r.BandMax {
		add("risk.band", "must satisfy 0 < band_min < band_max < 1")
	}
	if r.FallbackRisk <= 0 || r.FallbackRisk >= 1 {
		add("risk.fallback_risk", "must be in (0, 1)")
	}
	if r.RewardRatio <= 0 {
		add("risk.reward_ratio", "must be > 0")
	}
	if r.LotSize < 1 {
		add("risk.lot_size", "must be >= 1")
	}

	if len(errs) > 0 {
		return &ConfigError{Errors: errs}
	}
	return nil
}

// RiskBudget is the rupiah amount at risk per trade
func (c ScanConfig) RiskBudget() float64 {
	return c.TotalBudget * c.RiskPerTradePct / 100
}
