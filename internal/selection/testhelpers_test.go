package selection

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/wonny/swingscreener/internal/contracts"
)

type fakeLookup struct {
	mu    sync.Mutex
	caps  map[string]float64
	err   error
	calls map[string]int
}

func newFakeLookup(caps map[string]float64) *fakeLookup {
	return &fakeLookup{caps: caps, calls: map[string]int{}}
}

func (f *fakeLookup) MarketCap(ctx context.Context, symbol string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[symbol]++
	if f.err != nil {
		return 0, f.err
	}
	v, ok := f.caps[symbol]
	if !ok {
		return 0, errors.New("no market cap")
	}
	return v, nil
}

func (f *fakeLookup) total() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		n += c
	}
	return n
}

func makeSeries(symbol string, closes []float64, volumes []float64) contracts.Series {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]contracts.Bar, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		bars[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Open: c, High: c, Low: c, Close: c, Volume: v}
	}
	return contracts.Series{Symbol: symbol, Bars: bars}
}

func ramp(n int, from, to float64) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = to
		return out
	}
	step := (to - from) / float64(n-1)
	for i := range out {
		out[i] = from + step*float64(i)
	}
	return out
}

func flatVolume(n int, v float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// risingScenario is 252 closes from 100 to 150 with a 5x volume spike on the last bar
func risingScenario(symbol string) contracts.Series {
	vols := flatVolume(252, 1000)
	vols[251] = 5000
	return makeSeries(symbol, ramp(252, 100, 150), vols)
}

func scenarioConfig() contracts.ScanConfig {
	cfg := contracts.DefaultScanConfig()
	cfg.RSIMin = 50
	cfg.VolumeRatioMin = 2
	cfg.PctChange1MMin = 0
	cfg.MarketCapMin = 0
	cfg.TotalBudget = 10_000_000
	cfg.RiskPerTradePct = 1
	return cfg
}
