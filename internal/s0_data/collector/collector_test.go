package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

type fakeSource struct {
	mu     sync.Mutex
	calls  map[string]int
	total  atomic.Int32
	bars   map[string][]contracts.Bar
	errs   map[string]error
	errAll error
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		calls: map[string]int{},
		bars:  map[string][]contracts.Bar{},
		errs:  map[string]error{},
	}
}

func (f *fakeSource) FetchChart(_ context.Context, symbol, _, _ string) ([]contracts.Bar, error) {
	f.total.Add(1)
	f.mu.Lock()
	f.calls[symbol]++
	f.mu.Unlock()

	if f.errAll != nil {
		return nil, f.errAll
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.bars[symbol], nil
}

func bars(n int) []contracts.Bar {
	out := make([]contracts.Bar, n)
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := range out {
		out[i] = contracts.Bar{Date: start.AddDate(0, 0, i), Close: float64(100 + i), Volume: 1000}
	}
	return out
}

func TestFetchBatch(t *testing.T) {
	src := newFakeSource()
	src.bars["AAAA.JK"] = bars(30)
	src.bars["BBBB.JK"] = bars(5)
	src.errs["CCCC.JK"] = fmt.Errorf("%w: CCCC.JK", contracts.ErrNoData)
	src.errs["DDDD.JK"] = errors.New("connection reset")

	c := NewCollector(src, Config{Workers: 3}, logger.Nop())
	results, err := c.FetchBatch(context.Background(),
		[]string{"AAAA.JK", "BBBB.JK", "CCCC.JK", "DDDD.JK", "AAAA.JK"}, "1y", "1d")
	require.NoError(t, err)
	require.Len(t, results, 4)

	assert.True(t, results["AAAA.JK"].OK())
	assert.Equal(t, 30, results["AAAA.JK"].Series.Len())
	assert.Equal(t, "AAAA.JK", results["AAAA.JK"].Series.Symbol)
	assert.Equal(t, 5, results["BBBB.JK"].Series.Len())
	assert.ErrorIs(t, results["CCCC.JK"].Err, contracts.ErrNoData)
	assert.Error(t, results["DDDD.JK"].Err)

	assert.Equal(t, 1, src.calls["AAAA.JK"], "duplicates are fetched once")
	assert.Equal(t, "closed", c.BreakerState())
}

func TestFetchBatchEmptySeriesIsNoData(t *testing.T) {
	src := newFakeSource()
	src.bars["AAAA.JK"] = []contracts.Bar{{Date: time.Now(), Close: 0}}
	src.bars["BBBB.JK"] = bars(2)

	results, err := NewCollector(src, Config{}, logger.Nop()).
		FetchBatch(context.Background(), []string{"AAAA.JK", "BBBB.JK"}, "1y", "1d")
	require.NoError(t, err)
	assert.ErrorIs(t, results["AAAA.JK"].Err, contracts.ErrNoData)
	assert.True(t, results["BBBB.JK"].OK())
}

func TestFetchBatchAllFailed(t *testing.T) {
	src := newFakeSource()
	src.errAll = errors.New("provider down")

	c := NewCollector(src, Config{Workers: 2, FailureThreshold: 100}, logger.Nop())
	_, err := c.FetchBatch(context.Background(), []string{"A.JK", "B.JK"}, "1y", "1d")
	require.Error(t, err)
	assert.ErrorIs(t, err, contracts.ErrFetchFailure)
}

func TestFetchBatchAllNoDataIsNotFailure(t *testing.T) {
	src := newFakeSource()
	src.errAll = contracts.ErrNoData

	c := NewCollector(src, Config{FailureThreshold: 1}, logger.Nop())
	results, err := c.FetchBatch(context.Background(), []string{"A.JK", "B.JK"}, "1y", "1d")
	require.NoError(t, err)
	assert.Len(t, results, 2)
	assert.Equal(t, "closed", c.BreakerState())
}

func TestFetchBatchBreakerOpens(t *testing.T) {
	src := newFakeSource()
	src.errAll = errors.New("503")

	c := NewCollector(src, Config{Workers: 1, FailureThreshold: 2, OpenTimeout: time.Hour}, logger.Nop())
	_, err := c.FetchBatch(context.Background(), []string{"A.JK", "B.JK", "C.JK"}, "1y", "1d")
	require.ErrorIs(t, err, contracts.ErrFetchFailure)
	assert.Equal(t, int32(2), src.total.Load(), "breaker short-circuits the third call")
	assert.Equal(t, "open", c.BreakerState())

	src.errAll = nil
	_, err = c.FetchBatch(context.Background(), []string{"D.JK"}, "1y", "1d")
	require.ErrorIs(t, err, contracts.ErrFetchFailure)
	assert.Equal(t, int32(2), src.total.Load())
}

func TestFetchBatchCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := newFakeSource()
	_, err := NewCollector(src, Config{}, logger.Nop()).FetchBatch(ctx, []string{"A.JK"}, "1y", "1d")
	require.ErrorIs(t, err, contracts.ErrFetchFailure)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, src.total.Load())
}

func TestFetchBatchEmpty(t *testing.T) {
	results, err := NewCollector(newFakeSource(), Config{}, logger.Nop()).
		FetchBatch(context.Background(), nil, "1y", "1d")
	require.NoError(t, err)
	assert.Empty(t, results)
}
