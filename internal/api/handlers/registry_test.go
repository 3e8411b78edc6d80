package handlers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

func waitDone(t *testing.T, r *Registry, id string) {
	t.Helper()
	done, err := r.Done(id)
	require.NoError(t, err)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("run did not finish")
	}
}

func TestRegistryLifecycle(t *testing.T) {
	r := NewRegistry(5, logger.Nop())
	release := make(chan struct{})

	id := r.Start("default", func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		opts.OnState(contracts.StateFetching)
		<-release
		opts.OnProgress(contracts.Progress{RunID: opts.RunID, Batch: 1, Batches: 1, Processed: 2, Total: 2})
		return &contracts.ScanResult{RunID: opts.RunID, Total: 2, Processed: 2}, nil
	})

	events, unsubscribe, err := r.Subscribe(id)
	require.NoError(t, err)
	defer unsubscribe()

	close(release)

	p, ok := <-events
	require.True(t, ok)
	assert.Equal(t, 2, p.Processed)

	_, ok = <-events
	assert.False(t, ok, "channel closes when the run finishes")

	waitDone(t, r, id)
	view, err := r.Get(id)
	require.NoError(t, err)
	assert.Equal(t, contracts.StateDone, view.State)
	assert.True(t, view.Finished())
	require.NotNil(t, view.Result)
	assert.Equal(t, id, view.Result.RunID)

	assert.ErrorIs(t, r.Cancel(id), ErrRunFinished)
}

func TestRegistryCancel(t *testing.T) {
	r := NewRegistry(5, logger.Nop())
	started := make(chan struct{})

	id := r.Start("default", func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		close(started)
		<-ctx.Done()
		return &contracts.ScanResult{RunID: opts.RunID, Cancelled: true}, nil
	})

	<-started
	require.NoError(t, r.Cancel(id))
	waitDone(t, r, id)

	view, _ := r.Get(id)
	assert.Equal(t, contracts.StateCancelled, view.State)
	assert.True(t, view.Result.Cancelled)
}

func TestRegistryFailure(t *testing.T) {
	r := NewRegistry(5, logger.Nop())
	id := r.Start("default", func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		return nil, contracts.ErrEmptyUniverse
	})
	waitDone(t, r, id)

	view, _ := r.Get(id)
	assert.Equal(t, contracts.StateFailed, view.State)
	assert.Equal(t, contracts.ErrEmptyUniverse.Error(), view.Error)

	events, _, err := r.Subscribe(id)
	require.NoError(t, err)
	_, ok := <-events
	assert.False(t, ok, "subscribing to a finished run yields a closed channel")
}

func TestRegistryNotFound(t *testing.T) {
	r := NewRegistry(5, logger.Nop())
	_, err := r.Get("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
	assert.ErrorIs(t, r.Cancel("nope"), ErrRunNotFound)
	_, _, err = r.Subscribe("nope")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestRegistryEvictsFinishedRuns(t *testing.T) {
	r := NewRegistry(2, logger.Nop())
	quick := func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		return &contracts.ScanResult{RunID: opts.RunID}, nil
	}

	first := r.Start("a", quick)
	waitDone(t, r, first)
	second := r.Start("b", quick)
	waitDone(t, r, second)
	third := r.Start("c", quick)
	waitDone(t, r, third)

	_, err := r.Get(first)
	assert.ErrorIs(t, err, ErrRunNotFound)

	views := r.List()
	require.Len(t, views, 2)
	assert.Equal(t, third, views[0].ID)
	assert.Nil(t, views[0].Result, "list omits results")
}

func TestRegistryShutdownCancelsRuns(t *testing.T) {
	r := NewRegistry(5, logger.Nop())
	started := make(chan struct{})
	id := r.Start("default", func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error) {
		close(started)
		<-ctx.Done()
		return nil, errors.New("stopped")
	})
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	view, _ := r.Get(id)
	assert.Equal(t, contracts.StateFailed, view.State)
}
