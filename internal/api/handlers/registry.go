package handlers

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/swingscreener/internal/brain"
	"github.com/wonny/swingscreener/internal/contracts"
	"github.com/wonny/swingscreener/pkg/logger"
)

var (
	ErrRunNotFound = errors.New("scan run not found")
	ErrRunFinished = errors.New("scan run already finished")
)

// RunFunc executes one scan with the observers the registry supplies
type RunFunc func(ctx context.Context, opts brain.RunOptions) (*contracts.ScanResult, error)

// RunView is a point-in-time copy of a tracked run
type RunView struct {
	ID         string                `json:"id"`
	Preset     string                `json:"preset"`
	State      contracts.RunState    `json:"state"`
	Progress   contracts.Progress    `json:"progress"`
	Error      string                `json:"error,omitempty"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt *time.Time            `json:"finished_at,omitempty"`
	Result     *contracts.ScanResult `json:"result,omitempty"`
}

// Finished reports whether the run reached a terminal state
func (v RunView) Finished() bool {
	return v.FinishedAt != nil
}

type trackedRun struct {
	view   RunView
	cancel context.CancelFunc
	done   chan struct{}
	subs   map[chan contracts.Progress]struct{}
}

// Registry tracks scans started through the API, in memory
// ⭐ SSOT: API-triggered scan runs are owned by this registry only
type Registry struct {
	mu    sync.RWMutex
	runs  map[string]*trackedRun
	order []string
	limit int

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	logger *logger.Logger
}

// NewRegistry keeps at most limit finished runs (default 20)
func NewRegistry(limit int, log *logger.Logger) *Registry {
	if limit <= 0 {
		limit = 20
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Registry{
		runs:   make(map[string]*trackedRun),
		limit:  limit,
		ctx:    ctx,
		cancel: cancel,
		logger: log.WithComponent("scan_registry"),
	}
}

// Start launches fn in the background and returns the run ID
func (r *Registry) Start(preset string, fn RunFunc) string {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(r.ctx)

	run := &trackedRun{
		view: RunView{
			ID:        id,
			Preset:    preset,
			State:     contracts.StateIdle,
			StartedAt: time.Now(),
		},
		cancel: cancel,
		done:   make(chan struct{}),
		subs:   make(map[chan contracts.Progress]struct{}),
	}

	r.mu.Lock()
	r.runs[id] = run
	r.order = append(r.order, id)
	r.evictLocked()
	r.mu.Unlock()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer cancel()

		result, err := fn(ctx, brain.RunOptions{
			RunID:      id,
			Preset:     preset,
			OnProgress: func(p contracts.Progress) { r.publish(id, p) },
			OnState:    func(s contracts.RunState) { r.setState(id, s) },
		})
		r.finish(id, result, err)
	}()

	r.logger.WithRun(id).WithField("preset", preset).Info("Scan run started")
	return id
}

// Get returns a copy of the run
func (r *Registry) Get(id string) (RunView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return RunView{}, ErrRunNotFound
	}
	return run.view, nil
}

// List returns every tracked run, newest first, without results
func (r *Registry) List() []RunView {
	r.mu.RLock()
	defer r.mu.RUnlock()

	views := make([]RunView, 0, len(r.order))
	for i := len(r.order) - 1; i >= 0; i-- {
		v := r.runs[r.order[i]].view
		v.Result = nil
		views = append(views, v)
	}
	return views
}

// Cancel asks a running scan to stop after the current batch
func (r *Registry) Cancel(id string) error {
	r.mu.RLock()
	run, ok := r.runs[id]
	r.mu.RUnlock()

	if !ok {
		return ErrRunNotFound
	}
	select {
	case <-run.done:
		return ErrRunFinished
	default:
	}

	run.cancel()
	r.logger.WithRun(id).Info("Scan run cancellation requested")
	return nil
}

// Done returns a channel closed when the run finishes
func (r *Registry) Done(id string) (<-chan struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, ErrRunNotFound
	}
	return run.done, nil
}

// Subscribe streams progress events of a run. The channel is closed when
// the run finishes; slow readers miss events rather than block the scan.
func (r *Registry) Subscribe(id string) (<-chan contracts.Progress, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return nil, nil, ErrRunNotFound
	}

	ch := make(chan contracts.Progress, 16)
	select {
	case <-run.done:
		close(ch)
		return ch, func() {}, nil
	default:
	}

	run.subs[ch] = struct{}{}
	unsubscribe := func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		if _, ok := run.subs[ch]; ok {
			delete(run.subs, ch)
			close(ch)
		}
	}
	return ch, unsubscribe, nil
}

// Shutdown cancels every running scan and waits for them to return
func (r *Registry) Shutdown(ctx context.Context) error {
	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Registry) setState(id string, s contracts.RunState) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if run, ok := r.runs[id]; ok {
		run.view.State = s
	}
}

func (r *Registry) publish(id string, p contracts.Progress) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}
	run.view.Progress = p
	for ch := range run.subs {
		select {
		case ch <- p:
		default:
		}
	}
}

func (r *Registry) finish(id string, result *contracts.ScanResult, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	run, ok := r.runs[id]
	if !ok {
		return
	}

	now := time.Now()
	run.view.FinishedAt = &now
	run.view.Result = result

	switch {
	case err != nil:
		run.view.State = contracts.StateFailed
		run.view.Error = err.Error()
	case result != nil && result.Cancelled:
		run.view.State = contracts.StateCancelled
	default:
		run.view.State = contracts.StateDone
	}

	for ch := range run.subs {
		close(ch)
	}
	run.subs = make(map[chan contracts.Progress]struct{})
	close(run.done)

	log := r.logger.WithRun(id).WithField("state", string(run.view.State))
	if err != nil {
		log.WithError(err).Warn("Scan run failed")
	} else {
		log.Info("Scan run finished")
	}
}

// evictLocked drops the oldest finished runs beyond the limit
func (r *Registry) evictLocked() {
	excess := len(r.order) - r.limit
	if excess <= 0 {
		return
	}

	kept := r.order[:0]
	for _, id := range r.order {
		run := r.runs[id]
		if excess > 0 && run.view.Finished() {
			delete(r.runs, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
}
