// Package synchronizer keeps the cached expense list in step with the remote
// source: a full reload on a fixed interval plus local appends after a
// successful create.
package synchronizer

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"expenseview/internal/cache"
	"expenseview/internal/core"
	applog "expenseview/internal/log"
	"expenseview/internal/metrics"
	"expenseview/internal/remote"
)

// DefaultInterval is the revalidation period.
const DefaultInterval = 30 * time.Second

var (
	// ErrStopped is returned when a command is submitted after Run has exited
	// or before it started.
	ErrStopped = errors.New("synchronizer is not running")
	// ErrAlreadyRunning is returned by a second call to Run.
	ErrAlreadyRunning = errors.New("synchronizer already running")
)

// Options configures a Synchronizer.
type Options struct {
	Interval time.Duration
	Logger   *applog.Logger
}

type request struct {
	cmd  cache.Command
	done chan struct{}
}

// Synchronizer owns a cache.State. Every mutation goes through the command
// channel and is applied by the Run loop in arrival order.
type Synchronizer struct {
	source   remote.ExpenseLister
	state    *cache.State
	interval time.Duration
	logger   *applog.Logger

	cmds    chan request
	refresh chan struct{}
	started chan struct{}
	stopped chan struct{}
	running atomic.Bool
	loading atomic.Bool
}

// New builds a synchronizer over state. Run must be called to start it.
func New(source remote.ExpenseLister, state *cache.State, opts Options) *Synchronizer {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	return &Synchronizer{
		source:   source,
		state:    state,
		interval: opts.Interval,
		logger:   opts.Logger.WithComponent(applog.ComponentSync),
		cmds:     make(chan request),
		refresh:  make(chan struct{}, 1),
		started:  make(chan struct{}),
		stopped:  make(chan struct{}),
	}
}

// Run loads immediately, then every interval, and applies queued commands
// until ctx is done. The ticker is released on return.
func (s *Synchronizer) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.stopped)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	close(s.started)
	s.logger.InfoContext(ctx, "Synchronizer started", "interval", s.interval.String())
	s.startLoad(ctx, "initial")

	for {
		select {
		case <-ctx.Done():
			s.logger.InfoContext(ctx, "Synchronizer stopped", "reason", ctx.Err())
			return nil
		case <-ticker.C:
			s.startLoad(ctx, "interval")
		case <-s.refresh:
			s.startLoad(ctx, "requested")
		case req := <-s.cmds:
			s.apply(ctx, req.cmd)
			if req.done != nil {
				close(req.done)
			}
		}
	}
}

// Load fetches the full list and waits until the result has been applied.
// It returns the *core.FetchError that was recorded, if any.
func (s *Synchronizer) Load(ctx context.Context) error {
	cmd, err := s.fetch(ctx)
	if subErr := s.submit(ctx, cmd, true); subErr != nil {
		return subErr
	}
	return err
}

// AppendLocal adds a record to the end of the cached list without fetching.
// The next load overwrites it with whatever the server returns.
func (s *Synchronizer) AppendLocal(ctx context.Context, e core.Expense) error {
	return s.submit(ctx, cache.Append(e), true)
}

// Refresh asks the Run loop for a load and returns immediately. Requests
// made while one is already pending are coalesced.
func (s *Synchronizer) Refresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

// Snapshot returns the current cached state.
func (s *Synchronizer) Snapshot() cache.Snapshot {
	return s.state.Snapshot()
}

// Done is closed once Run has returned.
func (s *Synchronizer) Done() <-chan struct{} {
	return s.stopped
}

// startLoad runs one background load unless another is still in flight.
func (s *Synchronizer) startLoad(ctx context.Context, trigger string) {
	if !s.loading.CompareAndSwap(false, true) {
		s.logger.DebugContext(ctx, "Load already in flight, skipping", "trigger", trigger)
		return
	}
	go func() {
		defer s.loading.Store(false)
		cmd, _ := s.fetch(ctx)
		if ctx.Err() != nil {
			return
		}
		_ = s.submit(ctx, cmd, false)
	}()
}

func (s *Synchronizer) fetch(ctx context.Context) (cache.Command, error) {
	start := time.Now()
	expenses, err := s.source.ListExpenses(ctx)
	elapsed := time.Since(start)
	metrics.ObserveLoad(elapsed, err)

	if err != nil {
		var fe *core.FetchError
		if !errors.As(err, &fe) {
			fe = &core.FetchError{Err: err}
		}
		s.logger.ErrorContext(ctx, "Failed to load expenses",
			applog.FieldOperation, applog.OpLoad,
			applog.FieldError, fe.Error(),
			applog.FieldStatusCode, fe.Status,
			applog.FieldDuration, elapsed.Milliseconds())
		return cache.Fail(fe), fe
	}

	s.logger.DebugContext(ctx, "Loaded expenses",
		applog.FieldOperation, applog.OpLoad,
		applog.FieldCount, len(expenses),
		applog.FieldDuration, elapsed.Milliseconds())
	return cache.Replace(expenses), nil
}

func (s *Synchronizer) submit(ctx context.Context, cmd cache.Command, wait bool) error {
	select {
	case <-s.started:
	default:
		return ErrStopped
	}

	req := request{cmd: cmd}
	if wait {
		req.done = make(chan struct{})
	}
	select {
	case s.cmds <- req:
	case <-s.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	if !wait {
		return nil
	}
	select {
	case <-req.done:
		return nil
	case <-s.stopped:
		return ErrStopped
	}
}

func (s *Synchronizer) apply(ctx context.Context, cmd cache.Command) {
	version := s.state.Apply(cmd)
	snap := s.state.Snapshot()
	metrics.ObserveCommand(cmd.Name(), len(snap.Expenses), snap.Total())
	s.logger.DebugContext(ctx, "Cache updated",
		applog.FieldCommand, cmd.Name(),
		applog.FieldVersion, version,
		applog.FieldCount, len(snap.Expenses))
}
