package bootstrap

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

// Outcome is the result of a bootstrap run
type Outcome string

// Outcome constants
const (
	OutcomeReady              Outcome = "ready"
	OutcomeReadyWithoutRegion Outcome = "ready_without_region"
	OutcomeFailed             Outcome = "failed"
)

// Usable returns true if the map can be shown
func (o Outcome) Usable() bool {
	return o == OutcomeReady || o == OutcomeReadyWithoutRegion
}

// RunnerConfig holds configuration for the runner
type RunnerConfig struct {
	// RetryOnConnectivity starts a fresh session when the network becomes
	// eligible again after a failed one
	RetryOnConnectivity bool
	// MaxAttempts bounds the number of sessions, 0 means unlimited
	MaxAttempts int
	// TeardownTimeout bounds the wait for a session teardown on the loop
	TeardownTimeout time.Duration
	// RetryBackoff is how long a failed session waits before retrying on a
	// network that is already eligible
	RetryBackoff time.Duration
}

// DefaultConfig returns default runner configuration
func DefaultConfig() RunnerConfig {
	return RunnerConfig{
		RetryOnConnectivity: true,
		MaxAttempts:         3,
		TeardownTimeout:     5 * time.Second,
		RetryBackoff:        30 * time.Second,
	}
}

// Runner hosts one bootstrap session at a time on its own loop
type Runner struct {
	config RunnerConfig
	deps   Deps
	logger *zap.Logger
	loop   *Loop

	current  atomic.Pointer[Orchestrator]
	attempts atomic.Int32
}

// NewRunner creates a new runner
func NewRunner(cfg RunnerConfig, deps Deps, logger *zap.Logger) *Runner {
	if cfg.TeardownTimeout <= 0 {
		cfg.TeardownTimeout = DefaultConfig().TeardownTimeout
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = DefaultConfig().RetryBackoff
	}
	return &Runner{
		config: cfg,
		deps:   deps,
		logger: logger,
		loop:   NewLoop(),
	}
}

// Run hosts sessions until one ends usable, retries are exhausted or ctx is
// cancelled
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	loopCtx, stopLoop := context.WithCancel(context.Background())
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		_ = r.loop.Run(loopCtx)
	}()
	defer func() {
		stopLoop()
		<-loopDone
	}()

	for attempt := 1; ; attempt++ {
		r.attempts.Store(int32(attempt))
		o := NewOrchestrator(r.deps, r.loop, r.logger)
		r.current.Store(o)

		r.logger.Info("starting bootstrap session",
			zap.String("session_id", o.Snapshot().ID),
			zap.Int("attempt", attempt),
		)
		r.loop.Post(func() {
			o.Create()
			o.Resume()
		})

		select {
		case <-o.Done():
		case <-ctx.Done():
			r.teardown(o)
			return OutcomeFailed, ctx.Err()
		}

		state := o.State()
		r.teardown(o)

		switch state {
		case domain.StateProceedReady, domain.StateChainSucceeded:
			return OutcomeReady, nil
		case domain.StateChainFailed:
			return OutcomeReadyWithoutRegion, nil
		}

		if !r.config.RetryOnConnectivity {
			return OutcomeFailed, nil
		}
		if r.config.MaxAttempts > 0 && attempt >= r.config.MaxAttempts {
			r.logger.Warn("bootstrap attempts exhausted", zap.Int("attempts", attempt))
			return OutcomeFailed, nil
		}

		r.logger.Info("waiting for an eligible network to retry")
		if err := r.waitEligible(ctx); err != nil {
			return OutcomeFailed, err
		}
	}
}

// teardown pauses and destroys a session on the loop
func (r *Runner) teardown(o *Orchestrator) {
	ctx, cancel := context.WithTimeout(context.Background(), r.config.TeardownTimeout)
	defer cancel()

	err := r.loop.Call(ctx, func() {
		o.Pause()
		o.Destroy()
	})
	if err != nil {
		r.logger.Warn("session teardown timed out", zap.Error(err))
	}
}

// waitEligible blocks until the network becomes available and downloading
// is permitted on it. A network that stays eligible is accepted once
// RetryBackoff has passed.
func (r *Runner) waitEligible(ctx context.Context) error {
	eligible := make(chan struct{}, 1)
	sub := r.deps.Connectivity.Watch(func(obs domain.ConnectivityObservation) {
		if !obs.Available || !r.eligibleNow() {
			return
		}
		select {
		case eligible <- struct{}{}:
		default:
		}
	})
	defer sub.Cancel()

	backoff := time.NewTimer(r.config.RetryBackoff)
	defer backoff.Stop()

	for {
		select {
		case <-eligible:
			return nil
		case <-backoff.C:
			if r.eligibleNow() {
				return nil
			}
			backoff.Reset(r.config.RetryBackoff)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// eligibleNow reports whether a network is up and the gate permits it
func (r *Runner) eligibleNow() bool {
	snapshot := r.deps.Connectivity.Snapshot()
	return snapshot.Connected() &&
		MayDownload(r.deps.Preferences.IsWifiOnlyDownloadsEnabled(), snapshot)
}

// Snapshot returns the view of the current session
func (r *Runner) Snapshot() (domain.SessionView, bool) {
	o := r.current.Load()
	if o == nil {
		return domain.SessionView{}, false
	}
	return o.Snapshot(), true
}

// Attempts returns the number of sessions started so far
func (r *Runner) Attempts() int {
	return int(r.attempts.Load())
}
