package bootstrap

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/vertextoedge/map-bootstrap/internal/domain"
)

type runnerResult struct {
	outcome Outcome
	err     error
}

func newTestRunner(cfg RunnerConfig, h *harness) *Runner {
	return NewRunner(cfg, Deps{
		Resources:    h.res,
		Regions:      h.regions,
		Resolver:     h.resolver,
		Location:     h.loc,
		Connectivity: h.conn,
		Preferences:  h.prefs,
		Surface:      h.surface,
	}, zap.NewNop())
}

func TestRunner_ReadyImmediately(t *testing.T) {
	h := newHarness(0)
	r := newTestRunner(DefaultConfig(), h)

	outcome, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeReady, outcome)
	assert.True(t, outcome.Usable())
	assert.Equal(t, 1, r.Attempts())
	assert.Equal(t, 1, h.surface.proceeds)

	view, ok := r.Snapshot()
	require.True(t, ok)
	assert.Equal(t, domain.StateProceedReady, view.State)
}

func TestRunner_FailureWithoutRetry(t *testing.T) {
	h := newHarness(int64(domain.ResultStorageDisconnected))
	cfg := DefaultConfig()
	cfg.RetryOnConnectivity = false
	r := newTestRunner(cfg, h)

	outcome, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.False(t, outcome.Usable())
	require.Len(t, h.surface.modals, 1)
	assert.Equal(t, "Disconnect the USB cable", h.surface.modals[0].Title)
}

func TestRunner_RetriesOnConnectivity(t *testing.T) {
	h := newHarness(int64(domain.ResultDownloadError), 0)
	r := newTestRunner(DefaultConfig(), h)

	results := make(chan runnerResult, 1)
	go func() {
		outcome, err := r.Run(context.Background())
		results <- runnerResult{outcome, err}
	}()

	// The first session failed and the runner waits for the network
	require.Eventually(t, func() bool {
		view, ok := r.Snapshot()
		return ok && view.State == domain.StateFailed && h.conn.watcherCount() == 1
	}, time.Second, 5*time.Millisecond)

	h.conn.switchTo(domain.TransportNone)
	h.conn.switchTo(domain.TransportWiFi)

	select {
	case res := <-results:
		require.NoError(t, res.err)
		assert.Equal(t, OutcomeReady, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not retry")
	}
	assert.Equal(t, 2, r.Attempts())
	assert.Equal(t, 2, h.res.sizeQueries)
}

func TestRunner_RetriesOnEligibleNetworkAfterBackoff(t *testing.T) {
	h := newHarness(int64(domain.ResultNotEnoughSpace), 0)
	cfg := DefaultConfig()
	cfg.RetryBackoff = 20 * time.Millisecond
	r := newTestRunner(cfg, h)

	results := make(chan runnerResult, 1)
	go func() {
		outcome, err := r.Run(context.Background())
		results <- runnerResult{outcome, err}
	}()

	// WiFi never drops, so no connectivity edge arrives
	select {
	case res := <-results:
		require.NoError(t, res.err)
		assert.Equal(t, OutcomeReady, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not retry on the eligible network")
	}
	assert.Equal(t, 2, r.Attempts())
	assert.Zero(t, h.conn.watcherCount())
}

func TestRunner_NoRetryWhileOffline(t *testing.T) {
	h := newHarness(int64(domain.ResultDownloadError), 0)
	h.prefs.wifiOnly = false
	h.conn = newFakeConnectivity(domain.TransportNone)
	cfg := DefaultConfig()
	cfg.RetryBackoff = 10 * time.Millisecond
	r := newTestRunner(cfg, h)

	results := make(chan runnerResult, 1)
	go func() {
		outcome, err := r.Run(context.Background())
		results <- runnerResult{outcome, err}
	}()

	require.Eventually(t, func() bool {
		view, ok := r.Snapshot()
		return ok && view.State == domain.StateFailed && h.conn.watcherCount() == 1
	}, time.Second, 5*time.Millisecond)

	// Several backoff periods pass without a network
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, r.Attempts())

	h.conn.switchTo(domain.TransportOther)

	select {
	case res := <-results:
		require.NoError(t, res.err)
		assert.Equal(t, OutcomeReady, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not retry once the network came up")
	}
	assert.Equal(t, 2, r.Attempts())
}

func TestRunner_AttemptsExhausted(t *testing.T) {
	h := newHarness(int64(domain.ResultDownloadError))
	cfg := DefaultConfig()
	cfg.MaxAttempts = 1
	r := newTestRunner(cfg, h)

	outcome, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, OutcomeFailed, outcome)
	assert.Equal(t, 1, r.Attempts())
}

func TestRunner_Cancelled(t *testing.T) {
	h := newHarness(4_000_000)
	r := newTestRunner(DefaultConfig(), h)

	ctx, cancel := context.WithCancel(context.Background())
	results := make(chan runnerResult, 1)
	go func() {
		outcome, err := r.Run(ctx)
		results <- runnerResult{outcome, err}
	}()

	require.Eventually(t, func() bool {
		view, ok := r.Snapshot()
		return ok && view.State == domain.StateDownloading
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case res := <-results:
		assert.ErrorIs(t, res.err, context.Canceled)
		assert.Equal(t, OutcomeFailed, res.outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
	assert.Equal(t, 1, h.res.cancels)
	assert.Zero(t, h.conn.watcherCount())
}
