package ratelimiter

import (
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestLimiter_Allow(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		steps    []time.Duration // clock advance before each Allow() call
		want     []bool
	}{
		{
			name:     "first call always allowed",
			interval: time.Second,
			steps:    []time.Duration{0},
			want:     []bool{true},
		},
		{
			name:     "second call immediately after is blocked",
			interval: time.Second,
			steps:    []time.Duration{0, 0},
			want:     []bool{true, false},
		},
		{
			name:     "call after interval is allowed",
			interval: time.Second,
			steps:    []time.Duration{0, time.Second},
			want:     []bool{true, true},
		},
		{
			name:     "blocked calls do not move the window",
			interval: time.Second,
			steps:    []time.Duration{0, 600 * time.Millisecond, 600 * time.Millisecond},
			want:     []bool{true, false, true},
		},
		{
			name:     "zero interval allows everything",
			interval: 0,
			steps:    []time.Duration{0, 0, 0},
			want:     []bool{true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock := &fakeClock{now: time.Unix(1700000000, 0)}
			limiter := NewWithClock(tt.interval, clock.Now)

			for i, step := range tt.steps {
				clock.Advance(step)
				allowed, wait := limiter.Allow()
				if allowed != tt.want[i] {
					t.Errorf("call %d: Allow() = %v, want %v", i, allowed, tt.want[i])
				}
				if !allowed && wait <= 0 {
					t.Errorf("call %d: blocked but wait = %v, want > 0", i, wait)
				}
				if allowed && wait != 0 {
					t.Errorf("call %d: allowed but wait = %v, want 0", i, wait)
				}
			}
		})
	}
}

func TestLimiter_ForceAndReset(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1700000000, 0)}
	limiter := NewWithClock(time.Second, clock.Now)

	limiter.Force()
	if allowed, _ := limiter.Allow(); allowed {
		t.Error("Allow() right after Force() should be blocked")
	}

	limiter.Reset()
	if allowed, _ := limiter.Allow(); !allowed {
		t.Error("Allow() after Reset() should be allowed")
	}

	if limiter.Interval() != time.Second {
		t.Errorf("Interval() = %v, want 1s", limiter.Interval())
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	limiter := New(time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := limiter.Allow(); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 1 {
		t.Errorf("allowed = %d, want exactly 1", allowed)
	}
}
