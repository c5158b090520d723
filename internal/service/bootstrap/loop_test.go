package bootstrap

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestLoop_RunsInPostingOrder(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []int
	for i := 0; i < 100; i++ {
		i := i
		l.Post(func() { got = append(got, i) })
	}
	if err := l.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	for i, v := range got {
		if v != i {
			t.Fatalf("got[%d] = %d, functions ran out of order", i, v)
		}
	}
	if len(got) != 100 {
		t.Errorf("ran %d functions, want 100", len(got))
	}
}

func TestLoop_SerializesConcurrentPosts(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				l.Post(func() { counter++ })
			}
		}()
	}
	wg.Wait()

	if err := l.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if counter != 1000 {
		t.Errorf("counter = %d, want 1000", counter)
	}
}

func TestLoop_PostedFromLoopRunsAfter(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go l.Run(ctx)

	var got []string
	err := l.Call(ctx, func() {
		l.Post(func() { got = append(got, "inner") })
		got = append(got, "outer")
	})
	if err != nil {
		t.Fatalf("Call() error = %v", err)
	}
	if err := l.Call(ctx, func() {}); err != nil {
		t.Fatalf("Call() error = %v", err)
	}

	if len(got) != 2 || got[0] != "outer" || got[1] != "inner" {
		t.Errorf("got %v, want [outer inner]", got)
	}
}

func TestLoop_StopsOnCancel(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- l.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after cancel")
	}
}

func TestLoop_CallTimesOutWithoutRunner(t *testing.T) {
	l := NewLoop()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	if err := l.Call(ctx, func() {}); err != context.DeadlineExceeded {
		t.Errorf("Call() error = %v, want deadline exceeded", err)
	}
	if l.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", l.Pending())
	}
}
