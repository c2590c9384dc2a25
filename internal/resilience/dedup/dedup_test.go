package dedup

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestDedupCoalescesConcurrentCallers(t *testing.T) {
	g := NewGroup[int]()

	var execs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})

	fn := func(ctx context.Context) (int, error) {
		execs.Add(1)
		close(started)
		<-release
		return 42, nil
	}

	results := make([]int, 10)
	errs := make([]error, 10)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], errs[0] = g.Do(context.Background(), "feed", fn)
	}()
	<-started

	for i := 1; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = g.Do(context.Background(), "feed", fn)
		}(i)
	}

	// Give the late callers time to attach to the in-flight request.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := execs.Load(); got != 1 {
		t.Fatalf("operation executed %d times, want 1", got)
	}
	for i := range results {
		if errs[i] != nil || results[i] != 42 {
			t.Errorf("caller %d got (%d, %v), want (42, nil)", i, results[i], errs[i])
		}
	}

	// A call after completion starts a fresh execution.
	val, err := g.Do(context.Background(), "feed", func(ctx context.Context) (int, error) {
		execs.Add(1)
		return 7, nil
	})
	if err != nil || val != 7 {
		t.Fatalf("fresh call got (%d, %v), want (7, nil)", val, err)
	}
	if got := execs.Load(); got != 2 {
		t.Errorf("executions = %d, want 2", got)
	}
}

func TestDedupPropagatesFailure(t *testing.T) {
	g := NewGroup[string]()

	boom := errors.New("boom")
	release := make(chan struct{})
	started := make(chan struct{})

	var wg sync.WaitGroup
	errs := make([]error, 3)

	wg.Add(1)
	go func() {
		defer wg.Done()
		_, errs[0] = g.Do(context.Background(), "k", func(ctx context.Context) (string, error) {
			close(started)
			<-release
			return "", boom
		})
	}()
	<-started

	for i := 1; i < 3; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = g.Do(context.Background(), "k", func(ctx context.Context) (string, error) {
				t.Error("second execution started for an in-flight key")
				return "", nil
			})
		}(i)
	}

	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	for i, err := range errs {
		if !errors.Is(err, boom) {
			t.Errorf("caller %d got %v, want boom", i, err)
		}
	}
}

func TestDedupWaiterAbandonsOnCancel(t *testing.T) {
	g := NewGroup[int]()

	var execs atomic.Int32
	release := make(chan struct{})
	started := make(chan struct{})
	leaderDone := make(chan struct{})

	go func() {
		defer close(leaderDone)
		val, err := g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
			execs.Add(1)
			close(started)
			<-release
			return 42, nil
		})
		if err != nil || val != 42 {
			t.Errorf("leader got (%d, %v), want (42, nil)", val, err)
		}
	}()
	<-started

	// A canceled waiter abandons without waiting for the shared call.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := g.Do(ctx, "k", func(ctx context.Context) (int, error) {
		t.Error("waiter started its own execution")
		return 0, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("canceled waiter got %v, want context.Canceled", err)
	}

	// The shared operation keeps running and completes for the leader.
	close(release)
	<-leaderDone
	if got := execs.Load(); got != 1 {
		t.Errorf("executions = %d, want 1", got)
	}
}

func TestDedupInFlight(t *testing.T) {
	g := NewGroup[int]()

	if g.InFlight("k") {
		t.Error("InFlight = true before any call")
	}

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan struct{})

	go func() {
		defer close(done)
		_, _ = g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
			close(started)
			<-release
			return 0, nil
		})
	}()
	<-started

	if !g.InFlight("k") {
		t.Error("InFlight = false while the operation is running")
	}

	close(release)
	<-done
	if g.InFlight("k") {
		t.Error("InFlight = true after completion")
	}
}
