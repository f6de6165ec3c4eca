package singleflight

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"
)

func TestGroup_Coalesces(t *testing.T) {
	var g Group[string, int]
	var calls int64
	gate := make(chan struct{})

	var eg errgroup.Group
	var sharedSeen atomic.Bool
	for i := 0; i < 16; i++ {
		eg.Go(func() error {
			v, shared, err := g.Do(context.Background(), "k", func() (int, error) {
				atomic.AddInt64(&calls, 1)
				<-gate
				return 7, nil
			})
			if shared {
				sharedSeen.Store(true)
			}
			if err != nil || v != 7 {
				return errors.New("unexpected result")
			}
			return nil
		})
	}
	// Wait until every follower has joined the leader's call.
	waitDups(t, &g, "k", 15)
	close(gate)
	if err := eg.Wait(); err != nil {
		t.Fatal(err)
	}
	if got := atomic.LoadInt64(&calls); got != 1 {
		t.Fatalf("fn must run once, got %d", got)
	}
	if !sharedSeen.Load() {
		t.Fatal("at least one caller must see shared=true")
	}
	if g.InFlight("k") {
		t.Fatal("key must be cleared after the call")
	}
}

func TestGroup_SequentialCallsRunAgain(t *testing.T) {
	t.Parallel()

	var g Group[int, int]
	n := 0
	for i := 0; i < 3; i++ {
		v, shared, err := g.Do(context.Background(), 1, func() (int, error) {
			n++
			return n, nil
		})
		if err != nil || shared || v != i+1 {
			t.Fatalf("call %d: v=%d shared=%v err=%v", i, v, shared, err)
		}
	}
}

func TestGroup_FollowerContext(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	gate := make(chan struct{})
	entered := make(chan struct{})
	go func() {
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) {
			close(entered)
			<-gate
			return 1, nil
		})
	}()
	<-entered

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, shared, err := g.Do(ctx, "k", func() (int, error) {
		t.Error("follower must not run fn")
		return 0, nil
	})
	if !errors.Is(err, context.DeadlineExceeded) || !shared {
		t.Fatalf("want DeadlineExceeded as follower, got shared=%v err=%v", shared, err)
	}
	close(gate)
}

func TestGroup_PanicReachesFollowers(t *testing.T) {
	t.Parallel()

	var g Group[string, int]
	gate := make(chan struct{})
	entered := make(chan struct{})
	leaderPanic := make(chan any, 1)
	go func() {
		defer func() { leaderPanic <- recover() }()
		_, _, _ = g.Do(context.Background(), "k", func() (int, error) {
			close(entered)
			<-gate
			panic("decoder exploded")
		})
	}()
	<-entered

	follower := make(chan error, 1)
	go func() {
		_, _, err := g.Do(context.Background(), "k", func() (int, error) { return 0, nil })
		follower <- err
	}()
	waitDups(t, &g, "k", 1)
	close(gate)

	if p := <-leaderPanic; p != "decoder exploded" {
		t.Fatalf("leader must re-panic, got %v", p)
	}
	if err := <-follower; !errors.Is(err, ErrPanicked) {
		t.Fatalf("follower: want ErrPanicked, got %v", err)
	}
	if g.InFlight("k") {
		t.Fatal("key must be cleared after a panic")
	}
}

// waitDups polls until n followers are parked on the in-flight call for key.
func waitDups[K comparable, V any](t *testing.T, g *Group[K, V], key K, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		g.mu.Lock()
		c, ok := g.m[key]
		dups := 0
		if ok {
			dups = c.dups
		}
		g.mu.Unlock()
		if dups == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d followers", n)
}
