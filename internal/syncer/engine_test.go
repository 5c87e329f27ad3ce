package syncer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

type fakeSyncer struct {
	collection string
	hasData    bool
	lastOK     time.Time

	mu    sync.Mutex
	calls int
	fail  int
}

func (f *fakeSyncer) Collection() string { return f.collection }

func (f *fakeSyncer) HasCachedData(context.Context) (bool, error) { return f.hasData, nil }

func (f *fakeSyncer) LastSuccessAt(context.Context) (time.Time, bool, error) {
	return f.lastOK, !f.lastOK.IsZero(), nil
}

func (f *fakeSyncer) Sync(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail > 0 {
		f.fail--
		return errors.New("unreachable")
	}
	return nil
}

func (f *fakeSyncer) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestNewRejectsBadPuller(t *testing.T) {
	if _, err := New(Config{}, nil, nil); err == nil {
		t.Fatal("New(nil) error = nil")
	}
	if _, err := New(Config{}, &fakeSyncer{}, nil); err == nil {
		t.Fatal("New(empty collection) error = nil")
	}
}

func TestStartSyncsWhenCacheEmpty(t *testing.T) {
	s := &fakeSyncer{collection: "snapshot:u"}
	engine, err := New(Config{PollInterval: time.Hour}, s, nil)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer engine.Stop()

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, func() bool { return s.Calls() == 1 })
	if !engine.Running() {
		t.Fatal("Running() = false after Start()")
	}
}

func TestStartSkipsFreshCache(t *testing.T) {
	s := &fakeSyncer{collection: "snapshot:u", hasData: true, lastOK: time.Now()}
	engine, err := New(Config{PollInterval: time.Hour}, s, nil)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	time.Sleep(50 * time.Millisecond)
	if s.Calls() != 0 {
		t.Fatalf("Sync() calls = %d, want 0 for a fresh cache", s.Calls())
	}

	if err := engine.Refresh(); err != nil {
		t.Fatalf("Refresh() unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, func() bool { return s.Calls() == 1 })

	engine.Stop()
	if engine.Running() {
		t.Fatal("Running() = true after Stop()")
	}
	if err := engine.Refresh(); err == nil {
		t.Fatal("Refresh() after Stop() error = nil")
	}
}

func TestStartRejectsCancelledContext(t *testing.T) {
	engine, err := New(Config{}, &fakeSyncer{collection: "snapshot:u"}, nil)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := engine.Start(ctx); err == nil {
		t.Fatal("Start(cancelled) error = nil")
	}
}

func TestFailedSyncRetriesWithBackoff(t *testing.T) {
	s := &fakeSyncer{collection: "snapshot:u", fail: 2}
	var mu sync.Mutex
	var events []Event
	backoff := []time.Duration{10 * time.Millisecond, 20 * time.Millisecond}
	engine, err := New(
		Config{PollInterval: time.Hour, Backoff: backoff},
		s,
		func(evt Event) {
			mu.Lock()
			events = append(events, evt)
			mu.Unlock()
		},
	)
	if err != nil {
		t.Fatalf("New() unexpected error: %v", err)
	}
	defer engine.Stop()

	if err := engine.Start(context.Background()); err != nil {
		t.Fatalf("Start() unexpected error: %v", err)
	}
	waitForCondition(t, 2*time.Second, func() bool { return s.Calls() == 3 })
	engine.Stop()

	mu.Lock()
	defer mu.Unlock()
	var retries []time.Duration
	for _, evt := range events {
		if evt.Type == EventSyncFailed {
			retries = append(retries, evt.RetryIn)
		}
	}
	if len(retries) != 2 || retries[0] != backoff[0] || retries[1] != backoff[1] {
		t.Fatalf("failed events RetryIn = %v, want %v", retries, backoff)
	}
	if last := events[len(events)-1].Type; last != EventSyncOK {
		t.Fatalf("last event = %q, want %q", last, EventSyncOK)
	}
}

func TestBackoffAtHoldsLastStep(t *testing.T) {
	backoff := []time.Duration{time.Millisecond, 2 * time.Millisecond}
	if got := backoffAt(backoff, 5); got != 2*time.Millisecond {
		t.Fatalf("backoffAt(5) = %v, want 2ms", got)
	}
	if got := backoffAt(backoff, 0); got != time.Millisecond {
		t.Fatalf("backoffAt(0) = %v, want 1ms", got)
	}
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
