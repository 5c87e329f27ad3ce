// Package syncer keeps the local snapshot and the remote document in step:
// a debounced saver pushes local edits, and a pull loop applies documents
// written by other devices.
package syncer

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Puller is one remote document the pull loop keeps fresh.
type Puller interface {
	Collection() string
	HasCachedData(ctx context.Context) (bool, error)
	LastSuccessAt(ctx context.Context) (time.Time, bool, error)
	Sync(ctx context.Context) error
}

type EventType string

const (
	EventSyncStarted   EventType = "sync_started"
	EventSyncOK        EventType = "sync_ok"
	EventSyncFailed    EventType = "sync_failed"
	EventRemoteApplied EventType = "remote_applied"
	EventSaveOK        EventType = "save_ok"
	EventSaveFailed    EventType = "save_failed"
)

type Event struct {
	Type       EventType
	Collection string
	At         time.Time
	Err        error
	RetryIn    time.Duration
	Generation uint64
}

type Config struct {
	StaleTTL     time.Duration
	PollInterval time.Duration
	Backoff      []time.Duration
	Debounce     time.Duration
}

func (c Config) withDefaults() Config {
	if c.StaleTTL <= 0 {
		c.StaleTTL = 30 * time.Second
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 2 * time.Minute
	}
	if len(c.Backoff) == 0 {
		c.Backoff = []time.Duration{2 * time.Second, 5 * time.Second, 15 * time.Second, 60 * time.Second}
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	return c
}

// Engine pulls one document on an interval. A failed pull is retried on the
// backoff schedule instead of waiting for the next interval.
type Engine struct {
	cfg     Config
	puller  Puller
	onEvent func(Event)

	mu  sync.Mutex
	run *pullRun
}

type pullRun struct {
	cancel context.CancelFunc
	now    chan struct{}
	done   chan struct{}
}

func New(cfg Config, p Puller, onEvent func(Event)) (*Engine, error) {
	if p == nil {
		return nil, errors.New("pull loop needs a puller")
	}
	if p.Collection() == "" {
		return nil, errors.New("puller has empty collection")
	}
	return &Engine{cfg: cfg.withDefaults(), puller: p, onEvent: onEvent}, nil
}

// Start launches the loop. Calling it while running restarts the loop.
func (e *Engine) Start(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.Stop()

	runCtx, cancel := context.WithCancel(ctx)
	run := &pullRun{
		cancel: cancel,
		now:    make(chan struct{}, 1),
		done:   make(chan struct{}),
	}
	e.mu.Lock()
	e.run = run
	e.mu.Unlock()

	go e.loop(runCtx, run)
	return nil
}

// Stop cancels the loop and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	run := e.run
	e.run = nil
	e.mu.Unlock()

	if run != nil {
		run.cancel()
		<-run.done
	}
}

// Refresh asks the loop to pull now. Requests made while a pull is queued
// collapse into one.
func (e *Engine) Refresh() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.run == nil {
		return errors.New("sync is not running")
	}
	select {
	case e.run.now <- struct{}{}:
	default:
	}
	return nil
}

func (e *Engine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.run != nil
}

func (e *Engine) loop(ctx context.Context, run *pullRun) {
	defer close(run.done)

	collection := e.puller.Collection()
	wait := e.cfg.PollInterval
	due, err := e.stale(ctx)
	if err != nil {
		e.emit(Event{Type: EventSyncFailed, Collection: collection, At: time.Now().UTC(), Err: err})
	}
	if due {
		wait = 0
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	failures := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-run.now:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		case <-timer.C:
		}

		next := e.cfg.PollInterval
		if err := e.pull(ctx, collection, func() time.Duration {
			next = backoffAt(e.cfg.Backoff, failures)
			return next
		}); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
		} else {
			failures = 0
		}
		timer.Reset(next)
	}
}

// pull runs one attempt. retry is consulted only on failure so the failed
// event can say when the next attempt happens.
func (e *Engine) pull(ctx context.Context, collection string, retry func() time.Duration) error {
	e.emit(Event{Type: EventSyncStarted, Collection: collection, At: time.Now().UTC()})
	if err := e.puller.Sync(ctx); err != nil {
		if ctx.Err() == nil {
			e.emit(Event{Type: EventSyncFailed, Collection: collection, At: time.Now().UTC(), Err: err, RetryIn: retry()})
		}
		return err
	}
	e.emit(Event{Type: EventSyncOK, Collection: collection, At: time.Now().UTC()})
	return nil
}

// stale reports whether the cache is missing or older than StaleTTL.
func (e *Engine) stale(ctx context.Context) (bool, error) {
	hasData, err := e.puller.HasCachedData(ctx)
	if err != nil || !hasData {
		return true, err
	}
	lastSuccess, ok, err := e.puller.LastSuccessAt(ctx)
	if err != nil || !ok {
		return true, err
	}
	return time.Since(lastSuccess) > e.cfg.StaleTTL, nil
}

// backoffAt returns the delay after the n-th consecutive failure, holding at
// the last step.
func backoffAt(backoff []time.Duration, n int) time.Duration {
	return backoff[clampBackoff(backoff, n)]
}

func clampBackoff(backoff []time.Duration, index int) int {
	if index >= len(backoff) {
		return len(backoff) - 1
	}
	return max(0, index)
}

func (e *Engine) emit(evt Event) {
	if e.onEvent == nil {
		return
	}
	e.onEvent(evt)
}
