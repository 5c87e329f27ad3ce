package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lachiem1/payplan/internal/remote"
)

const DefaultDebounce = 400 * time.Millisecond

// ErrSaverClosed is returned by Schedule after Close.
var ErrSaverClosed = errors.New("saver closed")

// SaveFunc writes one document to the remote store.
type SaveFunc func(ctx context.Context, doc remote.Document) error

// Debouncer coalesces a burst of scheduled documents into one save of the
// latest. Saves never overlap.
type Debouncer struct {
	delay   time.Duration
	timeout time.Duration
	save    SaveFunc
	onEvent func(Event)

	mu      sync.Mutex
	pending  *remote.Document
	inflight int
	timer    *time.Timer
	closed   bool

	saveMu sync.Mutex
}

func NewDebouncer(delay time.Duration, save SaveFunc, onEvent func(Event)) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		delay:   delay,
		timeout: 15 * time.Second,
		save:    save,
		onEvent: onEvent,
	}
}

// Schedule replaces the pending document and restarts the timer.
func (d *Debouncer) Schedule(doc remote.Document) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return ErrSaverClosed
	}
	d.pending = &doc
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, d.fire)
	return nil
}

// Pending reports whether a document is waiting to be saved or is being
// saved.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil || d.inflight > 0
}

// Flush saves the pending document now, if there is one.
func (d *Debouncer) Flush(ctx context.Context) error {
	doc := d.take()
	if doc == nil {
		return nil
	}
	return d.run(ctx, *doc)
}

// Close flushes and refuses further schedules.
func (d *Debouncer) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()
	return d.Flush(ctx)
}

func (d *Debouncer) take() *remote.Document {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	doc := d.pending
	d.pending = nil
	if doc != nil {
		d.inflight++
	}
	return doc
}

func (d *Debouncer) fire() {
	doc := d.take()
	if doc == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
	defer cancel()
	_ = d.run(ctx, *doc)
}

// run saves a document handed out by take.
func (d *Debouncer) run(ctx context.Context, doc remote.Document) error {
	d.saveMu.Lock()
	defer d.saveMu.Unlock()
	defer func() {
		d.mu.Lock()
		d.inflight--
		d.mu.Unlock()
	}()

	err := d.save(ctx, doc)
	evt := Event{Type: EventSaveOK, At: time.Now().UTC(), Generation: doc.Generation}
	if err != nil {
		evt.Type = EventSaveFailed
		evt.Err = err
	}
	if d.onEvent != nil {
		d.onEvent(evt)
	}
	return err
}
