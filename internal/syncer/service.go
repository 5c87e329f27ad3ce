package syncer

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/remote"
	"github.com/lachiem1/payplan/internal/storage"
)

// Service persists every store change to the local cache and, when a remote
// is configured, pushes local edits and pulls edits from other devices.
// Without a remote it runs in local-only mode.
type Service struct {
	userID    string
	store     *planner.Store
	snapshots *storage.SnapshotsRepo
	engine    *Engine
	syncer    *SnapshotSyncer
	saver     *Debouncer
	watcher   remote.Watcher
	backoff   []time.Duration
	logger    *zap.Logger
	onEvent   func(Event)

	mu          sync.Mutex
	unsubscribe func()
	stopWatch   context.CancelFunc
	watchDone   chan struct{}
}

func (s *Service) Store() *planner.Store {
	return s.store
}

// Remote reports whether a remote store is configured.
func (s *Service) Remote() bool {
	return s.syncer != nil
}

// Restore loads the cached snapshot into the store. A corrupt cache is
// logged and treated as empty.
func (s *Service) Restore(ctx context.Context) (bool, error) {
	stored, ok, err := s.snapshots.Get(ctx, s.userID)
	if errors.Is(err, storage.ErrCorruptSnapshot) {
		s.logger.Warn("discarding unreadable cached snapshot", zap.String("user", s.userID), zap.Error(err))
		return false, nil
	}
	if err != nil || !ok {
		return false, err
	}
	s.store.Load(stored.Snapshot, stored.Generation)
	return true, nil
}

// Attach subscribes to store changes without starting background pulls.
func (s *Service) Attach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.unsubscribe == nil {
		s.unsubscribe = s.store.Subscribe(s.onChange)
	}
}

// Pull runs one synchronous pull from the remote.
func (s *Service) Pull(ctx context.Context) error {
	if s.syncer == nil {
		return nil
	}
	return s.syncer.Sync(ctx)
}

// Start attaches to the store and starts the pull loop and, if the remote
// supports it, the push watch.
func (s *Service) Start(ctx context.Context) error {
	s.Attach()
	if s.syncer == nil {
		return nil
	}
	if err := s.engine.Start(ctx); err != nil {
		return err
	}
	if s.watcher != nil {
		s.startWatch(ctx)
	}
	return nil
}

// Refresh asks the pull loop to run now.
func (s *Service) Refresh() error {
	if s.syncer == nil {
		return nil
	}
	return s.engine.Refresh()
}

// Flush saves any pending local edit immediately.
func (s *Service) Flush(ctx context.Context) error {
	if s.saver == nil {
		return nil
	}
	return s.saver.Flush(ctx)
}

// Stop detaches from the store, stops background work and closes the saver
// after a final save.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
	stopWatch, watchDone := s.stopWatch, s.watchDone
	s.stopWatch, s.watchDone = nil, nil
	s.mu.Unlock()

	if stopWatch != nil {
		stopWatch()
		<-watchDone
	}
	if s.engine != nil {
		s.engine.Stop()
	}
	if s.saver == nil {
		return nil
	}
	return s.saver.Close(ctx)
}

// SignOut stops syncing and removes the user's cached snapshot.
func (s *Service) SignOut(ctx context.Context) error {
	if err := s.Stop(ctx); err != nil {
		s.logger.Warn("final save before sign-out failed", zap.Error(err))
	}
	return s.snapshots.Delete(ctx, s.userID)
}

func (s *Service) onChange(c planner.Change) {
	err := s.snapshots.Put(context.Background(), storage.StoredSnapshot{
		UserID:     s.userID,
		Snapshot:   c.Snapshot,
		Generation: c.Generation,
		Origin:     string(c.Origin),
		UpdatedAt:  time.Now().UTC(),
	})
	if err != nil {
		s.logger.Warn("cache snapshot", zap.Uint64("generation", c.Generation), zap.Error(err))
	}

	// Remote and loaded snapshots are never written back.
	if c.Origin != planner.OriginLocal || s.saver == nil {
		return
	}
	if err := s.saver.Schedule(s.syncer.document(c)); err != nil {
		s.logger.Warn("schedule remote save", zap.Error(err))
	}
}

func (s *Service) startWatch(ctx context.Context) {
	watchCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	s.mu.Lock()
	if s.stopWatch != nil {
		s.mu.Unlock()
		cancel()
		return
	}
	s.stopWatch, s.watchDone = cancel, done
	s.mu.Unlock()

	go s.watchLoop(watchCtx, done)
}

func (s *Service) watchLoop(ctx context.Context, done chan struct{}) {
	defer close(done)

	failures := 0
	for {
		// A push only says the remote changed; the pull decides what applies.
		err := s.watcher.Watch(ctx, s.userID, func(doc remote.Document) {
			failures = 0
			if s.syncer.Known(doc) {
				return
			}
			if err := s.syncer.Sync(ctx); err != nil && ctx.Err() == nil {
				s.logger.Warn("pull after push", zap.Uint64("generation", doc.Generation), zap.Error(err))
			}
		})
		if ctx.Err() != nil {
			return
		}

		wait := backoffAt(s.backoff, failures)
		failures++
		s.emit(Event{Type: EventSyncFailed, Collection: s.syncer.Collection(), At: time.Now().UTC(), Err: err, RetryIn: wait})

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

func (s *Service) emit(evt Event) {
	fields := []zap.Field{
		zap.String("event", string(evt.Type)),
		zap.String("collection", evt.Collection),
	}
	if evt.Generation > 0 {
		fields = append(fields, zap.Uint64("generation", evt.Generation))
	}
	if evt.RetryIn > 0 {
		fields = append(fields, zap.Duration("retry_in", evt.RetryIn))
	}
	if evt.Err != nil {
		s.logger.Warn("sync event", append(fields, zap.Error(evt.Err))...)
	} else {
		s.logger.Debug("sync event", fields...)
	}

	if s.onEvent != nil {
		s.onEvent(evt)
	}
}
