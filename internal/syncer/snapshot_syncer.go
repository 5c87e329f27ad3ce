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

// SnapshotSyncer keeps the planner store and a user's remote document in
// step. The remote holds the last write from any device; a foreign document
// replaces the local snapshot unless a local save is still on its way.
type SnapshotSyncer struct {
	userID    string
	deviceID  string
	remote    remote.Store
	store     *planner.Store
	snapshots *storage.SnapshotsRepo
	syncState *storage.SyncStateRepo
	logger    *zap.Logger
	onEvent   func(Event)
	// savePending reports a local document that has not reached the remote.
	savePending func() bool

	// remoteMu orders loads and saves from this device.
	remoteMu sync.Mutex

	mu     sync.Mutex
	last   storage.RemoteMark
	loaded bool
}

func NewSnapshotSyncer(
	userID, deviceID string,
	rs remote.Store,
	store *planner.Store,
	snapshots *storage.SnapshotsRepo,
	syncState *storage.SyncStateRepo,
	logger *zap.Logger,
) *SnapshotSyncer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotSyncer{
		userID:    userID,
		deviceID:  deviceID,
		remote:    rs,
		store:     store,
		snapshots: snapshots,
		syncState: syncState,
		logger:    logger,
	}
}

func (s *SnapshotSyncer) Collection() string {
	return CollectionFor(s.userID)
}

func (s *SnapshotSyncer) HasCachedData(ctx context.Context) (bool, error) {
	_, ok, err := s.snapshots.Get(ctx, s.userID)
	if errors.Is(err, storage.ErrCorruptSnapshot) {
		return false, nil
	}
	return ok, err
}

func (s *SnapshotSyncer) LastSuccessAt(ctx context.Context) (time.Time, bool, error) {
	state, ok, err := s.syncState.Get(ctx, s.Collection())
	if err != nil {
		return time.Time{}, false, err
	}
	if !ok || state.LastSuccess == nil {
		return time.Time{}, false, nil
	}
	return state.LastSuccess.UTC(), true, nil
}

// Sync loads the remote document and applies it when another device wrote
// it since the last sync. A user without a document gets one seeded from
// the local snapshot.
func (s *SnapshotSyncer) Sync(ctx context.Context) error {
	return runSyncAttempt(ctx, s.syncState, s.Collection(), func(runCtx context.Context) (storage.RemoteMark, error) {
		s.remoteMu.Lock()
		defer s.remoteMu.Unlock()

		doc, err := s.remote.Load(runCtx, s.userID)
		if errors.Is(err, remote.ErrNotFound) {
			seed := s.document(s.store.Current())
			if err := s.remote.Save(runCtx, s.userID, seed); err != nil {
				return storage.RemoteMark{}, err
			}
			s.logger.Info("seeded remote snapshot", zap.String("user", s.userID), zap.Uint64("generation", seed.Generation))
			return s.remember(seed), nil
		}
		if err != nil {
			return storage.RemoteMark{}, err
		}
		s.Accept(*doc)
		return s.mark(), nil
	})
}

// Save writes a local document and records it as the remote's current one.
func (s *SnapshotSyncer) Save(ctx context.Context, doc remote.Document) error {
	return runSyncAttempt(ctx, s.syncState, s.Collection(), func(runCtx context.Context) (storage.RemoteMark, error) {
		s.remoteMu.Lock()
		defer s.remoteMu.Unlock()

		if err := s.remote.Save(runCtx, s.userID, doc); err != nil {
			return storage.RemoteMark{}, err
		}
		return s.remember(doc), nil
	})
}

// Known reports whether doc is the document the remote held at the last
// sync.
func (s *SnapshotSyncer) Known(doc remote.Document) bool {
	return s.mark().Same(markOf(doc))
}

// Accept applies doc when it is a document from another device that this
// device has not seen yet. Generations only order edits made on one device,
// so they play no part in the decision.
func (s *SnapshotSyncer) Accept(doc remote.Document) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.loadMarkLocked()
	mark := markOf(doc)
	switch {
	case mark.Same(s.last):
		return false
	case doc.Origin == s.deviceID:
		s.last = mark
		return false
	case s.savePending != nil && s.savePending():
		s.logger.Debug("kept local edit over remote snapshot",
			zap.String("origin", doc.Origin),
			zap.Uint64("generation", doc.Generation))
		return false
	}

	s.last = mark
	change := s.store.ApplyRemote(doc.Snapshot, doc.Generation)
	s.logger.Info("applied remote snapshot",
		zap.String("origin", doc.Origin),
		zap.Uint64("generation", change.Generation))
	if s.onEvent != nil {
		s.onEvent(Event{Type: EventRemoteApplied, Collection: s.Collection(), At: time.Now().UTC(), Generation: change.Generation})
	}
	return true
}

func (s *SnapshotSyncer) mark() storage.RemoteMark {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadMarkLocked()
	return s.last
}

func (s *SnapshotSyncer) remember(doc remote.Document) storage.RemoteMark {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
	s.last = markOf(doc)
	return s.last
}

// loadMarkLocked reads the mark left by a previous run. A failed read leaves
// the mark empty, so the next remote document is applied.
func (s *SnapshotSyncer) loadMarkLocked() {
	if s.loaded {
		return
	}
	s.loaded = true
	state, ok, err := s.syncState.Get(context.Background(), s.Collection())
	if err != nil {
		s.logger.Warn("read sync mark", zap.Error(err))
		return
	}
	if ok {
		s.last = state.Mark()
	}
}

func (s *SnapshotSyncer) document(c planner.Change) remote.Document {
	return remote.Document{
		Generation: c.Generation,
		Origin:     s.deviceID,
		SavedAt:    time.Now().UTC(),
		Snapshot:   c.Snapshot,
	}
}
