package syncer

import (
	"context"
	"time"

	"github.com/lachiem1/payplan/internal/remote"
	"github.com/lachiem1/payplan/internal/storage"
)

// CollectionFor names the sync_state row tracking a user's snapshot.
func CollectionFor(userID string) string {
	return "snapshot:" + userID
}

// runSyncAttempt wraps sync work with sync_state bookkeeping. The work
// function returns the document the remote holds once it is done.
func runSyncAttempt(
	ctx context.Context,
	syncState *storage.SyncStateRepo,
	collection string,
	work func(context.Context) (storage.RemoteMark, error),
) error {
	attemptAt := time.Now().UTC()
	if err := syncState.RecordAttempt(ctx, collection, attemptAt); err != nil {
		return err
	}

	mark, err := work(ctx)
	if err != nil {
		_ = syncState.RecordError(context.Background(), collection, time.Now().UTC(), err)
		return err
	}
	return syncState.RecordSuccess(ctx, collection, time.Now().UTC(), mark)
}

func markOf(doc remote.Document) storage.RemoteMark {
	return storage.RemoteMark{Generation: doc.Generation, Origin: doc.Origin, SavedAt: doc.SavedAt}
}
