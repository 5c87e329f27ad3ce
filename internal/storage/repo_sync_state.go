package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// SyncState is the bookkeeping for one sync collection, such as
// "snapshot:<user>".
type SyncState struct {
	Collection     string
	LastSuccess    *time.Time
	LastAttempt    *time.Time
	LastErrorMsg   string
	LastGeneration uint64
	LastOrigin     string
	LastSavedAt    *time.Time
}

// RemoteMark identifies the document the remote held at a successful sync.
type RemoteMark struct {
	Generation uint64
	Origin     string
	SavedAt    time.Time
}

// Same reports whether m and o name the same document.
func (m RemoteMark) Same(o RemoteMark) bool {
	return m.Generation == o.Generation && m.Origin == o.Origin && m.SavedAt.Equal(o.SavedAt)
}

// Mark returns the remote document recorded by the last success.
func (s SyncState) Mark() RemoteMark {
	mark := RemoteMark{Generation: s.LastGeneration, Origin: s.LastOrigin}
	if s.LastSavedAt != nil {
		mark.SavedAt = *s.LastSavedAt
	}
	return mark
}

type SyncStateRepo struct {
	db *sql.DB
}

func NewSyncStateRepo(db *sql.DB) *SyncStateRepo {
	return &SyncStateRepo{db: db}
}

func (r *SyncStateRepo) Get(ctx context.Context, collection string) (SyncState, bool, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT collection, last_success_at, last_attempt_at, COALESCE(last_error, ''),
		        last_generation, last_origin, last_saved_at
		 FROM sync_state WHERE collection = ?`,
		collection,
	)

	var state SyncState
	var lastSuccess sql.NullString
	var lastAttempt sql.NullString
	var lastGeneration int64
	var lastSavedAt sql.NullString
	if err := row.Scan(
		&state.Collection, &lastSuccess, &lastAttempt, &state.LastErrorMsg,
		&lastGeneration, &state.LastOrigin, &lastSavedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return SyncState{}, false, nil
		}
		return SyncState{}, false, fmt.Errorf("query sync state for %q: %w", collection, err)
	}

	if strings.TrimSpace(lastSuccess.String) != "" {
		t, err := time.Parse(time.RFC3339Nano, lastSuccess.String)
		if err != nil {
			return SyncState{}, false, fmt.Errorf("parse last_success_at for %q: %w", collection, err)
		}
		state.LastSuccess = &t
	}
	if strings.TrimSpace(lastAttempt.String) != "" {
		t, err := time.Parse(time.RFC3339Nano, lastAttempt.String)
		if err != nil {
			return SyncState{}, false, fmt.Errorf("parse last_attempt_at for %q: %w", collection, err)
		}
		state.LastAttempt = &t
	}

	if strings.TrimSpace(lastSavedAt.String) != "" {
		t, err := time.Parse(time.RFC3339Nano, lastSavedAt.String)
		if err != nil {
			return SyncState{}, false, fmt.Errorf("parse last_saved_at for %q: %w", collection, err)
		}
		state.LastSavedAt = &t
	}
	if lastGeneration > 0 {
		state.LastGeneration = uint64(lastGeneration)
	}

	return state, true, nil
}

func (r *SyncStateRepo) RecordAttempt(ctx context.Context, collection string, at time.Time) error {
	// Clear previous error at the start of a new attempt.
	msg := ""
	return r.upsert(ctx, collection, at, nil, &msg, nil)
}

// RecordSuccess marks a completed sync after which the remote held the
// document named by mark.
func (r *SyncStateRepo) RecordSuccess(ctx context.Context, collection string, at time.Time, mark RemoteMark) error {
	msg := ""
	return r.upsert(ctx, collection, at, &at, &msg, &mark)
}

func (r *SyncStateRepo) RecordError(ctx context.Context, collection string, at time.Time, syncErr error) error {
	msg := ""
	if syncErr != nil {
		msg = syncErr.Error()
	}
	return r.upsert(ctx, collection, at, nil, &msg, nil)
}

func (r *SyncStateRepo) upsert(
	ctx context.Context,
	collection string,
	attemptAt time.Time,
	successAt *time.Time,
	errorMsg *string,
	mark *RemoteMark,
) error {
	attemptValue := attemptAt.UTC().Format(time.RFC3339Nano)
	var successValue any
	if successAt != nil {
		successValue = successAt.UTC().Format(time.RFC3339Nano)
	}
	var errorValue any
	if errorMsg != nil {
		errorValue = *errorMsg
	}
	var generationValue, originValue, savedValue any
	if mark != nil {
		generationValue = int64(mark.Generation)
		originValue = mark.Origin
		if !mark.SavedAt.IsZero() {
			savedValue = mark.SavedAt.UTC().Format(time.RFC3339Nano)
		}
	}

	const q = `
INSERT INTO sync_state (collection, last_attempt_at, last_success_at, last_error, last_generation, last_origin, last_saved_at)
VALUES (?, ?, ?, ?, COALESCE(?, 0), COALESCE(?, ''), ?)
ON CONFLICT(collection) DO UPDATE SET
  last_attempt_at = excluded.last_attempt_at,
  last_success_at = COALESCE(excluded.last_success_at, sync_state.last_success_at),
  last_error = CASE
    WHEN excluded.last_error IS NULL THEN sync_state.last_error
    ELSE excluded.last_error
  END,
  last_generation = CASE WHEN ? IS NULL THEN sync_state.last_generation ELSE excluded.last_generation END,
  last_origin = CASE WHEN ? IS NULL THEN sync_state.last_origin ELSE excluded.last_origin END,
  last_saved_at = CASE WHEN ? IS NULL THEN sync_state.last_saved_at ELSE excluded.last_saved_at END
`
	args := []any{collection, attemptValue, successValue, errorValue, generationValue, originValue, savedValue}
	// The mark is replaced only by a success.
	args = append(args, generationValue, generationValue, generationValue)
	if _, err := r.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("upsert sync state for %q: %w", collection, err)
	}
	return nil
}
