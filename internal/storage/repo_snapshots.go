package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lachiem1/payplan/internal/budget"
)

// ErrCorruptSnapshot is returned when a stored payload no longer decodes.
// Callers treat it as "no data".
var ErrCorruptSnapshot = errors.New("corrupt snapshot payload")

// StoredSnapshot is one user's cached snapshot.
type StoredSnapshot struct {
	UserID     string
	Snapshot   budget.Snapshot
	Generation uint64
	Origin     string
	UpdatedAt  time.Time
}

type SnapshotsRepo struct {
	db *sql.DB
}

func NewSnapshotsRepo(db *sql.DB) *SnapshotsRepo {
	return &SnapshotsRepo{db: db}
}

func (r *SnapshotsRepo) Get(ctx context.Context, userID string) (StoredSnapshot, bool, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT user_id, payload, generation, origin, updated_at
		 FROM snapshots WHERE user_id = ?`,
		userID,
	)

	var (
		out       StoredSnapshot
		payload   string
		gen       int64
		updatedAt string
	)
	if err := row.Scan(&out.UserID, &payload, &gen, &out.Origin, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return StoredSnapshot{}, false, nil
		}
		return StoredSnapshot{}, false, fmt.Errorf("query snapshot for %q: %w", userID, err)
	}

	snap, err := budget.DecodeSnapshot([]byte(payload))
	if err != nil {
		return StoredSnapshot{}, false, fmt.Errorf("%w for %q: %v", ErrCorruptSnapshot, userID, err)
	}
	out.Snapshot = snap
	if gen > 0 {
		out.Generation = uint64(gen)
	}
	if t, err := time.Parse(time.RFC3339Nano, updatedAt); err == nil {
		out.UpdatedAt = t
	}
	return out, true, nil
}

func (r *SnapshotsRepo) Put(ctx context.Context, s StoredSnapshot) error {
	payload, err := s.Snapshot.Encode()
	if err != nil {
		return err
	}
	updatedAt := s.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	const q = `
INSERT INTO snapshots (user_id, payload, generation, origin, updated_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
  payload = excluded.payload,
  generation = excluded.generation,
  origin = excluded.origin,
  updated_at = excluded.updated_at
`
	if _, err := r.db.ExecContext(
		ctx,
		q,
		s.UserID,
		string(payload),
		int64(s.Generation),
		s.Origin,
		updatedAt.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("upsert snapshot for %q: %w", s.UserID, err)
	}
	return nil
}

func (r *SnapshotsRepo) Delete(ctx context.Context, userID string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM snapshots WHERE user_id = ?", userID); err != nil {
		return fmt.Errorf("delete snapshot for %q: %w", userID, err)
	}
	return nil
}
