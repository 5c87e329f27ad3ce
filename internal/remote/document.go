// Package remote talks to the per-user snapshot document stored off-device.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/lachiem1/payplan/internal/budget"
)

// ErrNotFound is returned by Load when the user has no document yet.
var ErrNotFound = errors.New("remote document not found")

// Document is the single persisted unit per user. Whole documents replace
// each other; the writer with the latest save wins.
type Document struct {
	Generation uint64
	Origin     string
	SavedAt    time.Time
	Snapshot   budget.Snapshot
}

type documentJSON struct {
	Generation uint64          `json:"generation"`
	Origin     string          `json:"origin"`
	SavedAt    time.Time       `json:"savedAt"`
	Snapshot   json.RawMessage `json:"snapshot"`
}

func (d Document) MarshalJSON() ([]byte, error) {
	payload, err := d.Snapshot.Encode()
	if err != nil {
		return nil, err
	}
	return json.Marshal(documentJSON{
		Generation: d.Generation,
		Origin:     d.Origin,
		SavedAt:    d.SavedAt.UTC(),
		Snapshot:   payload,
	})
}

func (d *Document) UnmarshalJSON(data []byte) error {
	var raw documentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	snap, err := budget.DecodeSnapshot(raw.Snapshot)
	if err != nil {
		return err
	}
	*d = Document{
		Generation: raw.Generation,
		Origin:     raw.Origin,
		SavedAt:    raw.SavedAt,
		Snapshot:   snap,
	}
	return nil
}

// Store loads and saves a user's document.
type Store interface {
	Load(ctx context.Context, userID string) (*Document, error)
	Save(ctx context.Context, userID string, doc Document) error
}

// Watcher pushes documents written by any device until ctx is done.
type Watcher interface {
	Watch(ctx context.Context, userID string, fn func(Document)) error
}
