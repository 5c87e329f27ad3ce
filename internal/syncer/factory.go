package syncer

import (
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/remote"
	"github.com/lachiem1/payplan/internal/storage"
)

// Deps wires a Service. Remote may be nil for local-only use; when it also
// implements remote.Watcher, each push triggers a pull.
type Deps struct {
	DB       *sql.DB
	Store    *planner.Store
	Remote   remote.Store
	UserID   string
	DeviceID string
	Config   Config
	Logger   *zap.Logger
	OnEvent  func(Event)
}

func NewSnapshotService(deps Deps) (*Service, error) {
	if deps.DB == nil || deps.Store == nil {
		return nil, errors.New("sync service needs a database and a store")
	}
	if strings.TrimSpace(deps.UserID) == "" {
		return nil, errors.New("sync service needs a user id")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg := deps.Config.withDefaults()

	svc := &Service{
		userID:    deps.UserID,
		store:     deps.Store,
		snapshots: storage.NewSnapshotsRepo(deps.DB),
		backoff:   cfg.Backoff,
		logger:    logger.Named("sync"),
		onEvent:   deps.OnEvent,
	}
	if deps.Remote == nil {
		return svc, nil
	}
	if strings.TrimSpace(deps.DeviceID) == "" {
		return nil, errors.New("sync service needs a device id when a remote is configured")
	}

	syncState := storage.NewSyncStateRepo(deps.DB)
	svc.syncer = NewSnapshotSyncer(
		deps.UserID,
		deps.DeviceID,
		deps.Remote,
		deps.Store,
		svc.snapshots,
		syncState,
		svc.logger,
	)
	svc.syncer.onEvent = svc.emit

	engine, err := New(cfg, svc.syncer, svc.emit)
	if err != nil {
		return nil, err
	}
	svc.engine = engine
	svc.saver = NewDebouncer(cfg.Debounce, svc.syncer.Save, svc.emit)
	svc.syncer.savePending = svc.saver.Pending

	if w, ok := deps.Remote.(remote.Watcher); ok {
		svc.watcher = w
	}
	return svc, nil
}
