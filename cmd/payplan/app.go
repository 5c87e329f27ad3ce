package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lachiem1/payplan/internal/auth"
	"github.com/lachiem1/payplan/internal/budget"
	"github.com/lachiem1/payplan/internal/config"
	"github.com/lachiem1/payplan/internal/logger"
	"github.com/lachiem1/payplan/internal/planner"
	"github.com/lachiem1/payplan/internal/remote"
	"github.com/lachiem1/payplan/internal/storage"
	"github.com/lachiem1/payplan/internal/syncer"
)

const shutdownTimeout = 10 * time.Second

// app is everything a command needs once config, storage and sync are up.
type app struct {
	cfg     config.Config
	log     *zap.Logger
	db      *sql.DB
	sync    *syncer.Service
	planner *planner.Service
	closers []io.Closer
}

type appOptions struct {
	// onEvent receives sync events; nil drops them after logging.
	onEvent func(syncer.Event)
}

func openApp(ctx context.Context, opts appOptions) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	logCfg := logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, Output: cfg.Log.Output}
	if flagLogLevel != "" {
		logCfg.Level = flagLogLevel
	}
	log, err := logger.New(logCfg)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	a := &app{cfg: cfg, log: log}
	if err := a.open(ctx, opts); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func (a *app) open(ctx context.Context, opts appOptions) error {
	mode, err := storage.ParseMode(a.cfg.Storage.Mode)
	if err != nil {
		return err
	}
	db, dbCfg, err := storage.Open(ctx, storage.Config{Mode: mode, Path: a.cfg.Storage.Path})
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	a.db = db
	a.log.Debug("database opened", zap.String("path", dbCfg.Path), zap.String("mode", string(dbCfg.Mode)))

	userID, err := loadOrCreateUserID()
	if err != nil {
		return err
	}
	deviceID, err := storage.NewAppConfigRepo(db).DeviceID(ctx)
	if err != nil {
		return err
	}

	rs, err := a.openRemote(ctx)
	if err != nil {
		return err
	}

	store := planner.NewStore(budget.DefaultSnapshot())
	svc, err := syncer.NewSnapshotService(syncer.Deps{
		DB:       db,
		Store:    store,
		Remote:   rs,
		UserID:   userID,
		DeviceID: deviceID,
		Config: syncer.Config{
			StaleTTL:     a.cfg.Sync.StaleTTL(),
			PollInterval: a.cfg.Sync.PollInterval(),
			Debounce:     a.cfg.Sync.Debounce(),
		},
		Logger:  a.log,
		OnEvent: opts.onEvent,
	})
	if err != nil {
		return err
	}
	a.sync = svc

	if _, err := svc.Restore(ctx); err != nil {
		return fmt.Errorf("restore cached snapshot: %w", err)
	}
	if svc.Remote() && !flagOffline {
		if err := svc.Pull(ctx); err != nil {
			a.log.Warn("remote pull failed; using the cached snapshot", zap.Error(err))
		}
	}
	svc.Attach()

	a.planner = planner.NewService(store, planner.WithLogger(a.log.Named("planner")))
	return nil
}

// openRemote returns nil when no remote is configured.
func (a *app) openRemote(ctx context.Context) (remote.Store, error) {
	token, err := auth.LoadRemoteToken()
	if err != nil && !errors.Is(err, auth.ErrNotConfigured) {
		return nil, err
	}

	switch a.cfg.Remote.Kind {
	case config.RemoteHTTP:
		if token == "" {
			a.log.Warn("http remote configured without a token; run `payplan auth set`")
		}
		return remote.New(config.RemoteURL(a.cfg), token), nil
	case config.RemoteRedis:
		rs, err := remote.NewRedisStore(ctx,
			remote.RedisConfig{Addr: config.RedisAddr(a.cfg), Password: token, DB: a.cfg.Remote.RedisDB},
			remote.WithKeyPrefix(a.cfg.Remote.KeyPrefix),
			remote.WithRedisLogger(a.log.Named("redis")),
		)
		if err != nil {
			if flagOffline {
				a.log.Warn("redis unavailable; running local only", zap.Error(err))
				return nil, nil
			}
			return nil, fmt.Errorf("connect to redis: %w", err)
		}
		a.closers = append(a.closers, rs)
		return rs, nil
	default:
		return nil, nil
	}
}

// close flushes pending saves and releases resources. Safe on a partially
// opened app.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if a.sync != nil {
		if err := a.sync.Stop(ctx); err != nil {
			a.log.Warn("final remote save failed", zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i].Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
	_ = a.log.Sync()
}

func loadOrCreateUserID() (string, error) {
	id, err := auth.LoadUserID()
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, auth.ErrNotConfigured) {
		return "", err
	}
	id = uuid.NewString()
	if err := auth.SaveUserID(id); err != nil {
		return "", fmt.Errorf("save user id: %w", err)
	}
	return id, nil
}

// withApp opens the app for the duration of fn.
func withApp(ctx context.Context, fn func(*app) error) error {
	a, err := openApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()
	return fn(a)
}
