// Package daemon composes the mirror daemon: store, storage root, Telegram
// dialer, sync engine and scheduler, wired through fx with lifecycle hooks.
package daemon

import (
	"context"
	"os"
	"time"

	"github.com/olekv/tgmirror/internal/bus"
	"github.com/olekv/tgmirror/internal/config"
	"github.com/olekv/tgmirror/internal/lock"
	"github.com/olekv/tgmirror/internal/logging"
	"github.com/olekv/tgmirror/internal/media"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/scheduler"
	"github.com/olekv/tgmirror/internal/status"
	"github.com/olekv/tgmirror/internal/storage"
	"github.com/olekv/tgmirror/internal/store"
	intsync "github.com/olekv/tgmirror/internal/sync"
	"github.com/olekv/tgmirror/internal/tg"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved configuration passed to the fx module.
type Params struct {
	Config *config.Config
}

// Module returns the fx module for the daemon, composing all providers and
// lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideStorageRoot,
			provideFetcher,
			provideEngine,
			provideDialer,
			provideScheduler,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(p.Config.LogPath())
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := os.MkdirAll(p.Config.DataDir, 0700); err != nil {
		return nil, err
	}
	l, err := lock.Acquire(p.Config.DataDir)
	if err != nil {
		return nil, err
	}
	logger.Info("instance lock acquired", zap.String("data_dir", p.Config.DataDir))
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := p.Config.DatabasePath()
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideStorageRoot(p Params) (*storage.Root, error) {
	return storage.NewRoot(p.Config.StorageRoot)
}

func provideFetcher(p Params, logger *zap.Logger) *media.Fetcher {
	return media.NewFetcher(p.Config.MediaAttempts, logger)
}

func provideEngine(p Params, db *store.DB, root *storage.Root, fetcher *media.Fetcher, b *bus.Bus, logger *zap.Logger) (*intsync.Engine, error) {
	mode, err := store.ParseConflictMode(p.Config.MessageConflict)
	if err != nil {
		return nil, err
	}
	return intsync.NewEngine(db, root, fetcher, b, logger, intsync.Options{
		BatchSize:       p.Config.MessageBatchSize,
		MediaThreshold:  p.Config.MediaSizeThreshold,
		ConflictMode:    mode,
		RefreshContacts: p.Config.RefreshContacts,
	}), nil
}

func provideDialer(p Params, logger *zap.Logger) remote.Dialer {
	return tg.NewDialer(p.Config, logger)
}

func provideScheduler(p Params, db *store.DB, dialer remote.Dialer, engine *intsync.Engine, machine *status.Machine, b *bus.Bus, logger *zap.Logger) *scheduler.Scheduler {
	interval := time.Duration(p.Config.SyncIntervalMinutes) * time.Minute
	return scheduler.New(db, dialer, engine, machine, b, logger, interval)
}

func registerLifecycle(lc fx.Lifecycle, sched *scheduler.Scheduler, machine *status.Machine, db *store.DB, lk *lock.Lock, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if err := machine.Transition(status.Idle); err != nil {
				return err
			}
			sched.Start(context.Background())
			logger.Info("daemon started")
			return nil
		},
		OnStop: func(_ context.Context) error {
			sched.Stop()
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			return nil
		},
	})
}
