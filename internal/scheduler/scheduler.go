// Package scheduler runs the periodic re-sync loop: every interval it
// re-syncs every account with a stored credential, one account at a time.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/olekv/tgmirror/internal/bus"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/status"
	"github.com/olekv/tgmirror/internal/store"
	"github.com/olekv/tgmirror/internal/sync"
	"go.uber.org/zap"
)

// Scheduler ticks on a fixed interval and drives sync passes.
type Scheduler struct {
	db       *store.DB
	dialer   remote.Dialer
	engine   *sync.Engine
	machine  *status.Machine
	bus      *bus.Bus
	logger   *zap.Logger
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a scheduler. Interval must be positive.
func New(db *store.DB, dialer remote.Dialer, engine *sync.Engine, machine *status.Machine, b *bus.Bus, logger *zap.Logger, interval time.Duration) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		db:       db,
		dialer:   dialer,
		engine:   engine,
		machine:  machine,
		bus:      b,
		logger:   logger,
		interval: interval,
	}
}

// Start runs the loop in the background. The first tick fires immediately.
func (s *Scheduler) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	s.done = make(chan struct{})
	go s.loop(ctx)
}

// Stop cancels the loop and waits for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	if s.done != nil {
		<-s.done
	}
}

func (s *Scheduler) loop(ctx context.Context) {
	defer close(s.done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ticker.C:
			s.Tick(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Tick runs one scheduling round: every credentialed account gets a sync
// pass. Accounts are isolated from each other; one account failing moves
// the daemon to Degraded but the remaining accounts still run.
func (s *Scheduler) Tick(ctx context.Context) {
	accounts, err := s.db.ListCredentialed()
	if err != nil {
		s.logger.Error("failed to list accounts", zap.Error(err))
		return
	}
	if len(accounts) == 0 {
		s.logger.Debug("no credentialed accounts, skipping tick")
		return
	}

	if err := s.machine.Transition(status.Syncing); err != nil {
		s.logger.Warn("state transition rejected", zap.Error(err))
	}

	failed := 0
	for _, acct := range accounts {
		if ctx.Err() != nil {
			return
		}
		if err := s.syncOne(ctx, acct); err != nil {
			failed++
			s.logger.Error("account sync failed",
				zap.String("handle", acct.Handle),
				zap.Error(err))
		}
	}

	next := status.Idle
	if failed > 0 {
		next = status.Degraded
	}
	if err := s.machine.Transition(next); err != nil {
		s.logger.Warn("state transition rejected", zap.Error(err))
	}
}

func (s *Scheduler) syncOne(ctx context.Context, acct store.Account) error {
	blob, err := s.db.GetCredential(acct.ID)
	if err != nil {
		return err
	}

	client, err := s.dialer.Dial(ctx, blob, func(b []byte) error {
		return s.db.SaveCredential(acct.ID, b)
	})
	if err != nil {
		return err
	}
	defer func() { _ = client.Close() }()

	_, err = s.engine.SyncAccount(ctx, client)
	if errors.Is(err, remote.ErrAuth) {
		// The stored credential no longer works; leave the mirrored data
		// intact and wait for a fresh login.
		s.logger.Warn("stored credential rejected, account needs re-login",
			zap.String("handle", acct.Handle))
		if s.bus != nil {
			s.bus.Publish(bus.Event{
				Kind:      "sync.auth_failed",
				Timestamp: time.Now(),
				Payload:   map[string]string{"handle": acct.Handle},
			})
		}
	}
	return err
}
