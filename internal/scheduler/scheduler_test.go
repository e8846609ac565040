package scheduler

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/olekv/tgmirror/internal/media"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/status"
	"github.com/olekv/tgmirror/internal/storage"
	"github.com/olekv/tgmirror/internal/store"
	"github.com/olekv/tgmirror/internal/sync"
)

type stubClient struct {
	me      remote.User
	authErr bool
}

func (c *stubClient) Me(context.Context) (*remote.User, error) {
	if c.authErr {
		return nil, remote.ErrAuth
	}
	me := c.me
	return &me, nil
}

func (c *stubClient) Contacts(context.Context) ([]remote.User, error) { return nil, nil }

func (c *stubClient) Conversations(context.Context) ([]remote.Conversation, error) {
	return nil, nil
}

func (c *stubClient) Messages(context.Context, remote.Conversation, int, func([]remote.Message) error) error {
	return nil
}

func (c *stubClient) Close() error { return nil }

type stubDialer struct {
	client  remote.Client
	dialErr error
	dials   int
}

func (d *stubDialer) Dial(context.Context, []byte, remote.CredentialSink) (remote.Client, error) {
	d.dials++
	if d.dialErr != nil {
		return nil, d.dialErr
	}
	return d.client, nil
}

func testScheduler(t *testing.T, dialer remote.Dialer) (*Scheduler, *store.DB, *status.Machine) {
	t.Helper()
	db, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })

	root, err := storage.NewRoot(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	engine := sync.NewEngine(db, root, media.NewFetcher(1, nil), nil, nil, sync.Options{})

	machine := status.NewMachine(nil)
	if err := machine.Transition(status.Idle); err != nil {
		t.Fatal(err)
	}
	return New(db, dialer, engine, machine, nil, nil, 0), db, machine
}

func seedAccount(t *testing.T, db *store.DB, handle string) int64 {
	t.Helper()
	id, err := db.UpsertAccount(handle, "")
	if err != nil {
		t.Fatal(err)
	}
	if err := db.SaveCredential(id, []byte("session")); err != nil {
		t.Fatal(err)
	}
	return id
}

func TestTickSyncsCredentialedAccounts(t *testing.T) {
	dialer := &stubDialer{client: &stubClient{me: remote.User{ID: 1, Username: "alice"}}}
	s, db, machine := testScheduler(t, dialer)
	seedAccount(t, db, "alice")

	before, _ := db.GetAccountByHandle("alice")
	time.Sleep(2 * time.Millisecond)

	s.Tick(context.Background())

	if dialer.dials != 1 {
		t.Errorf("dials = %d, want 1", dialer.dials)
	}
	if got := machine.Current(); got != status.Idle {
		t.Errorf("state after tick = %v, want Idle", got)
	}
	after, _ := db.GetAccountByHandle("alice")
	if after.LastSyncedAt <= before.LastSyncedAt {
		t.Error("tick did not stamp last-sync")
	}
}

func TestTickSkipsAccountsWithoutCredential(t *testing.T) {
	dialer := &stubDialer{client: &stubClient{me: remote.User{ID: 1, Username: "alice"}}}
	s, db, machine := testScheduler(t, dialer)
	if _, err := db.UpsertAccount("no_session", ""); err != nil {
		t.Fatal(err)
	}

	s.Tick(context.Background())

	if dialer.dials != 0 {
		t.Errorf("dials = %d, want 0", dialer.dials)
	}
	if got := machine.Current(); got != status.Idle {
		t.Errorf("state after empty tick = %v, want Idle", got)
	}
}

func TestTickAuthFailureDegrades(t *testing.T) {
	dialer := &stubDialer{client: &stubClient{authErr: true}}
	s, db, machine := testScheduler(t, dialer)
	seedAccount(t, db, "alice")

	s.Tick(context.Background())

	if got := machine.Current(); got != status.Degraded {
		t.Errorf("state after auth failure = %v, want Degraded", got)
	}
}

func TestTickIsolatesAccountFailures(t *testing.T) {
	var calls int
	dialer := dialerFunc(func(context.Context, []byte, remote.CredentialSink) (remote.Client, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("network down")
		}
		return &stubClient{me: remote.User{ID: 2, Username: "bob"}}, nil
	})
	s, db, machine := testScheduler(t, dialer)
	seedAccount(t, db, "alice")
	seedAccount(t, db, "bob")

	s.Tick(context.Background())

	if calls != 2 {
		t.Errorf("dials = %d, want 2 (second account still runs)", calls)
	}
	if got := machine.Current(); got != status.Degraded {
		t.Errorf("state = %v, want Degraded", got)
	}

	bob, _ := db.GetAccountByHandle("bob")
	if bob.LastSyncedAt == 0 {
		t.Error("healthy account not synced after sibling failure")
	}
}

type dialerFunc func(context.Context, []byte, remote.CredentialSink) (remote.Client, error)

func (f dialerFunc) Dial(ctx context.Context, cred []byte, persist remote.CredentialSink) (remote.Client, error) {
	return f(ctx, cred, persist)
}
