package tg

import (
	"context"
	"sync"

	"github.com/gotd/td/session"
	"github.com/olekv/tgmirror/internal/remote"
)

// sessionStore adapts a stored credential blob to gotd's session storage.
// Updates are written through to the sink so session key rotations survive
// daemon restarts.
type sessionStore struct {
	mu      sync.Mutex
	data    []byte
	persist remote.CredentialSink
}

func newSessionStore(blob []byte, persist remote.CredentialSink) *sessionStore {
	return &sessionStore{data: blob, persist: persist}
}

func (s *sessionStore) LoadSession(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.data) == 0 {
		return nil, session.ErrNotFound
	}
	return append([]byte(nil), s.data...), nil
}

func (s *sessionStore) StoreSession(_ context.Context, data []byte) error {
	s.mu.Lock()
	s.data = append([]byte(nil), data...)
	s.mu.Unlock()

	if s.persist == nil {
		return nil
	}
	return s.persist(data)
}
