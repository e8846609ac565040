package remote

import (
	"context"
	"errors"
)

// ErrAuth indicates the stored credential is no longer authorized. The
// account pass is aborted; the scheduler retries next tick and never
// attempts interactive re-authentication.
var ErrAuth = errors.New("remote: not authorized")

// Client is one authenticated connection to the remote platform, valid for
// the duration of a single sync pass.
type Client interface {
	// Me returns the account's own user info.
	Me(ctx context.Context) (*User, error)

	// Contacts returns the platform's dedicated contact list.
	Contacts(ctx context.Context) ([]User, error)

	// Conversations enumerates all dialogs with their kind resolved.
	Conversations(ctx context.Context) ([]Conversation, error)

	// Messages pages through a conversation's full history in the
	// platform's retrieval order, invoking fn once per page of at most
	// pageSize messages. A non-nil error from fn stops the iteration.
	Messages(ctx context.Context, conv Conversation, pageSize int, fn func(page []Message) error) error

	// Close releases the connection.
	Close() error
}

// CredentialSink persists an updated credential blob. Platforms rotate
// session material mid-connection; the adapter calls the sink whenever the
// blob changes so the stored copy stays dialable.
type CredentialSink func(blob []byte) error

// Dialer opens a Client for a stored credential. Returning ErrAuth (or an
// error wrapping it) marks the credential as revoked.
type Dialer interface {
	Dial(ctx context.Context, credential []byte, persist CredentialSink) (Client, error)
}
