// Package remote defines the platform-neutral view of a messaging account
// that the sync engine consumes. The Telegram adapter in internal/tg
// implements these types; tests use in-memory fakes.
package remote

import (
	"time"

	"github.com/olekv/tgmirror/internal/media"
)

// Kind is the closed classification of a remote conversation. It is
// produced exactly once per conversation by Classify and consumed as data
// everywhere else.
type Kind int

const (
	KindPrivate Kind = iota
	KindGroup
	KindExcluded
)

func (k Kind) String() string {
	switch k {
	case KindPrivate:
		return "private"
	case KindGroup:
		return "group"
	default:
		return "excluded"
	}
}

// User describes a remote user entity.
type User struct {
	ID        int64
	Username  string
	FirstName string
	LastName  string
	Phone     string
	Bot       bool
	Self      bool
}

// Conversation describes one remote dialog as enumerated from the account.
type Conversation struct {
	ID    int64
	Title string
	Kind  Kind
	// Peer is the counterpart user for private conversations, nil otherwise.
	Peer *User
}

// Message is one remote message, normalized for ingestion.
type Message struct {
	ID       int64
	Outbound bool
	Text     string
	SenderID int64
	// Sender is nil when the sender identity could not be resolved.
	Sender *User
	Date   time.Time
	// Attachment is nil for text-only messages.
	Attachment *Attachment
}

// Attachment pairs classifier metadata with a downloadable source.
type Attachment struct {
	Meta   media.Attachment
	Source media.Source
}
