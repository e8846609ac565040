// Package sync implements the account mirroring engine: it walks a remote
// account's conversations, classifies and downloads media, and performs
// duplicate-safe writes into the store.
package sync

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/olekv/tgmirror/internal/bus"
	"github.com/olekv/tgmirror/internal/config"
	"github.com/olekv/tgmirror/internal/media"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/storage"
	"github.com/olekv/tgmirror/internal/store"
	"go.uber.org/zap"
)

// Options tunes one engine instance. Zero values fall back to defaults.
type Options struct {
	// BatchSize is the message page size; batch members are processed
	// concurrently, so this also bounds in-flight downloads.
	BatchSize int
	// MediaThreshold splits generic documents into the under/over buckets.
	MediaThreshold int64
	// ConflictMode selects the message upsert behavior on re-sync.
	ConflictMode store.ConflictMode
	// RefreshContacts makes contact re-insertion update names and phone.
	RefreshContacts bool
}

func (o Options) withDefaults() Options {
	if o.BatchSize <= 0 {
		o.BatchSize = 50
	}
	if o.MediaThreshold <= 0 {
		o.MediaThreshold = config.DefaultMediaThreshold
	}
	return o
}

// Engine drives sync passes for authenticated accounts.
type Engine struct {
	db      *store.DB
	root    *storage.Root
	fetcher *media.Fetcher
	bus     *bus.Bus
	logger  *zap.Logger
	opts    Options
}

// NewEngine creates a sync engine.
func NewEngine(db *store.DB, root *storage.Root, fetcher *media.Fetcher, b *bus.Bus, logger *zap.Logger, opts Options) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		db:      db,
		root:    root,
		fetcher: fetcher,
		bus:     b,
		logger:  logger,
		opts:    opts.withDefaults(),
	}
}

func (e *Engine) publish(kind string, payload any) {
	if e.bus == nil {
		return
	}
	e.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

var nonWord = regexp.MustCompile(`\W+`)

// Slugify normalizes a conversation name into a filename-safe key:
// non-alphanumeric runs collapse to underscores, trimmed and lower-cased.
func Slugify(text string) string {
	return strings.ToLower(strings.Trim(nonWord.ReplaceAllString(text, "_"), "_"))
}

// senderLabel derives the display label persisted on a message row.
// Outbound messages get a fixed label; inbound prefer @username, then the
// full name, then the bare remote id.
func senderLabel(m *remote.Message) string {
	if m.Outbound {
		return "You"
	}
	if s := m.Sender; s != nil {
		if s.Username != "" {
			return "@" + s.Username
		}
		if name := strings.TrimSpace(s.FirstName + " " + s.LastName); name != "" {
			return name
		}
	}
	return strconv.FormatInt(m.SenderID, 10)
}
