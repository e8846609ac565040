// Package tg adapts the Telegram MTProto API (gotd/td) to the neutral
// remote interfaces the sync engine consumes. One Client wraps one running
// MTProto connection for the duration of a sync pass.
package tg

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gotd/td/telegram"
	"github.com/gotd/td/telegram/downloader"
	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/telegram/query"
	"github.com/gotd/td/tg"
	"github.com/olekv/tgmirror/internal/config"
	"github.com/olekv/tgmirror/internal/remote"
	"go.uber.org/zap"
)

// Dialer opens authenticated Telegram connections from stored session
// blobs. It never performs the interactive login handshake; a blob that no
// longer authorizes yields remote.ErrAuth.
type Dialer struct {
	apiID   int
	apiHash string
	rules   *remote.ExclusionRules
	logger  *zap.Logger
}

// NewDialer creates a dialer from the daemon configuration.
func NewDialer(cfg *config.Config, logger *zap.Logger) *Dialer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dialer{
		apiID:   cfg.APIID,
		apiHash: cfg.APIHash,
		rules:   remote.NewExclusionRules(cfg.ExcludedPeers),
		logger:  logger,
	}
}

// Dial connects and verifies authorization. The returned client owns a
// background connection goroutine released by Close.
func (d *Dialer) Dial(ctx context.Context, credential []byte, persist remote.CredentialSink) (remote.Client, error) {
	store := newSessionStore(credential, persist)
	tc := telegram.NewClient(d.apiID, d.apiHash, telegram.Options{
		SessionStorage: store,
		Logger:         d.logger.Named("mtproto"),
	})

	// The connection must outlive the dial context: it is torn down by
	// Close, not by the caller's deadline.
	runCtx, cancel := context.WithCancel(context.Background())
	c := &Client{
		tc:     tc,
		dl:     downloader.NewDownloader(),
		rules:  d.rules,
		cancel: cancel,
		runErr: make(chan error, 1),
		peers:  make(map[int64]tg.InputPeerClass),
	}

	ready := make(chan struct{})
	go func() {
		c.runErr <- tc.Run(runCtx, func(ctx context.Context) error {
			close(ready)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	select {
	case <-ready:
	case err := <-c.runErr:
		cancel()
		if err == nil {
			err = errors.New("connection closed during handshake")
		}
		return nil, fmt.Errorf("dial telegram: %w", err)
	case <-ctx.Done():
		cancel()
		<-c.runErr
		return nil, ctx.Err()
	}
	c.raw = tc.API()

	st, err := tc.Auth().Status(ctx)
	if err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("auth status: %w", err)
	}
	if !st.Authorized {
		_ = c.Close()
		return nil, remote.ErrAuth
	}
	return c, nil
}

// Client is one authenticated Telegram connection.
type Client struct {
	tc     *telegram.Client
	raw    *tg.Client
	dl     *downloader.Downloader
	rules  *remote.ExclusionRules
	cancel context.CancelFunc
	runErr chan error

	mu sync.Mutex
	// peers maps conversation ids to the input peers recorded during
	// enumeration; history paging needs them.
	peers map[int64]tg.InputPeerClass
}

func (c *Client) Me(ctx context.Context) (*remote.User, error) {
	u, err := c.tc.Self(ctx)
	if err != nil {
		return nil, fmt.Errorf("get self: %w", err)
	}
	ru := mapUser(u)
	return &ru, nil
}

func (c *Client) Contacts(ctx context.Context) ([]remote.User, error) {
	res, err := c.raw.ContactsGetContacts(ctx, 0)
	if err != nil {
		return nil, fmt.Errorf("get contacts: %w", err)
	}
	switch v := res.(type) {
	case *tg.ContactsContacts:
		users := make([]remote.User, 0, len(v.Users))
		for _, uc := range v.Users {
			if u, ok := uc.(*tg.User); ok && !u.Deleted {
				users = append(users, mapUser(u))
			}
		}
		return users, nil
	case *tg.ContactsContactsNotModified:
		return nil, nil
	}
	return nil, fmt.Errorf("unexpected contacts response %T", res)
}

func (c *Client) Conversations(ctx context.Context) ([]remote.Conversation, error) {
	var convs []remote.Conversation
	iter := query.GetDialogs(c.raw).BatchSize(100).Iter()
	for iter.Next(ctx) {
		elem := iter.Value()
		conv, ok := mapDialog(elem.Dialog.GetPeer(), elem.Entities, c.rules)
		if !ok {
			continue
		}
		c.mu.Lock()
		c.peers[conv.ID] = elem.Peer
		c.mu.Unlock()
		convs = append(convs, conv)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("iterate dialogs: %w", err)
	}
	return convs, nil
}

// Messages pages the full history newest-first, the platform's retrieval
// order.
func (c *Client) Messages(ctx context.Context, conv remote.Conversation, pageSize int, fn func(page []remote.Message) error) error {
	c.mu.Lock()
	inputPeer, ok := c.peers[conv.ID]
	c.mu.Unlock()
	if !ok {
		return fmt.Errorf("no input peer for conversation %d", conv.ID)
	}

	iter := query.Messages(c.raw).GetHistory(inputPeer).BatchSize(pageSize).Iter()
	page := make([]remote.Message, 0, pageSize)
	for iter.Next(ctx) {
		elem := iter.Value()
		m, ok := elem.Msg.(*tg.Message)
		if !ok {
			// Service messages and history holes are not mirrored.
			continue
		}
		page = append(page, c.mapMessage(m, elem.Entities, conv))
		if len(page) == pageSize {
			if err := fn(page); err != nil {
				return err
			}
			page = make([]remote.Message, 0, pageSize)
		}
	}
	if err := iter.Err(); err != nil {
		return fmt.Errorf("iterate history: %w", err)
	}
	if len(page) > 0 {
		return fn(page)
	}
	return nil
}

func (c *Client) mapMessage(m *tg.Message, ent peer.Entities, conv remote.Conversation) remote.Message {
	senderID, sender := senderOf(m, ent, conv)
	return remote.Message{
		ID:         int64(m.ID),
		Outbound:   m.Out,
		Text:       m.Message,
		SenderID:   senderID,
		Sender:     sender,
		Date:       time.Unix(int64(m.Date), 0),
		Attachment: c.mapAttachment(m),
	}
}

func (c *Client) Close() error {
	c.cancel()
	err := <-c.runErr
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
