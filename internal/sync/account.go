package sync

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/store"
	"go.uber.org/zap"
)

// PassResult summarizes one completed (possibly partial) account sync pass.
type PassResult struct {
	PassID        string
	AccountID     int64
	Handle        string
	Conversations int
	Skipped       int
	Failed        int
	Contacts      int
}

// SyncAccount runs one full sync pass for an authenticated account:
// contacts, the account row, then every conversation in enumeration order.
//
// A per-conversation failure is logged and skipped; the pass continues and
// still stamps the last-sync timestamp. Errors returned from here are
// pass-fatal (authentication, enumeration, cancellation).
func (e *Engine) SyncAccount(ctx context.Context, client remote.Client) (*PassResult, error) {
	me, err := client.Me(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolve self: %w", err)
	}

	handle := DeriveHandle(me)
	res := &PassResult{PassID: uuid.New().String(), Handle: handle}
	e.publish("sync.pass_started", map[string]string{"pass_id": res.PassID, "handle": handle})
	e.logger.Info("sync pass started",
		zap.String("pass_id", res.PassID),
		zap.String("handle", handle))

	// The account row goes in before any conversation work so an
	// interrupted pass still leaves a linkable account.
	accountID, err := e.db.UpsertAccount(handle, me.Phone)
	if err != nil {
		return nil, fmt.Errorf("upsert account: %w", err)
	}
	res.AccountID = accountID

	convs, err := client.Conversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("enumerate conversations: %w", err)
	}

	contacts, err := e.mergeContacts(ctx, client, accountID, me, convs)
	if err != nil {
		// Contact enumeration failing is not pass-fatal; conversations and
		// messages are the primary mirror content.
		e.logger.Warn("contact enumeration failed", zap.Error(err))
	} else {
		res.Contacts = contacts
	}

	// Conversations run sequentially to keep rate-limit pressure on the
	// platform bounded; concurrency lives inside each conversation's
	// message batches.
	for _, conv := range convs {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		if conv.Kind == remote.KindExcluded {
			res.Skipped++
			continue
		}
		if _, err := e.SyncConversation(ctx, client, accountID, handle, conv); err != nil {
			res.Failed++
			e.logger.Warn("conversation sync failed, skipping",
				zap.Int64("remote_id", conv.ID),
				zap.String("title", conv.Title),
				zap.Error(err))
			continue
		}
		res.Conversations++
	}

	// Success or partial, the pass completed: stamp last-sync.
	if err := e.db.TouchAccountSynced(accountID); err != nil {
		e.logger.Warn("failed to stamp last-sync", zap.Error(err))
	}

	e.publish("sync.pass_finished", res)
	e.logger.Info("sync pass finished",
		zap.String("pass_id", res.PassID),
		zap.Int("conversations", res.Conversations),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed),
		zap.Int("contacts", res.Contacts))
	return res, nil
}

// mergeContacts gathers contacts from the platform's contact list and from
// the private-conversation peers, de-duplicated by remote user id with
// first-seen-wins, and bulk-upserts them. Bots and the account itself are
// never stored.
func (e *Engine) mergeContacts(ctx context.Context, client remote.Client, accountID int64, me *remote.User, convs []remote.Conversation) (int, error) {
	listed, err := client.Contacts(ctx)
	if err != nil {
		return 0, fmt.Errorf("list contacts: %w", err)
	}

	seen := make(map[int64]struct{})
	var batch []store.Contact
	add := func(u *remote.User) {
		if u == nil || u.Bot || u.Self || u.ID == me.ID {
			return
		}
		if _, ok := seen[u.ID]; ok {
			return
		}
		seen[u.ID] = struct{}{}
		batch = append(batch, store.Contact{
			AccountID:    accountID,
			RemoteUserID: u.ID,
			Username:     u.Username,
			FirstName:    u.FirstName,
			LastName:     u.LastName,
			Phone:        u.Phone,
		})
	}

	for i := range listed {
		add(&listed[i])
	}
	for i := range convs {
		if convs[i].Kind == remote.KindPrivate {
			add(convs[i].Peer)
		}
	}

	if len(batch) == 0 {
		return 0, nil
	}
	if err := e.db.BulkUpsertContacts(batch, e.opts.RefreshContacts); err != nil {
		return 0, fmt.Errorf("bulk upsert contacts: %w", err)
	}
	return len(batch), nil
}

// DeriveHandle builds the unique local handle for an authenticated user:
// username (or "First_<id>" when absent) suffixed with the bare phone
// number.
func DeriveHandle(me *remote.User) string {
	name := me.Username
	if name == "" {
		name = fmt.Sprintf("%s_%d", me.FirstName, me.ID)
	}
	phone := strings.TrimPrefix(me.Phone, "+")
	if phone == "" {
		return name
	}
	return name + "_" + phone
}
