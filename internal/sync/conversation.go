package sync

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/olekv/tgmirror/internal/media"
	"github.com/olekv/tgmirror/internal/remote"
	"github.com/olekv/tgmirror/internal/store"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// convStats aggregates per-conversation counters across batch workers.
type convStats struct {
	messages    atomic.Int64
	newMessages atomic.Int64
	mediaFailed atomic.Int64
}

// SyncConversation mirrors one remote conversation for an account. Excluded
// kinds produce no row and no work. Returns the local conversation id
// (0 when skipped).
//
// Message pages arrive in the platform's retrieval order and each page is
// processed as one concurrently-executed batch; the next page is not
// requested until every member of the current batch has completed, so an
// interruption never splits a batch boundary.
func (e *Engine) SyncConversation(ctx context.Context, client remote.Client, accountID int64, handle string, conv remote.Conversation) (int64, error) {
	if conv.Kind == remote.KindExcluded {
		e.logger.Debug("conversation excluded",
			zap.Int64("remote_id", conv.ID),
			zap.String("title", conv.Title))
		return 0, nil
	}

	name := conv.Title
	convID, err := e.db.UpsertConversation(&store.Conversation{
		AccountID: accountID,
		RemoteID:  conv.ID,
		Name:      name,
		Slug:      Slugify(fmt.Sprintf("%s_%d", name, conv.ID)),
		Kind:      conv.Kind.String(),
	})
	if err != nil {
		return 0, fmt.Errorf("upsert conversation %d: %w", conv.ID, err)
	}

	stats := &convStats{}
	err = client.Messages(ctx, conv, e.opts.BatchSize, func(page []remote.Message) error {
		return e.processBatch(ctx, convID, handle, page, stats)
	})
	if err != nil {
		return convID, fmt.Errorf("page history of %d: %w", conv.ID, err)
	}

	e.logger.Info("conversation synced",
		zap.Int64("conversation_id", convID),
		zap.Int64("remote_id", conv.ID),
		zap.String("kind", conv.Kind.String()),
		zap.Int64("messages", stats.messages.Load()),
		zap.Int64("new", stats.newMessages.Load()),
		zap.Int64("media_failed", stats.mediaFailed.Load()))
	e.publish("sync.conversation_synced", map[string]int64{
		"conversation_id": convID,
		"messages":        stats.messages.Load(),
		"new":             stats.newMessages.Load(),
	})
	return convID, nil
}

// processBatch runs one page of messages with bounded parallelism. Per-item
// failures (media download, storage write) are absorbed here; only
// cancellation aborts the batch.
func (e *Engine) processBatch(ctx context.Context, convID int64, handle string, page []remote.Message, stats *convStats) error {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.BatchSize)

	for i := range page {
		msg := &page[i]
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			e.processMessage(ctx, convID, handle, msg, stats)
			return nil
		})
	}
	return g.Wait()
}

// processMessage fetches the message's media (if any) and upserts the row.
// The row is written only after the media fetch attempt has completed, so a
// persisted message never references an in-flight download.
func (e *Engine) processMessage(ctx context.Context, convID int64, handle string, msg *remote.Message, stats *convStats) {
	mediaPath := e.fetchMedia(ctx, handle, msg, stats)

	inserted, err := e.db.UpsertMessage(&store.Message{
		ConversationID: convID,
		RemoteID:       msg.ID,
		Sender:         senderLabel(msg),
		Outbound:       msg.Outbound,
		Body:           msg.Text,
		MediaPath:      mediaPath,
		SentAt:         msg.Date.UnixMilli(),
	}, e.opts.ConflictMode)
	if err != nil {
		e.logger.Warn("message upsert failed",
			zap.Int64("conversation_id", convID),
			zap.Int64("remote_id", msg.ID),
			zap.Error(err))
		return
	}

	stats.messages.Add(1)
	if inserted {
		stats.newMessages.Add(1)
		e.publish("message.upserted", map[string]int64{
			"conversation_id": convID,
			"remote_id":       msg.ID,
		})
	}
}

// fetchMedia classifies and downloads a message's attachment, returning the
// relative path to persist, or "" when there is no media or the download
// failed. A failure never propagates: the message is stored text-only.
func (e *Engine) fetchMedia(ctx context.Context, handle string, msg *remote.Message, stats *convStats) string {
	att := msg.Attachment
	if att == nil {
		return ""
	}

	_, relPath, ok := media.Classify(att.Meta, e.opts.MediaThreshold)
	if !ok {
		return ""
	}

	absPath, err := e.root.Resolve(handle, relPath)
	if err != nil {
		e.logger.Warn("media path rejected",
			zap.String("rel", relPath),
			zap.Error(err))
		return ""
	}
	if err := e.fetcher.Fetch(ctx, att.Source, absPath); err != nil {
		stats.mediaFailed.Add(1)
		e.logger.Warn("media fetch failed, storing message without media",
			zap.Int64("message_id", msg.ID),
			zap.String("rel", relPath),
			zap.Error(err))
		return ""
	}
	return relPath
}
