package store

import (
	"fmt"
	"time"
)

// ConflictMode selects the behavior of UpsertMessage on a uniqueness
// conflict.
type ConflictMode int

const (
	// ConflictIgnore keeps the first-synced row untouched.
	ConflictIgnore ConflictMode = iota
	// ConflictReplace refreshes sender, body, media and timestamp. The read
	// flag is never touched in either mode.
	ConflictReplace
)

// ParseConflictMode maps the config string to a ConflictMode.
func ParseConflictMode(s string) (ConflictMode, error) {
	switch s {
	case "ignore":
		return ConflictIgnore, nil
	case "replace":
		return ConflictReplace, nil
	default:
		return ConflictIgnore, fmt.Errorf("unknown message conflict mode %q", s)
	}
}

// UpsertMessage writes a message idempotently on (conversation_id,
// remote_id). Reports whether a new row was inserted (false for an ignored
// conflict and for an in-place replace).
func (db *DB) UpsertMessage(m *Message, mode ConflictMode) (bool, error) {
	now := time.Now().UnixMilli()

	if mode == ConflictReplace {
		// No concurrent writer ever touches the same (conversation, remote
		// id) pair, so the existence check is not racy.
		var exists bool
		err := db.QueryRow(`
			SELECT EXISTS(SELECT 1 FROM messages WHERE conversation_id = ? AND remote_id = ?)`,
			m.ConversationID, m.RemoteID).Scan(&exists)
		if err != nil {
			return false, err
		}
		_, err = db.Exec(`
			INSERT INTO messages (conversation_id, remote_id, sender, outbound, body, media_path, sent_at, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(conversation_id, remote_id) DO UPDATE SET
				sender = excluded.sender,
				outbound = excluded.outbound,
				body = excluded.body,
				media_path = excluded.media_path,
				sent_at = excluded.sent_at`,
			m.ConversationID, m.RemoteID, m.Sender, m.Outbound, m.Body, m.MediaPath, m.SentAt, now)
		if err != nil {
			return false, err
		}
		return !exists, nil
	}

	res, err := db.Exec(`
		INSERT INTO messages (conversation_id, remote_id, sender, outbound, body, media_path, sent_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id, remote_id) DO NOTHING`,
		m.ConversationID, m.RemoteID, m.Sender, m.Outbound, m.Body, m.MediaPath, m.SentAt, now)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListMessages returns a conversation's messages ordered by remote message
// id ascending, which matches the platform's send order.
func (db *DB) ListMessages(conversationID int64) ([]Message, error) {
	rows, err := db.Query(`
		SELECT id, conversation_id, remote_id, sender, outbound, body, media_path, sent_at, is_read
		FROM messages
		WHERE conversation_id = ?
		ORDER BY remote_id ASC`, conversationID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var msgs []Message
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.RemoteID, &m.Sender, &m.Outbound,
			&m.Body, &m.MediaPath, &m.SentAt, &m.IsRead); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// MarkConversationRead flags every message in a conversation as read.
// Called by the viewing collaborator, never by the sync engine.
func (db *DB) MarkConversationRead(conversationID int64) error {
	_, err := db.Exec(`UPDATE messages SET is_read = 1 WHERE conversation_id = ?`, conversationID)
	return err
}

// MessageCount returns the number of messages in a conversation.
func (db *DB) MessageCount(conversationID int64) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&count)
	return count, err
}
