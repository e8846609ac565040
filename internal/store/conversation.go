package store

import (
	"database/sql"
	"time"
)

// UpsertConversation inserts a conversation or, on re-sync, refreshes its
// display name, slug and kind. Returns the local id.
func (db *DB) UpsertConversation(c *Conversation) (int64, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO conversations (account_id, remote_id, name, slug, kind, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, remote_id) DO UPDATE SET
			name = excluded.name,
			slug = excluded.slug,
			kind = excluded.kind`,
		c.AccountID, c.RemoteID, c.Name, c.Slug, c.Kind, now)
	if err != nil {
		return 0, err
	}

	var id int64
	err = db.QueryRow(`
		SELECT id FROM conversations WHERE account_id = ? AND remote_id = ?`,
		c.AccountID, c.RemoteID).Scan(&id)
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetConversation returns a conversation by its uniqueness key, or nil.
func (db *DB) GetConversation(accountID, remoteID int64) (*Conversation, error) {
	var c Conversation
	err := db.QueryRow(`
		SELECT id, account_id, remote_id, name, slug, kind
		FROM conversations WHERE account_id = ? AND remote_id = ?`,
		accountID, remoteID).
		Scan(&c.ID, &c.AccountID, &c.RemoteID, &c.Name, &c.Slug, &c.Kind)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// ListConversations returns an account's conversations with unread counts.
func (db *DB) ListConversations(accountID int64) ([]Conversation, error) {
	rows, err := db.Query(`
		SELECT c.id, c.account_id, c.remote_id, c.name, c.slug, c.kind,
			COUNT(m.id) AS unread_count
		FROM conversations c
		LEFT JOIN messages m ON m.conversation_id = c.id AND m.is_read = 0
		WHERE c.account_id = ?
		GROUP BY c.id, c.account_id, c.remote_id, c.name, c.slug, c.kind
		ORDER BY c.id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var convs []Conversation
	for rows.Next() {
		var c Conversation
		if err := rows.Scan(&c.ID, &c.AccountID, &c.RemoteID, &c.Name, &c.Slug, &c.Kind, &c.UnreadCount); err != nil {
			return nil, err
		}
		convs = append(convs, c)
	}
	return convs, rows.Err()
}

// ConversationCount returns the number of conversations for an account.
func (db *DB) ConversationCount(accountID int64) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM conversations WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}
