package store

import (
	"database/sql"
	"fmt"
	"time"
)

// UpsertAccount inserts an account by handle or, if it already exists,
// refreshes its phone and last-sync timestamp. Returns the local id.
func (db *DB) UpsertAccount(handle, phone string) (int64, error) {
	now := time.Now().UnixMilli()
	_, err := db.Exec(`
		INSERT INTO accounts (handle, phone, last_synced_at, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(handle) DO UPDATE SET
			phone = excluded.phone,
			last_synced_at = excluded.last_synced_at`,
		handle, phone, now, now)
	if err != nil {
		return 0, err
	}

	var id int64
	if err := db.QueryRow(`SELECT id FROM accounts WHERE handle = ?`, handle).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

// TouchAccountSynced stamps the account's last-sync timestamp.
func (db *DB) TouchAccountSynced(accountID int64) error {
	_, err := db.Exec(`UPDATE accounts SET last_synced_at = ? WHERE id = ?`,
		time.Now().UnixMilli(), accountID)
	return err
}

// SaveCredential stores the opaque session blob for an account.
func (db *DB) SaveCredential(accountID int64, blob []byte) error {
	_, err := db.Exec(`UPDATE accounts SET session_blob = ? WHERE id = ?`, blob, accountID)
	return err
}

// GetCredential returns the stored session blob, or nil if none is stored.
func (db *DB) GetCredential(accountID int64) ([]byte, error) {
	var blob []byte
	err := db.QueryRow(`SELECT session_blob FROM accounts WHERE id = ?`, accountID).Scan(&blob)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// GetAccountByHandle returns an account by its unique handle, or nil.
func (db *DB) GetAccountByHandle(handle string) (*Account, error) {
	var a Account
	err := db.QueryRow(`
		SELECT id, handle, phone, last_synced_at FROM accounts WHERE handle = ?`, handle).
		Scan(&a.ID, &a.Handle, &a.Phone, &a.LastSyncedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// ListAccounts returns all accounts with their unread message counts.
func (db *DB) ListAccounts() ([]Account, error) {
	rows, err := db.Query(`
		SELECT a.id, a.handle, a.phone, a.last_synced_at,
			COUNT(m.id) AS unread_count
		FROM accounts a
		LEFT JOIN conversations c ON c.account_id = a.id
		LEFT JOIN messages m ON m.conversation_id = c.id AND m.is_read = 0
		GROUP BY a.id, a.handle, a.phone, a.last_synced_at
		ORDER BY a.id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Handle, &a.Phone, &a.LastSyncedAt, &a.UnreadCount); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// ListCredentialed returns accounts that have a stored session blob, in
// creation order. These are the accounts the scheduler re-syncs each tick.
func (db *DB) ListCredentialed() ([]Account, error) {
	rows, err := db.Query(`
		SELECT id, handle, phone, last_synced_at
		FROM accounts
		WHERE session_blob IS NOT NULL
		ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var accounts []Account
	for rows.Next() {
		var a Account
		if err := rows.Scan(&a.ID, &a.Handle, &a.Phone, &a.LastSyncedAt); err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

// DeleteAccount removes an account and all of its conversations, messages
// and contacts in a single transaction. Media on disk is the caller's
// responsibility (storage.Root.RemoveAccount).
func (db *DB) DeleteAccount(accountID int64) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`
		DELETE FROM messages
		WHERE conversation_id IN (SELECT id FROM conversations WHERE account_id = ?)`,
		accountID); err != nil {
		return fmt.Errorf("delete messages: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM conversations WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete conversations: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM contacts WHERE account_id = ?`, accountID); err != nil {
		return fmt.Errorf("delete contacts: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM accounts WHERE id = ?`, accountID); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}
	return tx.Commit()
}
