package store

import (
	"database/sql"
	"fmt"
	"time"
)

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// UpsertContact inserts a contact for an account. By default a conflict on
// (account_id, remote_user_id) is a no-op; with refresh, names and phone
// are updated in place.
func (db *DB) UpsertContact(c *Contact, refresh bool) error {
	return upsertContact(db.DB, c, refresh)
}

// BulkUpsertContacts inserts or refreshes multiple contacts in a single
// transaction.
func (db *DB) BulkUpsertContacts(contacts []Contact, refresh bool) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for i := range contacts {
		if err := upsertContact(tx, &contacts[i], refresh); err != nil {
			return fmt.Errorf("upsert contact %d: %w", contacts[i].RemoteUserID, err)
		}
	}
	return tx.Commit()
}

func upsertContact(e execer, c *Contact, refresh bool) error {
	now := time.Now().UnixMilli()
	if refresh {
		_, err := e.Exec(`
			INSERT INTO contacts (account_id, remote_user_id, username, first_name, last_name, phone, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(account_id, remote_user_id) DO UPDATE SET
				username = excluded.username,
				first_name = excluded.first_name,
				last_name = excluded.last_name,
				phone = excluded.phone`,
			c.AccountID, c.RemoteUserID, c.Username, c.FirstName, c.LastName, c.Phone, now)
		return err
	}
	_, err := e.Exec(`
		INSERT INTO contacts (account_id, remote_user_id, username, first_name, last_name, phone, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(account_id, remote_user_id) DO NOTHING`,
		c.AccountID, c.RemoteUserID, c.Username, c.FirstName, c.LastName, c.Phone, now)
	return err
}

// ListContacts returns an account's contacts ordered by local id.
func (db *DB) ListContacts(accountID int64) ([]Contact, error) {
	rows, err := db.Query(`
		SELECT id, account_id, remote_user_id, username, first_name, last_name, phone
		FROM contacts
		WHERE account_id = ?
		ORDER BY id ASC`, accountID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var contacts []Contact
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.AccountID, &c.RemoteUserID, &c.Username,
			&c.FirstName, &c.LastName, &c.Phone); err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// ContactCount returns the number of contacts for an account.
func (db *DB) ContactCount(accountID int64) (int64, error) {
	var count int64
	err := db.QueryRow(`SELECT COUNT(*) FROM contacts WHERE account_id = ?`, accountID).Scan(&count)
	return count, err
}
