package store

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIdempotent(t *testing.T) {
	db := testDB(t)

	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 1 {
		t.Errorf("version = %d, want 1", result.Version)
	}
}

func TestUpsertAccountStampsLastSync(t *testing.T) {
	db := testDB(t)

	id, err := db.UpsertAccount("alice", "+380501234567")
	if err != nil {
		t.Fatal(err)
	}

	id2, err := db.UpsertAccount("alice", "+380501234567")
	if err != nil {
		t.Fatal(err)
	}
	if id != id2 {
		t.Errorf("re-upsert returned id %d, want %d", id2, id)
	}

	accounts, err := db.ListAccounts()
	if err != nil {
		t.Fatal(err)
	}
	if len(accounts) != 1 {
		t.Fatalf("got %d accounts, want 1", len(accounts))
	}
	if accounts[0].LastSyncedAt == 0 {
		t.Error("last_synced_at not stamped")
	}
}

func TestAccountHandleUnique(t *testing.T) {
	db := testDB(t)

	a, _ := db.UpsertAccount("bob", "+1")
	b, _ := db.UpsertAccount("carol", "+2")
	if a == b {
		t.Error("distinct handles share an id")
	}

	got, err := db.GetAccountByHandle("bob")
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.ID != a {
		t.Errorf("GetAccountByHandle = %v, want id %d", got, a)
	}
}

func TestCredentialRoundTrip(t *testing.T) {
	db := testDB(t)

	id, _ := db.UpsertAccount("alice", "")

	// No credential yet: not listed for scheduling.
	creds, err := db.ListCredentialed()
	if err != nil {
		t.Fatal(err)
	}
	if len(creds) != 0 {
		t.Fatalf("got %d credentialed accounts, want 0", len(creds))
	}

	if err := db.SaveCredential(id, []byte("session-data")); err != nil {
		t.Fatal(err)
	}
	blob, err := db.GetCredential(id)
	if err != nil {
		t.Fatal(err)
	}
	if string(blob) != "session-data" {
		t.Errorf("credential = %q, want session-data", blob)
	}

	creds, err = db.ListCredentialed()
	if err != nil {
		t.Fatal(err)
	}
	if len(creds) != 1 || creds[0].Handle != "alice" {
		t.Errorf("ListCredentialed = %v, want [alice]", creds)
	}
}

func TestConversationUpsertRefreshesNameAndKind(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")

	c := &Conversation{AccountID: acct, RemoteID: 42, Name: "Old Name", Slug: "old_name_42", Kind: "private"}
	id, err := db.UpsertConversation(c)
	if err != nil {
		t.Fatal(err)
	}

	c.Name = "New Name"
	c.Slug = "new_name_42"
	id2, err := db.UpsertConversation(c)
	if err != nil {
		t.Fatal(err)
	}
	if id != id2 {
		t.Errorf("re-upsert returned id %d, want %d", id2, id)
	}

	got, err := db.GetConversation(acct, 42)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "New Name" || got.Slug != "new_name_42" {
		t.Errorf("conversation not refreshed: %+v", got)
	}
}

func TestConversationUniquePerAccount(t *testing.T) {
	db := testDB(t)
	a, _ := db.UpsertAccount("alice", "")
	b, _ := db.UpsertAccount("bob", "")

	// Same remote id under two accounts gives two rows.
	idA, _ := db.UpsertConversation(&Conversation{AccountID: a, RemoteID: 42, Kind: "private"})
	idB, _ := db.UpsertConversation(&Conversation{AccountID: b, RemoteID: 42, Kind: "private"})
	if idA == idB {
		t.Error("conversations for different accounts share an id")
	}
}

func TestMessageUpsertIgnoreKeepsOriginal(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")
	conv, _ := db.UpsertConversation(&Conversation{AccountID: acct, RemoteID: 42, Kind: "private"})

	inserted, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: 1, Sender: "@dan", Body: "v1", SentAt: 1000}, ConflictIgnore)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("first upsert should insert")
	}

	inserted, err = db.UpsertMessage(&Message{ConversationID: conv, RemoteID: 1, Sender: "@dan", Body: "v2", SentAt: 1000}, ConflictIgnore)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("conflicting upsert should be a no-op")
	}

	msgs, err := db.ListMessages(conv)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Body != "v1" {
		t.Errorf("body = %q, want v1 (ignore mode)", msgs[0].Body)
	}
}

func TestMessageUpsertReplacePreservesReadFlag(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")
	conv, _ := db.UpsertConversation(&Conversation{AccountID: acct, RemoteID: 42, Kind: "private"})

	if _, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: 1, Body: "v1", SentAt: 1000}, ConflictReplace); err != nil {
		t.Fatal(err)
	}
	if err := db.MarkConversationRead(conv); err != nil {
		t.Fatal(err)
	}

	inserted, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: 1, Body: "edited", SentAt: 1000}, ConflictReplace)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("replace of existing row should report inserted=false")
	}

	msgs, _ := db.ListMessages(conv)
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Body != "edited" {
		t.Errorf("body = %q, want edited (replace mode)", msgs[0].Body)
	}
	if !msgs[0].IsRead {
		t.Error("read flag lost across replace upsert")
	}
}

func TestListMessagesOrderedByRemoteID(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")
	conv, _ := db.UpsertConversation(&Conversation{AccountID: acct, RemoteID: 42, Kind: "private"})

	for _, id := range []int64{3, 1, 2} {
		if _, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: id, SentAt: id * 100}, ConflictIgnore); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.ListMessages(conv)
	if err != nil {
		t.Fatal(err)
	}
	for i, want := range []int64{1, 2, 3} {
		if msgs[i].RemoteID != want {
			t.Errorf("msgs[%d].RemoteID = %d, want %d", i, msgs[i].RemoteID, want)
		}
	}
}

func TestUnreadCounts(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")
	conv, _ := db.UpsertConversation(&Conversation{AccountID: acct, RemoteID: 42, Kind: "private"})

	for i := int64(1); i <= 3; i++ {
		if _, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: i}, ConflictIgnore); err != nil {
			t.Fatal(err)
		}
	}

	convs, err := db.ListConversations(acct)
	if err != nil {
		t.Fatal(err)
	}
	if len(convs) != 1 || convs[0].UnreadCount != 3 {
		t.Fatalf("unread = %d, want 3", convs[0].UnreadCount)
	}

	accounts, _ := db.ListAccounts()
	if accounts[0].UnreadCount != 3 {
		t.Errorf("account unread = %d, want 3", accounts[0].UnreadCount)
	}

	if err := db.MarkConversationRead(conv); err != nil {
		t.Fatal(err)
	}
	convs, _ = db.ListConversations(acct)
	if convs[0].UnreadCount != 0 {
		t.Errorf("unread after mark-read = %d, want 0", convs[0].UnreadCount)
	}
}

func TestContactIgnoreAndRefreshModes(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")

	c := &Contact{AccountID: acct, RemoteUserID: 7, Username: "dan", FirstName: "Dan", Phone: "+1"}
	if err := db.UpsertContact(c, false); err != nil {
		t.Fatal(err)
	}

	// Ignore mode: re-insertion is a no-op.
	c.FirstName = "Daniel"
	if err := db.UpsertContact(c, false); err != nil {
		t.Fatal(err)
	}
	contacts, _ := db.ListContacts(acct)
	if len(contacts) != 1 || contacts[0].FirstName != "Dan" {
		t.Errorf("ignore mode: got %+v, want FirstName=Dan", contacts)
	}

	// Refresh mode updates in place.
	if err := db.UpsertContact(c, true); err != nil {
		t.Fatal(err)
	}
	contacts, _ = db.ListContacts(acct)
	if len(contacts) != 1 || contacts[0].FirstName != "Daniel" {
		t.Errorf("refresh mode: got %+v, want FirstName=Daniel", contacts)
	}
}

func TestBulkUpsertContacts(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")

	batch := []Contact{
		{AccountID: acct, RemoteUserID: 1, Username: "a"},
		{AccountID: acct, RemoteUserID: 2, Username: "b"},
		{AccountID: acct, RemoteUserID: 1, Username: "dup"},
	}
	if err := db.BulkUpsertContacts(batch, false); err != nil {
		t.Fatal(err)
	}

	count, err := db.ContactCount(acct)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("contact count = %d, want 2 (duplicate absorbed)", count)
	}
}

func TestDeleteAccountCascades(t *testing.T) {
	db := testDB(t)
	acct, _ := db.UpsertAccount("alice", "")
	other, _ := db.UpsertAccount("bob", "")

	conv, _ := db.UpsertConversation(&Conversation{AccountID: acct, RemoteID: 42, Kind: "private"})
	if _, err := db.UpsertMessage(&Message{ConversationID: conv, RemoteID: 1}, ConflictIgnore); err != nil {
		t.Fatal(err)
	}
	if err := db.UpsertContact(&Contact{AccountID: acct, RemoteUserID: 7}, false); err != nil {
		t.Fatal(err)
	}
	otherConv, _ := db.UpsertConversation(&Conversation{AccountID: other, RemoteID: 99, Kind: "group"})
	if _, err := db.UpsertMessage(&Message{ConversationID: otherConv, RemoteID: 1}, ConflictIgnore); err != nil {
		t.Fatal(err)
	}

	if err := db.DeleteAccount(acct); err != nil {
		t.Fatal(err)
	}

	if a, _ := db.GetAccountByHandle("alice"); a != nil {
		t.Error("account row survived delete")
	}
	if c, _ := db.GetConversation(acct, 42); c != nil {
		t.Error("conversation row survived delete")
	}
	if msgs, _ := db.ListMessages(conv); len(msgs) != 0 {
		t.Error("message rows survived delete")
	}
	if contacts, _ := db.ListContacts(acct); len(contacts) != 0 {
		t.Error("contact rows survived delete")
	}

	// Other account untouched.
	if msgs, _ := db.ListMessages(otherConv); len(msgs) != 1 {
		t.Error("unrelated account lost messages")
	}
}

func TestParseConflictMode(t *testing.T) {
	if m, err := ParseConflictMode("ignore"); err != nil || m != ConflictIgnore {
		t.Errorf("ParseConflictMode(ignore) = %v, %v", m, err)
	}
	if m, err := ParseConflictMode("replace"); err != nil || m != ConflictReplace {
		t.Errorf("ParseConflictMode(replace) = %v, %v", m, err)
	}
	if _, err := ParseConflictMode("merge"); err == nil {
		t.Error("ParseConflictMode(merge) should fail")
	}
}
