package store

// Account is one mirrored remote identity and its local sync state.
type Account struct {
	ID           int64
	Handle       string
	Phone        string
	LastSyncedAt int64
	// UnreadCount is populated by ListAccounts only.
	UnreadCount int
}

// Conversation mirrors one remote chat, channel or DM.
type Conversation struct {
	ID        int64
	AccountID int64
	RemoteID  int64
	Name      string
	Slug      string
	Kind      string // "private" or "group"; excluded kinds are never stored
	// UnreadCount is populated by ListConversations only.
	UnreadCount int
}

// Message mirrors one remote message. Sender, body and media are immutable
// after creation in ignore mode; IsRead is only ever mutated by the viewer.
type Message struct {
	ID             int64
	ConversationID int64
	RemoteID       int64
	Sender         string
	Outbound       bool
	Body           string
	MediaPath      string // relative to the account's storage root, "" for none
	SentAt         int64
	IsRead         bool
}

// Contact mirrors one remote contact known to an account.
type Contact struct {
	ID           int64
	AccountID    int64
	RemoteUserID int64
	Username     string
	FirstName    string
	LastName     string
	Phone        string
}
