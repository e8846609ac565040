package bus

import "time"

// Event represents a domain event published on the bus.
//
// Kinds used by the engine: sync.pass_started, sync.pass_finished,
// sync.conversation_synced, sync.auth_failed, message.upserted,
// account.deleted, status.changed.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}
