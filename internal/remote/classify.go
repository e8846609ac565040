package remote

// PeerTraits is the shape information needed to classify a conversation
// peer. Adapters fill it from their platform's entity types so the
// classification rules live in exactly one place.
type PeerTraits struct {
	ID int64
	// User is true for one-on-one peers (including bots).
	User bool
	// Bot is true for bot users.
	Bot bool
	// Broadcast is true for one-way channels.
	Broadcast bool
	// Group is true for basic groups and megagroups.
	Group bool
}

// ExclusionRules holds the deployment-configured peers that are never
// mirrored (service accounts, system notification channels).
type ExclusionRules struct {
	ids map[int64]struct{}
}

// NewExclusionRules builds rules from the configured peer id list.
func NewExclusionRules(ids []int64) *ExclusionRules {
	r := &ExclusionRules{ids: make(map[int64]struct{}, len(ids))}
	for _, id := range ids {
		r.ids[id] = struct{}{}
	}
	return r
}

// ExcludedID reports whether the id is in the configured exclusion list.
func (r *ExclusionRules) ExcludedID(id int64) bool {
	if r == nil {
		return false
	}
	_, ok := r.ids[id]
	return ok
}

// Classify maps peer traits to the closed conversation kind. Bots,
// broadcast channels and configured service ids are excluded; everything
// else is private (users) or group (chats and megagroups).
func Classify(t PeerTraits, rules *ExclusionRules) Kind {
	switch {
	case rules.ExcludedID(t.ID):
		return KindExcluded
	case t.Bot, t.Broadcast:
		return KindExcluded
	case t.User:
		return KindPrivate
	case t.Group:
		return KindGroup
	default:
		return KindExcluded
	}
}
