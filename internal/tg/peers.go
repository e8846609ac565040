package tg

import (
	"strconv"
	"strings"

	"github.com/gotd/td/telegram/message/peer"
	"github.com/gotd/td/tg"
	"github.com/olekv/tgmirror/internal/remote"
)

// mapUser converts a Telegram user entity to the neutral representation.
func mapUser(u *tg.User) remote.User {
	return remote.User{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Phone:     u.Phone,
		Bot:       u.Bot,
		Self:      u.Self,
	}
}

// displayName builds the conversation title for a private dialog.
func displayName(u *tg.User) string {
	if name := strings.TrimSpace(u.FirstName + " " + u.LastName); name != "" {
		return name
	}
	if u.Username != "" {
		return u.Username
	}
	return strconv.FormatInt(u.ID, 10)
}

// mapDialog resolves one dialog entry to a neutral conversation. ok is
// false when the peer entity is missing from the response (deleted
// accounts, inaccessible chats).
func mapDialog(peerID tg.PeerClass, ent peer.Entities, rules *remote.ExclusionRules) (remote.Conversation, bool) {
	switch p := peerID.(type) {
	case *tg.PeerUser:
		u, ok := ent.Users()[p.UserID]
		if !ok || u.Deleted {
			return remote.Conversation{}, false
		}
		ru := mapUser(u)
		return remote.Conversation{
			ID:    u.ID,
			Title: displayName(u),
			Kind:  remote.Classify(remote.PeerTraits{ID: u.ID, User: true, Bot: u.Bot}, rules),
			Peer:  &ru,
		}, true

	case *tg.PeerChat:
		c, ok := ent.Chats()[p.ChatID]
		if !ok {
			return remote.Conversation{}, false
		}
		return remote.Conversation{
			ID:    c.ID,
			Title: c.Title,
			Kind:  remote.Classify(remote.PeerTraits{ID: c.ID, Group: true}, rules),
		}, true

	case *tg.PeerChannel:
		ch, ok := ent.Channels()[p.ChannelID]
		if !ok {
			return remote.Conversation{}, false
		}
		return remote.Conversation{
			ID:    ch.ID,
			Title: ch.Title,
			Kind: remote.Classify(remote.PeerTraits{
				ID:        ch.ID,
				Group:     ch.Megagroup,
				Broadcast: ch.Broadcast,
			}, rules),
		}, true
	}
	return remote.Conversation{}, false
}

// senderOf resolves a message's sender. For private dialogs Telegram omits
// from_id on the peer's messages; the dialog peer is the sender then.
func senderOf(m *tg.Message, ent peer.Entities, conv remote.Conversation) (int64, *remote.User) {
	if from, ok := m.GetFromID(); ok {
		if pu, ok := from.(*tg.PeerUser); ok {
			if u, ok := ent.Users()[pu.UserID]; ok {
				ru := mapUser(u)
				return u.ID, &ru
			}
			return pu.UserID, nil
		}
		return 0, nil
	}
	if !m.Out && conv.Kind == remote.KindPrivate && conv.Peer != nil {
		p := *conv.Peer
		return p.ID, &p
	}
	return 0, nil
}
