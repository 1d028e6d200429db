package telegram

import (
	"kelink/internal/flow"
	"strconv"
	"strings"
	"time"

	"github.com/gotd/td/tg"
)

// peerTTL bounds how long access hashes seen in updates are reused for outbound calls.
const peerTTL = 24 * time.Hour

// ChatID renders a peer the way the Bot API numbers chats: users as is, basic groups negated,
// channels and supergroups with the -100 prefix.
func ChatID(p tg.PeerClass) string {
	switch v := p.(type) {
	case *tg.PeerUser:
		return strconv.FormatInt(v.UserID, 10)
	case *tg.PeerChat:
		return "-" + strconv.FormatInt(v.ChatID, 10)
	case *tg.PeerChannel:
		return "-100" + strconv.FormatInt(v.ChannelID, 10)
	default:
		return ""
	}
}

// peerCache remembers the input peers of chats and users seen in updates.
type peerCache struct {
	chats *flow.TTL[string, tg.InputPeerClass]
	users *flow.TTL[string, *tg.InputUser]
}

func newPeerCache() *peerCache {
	return &peerCache{
		chats: flow.NewTTL[string, tg.InputPeerClass](),
		users: flow.NewTTL[string, *tg.InputUser](),
	}
}

func (c *peerCache) remember(e tg.Entities) {
	for id, u := range e.Users {
		key := strconv.FormatInt(id, 10)
		c.users.Set(key, &tg.InputUser{UserID: id, AccessHash: u.AccessHash}, peerTTL)
		c.chats.Set(key, &tg.InputPeerUser{UserID: id, AccessHash: u.AccessHash}, peerTTL)
	}
	for id := range e.Chats {
		c.chats.Set(ChatID(&tg.PeerChat{ChatID: id}), &tg.InputPeerChat{ChatID: id}, peerTTL)
	}
	for id, ch := range e.Channels {
		if ch.Min {
			continue
		}
		c.chats.Set(ChatID(&tg.PeerChannel{ChannelID: id}), &tg.InputPeerChannel{ChannelID: id, AccessHash: ch.AccessHash}, peerTTL)
	}
}

// chat resolves a chat id. Basic groups need no access hash and resolve without a cache hit.
func (c *peerCache) chat(chatID string) (tg.InputPeerClass, bool) {
	if p, ok := c.chats.Get(chatID); ok {
		return p, true
	}
	if strings.HasPrefix(chatID, "-") && !strings.HasPrefix(chatID, "-100") {
		if id, err := strconv.ParseInt(chatID[1:], 10, 64); err == nil {
			return &tg.InputPeerChat{ChatID: id}, true
		}
	}
	return nil, false
}

func (c *peerCache) user(userID string) (*tg.InputUser, bool) {
	return c.users.Get(userID)
}

// displayName is "First Last", falling back to the username.
func displayName(u *tg.User) string {
	if u == nil {
		return ""
	}
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.Username
	}
	return name
}
