package telegram

import (
	"context"
	"fmt"
	"kelink/internal/ports"
	"kelink/internal/types"
	"math/rand/v2"
	"strconv"
	"strings"
	"unicode/utf16"

	"github.com/gotd/td/tg"
)

// rpc is the part of *tg.Client the messenger calls.
type rpc interface {
	MessagesSendMessage(ctx context.Context, request *tg.MessagesSendMessageRequest) (tg.UpdatesClass, error)
	MessagesDeleteMessages(ctx context.Context, request *tg.MessagesDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error)
	ChannelsDeleteMessages(ctx context.Context, request *tg.ChannelsDeleteMessagesRequest) (*tg.MessagesAffectedMessages, error)
}

// Messenger implements ports.Messenger over MTProto. Chats and users must have been seen in an
// update first, since outbound calls need their access hashes.
type Messenger struct {
	api   rpc
	peers *peerCache
}

func newMessenger(api rpc, peers *peerCache) *Messenger {
	return &Messenger{api: api, peers: peers}
}

func (m *Messenger) Send(ctx context.Context, msg ports.OutboundMessage) (string, error) {
	peer, ok := m.peers.chat(msg.ChatID)
	if !ok {
		return "", types.Err(types.ErrNotFound, nil, "unknown chat %s", msg.ChatID)
	}
	req := &tg.MessagesSendMessageRequest{
		Peer:      peer,
		Message:   msg.Text,
		RandomID:  rand.Int64(),
		NoWebpage: true,
	}
	if msg.ButtonURL != "" {
		req.ReplyMarkup = &tg.ReplyInlineMarkup{Rows: []tg.KeyboardButtonRow{{
			Buttons: []tg.KeyboardButtonClass{&tg.KeyboardButtonURL{Text: msg.ButtonText, URL: msg.ButtonURL}},
		}}}
	}
	if ent, ok := m.mention(msg); ok {
		req.Entities = []tg.MessageEntityClass{ent}
	}

	res, err := m.api.MessagesSendMessage(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send message to %s: %w", msg.ChatID, err)
	}
	id, err := sentMessageID(res, req.RandomID)
	if err != nil {
		return "", err
	}
	return strconv.Itoa(id), nil
}

func (m *Messenger) Notify(ctx context.Context, userID, text string) error {
	peer, ok := m.peers.chat(userID)
	if !ok {
		return types.Err(types.ErrNotFound, nil, "unknown user %s", userID)
	}
	_, err := m.api.MessagesSendMessage(ctx, &tg.MessagesSendMessageRequest{
		Peer:     peer,
		Message:  text,
		RandomID: rand.Int64(),
	})
	if err != nil {
		return fmt.Errorf("notify %s: %w", userID, err)
	}
	return nil
}

func (m *Messenger) Delete(ctx context.Context, chatID, messageID string) error {
	id, err := strconv.Atoi(messageID)
	if err != nil {
		return types.Err(types.ErrMalformedEvent, err, "message id %q", messageID)
	}
	peer, ok := m.peers.chat(chatID)
	if !ok {
		return types.Err(types.ErrNotFound, nil, "unknown chat %s", chatID)
	}
	if ch, ok := peer.(*tg.InputPeerChannel); ok {
		_, err = m.api.ChannelsDeleteMessages(ctx, &tg.ChannelsDeleteMessagesRequest{
			Channel: &tg.InputChannel{ChannelID: ch.ChannelID, AccessHash: ch.AccessHash},
			ID:      []int{id},
		})
	} else {
		_, err = m.api.MessagesDeleteMessages(ctx, &tg.MessagesDeleteMessagesRequest{Revoke: true, ID: []int{id}})
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", chatID, messageID, err)
	}
	return nil
}

// mention links the first occurrence of msg.Mention to the user. Offsets are in UTF-16 units.
func (m *Messenger) mention(msg ports.OutboundMessage) (tg.MessageEntityClass, bool) {
	if msg.Mention == "" || msg.MentionUserID == "" {
		return nil, false
	}
	idx := strings.Index(msg.Text, msg.Mention)
	if idx < 0 {
		return nil, false
	}
	user, ok := m.peers.user(msg.MentionUserID)
	if !ok {
		return nil, false
	}
	return &tg.InputMessageEntityMentionName{
		Offset: utf16Len(msg.Text[:idx]),
		Length: utf16Len(msg.Mention),
		UserID: user,
	}, true
}

func utf16Len(s string) int {
	return len(utf16.Encode([]rune(s)))
}

// sentMessageID finds the id of the message created by a send call.
func sentMessageID(res tg.UpdatesClass, randomID int64) (int, error) {
	var updates []tg.UpdateClass
	switch v := res.(type) {
	case *tg.UpdateShortSentMessage:
		return v.ID, nil
	case *tg.Updates:
		updates = v.Updates
	case *tg.UpdatesCombined:
		updates = v.Updates
	}
	for _, u := range updates {
		if mid, ok := u.(*tg.UpdateMessageID); ok && mid.RandomID == randomID {
			return mid.ID, nil
		}
	}
	for _, u := range updates {
		switch v := u.(type) {
		case *tg.UpdateNewMessage:
			return v.Message.GetID(), nil
		case *tg.UpdateNewChannelMessage:
			return v.Message.GetID(), nil
		}
	}
	return 0, fmt.Errorf("no message id in %T", res)
}
