package telegram

import (
	"kelink/internal/policy"
	"kelink/internal/types"
	"strconv"

	"github.com/gotd/td/tg"
)

// messageEvent converts a new message into a *types.ReplyEvent, a *types.LinkEvent or nil.
// The bot's own messages and messages not sent by a user are skipped.
func messageEvent(e tg.Entities, m tg.MessageClass) any {
	msg, ok := m.(*tg.Message)
	if !ok || msg.Out {
		return nil
	}
	chatID := ChatID(msg.PeerID)
	var sender int64
	if msg.FromID != nil {
		if u, ok := msg.FromID.(*tg.PeerUser); ok {
			sender = u.UserID
		}
	} else if u, ok := msg.PeerID.(*tg.PeerUser); ok {
		sender = u.UserID
	}
	userID := ""
	if sender != 0 {
		userID = strconv.FormatInt(sender, 10)
	}
	updateID := chatID + ":" + strconv.Itoa(msg.ID)

	if replyTo, ok := replyTarget(msg); ok {
		return &types.ReplyEvent{UpdateID: updateID, ChatID: chatID, ReplyToID: strconv.Itoa(replyTo), UserID: userID}
	}
	if !policy.IsLink(msg.Message) {
		return nil
	}
	return &types.LinkEvent{
		UpdateID:    updateID,
		UserID:      userID,
		DisplayName: displayName(e.Users[sender]),
		ChatID:      chatID,
		MessageID:   strconv.Itoa(msg.ID),
		Text:        msg.Message,
	}
}

// replyTarget returns the message replied to. In forum topics every message points at the topic
// root; only messages that also carry the topic id are real replies.
func replyTarget(msg *tg.Message) (int, bool) {
	hdr, ok := msg.ReplyTo.(*tg.MessageReplyHeader)
	if !ok {
		return 0, false
	}
	if hdr.ReplyToMsgID == 0 {
		return 0, false
	}
	if hdr.ForumTopic && hdr.ReplyToTopID == 0 {
		return 0, false
	}
	return hdr.ReplyToMsgID, true
}

// reactionEvent converts a reaction update. Removing a reaction does not withdraw an
// acknowledgement, so updates without new reactions are skipped.
func reactionEvent(u *tg.UpdateBotMessageReaction) *types.ReactionEvent {
	if len(u.NewReactions) == 0 {
		return nil
	}
	actor, ok := u.Actor.(*tg.PeerUser)
	if !ok {
		return nil
	}
	chatID := ChatID(u.Peer)
	userID := strconv.FormatInt(actor.UserID, 10)
	return &types.ReactionEvent{
		UpdateID:  chatID + ":" + strconv.Itoa(u.MsgID) + ":" + userID + ":" + strconv.Itoa(u.Date),
		ChatID:    chatID,
		MessageID: strconv.Itoa(u.MsgID),
		UserID:    userID,
	}
}
