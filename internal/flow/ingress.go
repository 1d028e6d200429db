package flow

import (
	"kelink/internal/policy"
	"kelink/internal/types"
	"time"
)

// ParseUpdate maps a decoded update onto one of *types.LinkEvent, *types.ReplyEvent or
// *types.ReactionEvent using the configured expressions. It returns (nil, nil) for updates the
// bot does not act on, including reactions that were only removed. A reply is an interaction
// even when it carries a link; in forum topics a reply to the topic root is an ordinary message.
func ParseUpdate(ing types.IngressConfig, payload map[string]any, at time.Time) (any, error) {
	f := fieldReader{payload: payload}
	updateID := f.read(ing.UpdateID)

	if reactor := f.read(ing.ReactionUserID); reactor != "" {
		ev := &types.ReactionEvent{
			UpdateID:  updateID,
			ChatID:    f.read(ing.ReactionChatID),
			MessageID: f.read(ing.ReactionMessage),
			UserID:    reactor,
		}
		added := f.read(ing.ReactionNew)
		if f.err != nil {
			return nil, f.malformed()
		}
		if added == "[]" {
			return nil, nil
		}
		if ev.MessageID == "" {
			return nil, types.Err(types.ErrMalformedEvent, nil, "reaction without message id")
		}
		return ev, nil
	}

	userID := f.read(ing.UserID)
	chatID := f.read(ing.ChatID)
	messageID := f.read(ing.MessageID)
	text := f.read(ing.Text)
	replyTo := f.read(ing.ReplyToID)
	topic := f.read(ing.TopicMessage)
	thread := f.read(ing.ThreadID)
	topicRoot := f.read(ing.TopicRoot)
	if f.err != nil {
		return nil, f.malformed()
	}
	if topic == "true" && replyTo != "" && (replyTo == thread || topicRoot != "") {
		replyTo = ""
	}

	if replyTo != "" {
		if userID == "" {
			return nil, types.Err(types.ErrMalformedEvent, nil, "reply without sender")
		}
		return &types.ReplyEvent{UpdateID: updateID, ChatID: chatID, ReplyToID: replyTo, UserID: userID}, nil
	}
	if !policy.IsLink(text) {
		return nil, nil
	}
	if userID == "" || chatID == "" || messageID == "" {
		return nil, types.Err(types.ErrMalformedEvent, nil, "link message without sender, chat or message id")
	}
	return &types.LinkEvent{
		UpdateID:    updateID,
		UserID:      userID,
		DisplayName: f.read(ing.DisplayName),
		ChatID:      chatID,
		MessageID:   messageID,
		Text:        text,
		At:          at,
	}, nil
}

// fieldReader keeps the first evaluation error so the extraction above reads straight.
type fieldReader struct {
	payload map[string]any
	err     error
}

func (f *fieldReader) read(expr string) string {
	if f.err != nil || expr == "" {
		return ""
	}
	v, err := evalField(expr, f.payload)
	if err != nil {
		f.err = err
	}
	return v
}

func (f *fieldReader) malformed() error {
	return types.Err(types.ErrMalformedEvent, f.err, "field extraction failed")
}
