package ports

import "context"

// OutboundMessage is a chat message with an optional URL button and an optional mention.
type OutboundMessage struct {
	ChatID string
	Text   string
	// Mention, when set, is rendered as a link to MentionUserID over the first occurrence of Mention in Text.
	Mention       string
	MentionUserID string
	ButtonText    string
	ButtonURL     string
}

// Messenger is the outbound side of the chat transport.
type Messenger interface {
	// Send posts a message and returns the transport-assigned message id.
	Send(ctx context.Context, msg OutboundMessage) (string, error)

	// Notify sends a direct notice to a user.
	Notify(ctx context.Context, userID, text string) error

	// Delete removes a message from a chat.
	Delete(ctx context.Context, chatID, messageID string) error
}
