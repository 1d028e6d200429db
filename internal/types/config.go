package types

import (
	"fmt"
	"time"
)

const (
	DefaultScope         = "kelink"
	DefaultWindowSeconds = 12 * 60 * 60 // 12 hours
	DefaultDailyLimit    = 3

	MinWindowSeconds = 60
)

// PolicyConfig drives both variants of the reciprocity engine.
// Grace selects grace-then-strict; when false the interaction rule is active from the first
// evaluated event. WindowSeconds is used for the ledger TTLs and for the engine's range query
// alike, so the two can never disagree.
// Scope prefixes every store key, one scope per enforcement domain.
type PolicyConfig struct {
	Scope         string        `yaml:"scope" json:"scope"`
	WindowSeconds int           `yaml:"window_seconds" json:"window_seconds"`
	Grace         bool          `yaml:"grace" json:"grace"`
	DailyLimit    int           `yaml:"daily_limit" json:"daily_limit"`
	Notices       Notices       `yaml:"notices" json:"notices"`
	Ingress       IngressConfig `yaml:"ingress" json:"ingress"`
}

// Notices are the user-visible texts. Placeholders: {limit}, {reset}, {window}, {count}, {user}.
type Notices struct {
	Quota       string `yaml:"quota" json:"quota"`
	Reciprocity string `yaml:"reciprocity" json:"reciprocity"`
	Repost      string `yaml:"repost" json:"repost"`
	Button      string `yaml:"button" json:"button"`
}

// IngressConfig holds the JMESPath expressions used to pull event fields out of an update posted
// to the HTTP ingress. The defaults match the Bot API update shape.
type IngressConfig struct {
	UpdateID        string `yaml:"update_id" json:"update_id"`
	UserID          string `yaml:"user_id" json:"user_id"`
	DisplayName     string `yaml:"display_name" json:"display_name"`
	ChatID          string `yaml:"chat_id" json:"chat_id"`
	MessageID       string `yaml:"message_id" json:"message_id"`
	Text            string `yaml:"text" json:"text"`
	ReplyToID       string `yaml:"reply_to_id" json:"reply_to_id"`
	// TopicMessage, ThreadID and TopicRoot identify forum-topic messages whose reply target is
	// only the topic root.
	TopicMessage    string `yaml:"topic_message" json:"topic_message"`
	ThreadID        string `yaml:"thread_id" json:"thread_id"`
	TopicRoot       string `yaml:"topic_root" json:"topic_root"`
	ReactionUserID  string `yaml:"reaction_user_id" json:"reaction_user_id"`
	ReactionMessage string `yaml:"reaction_message_id" json:"reaction_message_id"`
	ReactionChatID  string `yaml:"reaction_chat_id" json:"reaction_chat_id"`
	ReactionNew     string `yaml:"reaction_new" json:"reaction_new"`
}

func DefaultNotices() Notices {
	return Notices{
		Quota:       "🚫 You have already shared {limit} links today. Try again after {reset}.",
		Reciprocity: "👀 Before sharing, please react or reply to every link posted in the last {window}.",
		Repost:      "🔗 {user} shared a link ({count}/{limit} today)",
		Button:      "Open link 🔗",
	}
}

func DefaultIngress() IngressConfig {
	return IngressConfig{
		UpdateID:        "update_id",
		UserID:          "message.from.id",
		DisplayName:     "message.from.first_name",
		ChatID:          "message.chat.id",
		MessageID:       "message.message_id",
		Text:            "message.text",
		ReplyToID:       "message.reply_to_message.message_id",
		TopicMessage:    "message.is_topic_message",
		ThreadID:        "message.message_thread_id",
		TopicRoot:       "message.reply_to_message.forum_topic_created",
		ReactionUserID:  "message_reaction.user.id",
		ReactionMessage: "message_reaction.message_id",
		ReactionChatID:  "message_reaction.chat.id",
		ReactionNew:     "message_reaction.new_reaction",
	}
}

func DefaultPolicyConfig() PolicyConfig {
	return PolicyConfig{
		Scope:         DefaultScope,
		WindowSeconds: DefaultWindowSeconds,
		Grace:         true,
		DailyLimit:    DefaultDailyLimit,
		Notices:       DefaultNotices(),
		Ingress:       DefaultIngress(),
	}
}

// Window is the trailing interaction window.
func (c PolicyConfig) Window() time.Duration {
	return time.Duration(c.WindowSeconds) * time.Second
}

// WithDefaults fills zero-valued texts and expressions; numeric fields are left to Validate.
func (c PolicyConfig) WithDefaults() PolicyConfig {
	if c.Scope == "" {
		c.Scope = DefaultScope
	}
	dn := DefaultNotices()
	if c.Notices.Quota == "" {
		c.Notices.Quota = dn.Quota
	}
	if c.Notices.Reciprocity == "" {
		c.Notices.Reciprocity = dn.Reciprocity
	}
	if c.Notices.Repost == "" {
		c.Notices.Repost = dn.Repost
	}
	if c.Notices.Button == "" {
		c.Notices.Button = dn.Button
	}
	di := DefaultIngress()
	fill := func(dst *string, def string) {
		if *dst == "" {
			*dst = def
		}
	}
	fill(&c.Ingress.UpdateID, di.UpdateID)
	fill(&c.Ingress.UserID, di.UserID)
	fill(&c.Ingress.DisplayName, di.DisplayName)
	fill(&c.Ingress.ChatID, di.ChatID)
	fill(&c.Ingress.MessageID, di.MessageID)
	fill(&c.Ingress.Text, di.Text)
	fill(&c.Ingress.ReplyToID, di.ReplyToID)
	fill(&c.Ingress.TopicMessage, di.TopicMessage)
	fill(&c.Ingress.ThreadID, di.ThreadID)
	fill(&c.Ingress.TopicRoot, di.TopicRoot)
	fill(&c.Ingress.ReactionUserID, di.ReactionUserID)
	fill(&c.Ingress.ReactionMessage, di.ReactionMessage)
	fill(&c.Ingress.ReactionChatID, di.ReactionChatID)
	fill(&c.Ingress.ReactionNew, di.ReactionNew)
	return c
}

func (c PolicyConfig) Validate() error {
	if c.Scope == "" {
		return Err(ErrInvalidConfig, nil, "scope is required")
	}
	if c.WindowSeconds < MinWindowSeconds {
		return Err(ErrInvalidConfig, nil, "window_seconds must be greater than or equal to %d seconds", MinWindowSeconds)
	}
	if c.DailyLimit <= 0 {
		return Err(ErrInvalidConfig, nil, "daily_limit must be positive")
	}
	return nil
}

// String is used in startup logs.
func (c PolicyConfig) String() string {
	variant := "always-strict"
	if c.Grace {
		variant = "grace-then-strict"
	}
	return fmt.Sprintf("scope=%s window=%s variant=%s daily_limit=%d", c.Scope, c.Window(), variant, c.DailyLimit)
}
