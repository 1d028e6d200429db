package types

import "time"

// Outcome is the terminal state of a link evaluation.
type Outcome int

const (
	Admitted Outcome = iota
	RejectedQuota
	RejectedReciprocity
)

var OutcomeTextMap = map[Outcome]string{
	Admitted:            "admitted",
	RejectedQuota:       "rejected_quota",
	RejectedReciprocity: "rejected_reciprocity",
}

func (o Outcome) String() string {
	if s, ok := OutcomeTextMap[o]; ok {
		return s
	}
	return "unknown"
}

// Decision is what the policy engine renders for one link message.
// PostID and Count are set for Admitted only. For rejections Count is the user's current daily
// count, which lets callers render "n/limit" in notices.
type Decision struct {
	Outcome Outcome `json:"outcome"`
	PostID  string  `json:"post_id,omitempty"`
	Count   int     `json:"count"`
	// Pending is the first unacknowledged post found by the reciprocity check.
	Pending string `json:"pending,omitempty"`
}

// Err returns the user-facing sentinel for rejected outcomes, nil when admitted.
func (d Decision) Err() error {
	switch d.Outcome {
	case RejectedQuota:
		return ErrQuotaExceeded
	case RejectedReciprocity:
		return ErrReciprocityUnmet
	default:
		return nil
	}
}

// LinkEvent is a chat message that may carry a link.
type LinkEvent struct {
	UpdateID    string
	UserID      string
	DisplayName string
	ChatID      string
	MessageID   string
	Text        string
	At          time.Time
}

// ReactionEvent is a reaction placed by UserID on MessageID.
type ReactionEvent struct {
	UpdateID  string
	ChatID    string
	MessageID string
	UserID    string
}

// ReplyEvent is a reply by UserID to ReplyToID.
type ReplyEvent struct {
	UpdateID  string
	ChatID    string
	ReplyToID string
	UserID    string
}

// UserStatus is the read-only view served by the status endpoint and the CLI.
type UserStatus struct {
	UserID      string     `json:"user_id"`
	DailyCount  int        `json:"daily_count"`
	DailyLimit  int        `json:"daily_limit"`
	ResetAt     time.Time  `json:"reset_at"`
	GraceActive bool       `json:"grace_active"`
	GraceUntil  *time.Time `json:"grace_until,omitempty"`
	Outstanding []string   `json:"outstanding"`
}

// AuditEvent is published for every rendered decision.
type AuditEvent struct {
	Type     string `json:"type"`
	Scope    string `json:"scope"`
	UserID   string `json:"user_id"`
	ChatID   string `json:"chat_id"`
	Outcome  string `json:"outcome"`
	PostID   string `json:"post_id,omitempty"`
	Count    int    `json:"count"`
	At       int64  `json:"at"`
	Original string `json:"original,omitempty"` // zstd + base64url of the message text
}

// PostStatus is the read-only view of one tracked post.
type PostStatus struct {
	PostID        string   `json:"post_id"`
	Poster        string   `json:"poster"`
	Acknowledgers []string `json:"acknowledgers"`
}
