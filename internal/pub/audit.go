package pub

import (
	"context"
	"fmt"
	"kelink/internal/ports"
	"kelink/internal/types"

	"github.com/goccy/go-json"
)

// Audit publishes decisions as JSON to one topic.
type Audit struct {
	pub ports.Publisher
	arn string
}

func NewAudit(p ports.Publisher, arn string) *Audit {
	return &Audit{pub: p, arn: arn}
}

// Publish stores the original message text compressed in ev.Original and sends the event.
func (a *Audit) Publish(ctx context.Context, ev types.AuditEvent, original string) error {
	if original != "" {
		ev.Original = EncodeText(original)
	}
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	if err := a.pub.PublishRaw(ctx, a.arn, b); err != nil {
		return fmt.Errorf("publish audit event: %w", err)
	}
	return nil
}
