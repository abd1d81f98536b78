//go:generate go run go.uber.org/mock/mockgen -source=projector.go -destination=../mocks/mock_counter.go -package=mocks
package unread

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/conversation"
	"github.com/suPer8Hu/chatcore/internal/store/rabbitmq"
)

// Counter stores per recipient, per sender unread counts.
type Counter interface {
	IncrUnread(ctx context.Context, recipient, sender string, n int64) error
	ClearUnread(ctx context.Context, reader, sender string) error
}

// Projector folds exported chat events into unread counters. Group messages
// are not counted.
type Projector struct {
	counter Counter
	log     *slog.Logger
}

func NewProjector(counter Counter, log *slog.Logger) *Projector {
	return &Projector{counter: counter, log: log}
}

func (p *Projector) Apply(ctx context.Context, evt chat.ExportEvent) error {
	switch evt.Kind {
	case chat.EventMessageSent:
		m := evt.Message
		if m == nil {
			return fmt.Errorf("%s without message", evt.Kind)
		}
		if conversation.IsGroupTarget(m.Recipient) || m.Sender == m.Recipient {
			return nil
		}
		return p.counter.IncrUnread(ctx, m.Recipient, m.Sender, 1)

	case chat.EventMessageRead:
		if evt.Reader == "" || evt.Sender == "" {
			return fmt.Errorf("%s without reader or sender", evt.Kind)
		}
		return p.counter.ClearUnread(ctx, evt.Reader, evt.Sender)

	default:
		p.log.Debug("event ignored", "kind", evt.Kind)
		return nil
	}
}

// HandleDelivery decodes a queue body and applies it.
func (p *Projector) HandleDelivery(ctx context.Context, body []byte) error {
	evt, err := rabbitmq.Decode(body)
	if err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	return p.Apply(ctx, evt)
}
