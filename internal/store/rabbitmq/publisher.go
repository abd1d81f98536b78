package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/suPer8Hu/chatcore/internal/chat"
)

// Publisher exports chat events to a durable queue. It implements
// chat.Exporter and waits on the broker, so callers on a delivery path wrap
// it in a chat.Outbox.
type Publisher struct {
	mu    sync.Mutex // amqp channels are not safe for concurrent publishes
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

func NewPublisher(url, queue string) (*Publisher, error) {
	conn, ch, err := dial(url, queue)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq publisher: %w", err)
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *Publisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func (p *Publisher) Export(ctx context.Context, evt chat.ExportEvent) error {
	msg, err := publishing(evt)
	if err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.ch.PublishWithContext(cctx,
		"",      // default exchange
		p.queue, // routing key = queue
		false,
		false,
		msg,
	)
}

func publishing(evt chat.ExportEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(evt)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode %s: %w", evt.Kind, err)
	}
	ts := evt.At
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return amqp.Publishing{
		Headers:      amqp.Table{HeaderPartition: PartitionKey(evt)},
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         evt.Kind,
		Body:         body,
		Timestamp:    ts,
	}, nil
}

// HeaderPartition carries the identity whose derived state an event touches.
// Consumers keep events of one partition in publish order.
const HeaderPartition = "x-partition"

// PartitionKey is the owner of the unread counter a message or receipt
// changes, or the identity of a presence change.
func PartitionKey(evt chat.ExportEvent) string {
	switch evt.Kind {
	case chat.EventMessageSent:
		if evt.Message != nil {
			return evt.Message.Recipient
		}
	case chat.EventMessageRead:
		return evt.Reader
	case chat.EventPresenceChanged:
		return evt.Identity
	}
	return ""
}

// Decode reads an event body produced by Publisher.
func Decode(body []byte) (chat.ExportEvent, error) {
	var evt chat.ExportEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return chat.ExportEvent{}, err
	}
	if evt.Kind == "" {
		return chat.ExportEvent{}, fmt.Errorf("event without kind")
	}
	return evt, nil
}
