//go:generate go run go.uber.org/mock/mockgen -source=export.go -destination=../mocks/mock_exporter.go -package=mocks
package chat

import (
	"context"
	"time"
)

const (
	EventMessageSent     = "message.sent"
	EventMessageRead     = "message.read"
	EventPresenceChanged = "presence.changed"
)

// ExportEvent is what leaves the process after a store write succeeded.
type ExportEvent struct {
	Kind     string     `json:"kind"`
	At       time.Time  `json:"at"`
	Message  *Message   `json:"message,omitempty"`
	Reader   string     `json:"reader,omitempty"`
	Sender   string     `json:"sender,omitempty"`
	Count    int64      `json:"count,omitempty"`
	Identity string     `json:"identity,omitempty"`
	IsOnline *bool      `json:"is_online,omitempty"`
	LastSeen *time.Time `json:"last_seen,omitempty"`
}

// Exporter publishes chat events to downstream consumers. Export is best
// effort and is called on the delivery path, so it must return quickly; wrap
// exporters that talk to a network in an Outbox.
type Exporter interface {
	Export(ctx context.Context, evt ExportEvent) error
}

type NopExporter struct{}

func (NopExporter) Export(context.Context, ExportEvent) error { return nil }
