package rabbitmq

import (
	"fmt"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
)

func TestPublishingRoundTrip(t *testing.T) {
	req := require.New(t)
	at := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	evt := chat.ExportEvent{
		Kind: chat.EventMessageSent,
		At:   at,
		Message: &chat.Message{
			ID: 7, Sender: "alice", Recipient: "bob", Content: "hi",
			Type: chat.TypeText, Status: chat.StatusSent, Timestamp: at,
		},
	}

	pub, err := publishing(evt)
	req.NoError(err)
	req.Equal("application/json", pub.ContentType)
	req.Equal(amqp.Persistent, pub.DeliveryMode)
	req.Equal(chat.EventMessageSent, pub.Type)
	req.True(at.Equal(pub.Timestamp))
	req.Equal("bob", pub.Headers[HeaderPartition])

	got, err := Decode(pub.Body)
	req.NoError(err)
	req.Equal(evt.Kind, got.Kind)
	req.Equal(uint64(7), got.Message.ID)
	req.Equal("bob", got.Message.Recipient)
}

func TestDecodeRejectsGarbage(t *testing.T) {
	_, err := Decode([]byte("{not json"))
	require.Error(t, err)

	_, err = Decode([]byte(`{"reader":"bob"}`))
	require.Error(t, err)
}

func TestQueueNames(t *testing.T) {
	require.Equal(t, "chat_events.retry", RetryQueue("chat_events"))
	require.Equal(t, "chat_events.dlq", DeadQueue("chat_events"))
}

func TestPartitionKey(t *testing.T) {
	online := true
	tests := []struct {
		name string
		evt  chat.ExportEvent
		want string
	}{
		{"sent goes to recipient", chat.ExportEvent{Kind: chat.EventMessageSent, Message: &chat.Message{Sender: "alice", Recipient: "bob"}}, "bob"},
		{"read goes to reader", chat.ExportEvent{Kind: chat.EventMessageRead, Reader: "bob", Sender: "alice"}, "bob"},
		{"presence goes to identity", chat.ExportEvent{Kind: chat.EventPresenceChanged, Identity: "carol", IsOnline: &online}, "carol"},
		{"sent without message", chat.ExportEvent{Kind: chat.EventMessageSent}, ""},
		{"unknown kind", chat.ExportEvent{Kind: "other", Reader: "bob"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, PartitionKey(tt.evt))
		})
	}
}

func TestSentAndReadOfOneRecipientShareAWorker(t *testing.T) {
	req := require.New(t)
	sent, err := publishing(chat.ExportEvent{
		Kind:    chat.EventMessageSent,
		Message: &chat.Message{Sender: "alice", Recipient: "bob"},
	})
	req.NoError(err)
	read, err := publishing(chat.ExportEvent{Kind: chat.EventMessageRead, Reader: "bob", Sender: "alice"})
	req.NoError(err)

	sentKey := partitionOf(amqp.Delivery{Headers: sent.Headers})
	readKey := partitionOf(amqp.Delivery{Headers: read.Headers})
	req.Equal("bob", sentKey)
	req.Equal(sentKey, readKey)

	for workers := 1; workers <= 8; workers++ {
		req.Equal(workerFor(sentKey, workers), workerFor(readKey, workers))
	}
}

func TestWorkerFor(t *testing.T) {
	req := require.New(t)
	req.Zero(workerFor("bob", 0))
	req.Zero(workerFor("bob", 1))
	req.Empty(partitionOf(amqp.Delivery{}))
	req.Less(workerFor("", 4), 4)

	seen := map[int]bool{}
	for i := 0; i < 64; i++ {
		w := workerFor(fmt.Sprintf("user-%d", i), 4)
		req.GreaterOrEqual(w, 0)
		req.Less(w, 4)
		req.Equal(w, workerFor(fmt.Sprintf("user-%d", i), 4))
		seen[w] = true
	}
	// identities spread over the pool
	req.Greater(len(seen), 1)
}
