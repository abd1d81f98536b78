package unread_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/suPer8Hu/chatcore/internal/chat"
	"github.com/suPer8Hu/chatcore/internal/mocks"
	"github.com/suPer8Hu/chatcore/internal/observability"
	"github.com/suPer8Hu/chatcore/internal/unread"
	"go.uber.org/mock/gomock"
)

func sentEvent(sender, recipient string) chat.ExportEvent {
	now := time.Now().UTC()
	return chat.ExportEvent{
		Kind: chat.EventMessageSent,
		At:   now,
		Message: &chat.Message{
			ID: 1, Sender: sender, Recipient: recipient, Content: "x",
			Type: chat.TypeText, Status: chat.StatusSent, Timestamp: now,
		},
	}
}

func TestApply_DirectMessageIncrements(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	p := unread.NewProjector(counter, observability.Discard())

	counter.EXPECT().IncrUnread(gomock.Any(), "bob", "alice", int64(1)).Return(nil)

	require.NoError(t, p.Apply(context.Background(), sentEvent("alice", "bob")))
}

func TestApply_GroupMessageIsNotCounted(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	p := unread.NewProjector(counter, observability.Discard())

	require.NoError(t, p.Apply(context.Background(), sentEvent("alice", "group:3")))
}

func TestApply_ReadClears(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	p := unread.NewProjector(counter, observability.Discard())

	counter.EXPECT().ClearUnread(gomock.Any(), "bob", "alice").Return(nil)

	err := p.Apply(context.Background(), chat.ExportEvent{
		Kind: chat.EventMessageRead, Reader: "bob", Sender: "alice", Count: 3,
	})
	require.NoError(t, err)
}

func TestApply_PresenceIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	p := unread.NewProjector(counter, observability.Discard())

	online := true
	err := p.Apply(context.Background(), chat.ExportEvent{
		Kind: chat.EventPresenceChanged, Identity: "alice", IsOnline: &online,
	})
	require.NoError(t, err)
}

func TestHandleDelivery(t *testing.T) {
	req := require.New(t)
	ctrl := gomock.NewController(t)
	counter := mocks.NewMockCounter(ctrl)
	p := unread.NewProjector(counter, observability.Discard())

	boom := errors.New("redis down")
	counter.EXPECT().IncrUnread(gomock.Any(), "bob", "alice", int64(1)).Return(boom)

	body, err := json.Marshal(sentEvent("alice", "bob"))
	req.NoError(err)
	req.ErrorIs(p.HandleDelivery(context.Background(), body), boom)

	req.Error(p.HandleDelivery(context.Background(), []byte("nope")))
	req.Error(p.HandleDelivery(context.Background(), []byte(`{"kind":"message.sent"}`)))
}
