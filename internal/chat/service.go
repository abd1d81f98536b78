package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/suPer8Hu/chatcore/internal/conversation"
)

// GroupDirectory answers group membership questions. Groups themselves are
// managed outside the chat core.
type GroupDirectory interface {
	IsMember(ctx context.Context, groupID, identity string) (bool, error)
}

// Draft is a message as submitted by a client, before the server assigns
// id, status and timestamp.
type Draft struct {
	Target   string
	Content  string
	Type     MessageType
	FileURL  *string
	FileName *string
	FileSize *int64
	ReplyTo  *string
}

type Service struct {
	repo         *Repo
	groups       GroupDirectory
	exporter     Exporter
	historyLimit int
	log          *slog.Logger
	now          func() time.Time
}

func NewService(repo *Repo, groups GroupDirectory, exporter Exporter, historyLimit int, log *slog.Logger) *Service {
	if exporter == nil {
		exporter = NopExporter{}
	}
	if historyLimit < 0 {
		historyLimit = 0
	}
	return &Service{
		repo:         repo,
		groups:       groups,
		exporter:     exporter,
		historyLimit: historyLimit,
		log:          log,
		now:          time.Now,
	}
}

// Send validates and stores a draft. The returned message carries the
// server assigned id, status and timestamp; the caller broadcasts it to the
// returned key only after Send returned without error.
func (s *Service) Send(ctx context.Context, sender string, d Draft) (*Message, conversation.Key, error) {
	// 1) validate
	target := strings.TrimSpace(d.Target)
	if target == "" {
		return nil, conversation.Key{}, ErrMissingTarget
	}
	typ := d.Type
	if typ == "" {
		typ = TypeText
	}
	if !typ.Valid() {
		return nil, conversation.Key{}, fmt.Errorf("%w: %q", ErrInvalidType, typ)
	}
	if typ == TypeText && strings.TrimSpace(d.Content) == "" {
		return nil, conversation.Key{}, ErrEmptyContent
	}

	key := conversation.Resolve(sender, target)
	if err := s.Authorize(ctx, sender, key); err != nil {
		return nil, conversation.Key{}, err
	}

	// 2) persist, server clock is authoritative
	msg := &Message{
		Sender:    sender,
		Recipient: key.Recipient(sender),
		Content:   d.Content,
		Type:      typ,
		FileURL:   d.FileURL,
		FileName:  d.FileName,
		FileSize:  d.FileSize,
		ReplyTo:   d.ReplyTo,
		Status:    StatusSent,
		Timestamp: s.now().UTC(),
	}
	if err := s.repo.InsertMessage(ctx, msg); err != nil {
		return nil, conversation.Key{}, fmt.Errorf("store message: %w", err)
	}

	s.export(ctx, ExportEvent{Kind: EventMessageSent, At: msg.Timestamp, Message: msg})
	return msg, key, nil
}

// Authorize checks that identity may read and write key. Direct keys are
// always allowed; group keys require membership.
func (s *Service) Authorize(ctx context.Context, identity string, key conversation.Key) error {
	if !key.IsGroup() {
		return nil
	}
	if s.groups == nil {
		return ErrNotMember
	}
	ok, err := s.groups.IsMember(ctx, key.GroupID(), identity)
	if err != nil {
		return fmt.Errorf("check group membership: %w", err)
	}
	if !ok {
		return ErrNotMember
	}
	return nil
}

// History re-reads the persisted conversation in ascending order. Every call
// reflects the current store state.
func (s *Service) History(ctx context.Context, viewer string, key conversation.Key) ([]Message, error) {
	if key.IsZero() {
		return nil, ErrMissingTarget
	}
	if err := s.Authorize(ctx, viewer, key); err != nil {
		return nil, err
	}

	var (
		msgs []Message
		err  error
	)
	if key.IsGroup() {
		msgs, err = s.repo.ListGroup(ctx, key.Recipient(viewer), s.historyLimit)
	} else {
		a, b := key.Participants()
		msgs, err = s.repo.ListDirect(ctx, a, b, s.historyLimit)
	}
	if err != nil {
		return nil, fmt.Errorf("load history %s: %w", key, err)
	}
	if msgs == nil {
		msgs = []Message{}
	}
	return msgs, nil
}

// MarkRead marks every sent message from sender to reader as read and
// returns how many changed. Zero means there is nobody to notify.
func (s *Service) MarkRead(ctx context.Context, reader, sender string) (int64, error) {
	sender = strings.TrimSpace(sender)
	if sender == "" {
		return 0, ErrMissingTarget
	}
	if conversation.IsGroupTarget(sender) {
		return 0, nil
	}

	n, err := s.repo.MarkRead(ctx, sender, reader)
	if err != nil {
		return 0, fmt.Errorf("mark read %s->%s: %w", sender, reader, err)
	}
	if n > 0 {
		s.export(ctx, ExportEvent{Kind: EventMessageRead, At: s.now().UTC(), Reader: reader, Sender: sender, Count: n})
	}
	return n, nil
}

func (s *Service) ListPresence(ctx context.Context, exclude string) ([]Presence, error) {
	return s.repo.ListPresence(ctx, exclude)
}

func (s *Service) export(ctx context.Context, evt ExportEvent) {
	if err := s.exporter.Export(ctx, evt); err != nil {
		s.log.Warn("event export failed", "kind", evt.Kind, "err", err)
	}
}
