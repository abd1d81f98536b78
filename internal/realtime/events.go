package realtime

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/suPer8Hu/chatcore/internal/chat"
)

// Inbound events.
const (
	EventJoinChat   = "join_chat"
	EventLeaveChat  = "leave_chat"
	EventMessage    = "message"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
	EventMarkRead   = "mark_read"
)

// Outbound events. EventMessage is used in both directions.
const (
	EventHistory           = "history"
	EventUserTyping        = "user_typing"
	EventUserStoppedTyping = "user_stopped_typing"
	EventStatusUpdate      = "status_update"
	EventUserStatusChange  = "user_status_change"
	EventError             = "error"
)

// Error codes carried by EventError.
const (
	CodeBadFrame      = "bad_frame"
	CodeUnknownEvent  = "unknown_event"
	CodeInvalid       = "invalid_payload"
	CodeMissingTarget = "missing_target"
	CodeInvalidType   = "invalid_type"
	CodeEmptyContent  = "empty_content"
	CodeNotMember     = "not_member"
	CodeInternal      = "internal"
)

// Frame is one websocket text message from a client.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Outbound is one websocket text message to a client.
type Outbound struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

type TypingPayload struct {
	User         string `json:"user"`
	Conversation string `json:"conversation"`
}

type StatusUpdatePayload struct {
	Reader string `json:"reader"`
}

type StatusChangePayload struct {
	Username string     `json:"username"`
	IsOnline bool       `json:"is_online"`
	LastSeen *time.Time `json:"last_seen"`
}

type ErrorPayload struct {
	Event   string `json:"event"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

var validate = validator.New()

type targetFrame struct {
	Target string `json:"target" validate:"max=128"`
}

type draftFrame struct {
	Recipient string  `json:"recipient" validate:"max=128"`
	Target    string  `json:"target" validate:"max=128"` // alias of recipient
	Content   string  `json:"content" validate:"max=65536"`
	Type      string  `json:"type" validate:"max=16"`
	FileURL   *string `json:"fileUrl" validate:"omitempty,max=512"`
	FileName  *string `json:"fileName" validate:"omitempty,max=255"`
	FileSize  *int64  `json:"fileSize" validate:"omitempty,gte=0"`
	ReplyTo   *string `json:"replyTo" validate:"omitempty,max=128"`
}

type markReadFrame struct {
	Sender string `json:"sender" validate:"max=128"`
}

// decodeTarget accepts either a bare JSON string ("bob") or {"target": "bob"}.
func decodeTarget(data json.RawMessage) (string, error) {
	if empty(data) {
		return "", chat.ErrMissingTarget
	}
	var f targetFrame
	if err := json.Unmarshal(data, &f.Target); err != nil {
		if err := json.Unmarshal(data, &f); err != nil {
			return "", err
		}
	}
	f.Target = strings.TrimSpace(f.Target)
	if f.Target == "" {
		return "", chat.ErrMissingTarget
	}
	if err := validate.Struct(f); err != nil {
		return "", err
	}
	return f.Target, nil
}

// decodeDraft checks shape only. Target, type and content rules belong to
// chat.Service so the REST and websocket paths agree.
func decodeDraft(data json.RawMessage) (chat.Draft, error) {
	if empty(data) {
		return chat.Draft{}, chat.ErrMissingTarget
	}
	var f draftFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return chat.Draft{}, err
	}
	if err := validate.Struct(f); err != nil {
		return chat.Draft{}, err
	}
	target := f.Recipient
	if strings.TrimSpace(target) == "" {
		target = f.Target
	}
	return chat.Draft{
		Target:   target,
		Content:  f.Content,
		Type:     chat.MessageType(strings.ToLower(strings.TrimSpace(f.Type))),
		FileURL:  f.FileURL,
		FileName: f.FileName,
		FileSize: f.FileSize,
		ReplyTo:  f.ReplyTo,
	}, nil
}

// decodeMarkRead accepts {"sender": "alice"} or a bare "alice".
func decodeMarkRead(data json.RawMessage) (string, error) {
	if empty(data) {
		return "", chat.ErrMissingTarget
	}
	var f markReadFrame
	if err := json.Unmarshal(data, &f); err != nil {
		if err := json.Unmarshal(data, &f.Sender); err != nil {
			return "", err
		}
	}
	f.Sender = strings.TrimSpace(f.Sender)
	if f.Sender == "" {
		return "", chat.ErrMissingTarget
	}
	if err := validate.Struct(f); err != nil {
		return "", err
	}
	return f.Sender, nil
}

func empty(data json.RawMessage) bool {
	v := strings.TrimSpace(string(data))
	return v == "" || v == "null"
}

func errorCode(err error) string {
	var (
		verrs  validator.ValidationErrors
		synErr *json.SyntaxError
		typErr *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, chat.ErrMissingTarget):
		return CodeMissingTarget
	case errors.Is(err, chat.ErrInvalidType):
		return CodeInvalidType
	case errors.Is(err, chat.ErrEmptyContent):
		return CodeEmptyContent
	case errors.Is(err, chat.ErrNotMember):
		return CodeNotMember
	case errors.Is(err, errUnknownEvent):
		return CodeUnknownEvent
	case errors.As(err, &verrs):
		return CodeInvalid
	case errors.As(err, &synErr), errors.As(err, &typErr):
		return CodeBadFrame
	default:
		return CodeInternal
	}
}

var errUnknownEvent = errors.New("unknown event")
