package chat

import "time"

type MessageType string

const (
	TypeText    MessageType = "text"
	TypeImage   MessageType = "image"
	TypeAudio   MessageType = "audio"
	TypeVideo   MessageType = "video"
	TypeFile    MessageType = "file"
	TypeSticker MessageType = "sticker"
)

func (t MessageType) Valid() bool {
	switch t {
	case TypeText, TypeImage, TypeAudio, TypeVideo, TypeFile, TypeSticker:
		return true
	}
	return false
}

type MessageStatus string

const (
	StatusSent MessageStatus = "sent"
	StatusRead MessageStatus = "read"
)

// Message is immutable once stored, except Status which only moves sent -> read.
// Recipient is either a peer identity or a group target ("group:<id>").
type Message struct {
	ID        uint64        `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender    string        `gorm:"type:varchar(64);not null;index:idx_msg_pair,priority:1" json:"sender"`
	Recipient string        `gorm:"type:varchar(96);not null;index:idx_msg_pair,priority:2" json:"recipient"`
	Content   string        `gorm:"type:text;not null" json:"content"`
	Type      MessageType   `gorm:"type:varchar(16);not null" json:"type"`
	FileURL   *string       `gorm:"type:varchar(512)" json:"fileUrl,omitempty"`
	FileName  *string       `gorm:"type:varchar(255)" json:"fileName,omitempty"`
	FileSize  *int64        `json:"fileSize,omitempty"`
	ReplyTo   *string       `gorm:"type:varchar(128)" json:"replyTo,omitempty"`
	Status    MessageStatus `gorm:"type:varchar(8);not null;index" json:"status"`
	Timestamp time.Time     `gorm:"not null;index" json:"timestamp"`
}

func (Message) TableName() string { return "messages" }

// Presence is the durable last known state of an identity.
type Presence struct {
	Identity  string     `gorm:"primaryKey;type:varchar(64)" json:"username"`
	IsOnline  bool       `gorm:"not null" json:"is_online"`
	LastSeen  *time.Time `json:"last_seen"`
	UpdatedAt time.Time  `json:"-"`
}

func (Presence) TableName() string { return "presence" }

// Group and GroupMember are written by the group CRUD service; the chat core
// only reads membership.
type Group struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Name      string    `gorm:"type:varchar(128);not null" json:"name"`
	CreatedBy string    `gorm:"type:varchar(64);not null" json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
}

func (Group) TableName() string { return "chat_groups" }

type GroupMember struct {
	GroupID  uint64 `gorm:"primaryKey" json:"group_id"`
	Identity string `gorm:"primaryKey;type:varchar(64);index" json:"username"`
}

func (GroupMember) TableName() string { return "chat_group_members" }

// Models lists every table owned by the chat store, in migration order.
func Models() []any {
	return []any{&Message{}, &Presence{}, &Group{}, &GroupMember{}}
}
