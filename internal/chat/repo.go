package chat

import (
	"context"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

// InsertMessage appends m; the store assigns m.ID.
func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// ListDirect returns the messages exchanged between a and b in ascending
// (timestamp, id) order. limit > 0 keeps only the most recent ones.
func (r *Repo) ListDirect(ctx context.Context, a, b string, limit int) ([]Message, error) {
	q := r.db.WithContext(ctx).
		Where("(sender = ? AND recipient = ?) OR (sender = ? AND recipient = ?)", a, b, b, a)
	return r.list(q, limit)
}

// ListGroup returns the messages addressed to a group target, ascending.
func (r *Repo) ListGroup(ctx context.Context, groupTarget string, limit int) ([]Message, error) {
	q := r.db.WithContext(ctx).Where("recipient = ?", groupTarget)
	return r.list(q, limit)
}

func (r *Repo) list(q *gorm.DB, limit int) ([]Message, error) {
	var msgs []Message
	if limit <= 0 {
		if err := q.Order("timestamp ASC").Order("id ASC").Find(&msgs).Error; err != nil {
			return nil, err
		}
		return msgs, nil
	}

	// newest -> oldest, then reverse to ASC
	if err := q.Order("timestamp DESC").Order("id DESC").Limit(limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	asc := make([]Message, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		asc = append(asc, msgs[i])
	}
	return asc, nil
}

// MarkRead flips every sent message from sender to reader to read in one
// statement and returns the number of rows that changed.
func (r *Repo) MarkRead(ctx context.Context, sender, reader string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&Message{}).
		Where("sender = ? AND recipient = ? AND status = ?", sender, reader, StatusSent).
		Update("status", StatusRead)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}

func (r *Repo) SetOnline(ctx context.Context, identity string, at time.Time) error {
	p := &Presence{Identity: identity, IsOnline: true, UpdatedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "updated_at"}),
	}).Create(p).Error
}

func (r *Repo) SetOffline(ctx context.Context, identity string, at time.Time) error {
	p := &Presence{Identity: identity, IsOnline: false, LastSeen: &at, UpdatedAt: at}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "identity"}},
		DoUpdates: clause.AssignmentColumns([]string{"is_online", "last_seen", "updated_at"}),
	}).Create(p).Error
}

func (r *Repo) GetPresence(ctx context.Context, identity string) (*Presence, error) {
	var p Presence
	if err := r.db.WithContext(ctx).
		Where("identity = ?", identity).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// ListPresence returns every known identity except exclude, sorted by name.
func (r *Repo) ListPresence(ctx context.Context, exclude string) ([]Presence, error) {
	var out []Presence
	if err := r.db.WithContext(ctx).
		Where("identity <> ?", exclude).
		Order("identity ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// IsMember implements GroupDirectory on top of the group tables.
func (r *Repo) IsMember(ctx context.Context, groupID, identity string) (bool, error) {
	id, err := strconv.ParseUint(groupID, 10, 64)
	if err != nil {
		return false, nil
	}
	var cnt int64
	if err := r.db.WithContext(ctx).Model(&GroupMember{}).
		Where("group_id = ? AND identity = ?", id, identity).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// CreateGroup stores g and its members in one transaction. Group management
// belongs to an external service; this exists for tooling and tests.
func (r *Repo) CreateGroup(ctx context.Context, g *Group, members ...string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(g).Error; err != nil {
			return err
		}
		for _, m := range members {
			if err := tx.Create(&GroupMember{GroupID: g.ID, Identity: m}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
