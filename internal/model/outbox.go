package model

import "time"

const (
	EventBan             = "ban"
	EventUnban           = "unban"
	EventAddModerator    = "add_moderator"
	EventRemoveModerator = "remove_moderator"
	EventRemoveMember    = "remove_member"
	EventDeletePost      = "delete_post"
	EventDeleteCommunity = "delete_community"
)

const (
	OutboxPending = 0
	OutboxSent    = 1
	OutboxFailed  = 2
)

// ModerationOutbox 治理事件 outbox 表，和治理操作同事务写入，由 relayer 投递
type ModerationOutbox struct {
	ID          uint64 `gorm:"primaryKey"`
	EventType   string `gorm:"size:32;not null"`
	CommunityID uint64 `gorm:"not null;index"`
	ActorID     uint64 `gorm:"not null"`
	TargetID    uint64 `gorm:"not null"`
	Payload     string `gorm:"type:json;not null"`
	Status      int8   `gorm:"not null;default:0;index;comment:'0=pending,1=sent,2=failed'"`
	Retry       int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (ModerationOutbox) TableName() string { return "moderation_outbox" }
