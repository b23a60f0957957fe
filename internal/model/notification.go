package model

import "time"

type NotificationType string

const (
	NotifyModInvite     NotificationType = "mod_invite"
	NotifyModMessage    NotificationType = "mod_message"
	NotifyMention       NotificationType = "mention"
	NotifyReply         NotificationType = "reply"
	NotifyFriendRequest NotificationType = "friend_request"
)

// InviteStatus 只对 mod_invite 有意义
type InviteStatus string

const (
	InviteNone     InviteStatus = ""
	InvitePending  InviteStatus = "pending"
	InviteAccepted InviteStatus = "accepted"
	InviteDeclined InviteStatus = "declined"
)

var inviteTransitions = map[InviteStatus][]InviteStatus{
	InvitePending: {InviteAccepted, InviteDeclined},
}

// CanTransition 只能从 pending 到 accepted/declined，终态不可再变
func (from InviteStatus) CanTransition(to InviteStatus) bool {
	for _, next := range inviteTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Notification struct {
	ID          uint64           `gorm:"primaryKey" json:"id"`
	RecipientID uint64           `gorm:"not null;index:idx_recipient_read" json:"recipient"`
	SenderID    uint64           `gorm:"not null" json:"sender"`
	Type        NotificationType `gorm:"size:20;not null" json:"type"`
	CommunityID *uint64          `gorm:"index" json:"community,omitempty"`
	Message     string           `gorm:"type:text" json:"message"`
	Read        bool             `gorm:"not null;default:false;index:idx_recipient_read" json:"read"`
	Status      InviteStatus     `gorm:"size:16;not null;default:''" json:"status,omitempty"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}
