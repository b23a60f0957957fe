package model

import "time"

type VoteTarget string

const (
	VotePost    VoteTarget = "post"
	VoteComment VoteTarget = "comment"
)

// VoteDirection VoteNone 表示没有投票记录
type VoteDirection int8

const (
	VoteDown VoteDirection = -1
	VoteNone VoteDirection = 0
	VoteUp   VoteDirection = 1
)

func (d VoteDirection) String() string {
	switch d {
	case VoteUp:
		return "up"
	case VoteDown:
		return "down"
	}
	return "none"
}

// NextVote 同方向再投一次取消，反方向直接替换
func NextVote(current, requested VoteDirection) VoteDirection {
	if current == requested {
		return VoteNone
	}
	return requested
}

// Vote 每个用户对每个目标最多一条
type Vote struct {
	ID         uint64        `gorm:"primaryKey;autoIncrement"`
	TargetType VoteTarget    `gorm:"size:16;not null;uniqueIndex:uk_vote_target_user"`
	TargetID   uint64        `gorm:"not null;uniqueIndex:uk_vote_target_user"`
	UserID     uint64        `gorm:"not null;index;uniqueIndex:uk_vote_target_user"`
	Direction  VoteDirection `gorm:"not null"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (Vote) TableName() string {
	return "votes"
}

type VoteTally struct {
	Upvotes   int64  `json:"upvoteCount"`
	Downvotes int64  `json:"downvoteCount"`
	UserVote  string `json:"userVote"`
}

// VoteCounter 帖子/评论上的冗余计数，对账时扫描
type VoteCounter struct {
	ID        uint64
	Upvotes   int64
	Downvotes int64
}
