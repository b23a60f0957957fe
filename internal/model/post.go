package model

import "time"

type PostStatus string

const (
	PostDraft     PostStatus = "draft"
	PostPublished PostStatus = "published"
)

type Post struct {
	ID          uint64     `gorm:"primaryKey;index:idx_comm_time_id,priority:3,sort:desc" json:"id"`
	CommunityID *uint64    `gorm:"index:idx_comm_time_id,priority:1" json:"community,omitempty"`
	AuthorID    uint64     `gorm:"not null;index:idx_author_time" json:"author"`
	Title       string     `gorm:"size:300;not null" json:"title"`
	Content     string     `gorm:"type:text" json:"content"`
	Status      PostStatus `gorm:"size:16;not null;default:published" json:"status"`
	Upvotes     int64      `gorm:"not null;default:0" json:"upvoteCount"`
	Downvotes   int64      `gorm:"not null;default:0" json:"downvoteCount"`
	CreatedAt   time.Time  `gorm:"index:idx_comm_time_id,priority:2,sort:desc;index:idx_author_time" json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (p *Post) InCommunity(communityID uint64) bool {
	return p.CommunityID != nil && *p.CommunityID == communityID
}

type Comment struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	PostID    uint64    `gorm:"not null;index" json:"post"`
	AuthorID  uint64    `gorm:"not null;index" json:"author"`
	ParentID  *uint64   `gorm:"index" json:"parentComment,omitempty"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Upvotes   int64     `gorm:"not null;default:0" json:"upvoteCount"`
	Downvotes int64     `gorm:"not null;default:0" json:"downvoteCount"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}
