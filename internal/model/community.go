package model

import (
	"slices"
	"strings"
	"time"
)

type CommunityType string

const (
	CommunityPublic     CommunityType = "public"
	CommunityRestricted CommunityType = "restricted"
	CommunityPrivate    CommunityType = "private"
	CommunityMature     CommunityType = "mature"
)

func (t CommunityType) Valid() bool {
	switch t {
	case CommunityPublic, CommunityRestricted, CommunityPrivate, CommunityMature:
		return true
	}
	return false
}

// Rule 社区规则，按顺序展示
type Rule struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

type Community struct {
	ID          uint64        `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"size:64;not null" json:"name"`
	NameKey     string        `gorm:"uniqueIndex;size:64;not null" json:"-"`
	Description string        `gorm:"type:text" json:"description"`
	Type        CommunityType `gorm:"size:16;not null;default:public" json:"type"`
	Topics      []string      `gorm:"serializer:json" json:"topics"`
	Banner      string        `gorm:"size:255" json:"banner"`
	Icon        string        `gorm:"size:255" json:"icon"`
	CreatorID   uint64        `gorm:"not null;index" json:"creator"`
	Rules       []Rule        `gorm:"serializer:json" json:"rules"`
	CreatedAt   time.Time     `json:"createdAt"`
	UpdatedAt   time.Time     `json:"updatedAt"`
}

// NameKey 名称转小写，用于大小写不敏感的唯一约束
func NameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

const (
	RoleMember    = 0
	RoleModerator = 1
)

// CommunityMember 成员关系表；版主也是成员行，只是 role 不同
type CommunityMember struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID uint64 `gorm:"not null;index;uniqueIndex:uk_community_user"`
	UserID      uint64 `gorm:"not null;index;uniqueIndex:uk_community_user"`
	Role        int    `gorm:"not null;default:0"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type CommunityBan struct {
	ID          uint64 `gorm:"primaryKey"`
	CommunityID uint64 `gorm:"not null;index;uniqueIndex:uk_ban_community_user"`
	UserID      uint64 `gorm:"not null;index;uniqueIndex:uk_ban_community_user"`
	BannedBy    uint64 `gorm:"not null"`
	CreatedAt   time.Time
}

// Roster 社区的创建者、成员、版主、封禁名单
type Roster struct {
	CreatorID  uint64   `json:"creator"`
	Members    []uint64 `json:"members"`
	Moderators []uint64 `json:"moderators"`
	Banned     []uint64 `json:"bannedUsers"`
}

func (r *Roster) IsCreator(userID uint64) bool { return r.CreatorID == userID }

func (r *Roster) IsMember(userID uint64) bool { return slices.Contains(r.Members, userID) }

func (r *Roster) IsModerator(userID uint64) bool { return slices.Contains(r.Moderators, userID) }

func (r *Roster) IsBanned(userID uint64) bool { return slices.Contains(r.Banned, userID) }

// CanModerate 创建者或版主
func (r *Roster) CanModerate(userID uint64) bool {
	return r.IsCreator(userID) || r.IsModerator(userID)
}

// Staff 创建者 + 版主，去重，创建者排第一
func (r *Roster) Staff() []uint64 {
	staff := []uint64{r.CreatorID}
	for _, id := range r.Moderators {
		if !slices.Contains(staff, id) {
			staff = append(staff, id)
		}
	}
	return staff
}

type CommunityDetail struct {
	*Community
	Members     []uint64 `json:"members"`
	Moderators  []uint64 `json:"moderators"`
	BannedUsers []uint64 `json:"bannedUsers"`
}

func NewCommunityDetail(c *Community, r *Roster) *CommunityDetail {
	return &CommunityDetail{
		Community:   c,
		Members:     r.Members,
		Moderators:  r.Moderators,
		BannedUsers: r.Banned,
	}
}
