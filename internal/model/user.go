package model

import (
	"time"

	"gorm.io/gorm"
)

type Gender string

const (
	GenderMale           Gender = "male"
	GenderFemale         Gender = "female"
	GenderPreferNotToSay Gender = "prefer-not-to-say"
)

func (g Gender) Valid() bool {
	switch g {
	case GenderMale, GenderFemale, GenderPreferNotToSay:
		return true
	}
	return false
}

type User struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	Username    string    `gorm:"index;size:32;not null" json:"username"`
	UsernameKey string    `gorm:"uniqueIndex;size:32;not null" json:"-"`
	Email       *string   `gorm:"uniqueIndex;size:64" json:"email,omitempty"`
	Password    string    `gorm:"size:255;not null" json:"-"`
	Avatar      string    `gorm:"size:255" json:"avatar"`
	Bio         string    `gorm:"type:text" json:"bio"`
	Gender      Gender    `gorm:"size:20;not null;default:prefer-not-to-say" json:"gender"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// BeforeSave 用户名唯一性不区分大小写，不依赖数据库排序规则
func (u *User) BeforeSave(*gorm.DB) error {
	u.UsernameKey = NameKey(u.Username)
	return nil
}

// Profile 用户公开信息，karma 读时计算
type Profile struct {
	User
	Karma int64 `json:"karma"`
}
