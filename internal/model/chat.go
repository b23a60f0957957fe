package model

import "time"

// Chat 两人私聊；参与者按 id 小大存储，唯一索引防止重复会话
type Chat struct {
	ID          uint64    `gorm:"primaryKey" json:"id"`
	UserLowID   uint64    `gorm:"not null;uniqueIndex:uk_chat_pair" json:"-"`
	UserHighID  uint64    `gorm:"not null;uniqueIndex:uk_chat_pair;index" json:"-"`
	LastMessage string    `gorm:"type:text" json:"lastMessage"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

func ChatPair(a, b uint64) (low, high uint64) {
	if a < b {
		return a, b
	}
	return b, a
}

func (c *Chat) Participants() []uint64 {
	return []uint64{c.UserLowID, c.UserHighID}
}

func (c *Chat) HasParticipant(userID uint64) bool {
	return c.UserLowID == userID || c.UserHighID == userID
}

// Other 对方的 id
func (c *Chat) Other(userID uint64) uint64 {
	if c.UserLowID == userID {
		return c.UserHighID
	}
	return c.UserLowID
}

type Message struct {
	ID        uint64    `gorm:"primaryKey" json:"id"`
	ChatID    uint64    `gorm:"not null;index" json:"chat"`
	SenderID  uint64    `gorm:"not null" json:"sender"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Read      bool      `gorm:"not null;default:false" json:"read"`
	CreatedAt time.Time `json:"createdAt"`
}

func (Message) TableName() string { return "chat_messages" }
