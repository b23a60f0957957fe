package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Circle_Community/internal/model"
)

type ChatRepository struct {
	DB *gorm.DB
}

func NewChatRepository(db *gorm.DB) *ChatRepository {
	return &ChatRepository{DB: db}
}

// FindOrCreate 依赖 uk_chat_pair 唯一索引，并发创建时只会留下一条
func (r *ChatRepository) FindOrCreate(ctx context.Context, a, b uint64) (*model.Chat, error) {
	low, high := model.ChatPair(a, b)
	db := r.DB.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.Chat{UserLowID: low, UserHighID: high}).Error; err != nil {
		return nil, err
	}
	var chat model.Chat
	if err := db.Where("user_low_id = ? AND user_high_id = ?", low, high).Take(&chat).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) FindByID(ctx context.Context, id uint64) (*model.Chat, error) {
	var chat model.Chat
	if err := r.DB.WithContext(ctx).First(&chat, id).Error; err != nil {
		return nil, err
	}
	return &chat, nil
}

func (r *ChatRepository) ListByUser(ctx context.Context, userID uint64) ([]model.Chat, error) {
	var list []model.Chat
	err := r.DB.WithContext(ctx).
		Where("user_low_id = ? OR user_high_id = ?", userID, userID).
		Order("updated_at DESC, id DESC").
		Find(&list).Error
	return list, err
}

func (r *ChatRepository) Messages(ctx context.Context, chatID uint64, offset, limit int) ([]model.Message, error) {
	var list []model.Message
	err := r.DB.WithContext(ctx).
		Where("chat_id = ?", chatID).
		Order("id ASC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *ChatRepository) AddMessage(ctx context.Context, m *model.Message) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Chat{}).Where("id = ?", m.ChatID).Update("last_message", m.Content)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return tx.Create(m).Error
	})
}

func (r *ChatRepository) MarkRead(ctx context.Context, chatID, readerID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Message{}).
		Where("chat_id = ? AND sender_id <> ? AND `read` = ?", chatID, readerID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}
