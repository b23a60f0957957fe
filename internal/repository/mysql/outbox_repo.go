package mysql

import (
	"context"
	"encoding/json"
	"time"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{DB: db}
}

// insertOutbox 插入outbox事件表，必须和业务写入处于同一事务
func insertOutbox(tx *gorm.DB, event string, communityID, actorID, targetID uint64) error {
	payload, _ := json.Marshal(map[string]any{
		"event_time": time.Now().UTC().Format(time.RFC3339Nano),
		"community":  communityID,
		"actor":      actorID,
		"target":     targetID,
	})
	ob := &model.ModerationOutbox{
		EventType:   event,
		CommunityID: communityID,
		ActorID:     actorID,
		TargetID:    targetID,
		Payload:     string(payload),
		Status:      model.OutboxPending,
	}
	return tx.Create(ob).Error
}

// List outbox查询：待投递和投递失败且未超过重试上限的记录
func (r *OutboxRepository) List(ctx context.Context, batchSize, maxRetry int) ([]model.ModerationOutbox, error) {
	var list []model.ModerationOutbox
	if err := r.DB.WithContext(ctx).
		Where("status IN ? AND retry < ?", []int{model.OutboxPending, model.OutboxFailed}, maxRetry).
		Order("id ASC").
		Limit(batchSize).
		Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// RetryUpdate outbox记录消息失败重试
func (r *OutboxRepository) RetryUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.ModerationOutbox{}).Where("id=?", id).
		Updates(map[string]any{"status": model.OutboxFailed, "retry": gorm.Expr("retry + 1")}).Error
}

// SuccessUpdate outbox成功记录消息更新
func (r *OutboxRepository) SuccessUpdate(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Model(&model.ModerationOutbox{}).Where("id=?", id).
		Update("status", model.OutboxSent).Error
}
