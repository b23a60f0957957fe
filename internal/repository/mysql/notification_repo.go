package mysql

import (
	"context"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

type NotificationRepository struct {
	DB *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{DB: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	return r.DB.WithContext(ctx).Create(n).Error
}

func (r *NotificationRepository) CreateBatch(ctx context.Context, list []*model.Notification) error {
	if len(list) == 0 {
		return nil
	}
	return r.DB.WithContext(ctx).Create(list).Error
}

func (r *NotificationRepository) FindByID(ctx context.Context, id uint64) (*model.Notification, error) {
	var n model.Notification
	if err := r.DB.WithContext(ctx).First(&n, id).Error; err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipientID uint64, offset, limit int) ([]model.Notification, error) {
	var list []model.Notification
	err := r.DB.WithContext(ctx).
		Where("recipient_id = ?", recipientID).
		Order("id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

func (r *NotificationRepository) HasPendingInvite(ctx context.Context, recipientID, communityID uint64) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND community_id = ? AND type = ? AND status = ?",
			recipientID, communityID, model.NotifyModInvite, model.InvitePending).
		Count(&count).Error
	return count > 0, err
}

// Respond 条件更新 status='pending' 的邀请，只有一个并发请求能成功；接受时同一事务内授予版主
func (r *NotificationRepository) Respond(ctx context.Context, n *model.Notification, to model.InviteStatus) (bool, error) {
	var changed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if to == model.InviteAccepted {
			if n.CommunityID == nil {
				return gorm.ErrRecordNotFound
			}
			if _, err := lockCommunity(tx, *n.CommunityID); err != nil {
				return err
			}
		}
		res := tx.Model(&model.Notification{}).
			Where("id = ? AND status = ?", n.ID, model.InvitePending).
			Updates(map[string]any{"status": to, "read": true})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		changed = true
		if to != model.InviteAccepted {
			return nil
		}
		if err := grantModerator(tx, *n.CommunityID, n.RecipientID); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventAddModerator, *n.CommunityID, n.SenderID, n.RecipientID)
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func (r *NotificationRepository) MarkRead(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).Where("id = ?", id).Update("read", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipientID uint64) (int64, error) {
	res := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND `read` = ?", recipientID, false).
		Update("read", true)
	return res.RowsAffected, res.Error
}

func (r *NotificationRepository) Delete(ctx context.Context, id uint64) error {
	res := r.DB.WithContext(ctx).Delete(&model.Notification{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *NotificationRepository) UnreadCount(ctx context.Context, recipientID uint64) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&model.Notification{}).
		Where("recipient_id = ? AND `read` = ?", recipientID, false).
		Count(&count).Error
	return count, err
}
