package mysql

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

// 成员、版主、封禁都是带唯一索引的关联表：插入用 DoNothing，删除天然幂等

var memberConflict = clause.OnConflict{
	Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
	DoNothing: true,
}

func isBanned(tx *gorm.DB, communityID, userID uint64) (bool, error) {
	var count int64
	err := tx.Model(&model.CommunityBan{}).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Count(&count).Error
	return count > 0, err
}

func (r *CommunityRepository) AddMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	var added bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockCommunity(tx, communityID); err != nil {
			return err
		}
		banned, err := isBanned(tx, communityID, userID)
		if err != nil {
			return err
		}
		if banned {
			return pkg.ErrUserBanned
		}
		res := tx.Clauses(memberConflict).Create(&model.CommunityMember{
			CommunityID: communityID,
			UserID:      userID,
			Role:        model.RoleMember,
		})
		if res.Error != nil {
			return res.Error
		}
		added = res.RowsAffected > 0
		return nil
	})
	return added, err
}

func (r *CommunityRepository) RemoveMember(ctx context.Context, communityID, userID uint64) (bool, error) {
	res := r.DB.WithContext(ctx).
		Where("community_id = ? AND user_id = ?", communityID, userID).
		Delete(&model.CommunityMember{})
	return res.RowsAffected > 0, res.Error
}

func (r *CommunityRepository) KickMember(ctx context.Context, communityID, userID, actorID uint64) (bool, error) {
	var removed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).Delete(&model.CommunityMember{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil
		}
		removed = true
		return insertOutbox(tx, model.EventRemoveMember, communityID, actorID, userID)
	})
	return removed, err
}

// grantModerator upsert 成员行并设为版主；被封禁的用户不能成为版主
func grantModerator(tx *gorm.DB, communityID, userID uint64) error {
	banned, err := isBanned(tx, communityID, userID)
	if err != nil {
		return err
	}
	if banned {
		return pkg.ErrUserBanned
	}
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"role":       model.RoleModerator,
			"updated_at": time.Now(),
		}),
	}).Create(&model.CommunityMember{
		CommunityID: communityID,
		UserID:      userID,
		Role:        model.RoleModerator,
	}).Error
}

func (r *CommunityRepository) SetModerator(ctx context.Context, communityID, userID, actorID uint64, moderator bool) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockCommunity(tx, communityID); err != nil {
			return err
		}
		if moderator {
			if err := grantModerator(tx, communityID, userID); err != nil {
				return err
			}
			return insertOutbox(tx, model.EventAddModerator, communityID, actorID, userID)
		}
		res := tx.Model(&model.CommunityMember{}).
			Where("community_id = ? AND user_id = ? AND role = ?", communityID, userID, model.RoleModerator).
			Update("role", model.RoleMember)
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		return insertOutbox(tx, model.EventRemoveModerator, communityID, actorID, userID)
	})
}

// Ban 删成员行（版主身份随之移除）+ 幂等插入封禁记录
func (r *CommunityRepository) Ban(ctx context.Context, communityID, userID, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockCommunity(tx, communityID); err != nil {
			return err
		}
		if err := tx.Where("community_id = ? AND user_id = ?", communityID, userID).
			Delete(&model.CommunityMember{}).Error; err != nil {
			return err
		}
		if err := tx.Clauses(memberConflict).Create(&model.CommunityBan{
			CommunityID: communityID,
			UserID:      userID,
			BannedBy:    actorID,
		}).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventBan, communityID, actorID, userID)
	})
}

func (r *CommunityRepository) Unban(ctx context.Context, communityID, userID, actorID uint64) (bool, error) {
	var removed bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockCommunity(tx, communityID); err != nil {
			return err
		}
		res := tx.Where("community_id = ? AND user_id = ?", communityID, userID).Delete(&model.CommunityBan{})
		if res.Error != nil || res.RowsAffected == 0 {
			return res.Error
		}
		removed = true
		return insertOutbox(tx, model.EventUnban, communityID, actorID, userID)
	})
	return removed, err
}
