package mysql

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"Circle_Community/internal/model"
)

type CommunityRepository struct {
	DB *gorm.DB
}

func NewCommunityRepository(db *gorm.DB) *CommunityRepository {
	return &CommunityRepository{DB: db}
}

// Create 建社区的同时让创建者加入
func (r *CommunityRepository) Create(ctx context.Context, c *model.Community) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(c).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "community_id"}, {Name: "user_id"}},
			DoNothing: true,
		}).Create(&model.CommunityMember{
			CommunityID: c.ID,
			UserID:      c.CreatorID,
			Role:        model.RoleMember,
		}).Error
	})
}

func (r *CommunityRepository) FindByID(ctx context.Context, id uint64) (*model.Community, error) {
	var community model.Community
	if err := r.DB.WithContext(ctx).First(&community, id).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

// FindByNameKey name_key 存的是小写名称，用于大小写不敏感查找
func (r *CommunityRepository) FindByNameKey(ctx context.Context, key string) (*model.Community, error) {
	var community model.Community
	if err := r.DB.WithContext(ctx).Where("name_key = ?", key).First(&community).Error; err != nil {
		return nil, err
	}
	return &community, nil
}

func (r *CommunityRepository) List(ctx context.Context, offset, limit int) ([]model.Community, error) {
	var list []model.Community
	err := r.DB.WithContext(ctx).Order("id desc").Offset(offset).Limit(limit).Find(&list).Error
	return list, err
}

func (r *CommunityRepository) Update(ctx context.Context, c *model.Community) error {
	tx := r.DB.WithContext(ctx).Model(c).
		Select("name", "name_key", "description", "type", "topics", "banner", "icon", "rules", "updated_at").
		Updates(c)
	if tx.Error != nil {
		return tx.Error
	}
	if tx.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Delete 硬删除并级联：帖子、评论、投票、成员、封禁、社区相关通知，一个事务内完成
func (r *CommunityRepository) Delete(ctx context.Context, id, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := lockCommunity(tx, id); err != nil {
			return err
		}
		var postIDs []uint64
		if err := tx.Model(&model.Post{}).Where("community_id = ?", id).Pluck("id", &postIDs).Error; err != nil {
			return err
		}
		if err := deletePosts(tx, postIDs); err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&model.CommunityMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&model.CommunityBan{}).Error; err != nil {
			return err
		}
		if err := tx.Where("community_id = ?", id).Delete(&model.Notification{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&model.Community{}, id).Error; err != nil {
			return err
		}
		return insertOutbox(tx, model.EventDeleteCommunity, id, actorID, id)
	})
}

func (r *CommunityRepository) Roster(ctx context.Context, id uint64) (*model.Roster, error) {
	db := r.DB.WithContext(ctx)
	var c model.Community
	if err := db.Select("id", "creator_id").First(&c, id).Error; err != nil {
		return nil, err
	}
	var members []model.CommunityMember
	if err := db.Select("user_id", "role").Where("community_id = ?", id).Order("id ASC").Find(&members).Error; err != nil {
		return nil, err
	}
	var banned []uint64
	if err := db.Model(&model.CommunityBan{}).Where("community_id = ?", id).Order("id ASC").Pluck("user_id", &banned).Error; err != nil {
		return nil, err
	}

	roster := &model.Roster{CreatorID: c.CreatorID, Members: []uint64{}, Moderators: []uint64{}, Banned: []uint64{}}
	for _, m := range members {
		roster.Members = append(roster.Members, m.UserID)
		if m.Role == model.RoleModerator {
			roster.Moderators = append(roster.Moderators, m.UserID)
		}
	}
	roster.Banned = append(roster.Banned, banned...)
	return roster, nil
}

// lockCommunity select for update，同一社区的成员/封禁变更串行执行
func lockCommunity(tx *gorm.DB, id uint64) (*model.Community, error) {
	var c model.Community
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id", "creator_id").First(&c, id).Error
	return &c, err
}

// deletePosts 删除帖子及其评论和所有投票
func deletePosts(tx *gorm.DB, postIDs []uint64) error {
	if len(postIDs) == 0 {
		return nil
	}
	var commentIDs []uint64
	if err := tx.Model(&model.Comment{}).Where("post_id IN ?", postIDs).Pluck("id", &commentIDs).Error; err != nil {
		return err
	}
	if len(commentIDs) > 0 {
		if err := tx.Where("target_type = ? AND target_id IN ?", model.VoteComment, commentIDs).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id IN ?", commentIDs).Delete(&model.Comment{}).Error; err != nil {
			return err
		}
	}
	if err := tx.Where("target_type = ? AND target_id IN ?", model.VotePost, postIDs).Delete(&model.Vote{}).Error; err != nil {
		return err
	}
	return tx.Where("id IN ?", postIDs).Delete(&model.Post{}).Error
}
