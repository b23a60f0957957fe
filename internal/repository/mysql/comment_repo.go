package mysql

import (
	"context"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

type CommentRepository struct {
	DB *gorm.DB
}

func NewCommentRepository(db *gorm.DB) *CommentRepository {
	return &CommentRepository{DB: db}
}

func (r *CommentRepository) Create(ctx context.Context, c *model.Comment) error {
	return r.DB.WithContext(ctx).Create(c).Error
}

func (r *CommentRepository) FindByID(ctx context.Context, id uint64) (*model.Comment, error) {
	var c model.Comment
	if err := r.DB.WithContext(ctx).First(&c, id).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CommentRepository) ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error) {
	var list []model.Comment
	err := r.DB.WithContext(ctx).Where("post_id = ?", postID).Order("id ASC").Find(&list).Error
	return list, err
}

// Delete 逐层收集子回复，连同投票一起删除
func (r *CommentRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root model.Comment
		if err := tx.Select("id").First(&root, id).Error; err != nil {
			return err
		}
		ids := []uint64{id}
		level := []uint64{id}
		for len(level) > 0 {
			var children []uint64
			if err := tx.Model(&model.Comment{}).Where("parent_id IN ?", level).Pluck("id", &children).Error; err != nil {
				return err
			}
			ids = append(ids, children...)
			level = children
		}
		if err := tx.Where("target_type = ? AND target_id IN ?", model.VoteComment, ids).Delete(&model.Vote{}).Error; err != nil {
			return err
		}
		return tx.Where("id IN ?", ids).Delete(&model.Comment{}).Error
	})
}
