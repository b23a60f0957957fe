package mysql

import (
	"context"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

type PostRepository struct {
	DB *gorm.DB
}

func NewPostRepository(db *gorm.DB) *PostRepository {
	return &PostRepository{DB: db}
}

func (r *PostRepository) Create(ctx context.Context, post *model.Post) error {
	return r.DB.WithContext(ctx).Create(post).Error
}

func (r *PostRepository) FindByID(ctx context.Context, id uint64) (*model.Post, error) {
	var post model.Post
	if err := r.DB.WithContext(ctx).First(&post, id).Error; err != nil {
		return nil, err
	}
	return &post, nil
}

// ListByCommunity 基础分页查询，走 (community_id, created_at DESC, id DESC) 索引
func (r *PostRepository) ListByCommunity(ctx context.Context, communityID uint64, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).
		Where("community_id = ?", communityID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// ListByCommunityCursor 游标分页：lastID=0 表示第一页，否则取 id < lastID 的下一批
func (r *PostRepository) ListByCommunityCursor(ctx context.Context, communityID, lastID uint64, limit int) ([]model.Post, error) {
	var list []model.Post
	q := r.DB.WithContext(ctx).Where("community_id = ?", communityID)
	if lastID > 0 {
		q = q.Where("id < ?", lastID)
	}
	err := q.Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}

func (r *PostRepository) ListByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, error) {
	var list []model.Post
	err := r.DB.WithContext(ctx).
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Offset(offset).
		Limit(limit).
		Find(&list).Error
	return list, err
}

// Delete 硬删除，评论和投票一起删
func (r *PostRepository) Delete(ctx context.Context, id uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Select("id").First(&post, id).Error; err != nil {
			return err
		}
		return deletePosts(tx, []uint64{id})
	})
}

func (r *PostRepository) DeleteFromCommunity(ctx context.Context, communityID, postID, actorID uint64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post model.Post
		if err := tx.Select("id").Where("id = ? AND community_id = ?", postID, communityID).First(&post).Error; err != nil {
			return err
		}
		if err := deletePosts(tx, []uint64{postID}); err != nil {
			return err
		}
		return insertOutbox(tx, model.EventDeletePost, communityID, actorID, postID)
	})
}
