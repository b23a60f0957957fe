package mysql

import (
	"context"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
)

type UserRepository struct {
	DB *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	return r.DB.WithContext(ctx).Create(user).Error
}

func (r *UserRepository) FindByID(ctx context.Context, id uint64) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.DB.WithContext(ctx).Where("username_key = ?", model.NameKey(username)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByLogin 登录时用户名或邮箱都可以，邮箱入库时已转小写
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	var user model.User
	key := model.NameKey(login)
	if err := r.DB.WithContext(ctx).Where("username_key = ? OR email = ?", key, key).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	res := r.DB.WithContext(ctx).Model(user).
		Select("username", "username_key", "email", "avatar", "bio", "gender").
		Updates(user)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.DB.WithContext(ctx).Model(&model.User{}).Where("id = ?", user.ID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

// Karma 帖子和评论的 (赞 - 踩) 之和，读时计算
func (r *UserRepository) Karma(ctx context.Context, userID uint64) (int64, error) {
	var posts, comments int64
	db := r.DB.WithContext(ctx)
	if err := db.Model(&model.Post{}).Where("author_id = ?", userID).
		Select("COALESCE(SUM(upvotes - downvotes), 0)").Scan(&posts).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&model.Comment{}).Where("author_id = ?", userID).
		Select("COALESCE(SUM(upvotes - downvotes), 0)").Scan(&comments).Error; err != nil {
		return 0, err
	}
	return posts + comments, nil
}
