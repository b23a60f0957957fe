package mysql

import (
	"context"
	"time"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"Circle_Community/internal/model"
)

// Open 连接 MySQL 并做一次 Ping；TranslateError 让唯一键冲突返回 gorm.ErrDuplicatedKey
func Open(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate 建表/补索引
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.Community{},
		&model.CommunityMember{},
		&model.CommunityBan{},
		&model.Post{},
		&model.Comment{},
		&model.Vote{},
		&model.Notification{},
		&model.Chat{},
		&model.Message{},
		&model.ModerationOutbox{},
	)
}

func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Stores 同一个连接上的全部仓储，MySQL 和 SQLite 共用
type Stores struct {
	Users         *UserRepository
	Communities   *CommunityRepository
	Posts         *PostRepository
	Comments      *CommentRepository
	Votes         *VoteRepository
	Notifications *NotificationRepository
	Chats         *ChatRepository
	Outbox        *OutboxRepository
}

func NewStores(db *gorm.DB) *Stores {
	return &Stores{
		Users:         NewUserRepository(db),
		Communities:   NewCommunityRepository(db),
		Posts:         NewPostRepository(db),
		Comments:      NewCommentRepository(db),
		Votes:         NewVoteRepository(db),
		Notifications: NewNotificationRepository(db),
		Chats:         NewChatRepository(db),
		Outbox:        NewOutboxRepository(db),
	}
}
