package service

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

// 仓储接口定义在使用方；实现直接返回 gorm 错误，由 storeErr 统一转换

type CommunityStore interface {
	// Create 同时插入创建者的成员行
	Create(ctx context.Context, c *model.Community) error
	FindByID(ctx context.Context, id uint64) (*model.Community, error)
	FindByNameKey(ctx context.Context, key string) (*model.Community, error)
	List(ctx context.Context, offset, limit int) ([]model.Community, error)
	Update(ctx context.Context, c *model.Community) error
	// Delete 级联删除帖子、评论、投票、成员、封禁和社区通知
	Delete(ctx context.Context, id, actorID uint64) error

	Roster(ctx context.Context, id uint64) (*model.Roster, error)
	// AddMember 已是成员返回 false，被封禁返回 pkg.ErrUserBanned
	AddMember(ctx context.Context, communityID, userID uint64) (bool, error)
	RemoveMember(ctx context.Context, communityID, userID uint64) (bool, error)
	KickMember(ctx context.Context, communityID, userID, actorID uint64) (bool, error)
	SetModerator(ctx context.Context, communityID, userID, actorID uint64, moderator bool) error
	Ban(ctx context.Context, communityID, userID, actorID uint64) error
	Unban(ctx context.Context, communityID, userID, actorID uint64) (bool, error)
}

type PostStore interface {
	Create(ctx context.Context, p *model.Post) error
	FindByID(ctx context.Context, id uint64) (*model.Post, error)
	ListByCommunity(ctx context.Context, communityID uint64, offset, limit int) ([]model.Post, error)
	// ListByCommunityCursor 取 id < lastID 的最新 limit 条，lastID=0 从头开始
	ListByCommunityCursor(ctx context.Context, communityID, lastID uint64, limit int) ([]model.Post, error)
	ListByAuthor(ctx context.Context, authorID uint64, offset, limit int) ([]model.Post, error)
	// Delete 连同评论和投票
	Delete(ctx context.Context, id uint64) error
	// DeleteFromCommunity 删帖并记 outbox
	DeleteFromCommunity(ctx context.Context, communityID, postID, actorID uint64) error
}

type CommentStore interface {
	Create(ctx context.Context, c *model.Comment) error
	FindByID(ctx context.Context, id uint64) (*model.Comment, error)
	ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error)
	// Delete 连同子回复和投票
	Delete(ctx context.Context, id uint64) error
}

type VoteStore interface {
	// Toggle 按 model.NextVote 改票，计数在同一事务里调整
	Toggle(ctx context.Context, target model.VoteTarget, targetID, userID uint64, dir model.VoteDirection) (model.VoteTally, error)
	UserVote(ctx context.Context, target model.VoteTarget, targetID, userID uint64) (model.VoteDirection, error)
}

// CounterStore 计数对账用
type CounterStore interface {
	CounterList(ctx context.Context, target model.VoteTarget, lastID uint64, batchSize int) ([]model.VoteCounter, error)
	// Reconcile 锁行、重算、回写在同一事务内，返回是否修正
	Reconcile(ctx context.Context, target model.VoteTarget, id uint64) (bool, error)
}

type UserStore interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id uint64) (*model.User, error)
	FindByUsername(ctx context.Context, username string) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
	Update(ctx context.Context, u *model.User) error
	Karma(ctx context.Context, userID uint64) (int64, error)
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	CreateBatch(ctx context.Context, list []*model.Notification) error
	FindByID(ctx context.Context, id uint64) (*model.Notification, error)
	ListByRecipient(ctx context.Context, recipientID uint64, offset, limit int) ([]model.Notification, error)
	HasPendingInvite(ctx context.Context, recipientID, communityID uint64) (bool, error)
	// Respond 只更新 pending 的邀请，已处理过返回 false；
	// 接受时同事务授予版主，被封禁返回 pkg.ErrUserBanned
	Respond(ctx context.Context, n *model.Notification, to model.InviteStatus) (bool, error)
	MarkRead(ctx context.Context, id uint64) error
	MarkAllRead(ctx context.Context, recipientID uint64) (int64, error)
	Delete(ctx context.Context, id uint64) error
	UnreadCount(ctx context.Context, recipientID uint64) (int64, error)
}

type ChatStore interface {
	FindOrCreate(ctx context.Context, a, b uint64) (*model.Chat, error)
	FindByID(ctx context.Context, id uint64) (*model.Chat, error)
	ListByUser(ctx context.Context, userID uint64) ([]model.Chat, error)
	Messages(ctx context.Context, chatID uint64, offset, limit int) ([]model.Message, error)
	// AddMessage 同时更新会话的最后一条消息
	AddMessage(ctx context.Context, m *model.Message) error
	// MarkRead 把对方发来的消息标记已读
	MarkRead(ctx context.Context, chatID, readerID uint64) (int64, error)
}

type OutboxStore interface {
	List(ctx context.Context, batchSize, maxRetry int) ([]model.ModerationOutbox, error)
	RetryUpdate(ctx context.Context, id uint64) error
	SuccessUpdate(ctx context.Context, id uint64) error
}

// SessionStore 每个用户只有一个有效 token
type SessionStore interface {
	Save(ctx context.Context, userID uint64, token string, ttl time.Duration) error
	// Get 不存在时返回 pkg.ErrSessionNotFound
	Get(ctx context.Context, userID uint64) (string, error)
	Delete(ctx context.Context, userID uint64) error
}

type Locker interface {
	Acquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, key, token string) error
}

// UnreadCache 未读数缓存。写路径调用 Invalidate 递增代数，
// 回源前取 Generation，Fill 只在代数未变时写入
type UnreadCache interface {
	Get(ctx context.Context, userID uint64) (int64, bool, error)
	Generation(ctx context.Context, userID uint64) (int64, error)
	Fill(ctx context.Context, userID uint64, n, gen int64) (bool, error)
	Invalidate(ctx context.Context, userIDs ...uint64) error
}

// Pusher 实时推送，尽力而为
type Pusher interface {
	Push(userID uint64, event string, payload any) bool
}

type InviteMailer interface {
	SendModInvite(ctx context.Context, to, inviter, community string) error
}

// storeErr 仓储错误转成业务错误
func storeErr(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return pkg.NotFound(notFound)
	case errors.Is(err, pkg.ErrUserBanned):
		return pkg.BadRequest("user is banned from this community")
	}
	var appErr *pkg.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return pkg.Internal("store failure", err)
}

// MaxPage 页码上限，超大页码不会算出溢出的负 offset
const MaxPage = 10000

func pageOffset(page, size int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size <= 0 || size > 50 {
		size = 20
	}
	return (page - 1) * size, size
}

type noopPusher struct{}

func (noopPusher) Push(uint64, string, any) bool { return false }
