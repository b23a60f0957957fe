package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

const (
	InviteLockPrefix = "lock:invite"
	InviteLockTTL    = 5 * time.Second
)

// 实时推送的事件名
const (
	EventNotification = "notification"
	EventChatMessage  = "chat_message"
)

type NotificationService struct {
	notes       NotificationStore
	communities CommunityStore
	users       UserStore
	lock        Locker
	unread      UnreadCache
	push        Pusher
	mailer      InviteMailer
	log         *slog.Logger
}

func NewNotificationService(notes NotificationStore, communities CommunityStore, users UserStore, lock Locker, unread UnreadCache, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		notes:       notes,
		communities: communities,
		users:       users,
		lock:        lock,
		unread:      unread,
		push:        noopPusher{},
		log:         logger,
	}
}

// SetPusher 注入实时推送通道
func (s *NotificationService) SetPusher(p Pusher) {
	if p != nil {
		s.push = p
	}
}

// SetMailer 配置后邀请会同时发邮件
func (s *NotificationService) SetMailer(m InviteMailer) {
	s.mailer = m
}

func inviteLockKey(communityID, userID uint64) string {
	return fmt.Sprintf("%s:%d:%d", InviteLockPrefix, communityID, userID)
}

// SendModInvite 同一 (社区, 用户) 的邀请串行化，保证最多一个 pending
func (s *NotificationService) SendModInvite(ctx context.Context, communityID, callerID, targetID uint64) (*model.Notification, error) {
	community, err := s.communities.FindByID(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	r, err := s.communities.Roster(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	if !r.IsCreator(callerID) {
		return nil, pkg.Forbidden("only the creator can invite moderators")
	}
	target, err := s.users.FindByID(ctx, targetID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	if r.IsCreator(targetID) {
		return nil, pkg.BadRequest("cannot invite the community creator")
	}
	if r.IsModerator(targetID) {
		return nil, pkg.BadRequest("user is already a moderator")
	}
	if r.IsBanned(targetID) {
		return nil, pkg.BadRequest("user is banned from this community")
	}

	key := inviteLockKey(communityID, targetID)
	token := fmt.Sprintf("%d-%d", callerID, time.Now().UnixNano())
	got, err := s.lock.Acquire(ctx, key, token, InviteLockTTL)
	if err != nil {
		return nil, pkg.Internal("acquire invite lock", err)
	}
	if !got {
		return nil, pkg.Conflict("an invite for this user is already being sent")
	}
	defer func() {
		if err := s.lock.Release(context.WithoutCancel(ctx), key, token); err != nil {
			s.log.WarnContext(ctx, "release invite lock", "key", key, "err", err)
		}
	}()

	pending, err := s.notes.HasPendingInvite(ctx, targetID, communityID)
	if err != nil {
		return nil, storeErr(err, "notification not found")
	}
	if pending {
		return nil, pkg.BadRequest("an invite is already pending for this user")
	}

	inviter, err := s.users.FindByID(ctx, callerID)
	if err != nil {
		return nil, storeErr(err, "user not found")
	}
	n := &model.Notification{
		RecipientID: targetID,
		SenderID:    callerID,
		Type:        model.NotifyModInvite,
		CommunityID: &communityID,
		Message:     fmt.Sprintf("u/%s invited you to moderate r/%s", inviter.Username, community.Name),
		Status:      model.InvitePending,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return nil, storeErr(err, "notification not found")
	}
	s.delivered(ctx, n)

	if s.mailer != nil && target.Email != nil && *target.Email != "" {
		if err := s.mailer.SendModInvite(ctx, *target.Email, inviter.Username, community.Name); err != nil {
			s.log.WarnContext(ctx, "invite mail failed", "user_id", targetID, "err", err)
		}
	}
	return n, nil
}

func parseInviteResponse(response string) (model.InviteStatus, error) {
	switch strings.ToLower(strings.TrimSpace(response)) {
	case "accept":
		return model.InviteAccepted, nil
	case "decline":
		return model.InviteDeclined, nil
	}
	return model.InviteNone, pkg.BadRequest(`response must be "accept" or "decline"`)
}

// RespondToInvite 状态机：pending -> accepted | declined，其余一律拒绝
func (s *NotificationService) RespondToInvite(ctx context.Context, notificationID, callerID uint64, response string) (*model.Notification, error) {
	n, err := s.notes.FindByID(ctx, notificationID)
	if err != nil {
		return nil, storeErr(err, "notification not found")
	}
	if n.RecipientID != callerID {
		return nil, pkg.Forbidden("not your notification")
	}
	if n.Type != model.NotifyModInvite {
		return nil, pkg.BadRequest("notification is not an invite")
	}
	if n.Status != model.InvitePending {
		return nil, pkg.BadRequest("invite already responded to")
	}
	to, err := parseInviteResponse(response)
	if err != nil {
		return nil, err
	}
	if !n.Status.CanTransition(to) {
		return nil, pkg.BadRequest("invite already responded to")
	}
	if n.CommunityID == nil {
		return nil, pkg.BadRequest("invite has no community")
	}

	ok, err := s.notes.Respond(ctx, n, to)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}
	// 条件更新未命中说明并发响应已先一步完成
	if !ok {
		return nil, pkg.BadRequest("invite already responded to")
	}
	n.Status = to
	n.Read = true
	s.invalidate(ctx, callerID)
	s.log.InfoContext(ctx, "invite responded", "notification_id", n.ID, "status", to)
	return n, nil
}

// SendModMessage 发给创建者和所有版主，创建者同时是版主时只发一次
func (s *NotificationService) SendModMessage(ctx context.Context, communityID, callerID uint64, message string) ([]*model.Notification, error) {
	message = pkg.PlainText(message)
	if message == "" {
		return nil, pkg.BadRequest("message is required")
	}
	r, err := s.communities.Roster(ctx, communityID)
	if err != nil {
		return nil, storeErr(err, "community not found")
	}

	staff := r.Staff()
	list := make([]*model.Notification, 0, len(staff))
	for _, recipient := range staff {
		list = append(list, &model.Notification{
			RecipientID: recipient,
			SenderID:    callerID,
			Type:        model.NotifyModMessage,
			CommunityID: &communityID,
			Message:     message,
		})
	}
	if err := s.notes.CreateBatch(ctx, list); err != nil {
		return nil, storeErr(err, "notification not found")
	}
	for _, n := range list {
		s.delivered(ctx, n)
	}
	return list, nil
}

// NotifyReply 回复通知，不给自己发
func (s *NotificationService) NotifyReply(ctx context.Context, recipientID, senderID uint64, communityID *uint64, message string) error {
	if recipientID == senderID {
		return nil
	}
	n := &model.Notification{
		RecipientID: recipientID,
		SenderID:    senderID,
		Type:        model.NotifyReply,
		CommunityID: communityID,
		Message:     message,
	}
	if err := s.notes.Create(ctx, n); err != nil {
		return storeErr(err, "notification not found")
	}
	s.delivered(ctx, n)
	return nil
}

func (s *NotificationService) List(ctx context.Context, userID uint64, page, size int) ([]model.Notification, error) {
	offset, limit := pageOffset(page, size)
	list, err := s.notes.ListByRecipient(ctx, userID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "notification not found")
	}
	return list, nil
}

// UnreadCount 先读缓存；未命中先记代数再回源，代数没变才回填
func (s *NotificationService) UnreadCount(ctx context.Context, userID uint64) (int64, error) {
	if n, ok, err := s.unread.Get(ctx, userID); err == nil && ok {
		return n, nil
	}
	gen, genErr := s.unread.Generation(ctx, userID)
	n, err := s.notes.UnreadCount(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "notification not found")
	}
	if genErr == nil {
		if _, err := s.unread.Fill(ctx, userID, n, gen); err != nil {
			s.log.WarnContext(ctx, "fill unread cache", "user", userID, "err", err)
		}
	}
	return n, nil
}

func (s *NotificationService) owned(ctx context.Context, notificationID, callerID uint64) (*model.Notification, error) {
	n, err := s.notes.FindByID(ctx, notificationID)
	if err != nil {
		return nil, storeErr(err, "notification not found")
	}
	if n.RecipientID != callerID {
		return nil, pkg.Forbidden("not your notification")
	}
	return n, nil
}

func (s *NotificationService) MarkAsRead(ctx context.Context, notificationID, callerID uint64) error {
	n, err := s.owned(ctx, notificationID, callerID)
	if err != nil {
		return err
	}
	if n.Read {
		return nil
	}
	if err := s.notes.MarkRead(ctx, n.ID); err != nil {
		return storeErr(err, "notification not found")
	}
	s.invalidate(ctx, callerID)
	return nil
}

func (s *NotificationService) MarkAllAsRead(ctx context.Context, userID uint64) (int64, error) {
	n, err := s.notes.MarkAllRead(ctx, userID)
	if err != nil {
		return 0, storeErr(err, "notification not found")
	}
	s.invalidate(ctx, userID)
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, notificationID, callerID uint64) error {
	n, err := s.owned(ctx, notificationID, callerID)
	if err != nil {
		return err
	}
	if err := s.notes.Delete(ctx, n.ID); err != nil {
		return storeErr(err, "notification not found")
	}
	s.invalidate(ctx, callerID)
	return nil
}

// delivered 新通知：失效未读缓存并尽力实时推送
func (s *NotificationService) delivered(ctx context.Context, n *model.Notification) {
	s.invalidate(ctx, n.RecipientID)
	s.push.Push(n.RecipientID, EventNotification, n)
}

func (s *NotificationService) invalidate(ctx context.Context, userIDs ...uint64) {
	if err := s.unread.Invalidate(ctx, userIDs...); err != nil {
		s.log.WarnContext(ctx, "invalidate unread cache", "err", err)
	}
}
