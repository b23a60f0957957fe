package service

import (
	"context"
	"log/slog"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

type ChatService struct {
	chats ChatStore
	users UserStore
	push  Pusher
	log   *slog.Logger
}

func NewChatService(chats ChatStore, users UserStore, logger *slog.Logger) *ChatService {
	return &ChatService{
		chats: chats,
		users: users,
		push:  noopPusher{},
		log:   logger,
	}
}

func (s *ChatService) SetPusher(p Pusher) {
	if p != nil {
		s.push = p
	}
}

// OpenChat 两人之间只有一个会话，不存在则创建
func (s *ChatService) OpenChat(ctx context.Context, userID, otherID uint64) (*model.Chat, error) {
	if userID == otherID {
		return nil, pkg.BadRequest("cannot chat with yourself")
	}
	if _, err := s.users.FindByID(ctx, otherID); err != nil {
		return nil, storeErr(err, "user not found")
	}
	chat, err := s.chats.FindOrCreate(ctx, userID, otherID)
	if err != nil {
		return nil, storeErr(err, "chat not found")
	}
	return chat, nil
}

func (s *ChatService) ListChats(ctx context.Context, userID uint64) ([]model.Chat, error) {
	list, err := s.chats.ListByUser(ctx, userID)
	if err != nil {
		return nil, storeErr(err, "chat not found")
	}
	return list, nil
}

func (s *ChatService) participant(ctx context.Context, chatID, userID uint64) (*model.Chat, error) {
	chat, err := s.chats.FindByID(ctx, chatID)
	if err != nil {
		return nil, storeErr(err, "chat not found")
	}
	if !chat.HasParticipant(userID) {
		return nil, pkg.Forbidden("not a participant of this chat")
	}
	return chat, nil
}

func (s *ChatService) Messages(ctx context.Context, chatID, userID uint64, page, size int) ([]model.Message, error) {
	if _, err := s.participant(ctx, chatID, userID); err != nil {
		return nil, err
	}
	offset, limit := pageOffset(page, size)
	list, err := s.chats.Messages(ctx, chatID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "chat not found")
	}
	return list, nil
}

// Send 先落库，再尽力推送给在线的对方；对方不在线时下次拉取可见
func (s *ChatService) Send(ctx context.Context, chatID, senderID uint64, content string) (*model.Message, error) {
	content = pkg.PlainText(content)
	if content == "" {
		return nil, pkg.BadRequest("message is required")
	}
	chat, err := s.participant(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}
	msg := &model.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
		Content:  content,
	}
	if err := s.chats.AddMessage(ctx, msg); err != nil {
		return nil, storeErr(err, "chat not found")
	}
	if !s.push.Push(chat.Other(senderID), EventChatMessage, msg) {
		s.log.DebugContext(ctx, "recipient offline", "chat_id", chat.ID)
	}
	return msg, nil
}

func (s *ChatService) MarkRead(ctx context.Context, chatID, userID uint64) (int64, error) {
	if _, err := s.participant(ctx, chatID, userID); err != nil {
		return 0, err
	}
	n, err := s.chats.MarkRead(ctx, chatID, userID)
	if err != nil {
		return 0, storeErr(err, "chat not found")
	}
	return n, nil
}
