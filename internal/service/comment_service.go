package service

import (
	"context"
	"log/slog"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

type CreateCommentInput struct {
	Content  string  `json:"content"`
	ParentID *uint64 `json:"parentComment"`
}

type CommentService struct {
	comments CommentStore
	posts    PostStore
	notifier *NotificationService
	log      *slog.Logger
}

func NewCommentService(comments CommentStore, posts PostStore, notifier *NotificationService, logger *slog.Logger) *CommentService {
	return &CommentService{
		comments: comments,
		posts:    posts,
		notifier: notifier,
		log:      logger,
	}
}

func (s *CommentService) CreateComment(ctx context.Context, userID, postID uint64, in CreateCommentInput) (*model.Comment, error) {
	content := pkg.PlainText(in.Content)
	if content == "" {
		return nil, pkg.BadRequest("content required")
	}
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}

	// 默认回复帖子作者；有父评论时回复父评论作者
	recipient := post.AuthorID
	if in.ParentID != nil {
		parent, err := s.comments.FindByID(ctx, *in.ParentID)
		if err != nil {
			return nil, storeErr(err, "parent comment not found")
		}
		if parent.PostID != postID {
			return nil, pkg.BadRequest("parent comment belongs to another post")
		}
		recipient = parent.AuthorID
	}

	comment := &model.Comment{
		PostID:   postID,
		AuthorID: userID,
		ParentID: in.ParentID,
		Content:  content,
	}
	if err := s.comments.Create(ctx, comment); err != nil {
		return nil, storeErr(err, "comment not found")
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyReply(ctx, recipient, userID, post.CommunityID, replyPreview(content)); err != nil {
			s.log.WarnContext(ctx, "reply notification failed", "comment_id", comment.ID, "err", err)
		}
	}
	return comment, nil
}

func replyPreview(content string) string {
	const limit = 120
	r := []rune(content)
	if len(r) <= limit {
		return content
	}
	return string(r[:limit]) + "..."
}

func (s *CommentService) ListByPost(ctx context.Context, postID uint64) ([]model.Comment, error) {
	if _, err := s.posts.FindByID(ctx, postID); err != nil {
		return nil, storeErr(err, "post not found")
	}
	list, err := s.comments.ListByPost(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "comment not found")
	}
	return list, nil
}

func (s *CommentService) DeleteComment(ctx context.Context, userID, commentID uint64) error {
	c, err := s.comments.FindByID(ctx, commentID)
	if err != nil {
		return storeErr(err, "comment not found")
	}
	if c.AuthorID != userID {
		return pkg.Forbidden("only the author can delete this comment")
	}
	if err := s.comments.Delete(ctx, commentID); err != nil {
		return storeErr(err, "comment not found")
	}
	return nil
}
