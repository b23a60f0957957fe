package service

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"Circle_Community/internal/model"
	"Circle_Community/internal/pkg"
)

const MaxPostTitle = 300

type CreatePostInput struct {
	Title       string           `json:"title"`
	Content     string           `json:"content"`
	CommunityID *uint64          `json:"community"`
	Status      model.PostStatus `json:"status"`
}

type PostService struct {
	posts       PostStore
	communities CommunityStore
	log         *slog.Logger
}

func NewPostService(posts PostStore, communities CommunityStore, logger *slog.Logger) *PostService {
	return &PostService{
		posts:       posts,
		communities: communities,
		log:         logger,
	}
}

func (s *PostService) CreatePost(ctx context.Context, userID uint64, in CreatePostInput) (*model.Post, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, pkg.BadRequest("title required")
	}
	if utf8.RuneCountInString(title) > MaxPostTitle {
		return nil, pkg.BadRequest("title must be at most 300 characters")
	}
	if in.Status == "" {
		in.Status = model.PostPublished
	}
	if in.Status != model.PostPublished && in.Status != model.PostDraft {
		return nil, pkg.BadRequest("invalid post status")
	}

	// 社区帖子：必须是成员且未被封禁
	if in.CommunityID != nil {
		r, err := s.communities.Roster(ctx, *in.CommunityID)
		if err != nil {
			return nil, storeErr(err, "community not found")
		}
		if r.IsBanned(userID) {
			return nil, pkg.Forbidden("you are banned from this community")
		}
		if !r.IsMember(userID) {
			return nil, pkg.Forbidden("join the community to post")
		}
	}

	post := &model.Post{
		CommunityID: in.CommunityID,
		AuthorID:    userID,
		Title:       pkg.PlainText(title),
		Content:     pkg.SanitizeHTML(in.Content),
		Status:      in.Status,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, storeErr(err, "post not found")
	}
	return post, nil
}

func (s *PostService) GetPost(ctx context.Context, postID uint64) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	return post, nil
}

// ListByCommunity 社区帖子列表
func (s *PostService) ListByCommunity(ctx context.Context, communityID uint64, page, size int) ([]model.Post, error) {
	offset, limit := pageOffset(page, size)
	list, err := s.posts.ListByCommunity(ctx, communityID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	return list, nil
}

// ListByCommunityCursor 游标分页：首次传 lastID=0，返回的 next 供下一页使用，0 表示没有更多
func (s *PostService) ListByCommunityCursor(ctx context.Context, communityID, lastID uint64, size int) ([]model.Post, uint64, error) {
	_, limit := pageOffset(1, size)
	if _, err := s.communities.FindByID(ctx, communityID); err != nil {
		return nil, 0, storeErr(err, "community not found")
	}
	list, err := s.posts.ListByCommunityCursor(ctx, communityID, lastID, limit)
	if err != nil {
		return nil, 0, storeErr(err, "post not found")
	}
	var next uint64
	if len(list) == limit {
		next = list[len(list)-1].ID
	}
	return list, next, nil
}

func (s *PostService) ListByAuthor(ctx context.Context, authorID uint64, page, size int) ([]model.Post, error) {
	offset, limit := pageOffset(page, size)
	list, err := s.posts.ListByAuthor(ctx, authorID, offset, limit)
	if err != nil {
		return nil, storeErr(err, "post not found")
	}
	return list, nil
}

// DeletePost 作者删除，评论和投票一并删除；版主删帖走 CommunityService
func (s *PostService) DeletePost(ctx context.Context, userID, postID uint64) error {
	post, err := s.posts.FindByID(ctx, postID)
	if err != nil {
		return storeErr(err, "post not found")
	}
	if post.AuthorID != userID {
		return pkg.Forbidden("only the author can delete this post")
	}
	if err := s.posts.Delete(ctx, postID); err != nil {
		return storeErr(err, "post not found")
	}
	return nil
}
