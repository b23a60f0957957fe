package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/model"
	"Circle_Community/internal/service"
)

type PostHandler struct {
	posts    *service.PostService
	comments *service.CommentService
	votes    *service.VoteService
	log      *slog.Logger
}

func NewPostHandler(posts *service.PostService, comments *service.CommentService, votes *service.VoteService, logger *slog.Logger) *PostHandler {
	return &PostHandler{posts: posts, comments: comments, votes: votes, log: logger}
}

func (h *PostHandler) CreatePost(c *gin.Context) {
	var req service.CreatePostInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	post, err := h.posts.CreatePost(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"post": post})
}

func (h *PostHandler) GetPost(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	post, err := h.posts.GetPost(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	dir, err := h.votes.UserVote(c.Request.Context(), model.VotePost, id, currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"post": post, "userVote": dir.String()})
}

// Feed GET /api/communities/:id/feed?cursor=<lastID>&size=
func (h *PostHandler) Feed(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var cursor uint64
	if raw := c.Query("cursor"); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			badParams(c)
			return
		}
		cursor = v
	}
	size, _ := strconv.Atoi(c.Query("size"))
	posts, next, err := h.posts.ListByCommunityCursor(c.Request.Context(), id, cursor, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"posts": posts, "nextCursor": next})
}

// ListByAuthor GET /api/posts?author=<id>
func (h *PostHandler) ListByAuthor(c *gin.Context) {
	author, err := strconv.ParseUint(c.Query("author"), 10, 64)
	if err != nil || author == 0 {
		badParams(c)
		return
	}
	page, size := paging(c)
	posts, err := h.posts.ListByAuthor(c.Request.Context(), author, page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"posts": posts})
}

func (h *PostHandler) DeletePost(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.posts.DeletePost(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *PostHandler) vote(target model.VoteTarget, dir model.VoteDirection) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := pathID(c, "id")
		if !valid {
			return
		}
		tally, err := h.votes.Toggle(c.Request.Context(), target, id, currentUser(c), dir)
		if err != nil {
			fail(c, h.log, err)
			return
		}
		ok(c, http.StatusOK, gin.H{
			"upvoteCount":   tally.Upvotes,
			"downvoteCount": tally.Downvotes,
			"userVote":      tally.UserVote,
		})
	}
}

func (h *PostHandler) UpvotePost() gin.HandlerFunc   { return h.vote(model.VotePost, model.VoteUp) }
func (h *PostHandler) DownvotePost() gin.HandlerFunc { return h.vote(model.VotePost, model.VoteDown) }
func (h *PostHandler) UpvoteComment() gin.HandlerFunc {
	return h.vote(model.VoteComment, model.VoteUp)
}
func (h *PostHandler) DownvoteComment() gin.HandlerFunc {
	return h.vote(model.VoteComment, model.VoteDown)
}

func (h *PostHandler) CreateComment(c *gin.Context) {
	postID, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.CreateCommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	comment, err := h.comments.CreateComment(c.Request.Context(), currentUser(c), postID, req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"comment": comment})
}

func (h *PostHandler) ListComments(c *gin.Context) {
	postID, valid := pathID(c, "id")
	if !valid {
		return
	}
	list, err := h.comments.ListByPost(c.Request.Context(), postID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"comments": list})
}

func (h *PostHandler) DeleteComment(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.comments.DeleteComment(c.Request.Context(), currentUser(c), id); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "comment deleted"})
}
