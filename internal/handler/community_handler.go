package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/service"
)

type CommunityHandler struct {
	svc *service.CommunityService
	log *slog.Logger
}

func NewCommunityHandler(svc *service.CommunityService, logger *slog.Logger) *CommunityHandler {
	return &CommunityHandler{svc: svc, log: logger}
}

func (h *CommunityHandler) Create(c *gin.Context) {
	var req service.CreateCommunityInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	community, err := h.svc.CreateCommunity(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"community": community})
}

func (h *CommunityHandler) List(c *gin.Context) {
	page, size := paging(c)
	list, err := h.svc.ListCommunities(c.Request.Context(), page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"communities": list})
}

func (h *CommunityHandler) GetByName(c *gin.Context) {
	detail, err := h.svc.GetByName(c.Request.Context(), c.Param("name"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"community": detail})
}

func (h *CommunityHandler) Get(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	detail, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"community": detail})
}

func (h *CommunityHandler) Join(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.JoinCommunity(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "joined community"})
}

func (h *CommunityHandler) Leave(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.LeaveCommunity(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "left community"})
}

func (h *CommunityHandler) UpdateSettings(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req service.SettingsPatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	community, err := h.svc.UpdateSettings(c.Request.Context(), id, currentUser(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"community": community})
}

// targetAction 处理 body 为 {userId} 的所有管理操作
func (h *CommunityHandler) targetAction(action func(*gin.Context, uint64, uint64, uint64) error, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, valid := pathID(c, "id")
		if !valid {
			return
		}
		var req targetReq
		if err := c.ShouldBindJSON(&req); err != nil {
			badParams(c)
			return
		}
		if err := action(c, id, currentUser(c), req.UserID); err != nil {
			fail(c, h.log, err)
			return
		}
		ok(c, http.StatusOK, gin.H{"message": message})
	}
}

func (h *CommunityHandler) Ban() gin.HandlerFunc {
	return h.targetAction(func(c *gin.Context, cid, caller, target uint64) error {
		return h.svc.BanUser(c.Request.Context(), cid, caller, target)
	}, "user banned")
}

func (h *CommunityHandler) Unban() gin.HandlerFunc {
	return h.targetAction(func(c *gin.Context, cid, caller, target uint64) error {
		return h.svc.UnbanUser(c.Request.Context(), cid, caller, target)
	}, "user unbanned")
}

func (h *CommunityHandler) AddModerator() gin.HandlerFunc {
	return h.targetAction(func(c *gin.Context, cid, caller, target uint64) error {
		return h.svc.AddModerator(c.Request.Context(), cid, caller, target)
	}, "moderator added")
}

func (h *CommunityHandler) RemoveModerator() gin.HandlerFunc {
	return h.targetAction(func(c *gin.Context, cid, caller, target uint64) error {
		return h.svc.RemoveModerator(c.Request.Context(), cid, caller, target)
	}, "moderator removed")
}

func (h *CommunityHandler) Members(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	roster, err := h.svc.Members(c.Request.Context(), id)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{
		"members":     roster.Members,
		"moderators":  roster.Moderators,
		"bannedUsers": roster.Banned,
		"creator":     roster.CreatorID,
	})
}

func (h *CommunityHandler) RemoveMember(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	target, valid := pathID(c, "userId")
	if !valid {
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), id, currentUser(c), target); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "member removed"})
}

func (h *CommunityHandler) Posts(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, size := paging(c)
	posts, err := h.svc.Posts(c.Request.Context(), id, page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"posts": posts})
}

func (h *CommunityHandler) DeletePost(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	postID, valid := pathID(c, "postId")
	if !valid {
		return
	}
	if err := h.svc.DeletePostFromCommunity(c.Request.Context(), id, currentUser(c), postID); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "post deleted"})
}

func (h *CommunityHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.DeleteCommunity(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "community deleted"})
}
