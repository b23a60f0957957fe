package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/service"
)

type NotificationHandler struct {
	svc *service.NotificationService
	log *slog.Logger
}

func NewNotificationHandler(svc *service.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{svc: svc, log: logger}
}

type modInviteReq struct {
	CommunityID uint64 `json:"communityId" binding:"required"`
	UserID      uint64 `json:"userId" binding:"required"`
}

type respondReq struct {
	Response string `json:"response" binding:"required"`
}

type modMessageReq struct {
	CommunityID uint64 `json:"communityId" binding:"required"`
	Message     string `json:"message"`
}

func (h *NotificationHandler) List(c *gin.Context) {
	page, size := paging(c)
	list, err := h.svc.List(c.Request.Context(), currentUser(c), page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"notifications": list})
}

func (h *NotificationHandler) SendModInvite(c *gin.Context) {
	var req modInviteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	n, err := h.svc.SendModInvite(c.Request.Context(), req.CommunityID, currentUser(c), req.UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"notification": n})
}

func (h *NotificationHandler) Respond(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req respondReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	n, err := h.svc.RespondToInvite(c.Request.Context(), id, currentUser(c), req.Response)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"notification": n})
}

func (h *NotificationHandler) SendModMessage(c *gin.Context) {
	var req modMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	list, err := h.svc.SendModMessage(c.Request.Context(), req.CommunityID, currentUser(c), req.Message)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"notifications": list})
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.svc.UnreadCount(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"count": n})
}

func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	n, err := h.svc.MarkAllAsRead(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": n})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.MarkAsRead(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "notification marked as read"})
}

func (h *NotificationHandler) Delete(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "notification deleted"})
}
