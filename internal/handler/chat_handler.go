package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/service"
)

type ChatHandler struct {
	svc *service.ChatService
	log *slog.Logger
}

func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, log: logger}
}

type sendMessageReq struct {
	Content string `json:"content"`
}

func (h *ChatHandler) Open(c *gin.Context) {
	var req targetReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	chat, err := h.svc.OpenChat(c.Request.Context(), currentUser(c), req.UserID)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"chat": chat, "participants": chat.Participants()})
}

func (h *ChatHandler) List(c *gin.Context) {
	list, err := h.svc.ListChats(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"chats": list})
}

func (h *ChatHandler) Messages(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	page, size := paging(c)
	list, err := h.svc.Messages(c.Request.Context(), id, currentUser(c), page, size)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"messages": list})
}

func (h *ChatHandler) Send(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	msg, err := h.svc.Send(c.Request.Context(), id, currentUser(c), req.Content)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"message": msg})
}

func (h *ChatHandler) MarkRead(c *gin.Context) {
	id, valid := pathID(c, "id")
	if !valid {
		return
	}
	n, err := h.svc.MarkRead(c.Request.Context(), id, currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"updated": n})
}
