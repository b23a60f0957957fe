package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/service"
)

type UserHandler struct {
	svc *service.UserService
	log *slog.Logger
}

func NewUserHandler(svc *service.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{svc: svc, log: logger}
}

// Register 注册接口
func (h *UserHandler) Register(c *gin.Context) {
	var req service.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	res, err := h.svc.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusCreated, gin.H{"token": res.Token, "user": res.User})
}

// Login 登录接口，用户名或邮箱均可
func (h *UserHandler) Login(c *gin.Context) {
	var req service.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	res, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"token": res.Token, "user": res.User})
}

func (h *UserHandler) Logout(c *gin.Context) {
	if err := h.svc.Logout(c.Request.Context(), currentUser(c)); err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"message": "logged out"})
}

func (h *UserHandler) Me(c *gin.Context) {
	user, err := h.svc.Me(c.Request.Context(), currentUser(c))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": user})
}

func (h *UserHandler) Profile(c *gin.Context) {
	profile, err := h.svc.Profile(c.Request.Context(), c.Param("username"))
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": profile})
}

func (h *UserHandler) UpdateProfile(c *gin.Context) {
	var req service.ProfilePatch
	if err := c.ShouldBindJSON(&req); err != nil {
		badParams(c)
		return
	}
	user, err := h.svc.UpdateProfile(c.Request.Context(), currentUser(c), req)
	if err != nil {
		fail(c, h.log, err)
		return
	}
	ok(c, http.StatusOK, gin.H{"user": user})
}
