package realtime

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (uint64, error)
}

// Handler 鉴权后升级为 websocket
type Handler struct {
	reg      *Registry
	auth     Authenticator
	upgrader websocket.Upgrader
	log      *slog.Logger
}

// NewHandler /ws 入口；allowed 为空或含 "*" 时不校验 Origin
func NewHandler(reg *Registry, auth Authenticator, allowed []string, logger *slog.Logger) *Handler {
	h := &Handler{reg: reg, auth: auth, log: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     originChecker(allowed),
	}
	return h
}

func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || len(allowed) == 0 {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// tokenFrom 浏览器的 websocket 不能自定义 header，所以也接受 ?token=
func tokenFrom(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	return c.Query("token")
}

func (h *Handler) Serve(c *gin.Context) {
	token := tokenFrom(c)
	if token == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "missing token"})
		return
	}
	userID, err := h.auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"success": false, "message": "invalid or expired token"})
		return
	}
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("websocket upgrade", "user_id", userID, "err", err)
		return
	}
	client := newClient(userID, conn, h.reg, h.log)
	h.reg.Register(userID, client)
	h.log.Info("websocket connected", "user_id", userID)

	go client.writePump()
	go client.readPump()
}
