package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"Circle_Community/internal/middleware"
	"Circle_Community/internal/pkg"
)

// fail 唯一的错误出口：按错误类型映射状态码，5xx 记录原始错误
func fail(c *gin.Context, log *slog.Logger, err error) {
	status := pkg.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"err", err,
		)
	}
	c.AbortWithStatusJSON(status, gin.H{"success": false, "message": pkg.PublicMessage(err)})
}

func badParams(c *gin.Context) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid params"})
}

func ok(c *gin.Context, status int, body gin.H) {
	if body == nil {
		body = gin.H{}
	}
	body["success"] = true
	c.JSON(status, body)
}

// pathID 解析路径中的数字 id，失败时直接写 400
func pathID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid " + name})
		return 0, false
	}
	return id, true
}

func currentUser(c *gin.Context) uint64 {
	id, _ := middleware.UserID(c)
	return id
}

func paging(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.Query("page"))
	size, _ := strconv.Atoi(c.Query("size"))
	return page, size
}

// targetReq 请求体里的目标用户
type targetReq struct {
	UserID uint64 `json:"userId" binding:"required"`
}
