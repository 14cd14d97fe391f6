package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

const (
	ctxUserID = "userID"
	ctxAPIKey = "apiKey"
)

// Authenticate 解析 api-key 请求头，成功后写入 userID
func (h *Handler) Authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(h.apiKeyHeader)
		if key == "" {
			response.Unauthorized(c, "missing "+h.apiKeyHeader+" header")
			return
		}
		userID, err := h.auth.Resolve(c.Request.Context(), key)
		if err != nil {
			writeError(c, err)
			return
		}
		c.Set(ctxUserID, userID)
		c.Set(ctxAPIKey, key)
		c.Next()
	}
}

func currentUserID(c *gin.Context) int64 { return c.GetInt64(ctxUserID) }
