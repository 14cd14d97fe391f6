package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

// Healthz 探测数据库连通性
// @Summary 健康检查
// @Tags 运维
// @Produce json
// @Success 200 {object} response.Result
// @Failure 503 {object} response.ErrorBody
// @Router /healthz [get]
func (h *Handler) Healthz(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.ping(ctx); err != nil {
		response.Fail(c, http.StatusServiceUnavailable, "Unavailable", "database unreachable")
		return
	}
	response.Success(c, http.StatusOK, nil)
}
