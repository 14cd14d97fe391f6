package handler

import (
	"errors"
	"net/http"

	sentrygin "github.com/getsentry/sentry-go/gin"
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

var errorTable = []struct {
	target  error
	status  int
	errType string
}{
	{service.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated"},
	{service.ErrNotFound, http.StatusNotFound, "NotFound"},
	{service.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{service.ErrAlreadyFollowing, http.StatusConflict, "AlreadyFollowing"},
	{service.ErrConflict, http.StatusConflict, "ConflictError"},
	{service.ErrNotFollowing, http.StatusBadRequest, "NotFollowing"},
	{service.ErrFollowSelf, http.StatusBadRequest, "FollowSelf"},
	{service.ErrInvalidInput, http.StatusUnprocessableEntity, "InvalidInput"},
}

// writeError 把领域错误映射为状态码与统一错误体；存储错误上报 sentry 且不暴露底层信息
func writeError(c *gin.Context, err error) {
	for _, e := range errorTable {
		if errors.Is(err, e.target) {
			response.Fail(c, e.status, e.errType, err.Error())
			return
		}
	}
	if hub := sentrygin.GetHubFromContext(c); hub != nil {
		hub.CaptureException(err)
	}
	response.InternalError(c, err)
}
