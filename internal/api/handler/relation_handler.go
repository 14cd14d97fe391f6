package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/pkg/response"
)

// Me 当前用户资料
// @Summary 当前用户资料
// @Tags 用户
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} profileResponse
// @Failure 401 {object} response.ErrorBody
// @Router /api/users/me [get]
func (h *Handler) Me(c *gin.Context) {
	h.renderProfile(c, currentUserID(c))
}

// GetUser 按 id 查询用户资料，无需鉴权
// @Summary 用户资料
// @Tags 用户
// @Produce json
// @Param id path int true "用户ID"
// @Success 200 {object} profileResponse
// @Failure 404 {object} response.ErrorBody
// @Router /api/users/{id} [get]
func (h *Handler) GetUser(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	h.renderProfile(c, id)
}

func (h *Handler) renderProfile(c *gin.Context, userID int64) {
	p, err := h.feed.GetProfile(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"user": p})
}

// Follow 关注用户
// @Summary 关注用户
// @Tags 关系链
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "被关注用户ID"
// @Success 202 {object} response.Result
// @Failure 404 {object} response.ErrorBody
// @Failure 409 {object} response.ErrorBody
// @Router /api/users/{id}/follow [post]
func (h *Handler) Follow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.relations.Follow(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, nil)
}

// Unfollow 取消关注
// @Summary 取消关注
// @Tags 关系链
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "被关注用户ID"
// @Success 202 {object} response.Result
// @Failure 400 {object} response.ErrorBody
// @Router /api/users/{id}/follow [delete]
func (h *Handler) Unfollow(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.relations.Unfollow(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, nil)
}

func pathID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusUnprocessableEntity, "InvalidInput", "id must be a positive integer")
		return 0, false
	}
	return id, true
}
