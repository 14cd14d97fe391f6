package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

type createTweetRequest struct {
	TweetData string  `json:"tweet_data"`
	ImageIDs  []int64 `json:"image_ids"`
	// TweetMediaIDs 旧客户端使用的字段名
	TweetMediaIDs []int64 `json:"tweet_media_ids"`
}

type profileResponse struct {
	Result bool          `json:"result"`
	User   model.Profile `json:"user"`
}

type tweetsResponse struct {
	Result bool              `json:"result"`
	Tweets []model.TweetView `json:"tweets"`
}

type tweetIDResponse struct {
	Result  bool  `json:"result"`
	TweetID int64 `json:"tweet_id"`
}

// ListTweets 推文列表
// @Summary 推文列表
// @Tags 推文
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} tweetsResponse
// @Failure 401 {object} response.ErrorBody
// @Router /api/tweets [get]
func (h *Handler) ListTweets(c *gin.Context) {
	tweets, err := h.feed.ListTweets(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tweets": tweets})
}

// CreateTweet 发布推文
// @Summary 发布推文
// @Tags 推文
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param request body createTweetRequest true "推文内容与图片ID"
// @Success 200 {object} tweetIDResponse
// @Failure 404 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Router /api/tweets [post]
func (h *Handler) CreateTweet(c *gin.Context) {
	var req createTweetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	mediaIDs := req.ImageIDs
	if len(mediaIDs) == 0 {
		mediaIDs = req.TweetMediaIDs
	}
	id, err := h.tweets.CreateTweet(c.Request.Context(), service.CreateTweetInput{
		AuthorID: currentUserID(c),
		Content:  req.TweetData,
		MediaIDs: mediaIDs,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"tweet_id": id})
}

// DeleteTweet 删除自己的推文
// @Summary 删除推文
// @Tags 推文
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "推文ID"
// @Success 202 {object} response.Result
// @Failure 403 {object} response.ErrorBody
// @Failure 404 {object} response.ErrorBody
// @Router /api/tweets/{id} [delete]
func (h *Handler) DeleteTweet(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tweets.DeleteTweet(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, nil)
}

// AddLike 点赞
// @Summary 点赞
// @Tags 推文
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "推文ID"
// @Success 201 {object} response.Result
// @Failure 404 {object} response.ErrorBody
// @Router /api/tweets/{id}/likes [post]
func (h *Handler) AddLike(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if _, err := h.tweets.AddLike(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, nil)
}

// RemoveLike 取消点赞，无记录时同样成功
// @Summary 取消点赞
// @Tags 推文
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "推文ID"
// @Success 202 {object} response.Result
// @Router /api/tweets/{id}/likes [delete]
func (h *Handler) RemoveLike(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.tweets.RemoveLike(c.Request.Context(), currentUserID(c), id); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusAccepted, nil)
}
