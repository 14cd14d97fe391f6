// Package response 统一接口返回格式：成功 {result:true, ...}，失败 {result:false, error_type, error_message}
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/pkg/logger"
)

// ErrorBody 失败响应体
type ErrorBody struct {
	Result       bool   `json:"result"`
	ErrorType    string `json:"error_type"`
	ErrorMessage string `json:"error_message"`
}

// Result 仅包含 result 字段的成功响应
type Result struct {
	Result bool `json:"result"`
}

// Success 以给定状态码返回成功响应；fields 会与 result 字段合并
func Success(c *gin.Context, status int, fields gin.H) {
	body := gin.H{"result": true}
	for k, v := range fields {
		body[k] = v
	}
	c.JSON(status, body)
}

// Fail 返回失败响应并中止后续处理
func Fail(c *gin.Context, status int, errType, msg string) {
	c.AbortWithStatusJSON(status, ErrorBody{Result: false, ErrorType: errType, ErrorMessage: msg})
}

func BadRequest(c *gin.Context, msg string) {
	Fail(c, http.StatusBadRequest, "BadRequest", msg)
}

func Unauthorized(c *gin.Context, msg string) {
	Fail(c, http.StatusUnauthorized, "Unauthenticated", msg)
}

// InternalError 记录原始错误，对外只返回通用信息
func InternalError(c *gin.Context, err error) {
	logger.Error("internal error", zap.Error(err), zap.String("path", c.FullPath()))
	Fail(c, http.StatusInternalServerError, "InternalError", "internal server error")
}
