package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/microblog/internal/service"
	"github.com/d60-Lab/microblog/pkg/response"
)

type mediaIDResponse struct {
	Result  bool  `json:"result"`
	MediaID int64 `json:"media_id"`
}

// UploadMedia 上传图片，同一用户重复上传同名文件返回已有 id
// @Summary 上传图片
// @Tags 图片
// @Accept multipart/form-data
// @Produce json
// @Security ApiKeyAuth
// @Param file formData file true "图片文件"
// @Success 201 {object} mediaIDResponse
// @Failure 413 {object} response.ErrorBody
// @Failure 422 {object} response.ErrorBody
// @Router /api/medias [post]
func (h *Handler) UploadMedia(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+1<<20)
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Fail(c, http.StatusRequestEntityTooLarge, "TooLarge", "upload exceeds size limit")
			return
		}
		response.Fail(c, http.StatusUnprocessableEntity, "InvalidInput", "multipart field \"file\" is required")
		return
	}
	if fh.Size > h.maxUploadBytes {
		response.Fail(c, http.StatusRequestEntityTooLarge, "TooLarge", fmt.Sprintf("file exceeds %d bytes", h.maxUploadBytes))
		return
	}

	f, err := fh.Open()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	id, err := h.media.Upload(c.Request.Context(), service.UploadInput{
		APIKey:      c.GetString(ctxAPIKey),
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, gin.H{"media_id": id})
}
