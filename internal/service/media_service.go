package service

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/storage"
	"github.com/d60-Lab/microblog/pkg/logger"
)

const maxMediaURLLength = 255

type MediaService interface {
	Upload(ctx context.Context, in UploadInput) (int64, error)
}

type UploadInput struct {
	// APIKey 上传者凭证，参与生成确定性 url
	APIKey      string
	Filename    string
	ContentType string
	Data        []byte
}

type mediaService struct {
	store *repository.Store
	blobs storage.BlobStore
}

func NewMediaService(store *repository.Store, blobs storage.BlobStore) MediaService {
	return &mediaService{store: store, blobs: blobs}
}

// Upload 同一上传者的同名文件只保存一次，重复上传返回已有 id
func (s *mediaService) Upload(ctx context.Context, in UploadInput) (int64, error) {
	filename := path.Base(strings.ReplaceAll(in.Filename, `\`, "/"))
	if filename == "" || filename == "." || filename == "/" {
		return 0, fmt.Errorf("%w: filename is required", ErrInvalidInput)
	}
	url := model.MediaURL(in.APIKey, filename)
	if len(url) > maxMediaURLLength {
		return 0, fmt.Errorf("%w: filename too long", ErrInvalidInput)
	}

	if id, ok, err := s.lookup(ctx, url); err != nil || ok {
		return id, err
	}

	var mediaID int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		m := &model.Media{URL: url}
		if err := tx.Media().Create(ctx, m); err != nil {
			return err
		}
		key := model.MediaStorageKey(m.ID, filename)
		if err := tx.Media().SetStorageKey(ctx, m.ID, key); err != nil {
			return err
		}
		if err := s.blobs.Put(ctx, key, in.ContentType, in.Data); err != nil {
			return fmt.Errorf("write blob %s: %w", key, err)
		}
		mediaID = m.ID
		return nil
	})
	if errors.Is(err, repository.ErrDuplicate) {
		// 并发上传同一文件，以先提交者为准
		id, ok, lerr := s.lookup(ctx, url)
		if lerr != nil {
			return 0, lerr
		}
		if ok {
			return id, nil
		}
	}
	if err != nil {
		return 0, wrapStore("upload media", err)
	}
	logger.Info("media stored", zap.Int64("media_id", mediaID), zap.String("filename", filename), zap.Int("bytes", len(in.Data)))
	return mediaID, nil
}

func (s *mediaService) lookup(ctx context.Context, url string) (int64, bool, error) {
	m, err := s.store.Media().FindByURL(ctx, url)
	if errors.Is(err, repository.ErrNotFound) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrapStore("find media", err)
	}
	return m.ID, true, nil
}
