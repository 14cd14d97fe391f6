// Package storage 图片字节的写入端，按 Media.StorageKey 寻址，写一次
package storage

import (
	"context"
	"fmt"

	"github.com/d60-Lab/microblog/config"
)

type BlobStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
}

// New 按 media.backend 构建 BlobStore
func New(ctx context.Context, cfg config.MediaConfig) (BlobStore, error) {
	switch cfg.Backend {
	case "local":
		return NewLocal(cfg.Dir)
	case "s3":
		s, err := NewS3(S3Config{
			Endpoint:  cfg.S3.Endpoint,
			AccessKey: cfg.S3.AccessKey,
			SecretKey: cfg.S3.SecretKey,
			UseSSL:    cfg.S3.UseSSL,
			Bucket:    cfg.S3.Bucket,
		})
		if err != nil {
			return nil, err
		}
		if err := s.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket %s: %w", cfg.S3.Bucket, err)
		}
		return s, nil
	}
	return nil, fmt.Errorf("unsupported media backend %q", cfg.Backend)
}
