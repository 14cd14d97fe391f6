package handler

import (
	"context"

	"github.com/d60-Lab/microblog/internal/service"
)

// Handler 聚合全部 HTTP 处理函数
type Handler struct {
	auth      service.AuthService
	relations service.RelationshipService
	tweets    service.TweetService
	media     service.MediaService
	feed      service.FeedService

	ping           func(context.Context) error
	apiKeyHeader   string
	maxUploadBytes int64
}

type Services struct {
	Auth      service.AuthService
	Relations service.RelationshipService
	Tweets    service.TweetService
	Media     service.MediaService
	Feed      service.FeedService
}

type Options struct {
	APIKeyHeader   string
	MaxUploadBytes int64
	// Ping 健康检查时探测数据库
	Ping func(context.Context) error
}

func NewHandler(svc Services, opts Options) *Handler {
	if opts.APIKeyHeader == "" {
		opts.APIKeyHeader = "api-key"
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.Ping == nil {
		opts.Ping = func(context.Context) error { return nil }
	}
	return &Handler{
		auth:           svc.Auth,
		relations:      svc.Relations,
		tweets:         svc.Tweets,
		media:          svc.Media,
		feed:           svc.Feed,
		ping:           opts.Ping,
		apiKeyHeader:   opts.APIKeyHeader,
		maxUploadBytes: opts.MaxUploadBytes,
	}
}
