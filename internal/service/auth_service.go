package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// AuthService 将 api key 解析为用户身份
type AuthService interface {
	// Resolve 空字符串视为缺失；无匹配返回 ErrUnauthenticated，存储失败返回 *StoreError
	Resolve(ctx context.Context, apiKey string) (int64, error)
}

type authService struct {
	store *repository.Store
}

func NewAuthService(store *repository.Store) AuthService { return &authService{store: store} }

func (s *authService) Resolve(ctx context.Context, apiKey string) (int64, error) {
	if apiKey == "" {
		return 0, ErrUnauthenticated
	}
	u, err := s.store.Users().FindByAPIKey(ctx, apiKey)
	if errors.Is(err, repository.ErrNotFound) {
		logger.Debug("unknown api key", logger.MaskKey(apiKey))
		return 0, ErrUnauthenticated
	}
	if err != nil {
		return 0, &StoreError{Op: "resolve identity", Err: err}
	}
	logger.Debug("identity resolved", zap.Int64("user_id", u.ID))
	return u.ID, nil
}
