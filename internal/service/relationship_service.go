package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// RelationshipService 关系链服务
type RelationshipService interface {
	IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error)
	Follow(ctx context.Context, followerID, followingID int64) error
	Unfollow(ctx context.Context, followerID, followingID int64) error
}

// FollowEvent follow.created / follow.removed 的事件体
type FollowEvent struct {
	FollowerID  int64 `json:"follower_id"`
	FollowingID int64 `json:"following_id"`
}

type relationshipService struct {
	store    *repository.Store
	profiles cache.ProfileCache
}

func NewRelationshipService(store *repository.Store, profiles cache.ProfileCache) RelationshipService {
	if profiles == nil {
		profiles = cache.Noop{}
	}
	return &relationshipService{store: store, profiles: profiles}
}

func (s *relationshipService) IsFollowing(ctx context.Context, followerID, followingID int64) (bool, error) {
	ok, err := s.store.Follows().Exists(ctx, followerID, followingID)
	if err != nil {
		return false, wrapStore("is following", err)
	}
	return ok, nil
}

// Follow 先检查再插入；检查与插入之间的并发重复由唯一索引兜底，返回 ErrConflict
func (s *relationshipService) Follow(ctx context.Context, followerID, followingID int64) error {
	if followerID == followingID {
		return ErrFollowSelf
	}
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		exists, err := tx.Users().Exists(ctx, followingID)
		if err != nil {
			return err
		}
		if !exists {
			return fmt.Errorf("user %d: %w", followingID, ErrNotFound)
		}
		following, err := tx.Follows().Exists(ctx, followerID, followingID)
		if err != nil {
			return err
		}
		if following {
			return ErrAlreadyFollowing
		}
		if err := tx.Follows().Create(ctx, followerID, followingID); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrConflict
			}
			return err
		}
		return tx.Outbox().Append(ctx, model.EventFollowCreated, followerID, FollowEvent{followerID, followingID})
	})
	if err != nil {
		return wrapStore("follow", err)
	}
	s.invalidate(ctx, followerID, followingID)
	logger.Info("follow created", zap.Int64("follower_id", followerID), zap.Int64("following_id", followingID))
	return nil
}

// Unfollow 关系不存在时返回 ErrNotFollowing，不做幂等处理
func (s *relationshipService) Unfollow(ctx context.Context, followerID, followingID int64) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		following, err := tx.Follows().Exists(ctx, followerID, followingID)
		if err != nil {
			return err
		}
		if !following {
			return ErrNotFollowing
		}
		n, err := tx.Follows().Delete(ctx, followerID, followingID)
		if err != nil {
			return err
		}
		if n == 0 {
			// 并发 unfollow 已经删除
			return ErrNotFollowing
		}
		return tx.Outbox().Append(ctx, model.EventFollowRemoved, followerID, FollowEvent{followerID, followingID})
	})
	if err != nil {
		return wrapStore("unfollow", err)
	}
	s.invalidate(ctx, followerID, followingID)
	logger.Info("follow removed", zap.Int64("follower_id", followerID), zap.Int64("following_id", followingID))
	return nil
}

// invalidate 提交后清理双方资料缓存；失败只记录日志，由 TTL 兜底
func (s *relationshipService) invalidate(ctx context.Context, userIDs ...int64) {
	if err := s.profiles.Invalidate(ctx, userIDs...); err != nil {
		logger.Warn("profile cache invalidate failed", zap.Int64s("user_ids", userIDs), zap.Error(err))
	}
}
