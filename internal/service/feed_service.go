package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// FeedService 读侧聚合：用户资料与推文列表
type FeedService interface {
	GetProfile(ctx context.Context, userID int64) (*model.Profile, error)
	ListTweets(ctx context.Context) ([]model.TweetView, error)
}

type feedService struct {
	store    *repository.Store
	profiles cache.ProfileCache
}

func NewFeedService(store *repository.Store, profiles cache.ProfileCache) FeedService {
	if profiles == nil {
		profiles = cache.Noop{}
	}
	return &feedService{store: store, profiles: profiles}
}

func (s *feedService) GetProfile(ctx context.Context, userID int64) (*model.Profile, error) {
	cached, gen, ok, err := s.profiles.Get(ctx, userID)
	if err != nil {
		logger.Warn("profile cache read failed", zap.Int64("user_id", userID), zap.Error(err))
	} else if ok {
		return cached, nil
	}
	// 未拿到代数时不回填，避免覆盖并发的失效
	fill := err == nil

	u, err := s.store.Users().FindByID(ctx, userID)
	if err != nil {
		return nil, wrapStore(fmt.Sprintf("user %d", userID), err)
	}
	followers, err := s.store.Follows().ListFollowers(ctx, userID)
	if err != nil {
		return nil, wrapStore("list followers", err)
	}
	following, err := s.store.Follows().ListFollowing(ctx, userID)
	if err != nil {
		return nil, wrapStore("list following", err)
	}

	p := &model.Profile{ID: u.ID, Name: u.Name, Followers: nonNil(followers), Following: nonNil(following)}
	if fill {
		if err := s.profiles.Set(ctx, p, gen); err != nil {
			logger.Warn("profile cache write failed", zap.Int64("user_id", userID), zap.Error(err))
		}
	}
	return p, nil
}

// ListTweets 全量返回，无分页
func (s *feedService) ListTweets(ctx context.Context) ([]model.TweetView, error) {
	tweets, err := s.store.Tweets().ListWithAuthorAndLikes(ctx)
	if err != nil {
		return nil, wrapStore("list tweets", err)
	}
	views := make([]model.TweetView, 0, len(tweets))
	for i := range tweets {
		views = append(views, model.NewTweetView(&tweets[i]))
	}
	return views, nil
}

func nonNil(refs []model.UserRef) []model.UserRef {
	if refs == nil {
		return []model.UserRef{}
	}
	return refs
}
