package service

import (
	"context"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// TweetService 推文与点赞
type TweetService interface {
	CreateTweet(ctx context.Context, in CreateTweetInput) (int64, error)
	DeleteTweet(ctx context.Context, actorID, tweetID int64) error
	AddLike(ctx context.Context, userID, tweetID int64) (int64, error)
	RemoveLike(ctx context.Context, userID, tweetID int64) error
}

type CreateTweetInput struct {
	AuthorID int64   `validate:"required,gt=0"`
	Content  string  `validate:"required,max=280"`
	MediaIDs []int64 `validate:"dive,gt=0"`
}

type TweetEvent struct {
	TweetID  int64   `json:"tweet_id"`
	AuthorID int64   `json:"author_id"`
	MediaIDs []int64 `json:"media_ids,omitempty"`
}

type LikeEvent struct {
	LikeID  int64 `json:"like_id,omitempty"`
	UserID  int64 `json:"user_id"`
	TweetID int64 `json:"tweet_id"`
}

type tweetService struct {
	store    *repository.Store
	validate *validator.Validate
}

func NewTweetService(store *repository.Store) TweetService {
	return &tweetService{store: store, validate: validator.New()}
}

// CreateTweet 推文写入、图片绑定与事件在同一事务内完成
func (s *tweetService) CreateTweet(ctx context.Context, in CreateTweetInput) (int64, error) {
	if err := s.validate.Struct(in); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	mediaIDs := uniqueIDs(in.MediaIDs)

	var tweetID int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		t := &model.Tweet{UserID: in.AuthorID, Content: in.Content}
		if err := tx.Tweets().Create(ctx, t); err != nil {
			return err
		}
		n, err := tx.Media().AttachToTweet(ctx, mediaIDs, t.ID)
		if err != nil {
			return err
		}
		if n != int64(len(mediaIDs)) {
			return fmt.Errorf("media %v unknown or already attached: %w", mediaIDs, ErrNotFound)
		}
		tweetID = t.ID
		return tx.Outbox().Append(ctx, model.EventTweetCreated, t.ID, TweetEvent{t.ID, in.AuthorID, mediaIDs})
	})
	if err != nil {
		return 0, wrapStore("create tweet", err)
	}
	logger.Info("tweet created", zap.Int64("tweet_id", tweetID), zap.Int64("author_id", in.AuthorID), zap.Int("media", len(mediaIDs)))
	return tweetID, nil
}

// DeleteTweet 仅作者可删；依次删除点赞、图片、推文
func (s *tweetService) DeleteTweet(ctx context.Context, actorID, tweetID int64) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		t, err := tx.Tweets().FindByID(ctx, tweetID)
		if err != nil {
			return err
		}
		if t.UserID != actorID {
			return fmt.Errorf("tweet %d owned by another user: %w", tweetID, ErrForbidden)
		}
		if _, err := tx.Likes().DeleteByTweet(ctx, tweetID); err != nil {
			return err
		}
		if _, err := tx.Media().DeleteByTweet(ctx, tweetID); err != nil {
			return err
		}
		if _, err := tx.Tweets().Delete(ctx, tweetID); err != nil {
			return err
		}
		return tx.Outbox().Append(ctx, model.EventTweetDeleted, tweetID, TweetEvent{TweetID: tweetID, AuthorID: actorID})
	})
	if err != nil {
		return wrapStore("delete tweet", err)
	}
	logger.Info("tweet deleted", zap.Int64("tweet_id", tweetID), zap.Int64("actor_id", actorID))
	return nil
}

// AddLike 重复点赞返回已有 like id
func (s *tweetService) AddLike(ctx context.Context, userID, tweetID int64) (int64, error) {
	var likeID int64
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		if _, err := tx.Tweets().FindByID(ctx, tweetID); err != nil {
			return err
		}
		id, created, err := tx.Likes().Create(ctx, userID, tweetID)
		if err != nil {
			return err
		}
		likeID = id
		if !created {
			return nil
		}
		return tx.Outbox().Append(ctx, model.EventLikeAdded, tweetID, LikeEvent{id, userID, tweetID})
	})
	if err != nil {
		return 0, wrapStore("add like", err)
	}
	return likeID, nil
}

// RemoveLike 无匹配记录时同样视为成功
func (s *tweetService) RemoveLike(ctx context.Context, userID, tweetID int64) error {
	err := s.store.Transaction(ctx, func(tx *repository.Store) error {
		n, err := tx.Likes().Delete(ctx, userID, tweetID)
		if err != nil || n == 0 {
			return err
		}
		return tx.Outbox().Append(ctx, model.EventLikeRemoved, tweetID, LikeEvent{UserID: userID, TweetID: tweetID})
	})
	return wrapStore("remove like", err)
}

func uniqueIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
