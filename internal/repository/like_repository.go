package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type LikeRepository interface {
	// Create 幂等：重复点赞返回已有记录 id，created=false
	Create(ctx context.Context, userID, tweetID int64) (id int64, created bool, err error)
	Delete(ctx context.Context, userID, tweetID int64) (int64, error)
	DeleteByTweet(ctx context.Context, tweetID int64) (int64, error)
	CountByTweet(ctx context.Context, tweetID int64) (int64, error)
}

type likeRepository struct {
	db *gorm.DB
}

func NewLikeRepository(db *gorm.DB) LikeRepository { return &likeRepository{db: db} }

func (r *likeRepository) Create(ctx context.Context, userID, tweetID int64) (int64, bool, error) {
	l := &model.Like{UserID: userID, TweetID: tweetID}
	res := r.db.WithContext(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(l)
	if res.Error != nil {
		return 0, false, translate(res.Error)
	}
	if res.RowsAffected > 0 {
		return l.ID, true, nil
	}

	var existing model.Like
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Take(&existing).Error; err != nil {
		return 0, false, translate(err)
	}
	return existing.ID, false, nil
}

func (r *likeRepository) Delete(ctx context.Context, userID, tweetID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND tweet_id = ?", userID, tweetID).
		Delete(&model.Like{})
	return res.RowsAffected, res.Error
}

func (r *likeRepository) DeleteByTweet(ctx context.Context, tweetID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("tweet_id = ?", tweetID).Delete(&model.Like{})
	return res.RowsAffected, res.Error
}

func (r *likeRepository) CountByTweet(ctx context.Context, tweetID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&model.Like{}).Where("tweet_id = ?", tweetID).Count(&cnt).Error
	return cnt, err
}
