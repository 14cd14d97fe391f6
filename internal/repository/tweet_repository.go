package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type TweetRepository interface {
	Create(ctx context.Context, t *model.Tweet) error
	FindByID(ctx context.Context, id int64) (*model.Tweet, error)
	Delete(ctx context.Context, id int64) (int64, error)
	ListWithAuthorAndLikes(ctx context.Context) ([]model.Tweet, error)
}

type tweetRepository struct {
	db *gorm.DB
}

func NewTweetRepository(db *gorm.DB) TweetRepository { return &tweetRepository{db: db} }

// Create 写入后 t.ID 即为生成的主键
func (r *tweetRepository) Create(ctx context.Context, t *model.Tweet) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(t).Error)
}

func (r *tweetRepository) FindByID(ctx context.Context, id int64) (*model.Tweet, error) {
	var t model.Tweet
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&t).Error; err != nil {
		return nil, translate(err)
	}
	return &t, nil
}

func (r *tweetRepository) Delete(ctx context.Context, id int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.Tweet{})
	return res.RowsAffected, res.Error
}

// ListWithAuthorAndLikes 全表读取并预加载作者、点赞与图片，按 id 升序
func (r *tweetRepository) ListWithAuthorAndLikes(ctx context.Context) ([]model.Tweet, error) {
	var tweets []model.Tweet
	err := r.db.WithContext(ctx).
		Preload("Author").
		Preload("Likes", func(db *gorm.DB) *gorm.DB { return db.Order("likes.id") }).
		Preload("Media", func(db *gorm.DB) *gorm.DB { return db.Order("media.id") }).
		Order("tweets.id ASC").
		Find(&tweets).Error
	return tweets, err
}
