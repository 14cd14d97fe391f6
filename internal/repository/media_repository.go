package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/microblog/internal/model"
)

type MediaRepository interface {
	Create(ctx context.Context, m *model.Media) error
	FindByURL(ctx context.Context, url string) (*model.Media, error)
	SetStorageKey(ctx context.Context, id int64, key string) error
	// AttachToTweet 仅绑定尚未绑定的图片，返回实际更新的行数
	AttachToTweet(ctx context.Context, ids []int64, tweetID int64) (int64, error)
	DeleteByTweet(ctx context.Context, tweetID int64) (int64, error)
}

type mediaRepository struct {
	db *gorm.DB
}

func NewMediaRepository(db *gorm.DB) MediaRepository { return &mediaRepository{db: db} }

func (r *mediaRepository) Create(ctx context.Context, m *model.Media) error {
	return translate(r.db.WithContext(ctx).Create(m).Error)
}

func (r *mediaRepository) FindByURL(ctx context.Context, url string) (*model.Media, error) {
	var m model.Media
	if err := r.db.WithContext(ctx).Where("url = ?", url).Take(&m).Error; err != nil {
		return nil, translate(err)
	}
	return &m, nil
}

func (r *mediaRepository) SetStorageKey(ctx context.Context, id int64, key string) error {
	return r.db.WithContext(ctx).Model(&model.Media{}).Where("id = ?", id).Update("storage_key", key).Error
}

func (r *mediaRepository) AttachToTweet(ctx context.Context, ids []int64, tweetID int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).
		Model(&model.Media{}).
		Where("id IN ? AND tweet_id IS NULL", ids).
		Update("tweet_id", tweetID)
	return res.RowsAffected, res.Error
}

func (r *mediaRepository) DeleteByTweet(ctx context.Context, tweetID int64) (int64, error) {
	res := r.db.WithContext(ctx).Where("tweet_id = ?", tweetID).Delete(&model.Media{})
	return res.RowsAffected, res.Error
}
