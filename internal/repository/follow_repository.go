package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type FollowRepository interface {
	Create(ctx context.Context, followerID, followingID int64) error
	Delete(ctx context.Context, followerID, followingID int64) (int64, error)
	Exists(ctx context.Context, followerID, followingID int64) (bool, error)
	ListFollowers(ctx context.Context, userID int64) ([]model.UserRef, error)
	ListFollowing(ctx context.Context, userID int64) ([]model.UserRef, error)
}

type followRepository struct {
	db *gorm.DB
}

func NewFollowRepository(db *gorm.DB) FollowRepository { return &followRepository{db: db} }

// Create 重复关注由唯一索引 idx_follow_pair 拒绝，返回 ErrDuplicate
func (r *followRepository) Create(ctx context.Context, followerID, followingID int64) error {
	f := &model.Follow{FollowerID: followerID, FollowingID: followingID}
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Create(f).Error)
}

func (r *followRepository) Delete(ctx context.Context, followerID, followingID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Delete(&model.Follow{})
	return res.RowsAffected, res.Error
}

// Exists 按计数判断，容忍历史遗留的重复行
func (r *followRepository) Exists(ctx context.Context, followerID, followingID int64) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// ListFollowers 关注了 userID 的用户
func (r *followRepository) ListFollowers(ctx context.Context, userID int64) ([]model.UserRef, error) {
	rows := make([]model.UserRef, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id", "users.name").
		Joins("JOIN follows ON follows.follower_id = users.id").
		Where("follows.following_id = ?", userID).
		Scan(&rows).Error
	return rows, err
}

// ListFollowing userID 关注的用户
func (r *followRepository) ListFollowing(ctx context.Context, userID int64) ([]model.UserRef, error) {
	rows := make([]model.UserRef, 0)
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.id", "users.name").
		Joins("JOIN follows ON follows.following_id = users.id").
		Where("follows.follower_id = ?", userID).
		Scan(&rows).Error
	return rows, err
}
