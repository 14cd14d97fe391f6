package model

import "time"

// Follow 关注关系（Follower 关注 Following）
type Follow struct {
	ID          int64 `gorm:"primaryKey;autoIncrement"`
	FollowerID  int64 `gorm:"not null;index:idx_follow_follower;uniqueIndex:idx_follow_pair"`
	FollowingID int64 `gorm:"not null;index:idx_follow_following;uniqueIndex:idx_follow_pair"`
	// 复合唯一键，避免重复关注
	// idx_follow_pair = (follower_id, following_id)
	CreatedAt time.Time

	Follower  User `gorm:"foreignKey:FollowerID;constraint:OnDelete:CASCADE"`
	Following User `gorm:"foreignKey:FollowingID;constraint:OnDelete:CASCADE"`
}

func (Follow) TableName() string { return "follows" }
