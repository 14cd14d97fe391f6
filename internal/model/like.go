package model

import "time"

// Like 点赞；(user_id, tweet_id) 唯一
type Like struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	UserID    int64     `gorm:"not null;uniqueIndex:idx_like_pair"`
	TweetID   int64     `gorm:"not null;index:idx_like_tweet;uniqueIndex:idx_like_pair"`
	CreatedAt time.Time `gorm:"not null"`

	User User `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

func (Like) TableName() string { return "likes" }
