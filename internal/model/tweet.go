package model

import "time"

const MaxTweetLength = 280

// Tweet 推文，内容创建后不可修改
type Tweet struct {
	ID        int64     `gorm:"primaryKey;autoIncrement"`
	Content   string    `gorm:"type:varchar(280);not null"`
	UserID    int64     `gorm:"not null;index:idx_tweet_user"`
	CreatedAt time.Time `gorm:"not null"`

	Author User    `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Likes  []Like  `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE"`
	Media  []Media `gorm:"foreignKey:TweetID;constraint:OnDelete:CASCADE"`
}

func (Tweet) TableName() string { return "tweets" }
