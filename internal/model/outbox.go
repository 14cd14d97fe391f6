package model

import "time"

const (
	OutboxPending    = "pending"
	OutboxProcessing = "processing"
	OutboxDone       = "done"
	OutboxFailed     = "failed"
)

// 领域事件类型
const (
	EventTweetCreated  = "tweet.created"
	EventTweetDeleted  = "tweet.deleted"
	EventLikeAdded     = "like.added"
	EventLikeRemoved   = "like.removed"
	EventFollowCreated = "follow.created"
	EventFollowRemoved = "follow.removed"
)

// Outbox 事件外发盒，与业务写入同一事务落地
type Outbox struct {
	ID          string    `gorm:"primaryKey;type:varchar(36)"`
	EventType   string    `gorm:"type:varchar(32);not null"`
	AggregateID int64     `gorm:"index:idx_outbox_aggregate"`
	Payload     string    `gorm:"type:text;not null"`
	Status      string    `gorm:"type:varchar(16);index:idx_outbox_status_created"`
	CreatedAt   time.Time `gorm:"index:idx_outbox_status_created"`
	// ClaimedAt 最近一次被认领的时间，processing 超过租期视为认领者已失联
	ClaimedAt   *time.Time
	ProcessedAt *time.Time
	Attempts    int
}

func (Outbox) TableName() string { return "outbox" }
