package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/microblog/internal/model"
)

type OutboxRepository interface {
	Append(ctx context.Context, eventType string, aggregateID int64, payload any) error
	// ClaimPending 认领一批 pending 或租期已过的 processing 事件，置为 processing 并记录认领时间
	ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.Outbox, error)
	MarkDone(ctx context.Context, id string) error
	// MarkRetry attempts 未达上限时回到 pending，否则置为 failed
	MarkRetry(ctx context.Context, id string, maxAttempts int) error
}

type outboxRepository struct {
	db *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) OutboxRepository { return &outboxRepository{db: db} }

func (r *outboxRepository) Append(ctx context.Context, eventType string, aggregateID int64, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	out := &model.Outbox{
		ID:          uuid.New().String(),
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     string(data),
		Status:      model.OutboxPending,
		CreatedAt:   time.Now().UTC(),
	}
	return r.db.WithContext(ctx).Create(out).Error
}

func (r *outboxRepository) ClaimPending(ctx context.Context, limit int, lease time.Duration) ([]model.Outbox, error) {
	now := time.Now().UTC()
	var batch []model.Outbox
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// sqlite 方言会忽略行锁子句
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ? OR (status = ? AND claimed_at < ?)",
				model.OutboxPending, model.OutboxProcessing, now.Add(-lease)).
			Order("created_at").
			Limit(limit).
			Find(&batch).Error; err != nil {
			return err
		}
		if len(batch) == 0 {
			return nil
		}
		ids := make([]string, len(batch))
		for i, b := range batch {
			ids[i] = b.ID
		}
		return tx.Model(&model.Outbox{}).Where("id IN ?", ids).
			Updates(map[string]any{"status": model.OutboxProcessing, "claimed_at": now}).Error
	})
	if err != nil {
		return nil, err
	}
	return batch, nil
}

func (r *outboxRepository) MarkDone(ctx context.Context, id string) error {
	now := time.Now().UTC()
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": model.OutboxDone, "processed_at": now}).Error
}

func (r *outboxRepository) MarkRetry(ctx context.Context, id string, maxAttempts int) error {
	return r.db.WithContext(ctx).Model(&model.Outbox{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"attempts": gorm.Expr("attempts + 1"),
			"status": gorm.Expr("CASE WHEN attempts + 1 >= ? THEN ? ELSE ? END",
				maxAttempts, model.OutboxFailed, model.OutboxPending),
		}).Error
}
