package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

const maxAttempts = 5

var (
	publishedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "microblog",
		Subsystem: "outbox",
		Name:      "published_total",
		Help:      "Outbox events delivered to the sink.",
	}, []string{"event_type"})
	failedTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "microblog",
		Subsystem: "outbox",
		Name:      "failed_total",
		Help:      "Outbox delivery attempts that failed.",
	}, []string{"event_type"})
	landingSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "microblog",
		Subsystem: "outbox",
		Name:      "landing_seconds",
		Help:      "Delay between an outbox row being written and delivered.",
		Buckets:   prometheus.DefBuckets,
	})
)

// MustRegister 注册 relay 指标
func MustRegister(reg prometheus.Registerer) {
	reg.MustRegister(publishedTotal, failedTotal, landingSeconds)
}

// Envelope 下游收到的消息体
type Envelope struct {
	ID          string          `json:"id"`
	Type        string          `json:"type"`
	AggregateID int64           `json:"aggregate_id"`
	OccurredAt  time.Time       `json:"occurred_at"`
	Payload     json.RawMessage `json:"payload"`
}

// Relay 轮询 outbox 并投递到 Sink
type Relay struct {
	outbox       repository.OutboxRepository
	sink         Sink
	workers      int
	claimLimit   int
	pollInterval time.Duration
	claimLease   time.Duration
}

func NewRelay(outbox repository.OutboxRepository, sink Sink, cfg config.EventsConfig) *Relay {
	r := &Relay{
		outbox:       outbox,
		sink:         sink,
		workers:      cfg.Workers,
		claimLimit:   cfg.ClaimLimit,
		pollInterval: cfg.PollInterval,
		claimLease:   cfg.ClaimLease,
	}
	if r.workers <= 0 {
		r.workers = 2
	}
	if r.claimLimit <= 0 {
		r.claimLimit = 128
	}
	if r.pollInterval <= 0 {
		r.pollInterval = 200 * time.Millisecond
	}
	if r.claimLease <= 0 {
		r.claimLease = 30 * time.Second
	}
	return r
}

// Start 启动若干 worker；返回的停止函数等待 worker 退出或 ctx 超时
func (r *Relay) Start() func(context.Context) error {
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go func() {
			defer wg.Done()
			r.loop(stop)
		}()
	}
	return func(ctx context.Context) error {
		close(stop)
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (r *Relay) loop(stop <-chan struct{}) {
	ticker := time.NewTicker(r.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			if _, err := r.ProcessOnce(context.Background()); err != nil {
				logger.Warn("outbox relay pass failed", zap.Error(err))
			}
		}
	}
}

// ProcessOnce 认领一批事件并逐条投递，返回成功投递数。
// 状态回写失败不会中断本批，留在 processing 的行在租期过后重新认领
func (r *Relay) ProcessOnce(ctx context.Context) (int, error) {
	batch, err := r.outbox.ClaimPending(ctx, r.claimLimit, r.claimLease)
	if err != nil {
		return 0, fmt.Errorf("claim outbox: %w", err)
	}
	delivered := 0
	var markErrs []error
	for _, ob := range batch {
		if err := r.deliver(ctx, ob); err != nil {
			failedTotal.WithLabelValues(ob.EventType).Inc()
			logger.Warn("outbox delivery failed", zap.String("id", ob.ID), zap.String("type", ob.EventType), zap.Error(err))
			if rerr := r.outbox.MarkRetry(ctx, ob.ID, maxAttempts); rerr != nil {
				logger.Error("outbox mark retry failed", zap.String("id", ob.ID), zap.Error(rerr))
				markErrs = append(markErrs, fmt.Errorf("mark retry %s: %w", ob.ID, rerr))
			}
			continue
		}
		// 已投递，回写失败只会导致重复投递
		delivered++
		if err := r.outbox.MarkDone(ctx, ob.ID); err != nil {
			logger.Error("outbox mark done failed", zap.String("id", ob.ID), zap.Error(err))
			markErrs = append(markErrs, fmt.Errorf("mark done %s: %w", ob.ID, err))
		}
		publishedTotal.WithLabelValues(ob.EventType).Inc()
		if !ob.CreatedAt.IsZero() {
			landingSeconds.Observe(time.Since(ob.CreatedAt).Seconds())
		}
	}
	return delivered, errors.Join(markErrs...)
}

func (r *Relay) deliver(ctx context.Context, ob model.Outbox) error {
	value, err := json.Marshal(Envelope{
		ID:          ob.ID,
		Type:        ob.EventType,
		AggregateID: ob.AggregateID,
		OccurredAt:  ob.CreatedAt,
		Payload:     json.RawMessage(ob.Payload),
	})
	if err != nil {
		return err
	}
	return r.sink.Publish(ctx, PartitionKey(ob.EventType, ob.AggregateID), value)
}

// PartitionKey 推文与点赞事件按推文分区，关注事件按关注者分区
func PartitionKey(eventType string, aggregateID int64) string {
	switch eventType {
	case model.EventFollowCreated, model.EventFollowRemoved:
		return fmt.Sprintf("user:%d", aggregateID)
	}
	return fmt.Sprintf("tweet:%d", aggregateID)
}
