package events

import (
	"context"
	"time"

	k "github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/pkg/logger"
)

// Sink 事件下游
type Sink interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}

// KafkaSink 按 PartitionKey 哈希分区。
// 投递至少一次且不保证顺序：多个 worker 并发投递，重试的事件会排在后写入的事件之后，
// 回写失败或租期过期还会重复投递；消费端按 Envelope.ID 去重，按事件自身内容判断先后

type KafkaSink struct {
	w *k.Writer
}

func NewKafkaSink(brokers []string, topic string) *KafkaSink {
	return &KafkaSink{w: &k.Writer{
		Addr:         k.TCP(brokers...),
		Topic:        topic,
		Balancer:     &k.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: k.RequireOne,
	}}
}

func (s *KafkaSink) Publish(ctx context.Context, key string, value []byte) error {
	return s.w.WriteMessages(ctx, k.Message{
		Key:   []byte(key),
		Value: value,
		Time:  time.Now(),
	})
}

func (s *KafkaSink) Close() error { return s.w.Close() }

// LogSink 未配置 kafka 时仅记录日志
type LogSink struct{}

func (LogSink) Publish(_ context.Context, key string, value []byte) error {
	logger.Debug("event", zap.String("key", key), zap.ByteString("value", value))
	return nil
}

func (LogSink) Close() error { return nil }
