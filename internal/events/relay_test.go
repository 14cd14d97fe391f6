package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/testutil"
)

type recordingSink struct {
	mu   sync.Mutex
	keys []string
	msgs []Envelope
	fail bool
}

func (s *recordingSink) Publish(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("broker unavailable")
	}
	var env Envelope
	if err := json.Unmarshal(value, &env); err != nil {
		return err
	}
	s.keys = append(s.keys, key)
	s.msgs = append(s.msgs, env)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.msgs)
}

func testConfig(poll time.Duration) config.EventsConfig {
	return config.EventsConfig{Workers: 1, ClaimLimit: 10, PollInterval: poll, ClaimLease: time.Minute}
}

// flakyOutbox 对指定 id 的 MarkDone 返回错误
type flakyOutbox struct {
	repository.OutboxRepository
	failDone string
}

func (o *flakyOutbox) MarkDone(ctx context.Context, id string) error {
	if id == o.failDone {
		return errors.New("connection reset")
	}
	return o.OutboxRepository.MarkDone(ctx, id)
}

func TestRelay_ProcessOnceDelivers(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	ctx := context.Background()
	require.NoError(t, outbox.Append(ctx, model.EventTweetCreated, 7, map[string]any{"tweet_id": 7}))
	require.NoError(t, outbox.Append(ctx, model.EventFollowCreated, 3, map[string]any{"follower_id": 3}))

	sink := &recordingSink{}
	relay := NewRelay(outbox, sink, testConfig(time.Millisecond))

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.ElementsMatch(t, []string{"tweet:7", "user:3"}, sink.keys)
	for _, env := range sink.msgs {
		assert.NotEmpty(t, env.ID)
		assert.NotEmpty(t, env.Payload)
	}
	assert.Equal(t, int64(2), testutil.Count(t, db, &model.Outbox{}, "status = ?", model.OutboxDone))

	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRelay_FailedDeliveryIsRetried(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	ctx := context.Background()
	require.NoError(t, outbox.Append(ctx, model.EventLikeAdded, 1, map[string]any{"user_id": 2}))

	sink := &recordingSink{fail: true}
	relay := NewRelay(outbox, sink, testConfig(time.Millisecond))

	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Outbox{}, "status = ? AND attempts = 1", model.OutboxPending))

	sink.fail = false
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRelay_StartAndStop(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	require.NoError(t, outbox.Append(context.Background(), model.EventTweetDeleted, 9, map[string]any{"tweet_id": 9}))

	sink := &recordingSink{}
	stop := NewRelay(outbox, sink, testConfig(5*time.Millisecond)).Start()

	assert.Eventually(t, func() bool { return sink.count() == 1 }, 2*time.Second, 10*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, stop(ctx))
}

func TestRelay_MarkFailureDoesNotAbandonBatch(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, outbox.Append(ctx, model.EventTweetCreated, i, map[string]any{"tweet_id": i}))
	}
	var first model.Outbox
	require.NoError(t, db.Order("created_at").First(&first).Error)

	sink := &recordingSink{}
	relay := NewRelay(&flakyOutbox{OutboxRepository: outbox, failDone: first.ID}, sink, testConfig(time.Millisecond))

	n, err := relay.ProcessOnce(ctx)
	assert.Error(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, 3, sink.count())
	assert.Equal(t, int64(2), testutil.Count(t, db, &model.Outbox{}, "status = ?", model.OutboxDone))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Outbox{}, "status = ?", model.OutboxProcessing))
}

func TestRelay_RecoversRowsFromLostClaim(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	ctx := context.Background()
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, outbox.Append(ctx, model.EventLikeAdded, i, map[string]any{"tweet_id": i}))
	}

	// 认领后进程退出，没有任何回写
	lost, err := outbox.ClaimPending(ctx, 10, time.Minute)
	require.NoError(t, err)
	require.Len(t, lost, 3)

	sink := &recordingSink{}
	relay := NewRelay(outbox, sink, testConfig(time.Millisecond))
	n, err := relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, db.Model(&model.Outbox{}).Where("status = ?", model.OutboxProcessing).
		Update("claimed_at", time.Now().UTC().Add(-time.Hour)).Error)
	n, err = relay.ProcessOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, int64(3), testutil.Count(t, db, &model.Outbox{}, "status = ?", model.OutboxDone))
}

// failFirstSink 第一次投递失败，之后转交给 recordingSink
type failFirstSink struct {
	*recordingSink
	failed bool
}

func (s *failFirstSink) Publish(ctx context.Context, key string, value []byte) error {
	if !s.failed {
		s.failed = true
		return errors.New("leader not available")
	}
	return s.recordingSink.Publish(ctx, key, value)
}

func TestRelay_RetriedEventLandsAfterLaterOne(t *testing.T) {
	db := testutil.NewDB(t)
	outbox := repository.NewOutboxRepository(db)
	ctx := context.Background()
	require.NoError(t, outbox.Append(ctx, model.EventLikeAdded, 1, map[string]any{"user_id": 2}))
	var like model.Outbox
	require.NoError(t, db.Take(&like).Error)
	require.NoError(t, outbox.Append(ctx, model.EventLikeRemoved, 1, map[string]any{"user_id": 2}))

	sink := &failFirstSink{recordingSink: &recordingSink{}}
	relay := NewRelay(outbox, sink, testConfig(time.Millisecond))
	for i := 0; i < 2; i++ {
		_, err := relay.ProcessOnce(ctx)
		require.NoError(t, err)
	}

	// 同一推文的事件：取消点赞先于点赞到达
	require.Len(t, sink.msgs, 2)
	assert.Equal(t, []string{"tweet:1", "tweet:1"}, sink.keys)
	assert.Equal(t, model.EventLikeRemoved, sink.msgs[0].Type)
	assert.Equal(t, model.EventLikeAdded, sink.msgs[1].Type)
	assert.Equal(t, like.ID, sink.msgs[1].ID)
}

func TestPartitionKey(t *testing.T) {
	assert.Equal(t, "user:4", PartitionKey(model.EventFollowRemoved, 4))
	assert.Equal(t, "tweet:4", PartitionKey(model.EventLikeRemoved, 4))
}
