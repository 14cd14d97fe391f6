package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/internal/cache"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/testutil"
)

func TestRelationship_FollowUnfollowRoundTrip(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	b := testutil.CreateUser(t, db, "bob", "k2")
	svc := NewRelationshipService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	ok, err := svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, svc.Unfollow(ctx, a.ID, b.ID))
	ok, err = svc.IsFollowing(ctx, a.ID, b.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Outbox{}, "event_type = ?", model.EventFollowCreated))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Outbox{}, "event_type = ?", model.EventFollowRemoved))
}

func TestRelationship_FollowTwiceFailsWithAlreadyFollowing(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	b := testutil.CreateUser(t, db, "bob", "k2")
	svc := NewRelationshipService(store, nil)
	ctx := context.Background()

	require.NoError(t, svc.Follow(ctx, a.ID, b.ID))
	assert.ErrorIs(t, svc.Follow(ctx, a.ID, b.ID), ErrAlreadyFollowing)
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Follow{}, "follower_id = ? AND following_id = ?", a.ID, b.ID))
}

func TestRelationship_UnfollowWithoutEdge(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	b := testutil.CreateUser(t, db, "bob", "k2")
	svc := NewRelationshipService(store, nil)

	assert.ErrorIs(t, svc.Unfollow(context.Background(), a.ID, b.ID), ErrNotFollowing)
	assert.Zero(t, testutil.Count(t, db, &model.Outbox{}, "1 = 1"))
}

func TestRelationship_RejectsSelfAndUnknownTarget(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	svc := NewRelationshipService(store, nil)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Follow(ctx, a.ID, a.ID), ErrFollowSelf)
	assert.ErrorIs(t, svc.Follow(ctx, a.ID, a.ID+42), ErrNotFound)
	assert.Zero(t, testutil.Count(t, db, &model.Follow{}, "1 = 1"))
}

func TestRelationship_InsertRaceSurfacesConflict(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	b := testutil.CreateUser(t, db, "bob", "k2")

	// 模拟检查通过后另一请求抢先插入：插入时触发唯一约束错误
	require.NoError(t, db.Exec(`CREATE TRIGGER follows_race BEFORE INSERT ON follows
		BEGIN SELECT RAISE(ABORT, 'UNIQUE constraint failed: follows.follower_id, follows.following_id'); END;`).Error)

	err := NewRelationshipService(store, nil).Follow(context.Background(), a.ID, b.ID)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Zero(t, testutil.Count(t, db, &model.Outbox{}, "1 = 1"))
}

func TestRelationship_FollowInvalidatesCachedProfiles(t *testing.T) {
	store, db := newStore(t)
	a := testutil.CreateUser(t, db, "alice", "k1")
	b := testutil.CreateUser(t, db, "bob", "k2")

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	profiles := cache.NewRedisProfileCache(client, 0)

	feed := NewFeedService(store, profiles)
	rel := NewRelationshipService(store, profiles)
	ctx := context.Background()

	p, err := feed.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Empty(t, p.Followers)
	assert.True(t, mr.Exists(fmt.Sprintf("profile:%d", a.ID)))

	require.NoError(t, rel.Follow(ctx, b.ID, a.ID))

	p, err = feed.GetProfile(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.UserRef{{ID: b.ID, Name: "bob"}}, p.Followers)

	p, err = feed.GetProfile(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, []model.UserRef{{ID: a.ID, Name: "alice"}}, p.Following)
}
