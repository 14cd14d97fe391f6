package seed

import (
	"context"
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/internal/testutil"
)

func TestApply_IsIdempotent(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	cfg := config.SeedConfig{
		Users: []config.SeedUser{
			{Name: "alice", APIKey: "test"},
			{Name: "bob", APIKey: "test2"},
		},
		Follows: []config.SeedFollow{{Follower: "bob", Following: "alice"}},
	}

	require.NoError(t, Apply(context.Background(), store, cfg))
	require.NoError(t, Apply(context.Background(), store, cfg))

	assert.Equal(t, int64(2), testutil.Count(t, db, &model.User{}, "1 = 1"))
	assert.Equal(t, int64(1), testutil.Count(t, db, &model.Follow{}, "1 = 1"))

	alice, err := store.Users().FindByAPIKey(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, "alice", alice.Name)
}

func TestApply_RollsBackOnUnknownUser(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)
	cfg := config.SeedConfig{
		Users:   []config.SeedUser{{Name: "alice", APIKey: "k1"}},
		Follows: []config.SeedFollow{{Follower: "alice", Following: "ghost"}},
	}

	err := Apply(context.Background(), store, cfg)
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.Zero(t, testutil.Count(t, db, &model.User{}, "1 = 1"))
}

func TestFake(t *testing.T) {
	db := testutil.NewDB(t)
	store := repository.NewStore(db)

	users, err := Fake(context.Background(), store, gofakeit.New(42), 20)
	require.NoError(t, err)
	require.Len(t, users, 20)

	seen := map[string]bool{}
	for _, u := range users {
		assert.NotZero(t, u.ID)
		assert.LessOrEqual(t, len(u.Name), 50)
		assert.Len(t, u.APIKey, 36)
		assert.False(t, seen[u.Name])
		seen[u.Name] = true
	}
	assert.Equal(t, int64(20), testutil.Count(t, db, &model.User{}, "1 = 1"))
}
