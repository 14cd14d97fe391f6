// Package seed 预置用户与关注关系；重复执行不会产生重复数据
package seed

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/d60-Lab/microblog/config"
	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/internal/repository"
	"github.com/d60-Lab/microblog/pkg/logger"
)

// Apply 写入配置中的用户与关注关系，已存在的跳过
func Apply(ctx context.Context, store *repository.Store, cfg config.SeedConfig) error {
	if len(cfg.Users) == 0 && len(cfg.Follows) == 0 {
		return nil
	}
	return store.Transaction(ctx, func(tx *repository.Store) error {
		created := 0
		for _, su := range cfg.Users {
			if su.Name == "" || su.APIKey == "" {
				return fmt.Errorf("seed user %q: name and api_key are required", su.Name)
			}
			_, err := tx.Users().FindByName(ctx, su.Name)
			if err == nil {
				continue
			}
			if !errors.Is(err, repository.ErrNotFound) {
				return err
			}
			if err := tx.Users().Create(ctx, &model.User{Name: su.Name, APIKey: su.APIKey}); err != nil {
				return fmt.Errorf("seed user %q: %w", su.Name, err)
			}
			created++
		}

		edges := 0
		for _, sf := range cfg.Follows {
			follower, err := tx.Users().FindByName(ctx, sf.Follower)
			if err != nil {
				return fmt.Errorf("seed follow: follower %q: %w", sf.Follower, err)
			}
			following, err := tx.Users().FindByName(ctx, sf.Following)
			if err != nil {
				return fmt.Errorf("seed follow: following %q: %w", sf.Following, err)
			}
			if follower.ID == following.ID {
				return fmt.Errorf("seed follow: %q cannot follow itself", sf.Follower)
			}
			ok, err := tx.Follows().Exists(ctx, follower.ID, following.ID)
			if err != nil {
				return err
			}
			if ok {
				continue
			}
			if err := tx.Follows().Create(ctx, follower.ID, following.ID); err != nil {
				return err
			}
			edges++
		}
		logger.Info("seed applied", zap.Int("users", created), zap.Int("follows", edges))
		return nil
	})
}

// Fake 生成 n 个随机用户，api key 为 uuid
func Fake(ctx context.Context, store *repository.Store, faker *gofakeit.Faker, n int) ([]model.User, error) {
	users := make([]model.User, 0, n)
	for len(users) < n {
		u := model.User{Name: fakeName(faker), APIKey: uuid.NewString()}
		err := store.Users().Create(ctx, &u)
		if errors.Is(err, repository.ErrDuplicate) {
			continue
		}
		if err != nil {
			return users, err
		}
		users = append(users, u)
	}
	return users, nil
}

func fakeName(f *gofakeit.Faker) string {
	name := strings.ToLower(f.Username()) + fmt.Sprintf("_%04d", f.Number(0, 9999))
	if len(name) > 50 {
		name = name[len(name)-50:]
	}
	return name
}
