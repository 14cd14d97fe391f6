package repository

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate key")
)

// translate 将驱动层错误归一为仓储层错误
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey), isUniqueViolation(err):
		return ErrDuplicate
	}
	return err
}

// isUniqueViolation 兜底未开启 TranslateError 的连接
func isUniqueViolation(err error) bool {
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value violates unique constraint")
}

// Store 显式构造的存储句柄；进程启动时创建并传给各个 service
type Store struct {
	db     *gorm.DB
	users  UserRepository
	follow FollowRepository
	tweets TweetRepository
	likes  LikeRepository
	media  MediaRepository
	outbox OutboxRepository
}

func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:     db,
		users:  NewUserRepository(db),
		follow: NewFollowRepository(db),
		tweets: NewTweetRepository(db),
		likes:  NewLikeRepository(db),
		media:  NewMediaRepository(db),
		outbox: NewOutboxRepository(db),
	}
}

func (s *Store) DB() *gorm.DB              { return s.db }
func (s *Store) Users() UserRepository     { return s.users }
func (s *Store) Follows() FollowRepository { return s.follow }
func (s *Store) Tweets() TweetRepository   { return s.tweets }
func (s *Store) Likes() LikeRepository     { return s.likes }
func (s *Store) Media() MediaRepository    { return s.media }
func (s *Store) Outbox() OutboxRepository  { return s.outbox }

// Transaction 在一个事务内执行 fn；fn 返回错误或 panic 时整体回滚
func (s *Store) Transaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}
