// Package testutil 测试用内存数据库与种子数据
package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/d60-Lab/microblog/internal/model"
	"github.com/d60-Lab/microblog/pkg/database"
)

// NewDB 打开已迁移的 sqlite 内存库；单连接保证同一测试内数据可见
func NewDB(tb testing.TB) *gorm.DB {
	tb.Helper()
	db, err := database.Open(sqlite.Open(database.SQLiteDSN(":memory:")), gormlogger.Silent)
	require.NoError(tb, err)
	sqlDB, err := db.DB()
	require.NoError(tb, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(tb, database.Migrate(db))
	tb.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser 插入用户，api key 与名字相同前缀便于阅读
func CreateUser(tb testing.TB, db *gorm.DB, name, apiKey string) *model.User {
	tb.Helper()
	u := &model.User{Name: name, APIKey: apiKey}
	require.NoError(tb, db.Create(u).Error)
	return u
}

func CreateTweet(tb testing.TB, db *gorm.DB, authorID int64, content string) *model.Tweet {
	tb.Helper()
	t := &model.Tweet{UserID: authorID, Content: content}
	require.NoError(tb, db.Omit("Author").Create(t).Error)
	return t
}

func Count(tb testing.TB, db *gorm.DB, m any, query string, args ...any) int64 {
	tb.Helper()
	var n int64
	require.NoError(tb, db.Model(m).Where(query, args...).Count(&n).Error)
	return n
}
