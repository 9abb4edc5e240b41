// Package testutil provides shared fixtures for backend tests.
package testutil

import (
	"fmt"
	"strings"
	"sync/atomic"
	"testing"

	"poetportal/internal/database"
	"poetportal/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var dbSeq atomic.Int64

// NewSQLiteDB returns a migrated in-memory database private to t. Foreign keys
// are enforced and the pool holds a single connection, so code under test
// must only use the tx handed to it inside a transaction.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared&_foreign_keys=on", name, dbSeq.Add(1))

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	return db
}

// CreateUser inserts a user with a placeholder password digest.
func CreateUser(t testing.TB, db *gorm.DB, username string) *models.User {
	t.Helper()
	user := &models.User{Username: username, Password: "00.00"}
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreatePost inserts a post owned by userID.
func CreatePost(t testing.TB, db *gorm.DB, userID uint, content string) *models.Post {
	t.Helper()
	post := &models.Post{UserID: userID, Title: models.DeriveTitle(content), Content: content}
	require.NoError(t, db.Create(post).Error)
	return post
}

// CreateComment inserts a comment; parentID may be nil.
func CreateComment(t testing.TB, db *gorm.DB, postID, userID uint, parentID *uint, content string) *models.Comment {
	t.Helper()
	comment := &models.Comment{PostID: postID, UserID: userID, ParentID: parentID, Content: content}
	require.NoError(t, db.Create(comment).Error)
	return comment
}
