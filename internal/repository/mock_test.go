package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"poetportal/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       uint
		mockBehavior func()
		wantCode     string
	}{
		{
			name:   "Success",
			userID: 1,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(1, 1).
					WillReturnRows(sqlmock.NewRows([]string{"id", "username"}).AddRow(1, "sappho"))
			},
		},
		{
			name:   "Not Found",
			userID: 2,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users" WHERE "users"."id" = $1 ORDER BY "users"."id" LIMIT $2`)).
					WithArgs(2, 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			wantCode: models.CodeNotFound,
		},
		{
			name:   "Store Failure",
			userID: 3,
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "users"`)).
					WillReturnError(errors.New("connection reset"))
			},
			wantCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)
			if tt.wantCode != "" {
				require.Error(t, err)
				assert.Equal(t, tt.wantCode, models.ErrorCode(err))
				assert.Nil(t, user)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "sappho", user.Username)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_Create_UsernameTaken(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "users"`)).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.User{Username: "sappho", Password: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrUsernameTaken)
	assert.Equal(t, models.CodeConflict, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_DeleteCascade_LocksRow(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" WHERE "posts"."id" = $1 ORDER BY "posts"."id" LIMIT $2 FOR UPDATE`)).
		WithArgs(7, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow(7, 1))
	mock.ExpectRollback()

	err := repo.DeleteCascade(context.Background(), 7, func(p *models.Post) error {
		return models.NewForbiddenError("not yours")
	})
	require.Error(t, err)
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFollowRepository_Unfollow_NotFollowing(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewFollowRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM "follows" WHERE follower_id = $1 AND followed_id = $2`)).
		WithArgs(1, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	err := repo.Unfollow(context.Background(), 1, 2)
	assert.ErrorIs(t, err, models.ErrNotFollowing)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsUniqueConstraintError(t *testing.T) {
	assert.False(t, isUniqueConstraintError(nil))
	assert.True(t, isUniqueConstraintError(gorm.ErrDuplicatedKey))
	assert.True(t, isUniqueConstraintError(&pgconn.PgError{Code: "23505"}))
	assert.False(t, isUniqueConstraintError(&pgconn.PgError{Code: "23503"}))
	assert.True(t, isUniqueConstraintError(errors.New("UNIQUE constraint failed: users.username")))
	assert.False(t, isUniqueConstraintError(errors.New("connection refused")))
}

func TestCollectSubtree(t *testing.T) {
	p := func(id uint) *uint { return &id }
	thread := []models.Comment{
		{ID: 1},
		{ID: 2, ParentID: p(1)},
		{ID: 3, ParentID: p(2)},
		{ID: 4},
		{ID: 5, ParentID: p(4)},
		// corrupt cycle below 3
		{ID: 6, ParentID: p(7)},
		{ID: 7, ParentID: p(6)},
		{ID: 8, ParentID: p(3)},
	}

	assert.ElementsMatch(t, []uint{2, 3, 8}, collectSubtree(2, thread))
	assert.ElementsMatch(t, []uint{6, 7}, collectSubtree(6, thread))
	assert.Equal(t, []uint{5}, collectSubtree(5, thread))
}
