package repository

import (
	"context"

	"poetportal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FollowRepository stores directed follow edges between users.
type FollowRepository interface {
	// Follow inserts the edge or keeps the existing one and returns it.
	Follow(ctx context.Context, followerID, followedID uint) (*models.Follow, error)
	Unfollow(ctx context.Context, followerID, followedID uint) error
	IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error)
	Followers(ctx context.Context, userID uint) ([]models.User, error)
	Following(ctx context.Context, userID uint) ([]models.User, error)
	CountFollowers(ctx context.Context, userID uint) (int64, error)
	CountFollowing(ctx context.Context, userID uint) (int64, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followedID uint) (*models.Follow, error) {
	var edge models.Follow
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var followed models.User
		if err := lockForShare(tx).Select("id").First(&followed, followedID).Error; err != nil {
			return notFoundOr(err, "User", followedID)
		}

		insert := models.Follow{FollowerID: followerID, FollowedID: followedID}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&insert).Error; err != nil {
			return err
		}
		return tx.Where("follower_id = ? AND followed_id = ?", followerID, followedID).First(&edge).Error
	})
	if err != nil {
		return nil, internal(err)
	}
	return &edge, nil
}

func (r *followRepository) Unfollow(ctx context.Context, followerID, followedID uint) error {
	result := r.db.WithContext(ctx).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Delete(&models.Follow{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.WrapDomainError(models.CodeNotFound, models.ErrNotFollowing)
	}
	return nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Follow{}).
		Where("follower_id = ? AND followed_id = ?", followerID, followedID).
		Count(&count).Error
	if err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

// Followers lists the users following userID in the order they followed.
func (r *followRepository) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listEdge(ctx, "follows.follower_id", "follows.followed_id", userID)
}

// Following lists the users userID follows in the order they were followed.
func (r *followRepository) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return r.listEdge(ctx, "follows.followed_id", "follows.follower_id", userID)
}

func (r *followRepository) listEdge(ctx context.Context, joinCol, filterCol string, userID uint) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Table("users").
		Select("users.*").
		Joins("JOIN follows ON users.id = "+joinCol).
		Where(filterCol+" = ?", userID).
		Order("follows.created_at ASC").
		Order("follows.id ASC").
		Find(&users).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *followRepository) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "followed_id", userID)
}

func (r *followRepository) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return r.count(ctx, "follower_id", userID)
}

func (r *followRepository) count(ctx context.Context, col string, userID uint) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Follow{}).Where(col+" = ?", userID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}
