package repository

import (
	"context"

	"poetportal/internal/models"

	"gorm.io/gorm"
)

// PostRepository defines persistence operations for posts.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	// DeleteCascade removes the post, its comments and every like on either.
	// authorize runs inside the transaction against the locked row.
	DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) error
}

type postRepository struct {
	db *gorm.DB
}

// NewPostRepository returns a new PostRepository implementation.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("User").First(&post, id).Error; err != nil {
		return nil, notFoundOr(err, "Post", id)
	}
	return &post, nil
}

// List returns posts newest first.
func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = clampPage(limit, offset)

	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("User").
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockForUpdate(tx).First(&post, id).Error; err != nil {
			return notFoundOr(err, "Post", id)
		}
		if authorize != nil {
			if err := authorize(&post); err != nil {
				return err
			}
		}

		var commentIDs []uint
		if err := tx.Model(&models.Comment{}).Where("post_id = ?", id).Pluck("id", &commentIDs).Error; err != nil {
			return err
		}

		// comments go before likes so a like racing onto a doomed comment
		// is blocked by the row lock and then swept below
		if err := tx.Where("post_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if len(commentIDs) > 0 {
			if err := deleteLikesOn(tx, models.LikeTargetComment, commentIDs); err != nil {
				return err
			}
		}
		if err := deleteLikesOn(tx, models.LikeTargetPost, []uint{id}); err != nil {
			return err
		}
		return tx.Delete(&models.Post{}, id).Error
	})
	return internal(err)
}

func deleteLikesOn(tx *gorm.DB, targetType models.LikeTargetType, ids []uint) error {
	return tx.Where("target_type = ? AND target_id IN ?", targetType, ids).Delete(&models.Like{}).Error
}
