package repository

import (
	"context"
	"errors"

	"poetportal/internal/models"

	"gorm.io/gorm"
)

// CommentRepository defines interface for comment operations
type CommentRepository interface {
	// Create inserts comment after checking, in the same transaction, that its
	// post exists and that a parent, when given, belongs to that post.
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error)
	ListByPosts(ctx context.Context, postIDs []uint) ([]*models.Comment, error)
	// DeleteSubtree removes the comment, all of its descendants and their likes.
	// It returns the number of comments removed.
	DeleteSubtree(ctx context.Context, id uint, authorize func(*models.Comment) error) (int, error)
}

type commentRepository struct {
	db *gorm.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var post models.Post
		if err := lockForShare(tx).Select("id").First(&post, comment.PostID).Error; err != nil {
			return notFoundOr(err, "Post", comment.PostID)
		}

		if comment.ParentID != nil {
			var parent models.Comment
			err := lockForShare(tx).Select("id", "post_id").First(&parent, *comment.ParentID).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				return models.WrapDomainError(models.CodeValidation, models.ErrInvalidParent)
			case err != nil:
				return err
			case parent.PostID != comment.PostID:
				return models.WrapDomainError(models.CodeValidation, models.ErrInvalidParent)
			}
		}

		return tx.Create(comment).Error
	})
	return internal(err)
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).Preload("User").First(&comment, id).Error; err != nil {
		return nil, notFoundOr(err, "Comment", id)
	}
	return &comment, nil
}

func (r *commentRepository) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return r.ListByPosts(ctx, []uint{postID})
}

// ListByPosts returns the flat comments of every post in postIDs, oldest first.
func (r *commentRepository) ListByPosts(ctx context.Context, postIDs []uint) ([]*models.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("created_at ASC").
		Order("id ASC").
		Find(&comments).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return comments, nil
}

func (r *commentRepository) DeleteSubtree(ctx context.Context, id uint, authorize func(*models.Comment) error) (int, error) {
	var removed int
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var target models.Comment
		if err := lockForUpdate(tx).First(&target, id).Error; err != nil {
			return notFoundOr(err, "Comment", id)
		}
		if authorize != nil {
			if err := authorize(&target); err != nil {
				return err
			}
		}

		var thread []models.Comment
		if err := tx.Select("id", "parent_id").Where("post_id = ?", target.PostID).Find(&thread).Error; err != nil {
			return err
		}
		subtree := collectSubtree(id, thread)

		if err := tx.Where("id IN ?", subtree).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := deleteLikesOn(tx, models.LikeTargetComment, subtree); err != nil {
			return err
		}
		removed = len(subtree)
		return nil
	})
	if err != nil {
		return 0, internal(err)
	}
	return removed, nil
}

// collectSubtree walks the parent links of comments breadth first from root.
// A visited set keeps corrupt cyclic chains from looping.
func collectSubtree(root uint, comments []models.Comment) []uint {
	children := make(map[uint][]uint, len(comments))
	for _, c := range comments {
		if c.ParentID != nil {
			children[*c.ParentID] = append(children[*c.ParentID], c.ID)
		}
	}

	seen := map[uint]bool{root: true}
	out := []uint{root}
	for i := 0; i < len(out); i++ {
		for _, child := range children[out[i]] {
			if !seen[child] {
				seen[child] = true
				out = append(out, child)
			}
		}
	}
	return out
}
