package repository

import (
	"context"

	"poetportal/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// LikeGuard inspects the owner of a like target before a like is stored.
type LikeGuard func(ownerID uint) error

// LikeRepository stores likes on posts and comments.
type LikeRepository interface {
	// TargetOwner returns the author of the post or comment target points at.
	TargetOwner(ctx context.Context, target models.LikeTarget) (uint, error)
	// Like inserts the like or keeps the existing one. guard sees the target
	// owner inside the transaction.
	Like(ctx context.Context, userID uint, target models.LikeTarget, guard LikeGuard) (*models.Like, error)
	Unlike(ctx context.Context, userID uint, target models.LikeTarget) error
	// Toggle removes an existing like or stores a new one, returning the
	// resulting state. guard only runs when a like would be added.
	Toggle(ctx context.Context, userID uint, target models.LikeTarget, guard LikeGuard) (models.LikeState, error)
	Count(ctx context.Context, target models.LikeTarget) (int64, error)
	HasLiked(ctx context.Context, userID uint, target models.LikeTarget) (bool, error)
	CountsFor(ctx context.Context, targetType models.LikeTargetType, ids []uint) (map[uint]int64, error)
	LikedBy(ctx context.Context, userID uint, targetType models.LikeTargetType, ids []uint) (map[uint]bool, error)
}

type likeRepository struct {
	db *gorm.DB
}

// NewLikeRepository creates a new like repository
func NewLikeRepository(db *gorm.DB) LikeRepository {
	return &likeRepository{db: db}
}

func (r *likeRepository) TargetOwner(ctx context.Context, target models.LikeTarget) (uint, error) {
	owner, err := targetOwner(r.db.WithContext(ctx), target)
	if err != nil {
		return 0, notFoundOr(err, target.Resource(), target.ID)
	}
	return owner, nil
}

// targetOwner reads the owner under a share lock so a concurrent delete of
// the target either waits for this like or makes it fail.
func targetOwner(tx *gorm.DB, target models.LikeTarget) (uint, error) {
	var model interface{} = &models.Post{}
	if target.Type == models.LikeTargetComment {
		model = &models.Comment{}
	}

	var owners []uint
	err := lockForShare(tx).Model(model).Where("id = ?", target.ID).Limit(1).Pluck("user_id", &owners).Error
	if err != nil {
		return 0, err
	}
	if len(owners) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return owners[0], nil
}

func (r *likeRepository) Like(ctx context.Context, userID uint, target models.LikeTarget, guard LikeGuard) (*models.Like, error) {
	var like models.Like
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkTarget(tx, target, guard); err != nil {
			return err
		}
		if err := insertLike(tx, userID, target); err != nil {
			return err
		}
		return whereLike(tx, userID, target).First(&like).Error
	})
	if err != nil {
		return nil, internal(err)
	}
	return &like, nil
}

func (r *likeRepository) Unlike(ctx context.Context, userID uint, target models.LikeTarget) error {
	result := whereLike(r.db.WithContext(ctx), userID, target).Delete(&models.Like{})
	if result.Error != nil {
		return models.NewInternalError(result.Error)
	}
	if result.RowsAffected == 0 {
		return models.WrapDomainError(models.CodeNotFound, models.ErrNotLiked)
	}
	return nil
}

func (r *likeRepository) Toggle(ctx context.Context, userID uint, target models.LikeTarget, guard LikeGuard) (models.LikeState, error) {
	var state models.LikeState
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		owner, err := targetOwner(tx, target)
		if err != nil {
			return notFoundOr(err, target.Resource(), target.ID)
		}

		removed := whereLike(tx, userID, target).Delete(&models.Like{})
		if removed.Error != nil {
			return removed.Error
		}
		if removed.RowsAffected == 0 {
			if guard != nil {
				if err := guard(owner); err != nil {
					return err
				}
			}
			if err := insertLike(tx, userID, target); err != nil {
				return err
			}
			state.Liked = true
		}

		return tx.Model(&models.Like{}).
			Where("target_type = ? AND target_id = ?", target.Type, target.ID).
			Count(&state.Count).Error
	})
	if err != nil {
		return models.LikeState{}, internal(err)
	}
	return state, nil
}

func (r *likeRepository) checkTarget(tx *gorm.DB, target models.LikeTarget, guard LikeGuard) error {
	owner, err := targetOwner(tx, target)
	if err != nil {
		return notFoundOr(err, target.Resource(), target.ID)
	}
	if guard != nil {
		return guard(owner)
	}
	return nil
}

func insertLike(tx *gorm.DB, userID uint, target models.LikeTarget) error {
	like := models.Like{UserID: userID, TargetType: target.Type, TargetID: target.ID}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&like).Error
}

func whereLike(db *gorm.DB, userID uint, target models.LikeTarget) *gorm.DB {
	return db.Where("user_id = ? AND target_type = ? AND target_id = ?", userID, target.Type, target.ID)
}

func (r *likeRepository) Count(ctx context.Context, target models.LikeTarget) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("target_type = ? AND target_id = ?", target.Type, target.ID).
		Count(&n).Error
	if err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

func (r *likeRepository) HasLiked(ctx context.Context, userID uint, target models.LikeTarget) (bool, error) {
	var n int64
	if err := whereLike(r.db.WithContext(ctx).Model(&models.Like{}), userID, target).Count(&n).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return n > 0, nil
}

// CountsFor returns like counts for ids of one target type. Targets without
// likes are absent.
func (r *likeRepository) CountsFor(ctx context.Context, targetType models.LikeTargetType, ids []uint) (map[uint]int64, error) {
	out := make(map[uint]int64, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var rows []struct {
		TargetID uint
		Total    int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Select("target_id, COUNT(*) AS total").
		Where("target_type = ? AND target_id IN ?", targetType, ids).
		Group("target_id").
		Scan(&rows).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, row := range rows {
		out[row.TargetID] = row.Total
	}
	return out, nil
}

// LikedBy reports which of ids userID has liked.
func (r *likeRepository) LikedBy(ctx context.Context, userID uint, targetType models.LikeTargetType, ids []uint) (map[uint]bool, error) {
	out := make(map[uint]bool)
	if userID == 0 || len(ids) == 0 {
		return out, nil
	}

	var liked []uint
	err := r.db.WithContext(ctx).
		Model(&models.Like{}).
		Where("user_id = ? AND target_type = ? AND target_id IN ?", userID, targetType, ids).
		Pluck("target_id", &liked).Error
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, id := range liked {
		out[id] = true
	}
	return out, nil
}
