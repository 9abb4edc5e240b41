package service

import (
	"context"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
)

// LikeService manages likes on posts and comments.
type LikeService struct {
	likeRepo repository.LikeRepository
}

func NewLikeService(likeRepo repository.LikeRepository) *LikeService {
	return &LikeService{likeRepo: likeRepo}
}

// forbidSelfLike rejects likes on content userID wrote.
func forbidSelfLike(userID uint) repository.LikeGuard {
	return func(ownerID uint) error {
		if ownerID == userID {
			return models.WrapDomainError(models.CodeValidation, models.ErrSelfLike)
		}
		return nil
	}
}

// Like stores a like. Liking the same target again is a no-op.
func (s *LikeService) Like(ctx context.Context, userID uint, target models.LikeTarget) (*models.Like, error) {
	like, err := s.likeRepo.Like(ctx, userID, target, forbidSelfLike(userID))
	if err != nil {
		return nil, err
	}
	observability.GraphEvents.WithLabelValues(string(target.Type)+"_like", "create").Inc()
	return like, nil
}

func (s *LikeService) Unlike(ctx context.Context, userID uint, target models.LikeTarget) error {
	if err := s.likeRepo.Unlike(ctx, userID, target); err != nil {
		return err
	}
	observability.GraphEvents.WithLabelValues(string(target.Type)+"_like", "delete").Inc()
	return nil
}

// Toggle likes the target when userID has not liked it yet and unlikes it
// otherwise.
func (s *LikeService) Toggle(ctx context.Context, userID uint, target models.LikeTarget) (models.LikeState, error) {
	state, err := s.likeRepo.Toggle(ctx, userID, target, forbidSelfLike(userID))
	if err != nil {
		return models.LikeState{}, err
	}

	action := "delete"
	if state.Liked {
		action = "create"
	}
	observability.GraphEvents.WithLabelValues(string(target.Type)+"_like", action).Inc()
	return state, nil
}

// State reports the like count of target and whether viewerID liked it.
// viewerID 0 is an anonymous viewer.
func (s *LikeService) State(ctx context.Context, viewerID uint, target models.LikeTarget) (models.LikeState, error) {
	if _, err := s.likeRepo.TargetOwner(ctx, target); err != nil {
		return models.LikeState{}, err
	}

	count, err := s.likeRepo.Count(ctx, target)
	if err != nil {
		return models.LikeState{}, err
	}
	state := models.LikeState{Count: count}
	if viewerID != 0 {
		if state.Liked, err = s.likeRepo.HasLiked(ctx, viewerID, target); err != nil {
			return models.LikeState{}, err
		}
	}
	return state, nil
}
