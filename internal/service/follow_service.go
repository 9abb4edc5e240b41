package service

import (
	"context"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
)

// FollowService manages the directed follow graph.
type FollowService struct {
	followRepo repository.FollowRepository
	userRepo   repository.UserRepository
}

func NewFollowService(followRepo repository.FollowRepository, userRepo repository.UserRepository) *FollowService {
	return &FollowService{
		followRepo: followRepo,
		userRepo:   userRepo,
	}
}

// Follow creates the edge followerID -> followedID. Following someone twice
// keeps the original edge.
func (s *FollowService) Follow(ctx context.Context, followerID, followedID uint) (*models.Follow, error) {
	if followerID == followedID {
		return nil, models.WrapDomainError(models.CodeValidation, models.ErrSelfFollow)
	}

	edge, err := s.followRepo.Follow(ctx, followerID, followedID)
	if err != nil {
		return nil, err
	}
	observability.GraphEvents.WithLabelValues("follow", "create").Inc()
	return edge, nil
}

func (s *FollowService) Unfollow(ctx context.Context, followerID, followedID uint) error {
	if err := s.followRepo.Unfollow(ctx, followerID, followedID); err != nil {
		return err
	}
	observability.GraphEvents.WithLabelValues("follow", "delete").Inc()
	return nil
}

// Followers lists who follows userID, oldest edge first.
func (s *FollowService) Followers(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.followRepo.Followers(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

// Following lists who userID follows, oldest edge first.
func (s *FollowService) Following(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	if _, err := s.userRepo.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	users, err := s.followRepo.Following(ctx, userID)
	if err != nil {
		return nil, err
	}
	return summaries(users), nil
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
