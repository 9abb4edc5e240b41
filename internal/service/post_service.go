package service

import (
	"context"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
	"poetportal/internal/validation"
)

type PostService struct {
	postRepo repository.PostRepository
}

type CreatePostInput struct {
	UserID  uint
	Content string
}

type DeletePostInput struct {
	UserID uint
	PostID uint
}

func NewPostService(postRepo repository.PostRepository) *PostService {
	return &PostService{postRepo: postRepo}
}

// CreatePost stores a post. The title is derived from the first line of the
// content and never changes afterwards.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	content, err := validation.NormalizeContent("content", in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}

	post := &models.Post{
		UserID:  in.UserID,
		Title:   models.DeriveTitle(content),
		Content: content,
	}
	if err := s.postRepo.Create(ctx, post); err != nil {
		return nil, err
	}

	observability.ContentEvents.WithLabelValues("post", "create").Inc()
	return post, nil
}

// DeletePost removes the post with its comments and every like on either.
// Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, in DeletePostInput) error {
	err := s.postRepo.DeleteCascade(ctx, in.PostID, func(post *models.Post) error {
		return RequireOwnership(in.UserID, post.UserID)
	})
	if err != nil {
		return err
	}

	observability.ContentEvents.WithLabelValues("post", "delete").Inc()
	observability.Ctx(ctx).Info().Uint("post_id", in.PostID).Msg("post deleted")
	return nil
}
