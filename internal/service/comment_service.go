package service

import (
	"context"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
	"poetportal/internal/validation"
)

type CommentService struct {
	commentRepo repository.CommentRepository
}

type CreateCommentInput struct {
	UserID   uint
	PostID   uint
	ParentID *uint
	Content  string
}

type DeleteCommentInput struct {
	UserID    uint
	CommentID uint
}

func NewCommentService(commentRepo repository.CommentRepository) *CommentService {
	return &CommentService{commentRepo: commentRepo}
}

// CreateComment stores a root comment or a reply. The post and parent checks
// run in the repository transaction.
func (s *CommentService) CreateComment(ctx context.Context, in CreateCommentInput) (*models.Comment, error) {
	if in.UserID == 0 {
		return nil, models.NewUnauthorizedError("Authentication required")
	}
	content, err := validation.NormalizeContent("content", in.Content)
	if err != nil {
		return nil, models.NewValidationError(err.Error())
	}
	if in.ParentID != nil && *in.ParentID == 0 {
		in.ParentID = nil
	}

	comment := &models.Comment{
		Content:  content,
		UserID:   in.UserID,
		PostID:   in.PostID,
		ParentID: in.ParentID,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}

	observability.ContentEvents.WithLabelValues("comment", "create").Inc()
	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes the comment and all of its replies. Only the author
// may delete.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) error {
	removed, err := s.commentRepo.DeleteSubtree(ctx, in.CommentID, func(c *models.Comment) error {
		return RequireOwnership(in.UserID, c.UserID)
	})
	if err != nil {
		return err
	}

	observability.ContentEvents.WithLabelValues("comment", "delete").Add(float64(removed))
	observability.Ctx(ctx).Info().
		Uint("comment_id", in.CommentID).
		Int("removed", removed).
		Msg("comment subtree deleted")
	return nil
}
