package service

import (
	"context"

	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/repository"
)

// FeedService assembles read models. Nothing is cached; every call reads
// the current state of the store.
type FeedService struct {
	postRepo    repository.PostRepository
	commentRepo repository.CommentRepository
	userRepo    repository.UserRepository
	likeRepo    repository.LikeRepository
	followRepo  repository.FollowRepository
}

func NewFeedService(
	postRepo repository.PostRepository,
	commentRepo repository.CommentRepository,
	userRepo repository.UserRepository,
	likeRepo repository.LikeRepository,
	followRepo repository.FollowRepository,
) *FeedService {
	return &FeedService{
		postRepo:    postRepo,
		commentRepo: commentRepo,
		userRepo:    userRepo,
		likeRepo:    likeRepo,
		followRepo:  followRepo,
	}
}

// ListPostsWithEngagement returns a page of posts, newest first, each with
// its comment forest and like data for viewerID (0 for anonymous).
func (s *FeedService) ListPostsWithEngagement(ctx context.Context, viewerID uint, limit, offset int) ([]*models.PostView, error) {
	defer observability.TrackFeedAssembly()()

	posts, err := s.postRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	return s.assemble(ctx, viewerID, posts)
}

// GetPost returns one post assembled like a feed entry.
func (s *FeedService) GetPost(ctx context.Context, viewerID, postID uint) (*models.PostView, error) {
	post, err := s.postRepo.GetByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	views, err := s.assemble(ctx, viewerID, []*models.Post{post})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// assemble decorates posts using one batched query per kind of data.
func (s *FeedService) assemble(ctx context.Context, viewerID uint, posts []*models.Post) ([]*models.PostView, error) {
	views := make([]*models.PostView, 0, len(posts))
	if len(posts) == 0 {
		return views, nil
	}

	postIDs := make([]uint, 0, len(posts))
	for _, p := range posts {
		postIDs = append(postIDs, p.ID)
	}

	comments, err := s.commentRepo.ListByPosts(ctx, postIDs)
	if err != nil {
		return nil, err
	}
	byPost := make(map[uint][]*models.Comment, len(posts))
	commentIDs := make([]uint, 0, len(comments))
	authorIDs := make([]uint, 0, len(comments)+len(posts))
	seenAuthor := make(map[uint]bool)
	for _, c := range comments {
		byPost[c.PostID] = append(byPost[c.PostID], c)
		commentIDs = append(commentIDs, c.ID)
		if !seenAuthor[c.UserID] {
			seenAuthor[c.UserID] = true
			authorIDs = append(authorIDs, c.UserID)
		}
	}
	for _, p := range posts {
		if p.User == nil && !seenAuthor[p.UserID] {
			seenAuthor[p.UserID] = true
			authorIDs = append(authorIDs, p.UserID)
		}
	}

	authors, err := s.userRepo.GetByIDs(ctx, authorIDs)
	if err != nil {
		return nil, err
	}
	postLikes, err := s.likeRepo.CountsFor(ctx, models.LikeTargetPost, postIDs)
	if err != nil {
		return nil, err
	}
	commentLikes, err := s.likeRepo.CountsFor(ctx, models.LikeTargetComment, commentIDs)
	if err != nil {
		return nil, err
	}
	postLiked, err := s.likeRepo.LikedBy(ctx, viewerID, models.LikeTargetPost, postIDs)
	if err != nil {
		return nil, err
	}
	commentLiked, err := s.likeRepo.LikedBy(ctx, viewerID, models.LikeTargetComment, commentIDs)
	if err != nil {
		return nil, err
	}

	eng := ThreadEngagement{Authors: authors, Likes: commentLikes, Liked: commentLiked}
	for _, p := range posts {
		roots, rejected, attached := assembleCommentTree(p.ID, byPost[p.ID], eng)
		if len(rejected) > 0 {
			observability.CommentTreeFaults.Add(float64(len(rejected)))
			observability.Ctx(ctx).Warn().
				Uint("post_id", p.ID).
				Interface("comment_ids", rejected).
				Msg("comments detached from thread")
		}

		author := p.User
		if author == nil {
			author = authors[p.UserID]
		}
		summary := models.UserSummary{ID: p.UserID}
		if author != nil {
			summary = author.Summary()
		}

		views = append(views, &models.PostView{
			ID:            p.ID,
			Title:         p.Title,
			Content:       p.Content,
			CreatedAt:     p.CreatedAt,
			Author:        summary,
			LikesCount:    postLikes[p.ID],
			Liked:         postLiked[p.ID],
			CommentsCount: attached,
			Comments:      roots,
		})
	}
	return views, nil
}

// UserProfile returns userID with follower and following counts.
func (s *FeedService) UserProfile(ctx context.Context, userID uint) (*models.UserProfile, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	followers, err := s.followRepo.CountFollowers(ctx, userID)
	if err != nil {
		return nil, err
	}
	following, err := s.followRepo.CountFollowing(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &models.UserProfile{
		UserSummary:    user.Summary(),
		Bio:            user.Bio,
		IsAdmin:        user.IsAdmin,
		CreatedAt:      user.CreatedAt,
		FollowersCount: followers,
		FollowingCount: following,
	}, nil
}

// FollowRelationship reports whether viewerID follows subjectID.
func (s *FeedService) FollowRelationship(ctx context.Context, viewerID, subjectID uint) (models.FollowStatus, error) {
	if _, err := s.userRepo.GetByID(ctx, subjectID); err != nil {
		return models.FollowStatus{}, err
	}
	following, err := s.followRepo.IsFollowing(ctx, viewerID, subjectID)
	if err != nil {
		return models.FollowStatus{}, err
	}
	return models.FollowStatus{IsFollowing: following}, nil
}
