package service

import (
	"context"
	"errors"
	"testing"

	"poetportal/internal/models"
	"poetportal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is a stub for repository.PostRepository.
type postRepoStub struct {
	createFn        func(context.Context, *models.Post) error
	getByIDFn       func(context.Context, uint) (*models.Post, error)
	listFn          func(context.Context, int, int) ([]*models.Post, error)
	deleteCascadeFn func(context.Context, uint, func(*models.Post) error) error
}

func (s *postRepoStub) Create(ctx context.Context, post *models.Post) error {
	return s.createFn(ctx, post)
}
func (s *postRepoStub) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	return s.getByIDFn(ctx, id)
}
func (s *postRepoStub) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	return s.listFn(ctx, limit, offset)
}
func (s *postRepoStub) DeleteCascade(ctx context.Context, id uint, authorize func(*models.Post) error) error {
	return s.deleteCascadeFn(ctx, id, authorize)
}

func noopPostRepo() *postRepoStub {
	return &postRepoStub{
		createFn:  func(_ context.Context, _ *models.Post) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Post, error) { return &models.Post{ID: id}, nil },
		listFn:    func(_ context.Context, _, _ int) ([]*models.Post, error) { return nil, nil },
		deleteCascadeFn: func(_ context.Context, _ uint, _ func(*models.Post) error) error {
			return nil
		},
	}
}

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn        func(context.Context, *models.Comment) error
	getByIDFn       func(context.Context, uint) (*models.Comment, error)
	listByPostsFn   func(context.Context, []uint) ([]*models.Comment, error)
	deleteSubtreeFn func(context.Context, uint, func(*models.Comment) error) (int, error)
}

func (s *commentRepoStub) Create(ctx context.Context, comment *models.Comment) error {
	return s.createFn(ctx, comment)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListByPost(ctx context.Context, postID uint) ([]*models.Comment, error) {
	return s.listByPostsFn(ctx, []uint{postID})
}
func (s *commentRepoStub) ListByPosts(ctx context.Context, postIDs []uint) ([]*models.Comment, error) {
	return s.listByPostsFn(ctx, postIDs)
}
func (s *commentRepoStub) DeleteSubtree(ctx context.Context, id uint, authorize func(*models.Comment) error) (int, error) {
	return s.deleteSubtreeFn(ctx, id, authorize)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:      func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn:     func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listByPostsFn: func(_ context.Context, _ []uint) ([]*models.Comment, error) { return nil, nil },
		deleteSubtreeFn: func(_ context.Context, _ uint, _ func(*models.Comment) error) (int, error) {
			return 1, nil
		},
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn       func(context.Context, uint) (*models.User, error)
	getByUsernameFn func(context.Context, string) (*models.User, error)
	getByIDsFn      func(context.Context, []uint) (map[uint]*models.User, error)
	createFn        func(context.Context, *models.User) error
	updateFn        func(context.Context, uint, map[string]interface{}) (*models.User, error)
	listFn          func(context.Context, int, int) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return s.getByUsernameFn(ctx, username)
}
func (s *userRepoStub) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, id uint, fields map[string]interface{}) (*models.User, error) {
	return s.updateFn(ctx, id, fields)
}
func (s *userRepoStub) List(ctx context.Context, limit, offset int) ([]models.User, error) {
	return s.listFn(ctx, limit, offset)
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) { return &models.User{ID: id}, nil },
		getByUsernameFn: func(_ context.Context, username string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", username)
		},
		getByIDsFn: func(_ context.Context, _ []uint) (map[uint]*models.User, error) {
			return map[uint]*models.User{}, nil
		},
		createFn: func(_ context.Context, u *models.User) error {
			u.ID = 1
			return nil
		},
		updateFn: func(_ context.Context, id uint, _ map[string]interface{}) (*models.User, error) {
			return &models.User{ID: id}, nil
		},
		listFn: func(_ context.Context, _, _ int) ([]models.User, error) { return nil, nil },
	}
}

// followRepoStub is a stub for repository.FollowRepository.
type followRepoStub struct {
	followFn      func(context.Context, uint, uint) (*models.Follow, error)
	unfollowFn    func(context.Context, uint, uint) error
	isFollowingFn func(context.Context, uint, uint) (bool, error)
	followersFn   func(context.Context, uint) ([]models.User, error)
	followingFn   func(context.Context, uint) ([]models.User, error)
	countFn       func(context.Context, uint) (int64, error)
}

func (s *followRepoStub) Follow(ctx context.Context, followerID, followedID uint) (*models.Follow, error) {
	return s.followFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Unfollow(ctx context.Context, followerID, followedID uint) error {
	return s.unfollowFn(ctx, followerID, followedID)
}
func (s *followRepoStub) IsFollowing(ctx context.Context, followerID, followedID uint) (bool, error) {
	return s.isFollowingFn(ctx, followerID, followedID)
}
func (s *followRepoStub) Followers(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followersFn(ctx, userID)
}
func (s *followRepoStub) Following(ctx context.Context, userID uint) ([]models.User, error) {
	return s.followingFn(ctx, userID)
}
func (s *followRepoStub) CountFollowers(ctx context.Context, userID uint) (int64, error) {
	return s.countFn(ctx, userID)
}
func (s *followRepoStub) CountFollowing(ctx context.Context, userID uint) (int64, error) {
	return s.countFn(ctx, userID)
}

func noopFollowRepo() *followRepoStub {
	return &followRepoStub{
		followFn: func(_ context.Context, a, b uint) (*models.Follow, error) {
			return &models.Follow{ID: 1, FollowerID: a, FollowedID: b}, nil
		},
		unfollowFn:    func(_ context.Context, _, _ uint) error { return nil },
		isFollowingFn: func(_ context.Context, _, _ uint) (bool, error) { return false, nil },
		followersFn:   func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		followingFn:   func(_ context.Context, _ uint) ([]models.User, error) { return nil, nil },
		countFn:       func(_ context.Context, _ uint) (int64, error) { return 0, nil },
	}
}

// likeRepoStub is a stub for repository.LikeRepository. Like and Toggle run
// the guard against owner, like the real store does.
type likeRepoStub struct {
	owner      uint
	ownerErr   error
	count      int64
	hasLiked   bool
	toggleWant models.LikeState
}

func (s *likeRepoStub) TargetOwner(_ context.Context, _ models.LikeTarget) (uint, error) {
	return s.owner, s.ownerErr
}
func (s *likeRepoStub) Like(_ context.Context, userID uint, target models.LikeTarget, guard repository.LikeGuard) (*models.Like, error) {
	if s.ownerErr != nil {
		return nil, s.ownerErr
	}
	if guard != nil {
		if err := guard(s.owner); err != nil {
			return nil, err
		}
	}
	return &models.Like{ID: 1, UserID: userID, TargetType: target.Type, TargetID: target.ID}, nil
}
func (s *likeRepoStub) Unlike(_ context.Context, _ uint, _ models.LikeTarget) error {
	if !s.hasLiked {
		return models.WrapDomainError(models.CodeNotFound, models.ErrNotLiked)
	}
	return nil
}
func (s *likeRepoStub) Toggle(_ context.Context, _ uint, _ models.LikeTarget, guard repository.LikeGuard) (models.LikeState, error) {
	if !s.hasLiked && guard != nil {
		if err := guard(s.owner); err != nil {
			return models.LikeState{}, err
		}
	}
	return s.toggleWant, nil
}
func (s *likeRepoStub) Count(_ context.Context, _ models.LikeTarget) (int64, error) {
	return s.count, nil
}
func (s *likeRepoStub) HasLiked(_ context.Context, _ uint, _ models.LikeTarget) (bool, error) {
	return s.hasLiked, nil
}
func (s *likeRepoStub) CountsFor(_ context.Context, _ models.LikeTargetType, _ []uint) (map[uint]int64, error) {
	return map[uint]int64{}, nil
}
func (s *likeRepoStub) LikedBy(_ context.Context, _ uint, _ models.LikeTargetType, _ []uint) (map[uint]bool, error) {
	return map[uint]bool{}, nil
}

// assertCode asserts that err is an AppError carrying code.
func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

// assertValidationError asserts that err is an AppError with code VALIDATION_ERROR.
func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
