package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"poetportal/internal/models"
	"poetportal/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPostRepository_DeleteCascadeClosure(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	posts := NewPostRepository(db)
	likes := NewLikeRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	doomed := testutil.CreatePost(t, db, alice.ID, "hello")
	kept := testutil.CreatePost(t, db, alice.ID, "still here")

	root := testutil.CreateComment(t, db, doomed.ID, bob.ID, nil, "nice")
	reply := testutil.CreateComment(t, db, doomed.ID, alice.ID, &root.ID, "thanks")
	other := testutil.CreateComment(t, db, kept.ID, bob.ID, nil, "unrelated")

	_, err := likes.Like(ctx, bob.ID, models.PostTarget(doomed.ID), nil)
	require.NoError(t, err)
	_, err = likes.Like(ctx, alice.ID, models.CommentTarget(root.ID), nil)
	require.NoError(t, err)
	_, err = likes.Like(ctx, bob.ID, models.CommentTarget(reply.ID), nil)
	require.NoError(t, err)
	_, err = likes.Like(ctx, alice.ID, models.CommentTarget(other.ID), nil)
	require.NoError(t, err)

	require.NoError(t, posts.DeleteCascade(ctx, doomed.ID, nil))

	var comments []models.Comment
	require.NoError(t, db.Find(&comments).Error)
	require.Len(t, comments, 1)
	assert.Equal(t, other.ID, comments[0].ID)

	var remaining []models.Like
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, models.CommentTarget(other.ID), remaining[0].Target())

	_, err = posts.GetByID(ctx, doomed.ID)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	err = posts.DeleteCascade(ctx, doomed.ID, nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestPostRepository_DeleteCascade_AuthorizeAborts(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	posts := NewPostRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	post := testutil.CreatePost(t, db, alice.ID, "hello")
	testutil.CreateComment(t, db, post.ID, alice.ID, nil, "note to self")

	err := posts.DeleteCascade(ctx, post.ID, func(*models.Post) error {
		return models.NewForbiddenError("no")
	})
	assert.Equal(t, models.CodeForbidden, models.ErrorCode(err))

	var n int64
	require.NoError(t, db.Model(&models.Comment{}).Count(&n).Error)
	assert.Equal(t, int64(1), n)
}

func TestPostRepository_ListNewestFirst(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	posts := NewPostRepository(db)
	alice := testutil.CreateUser(t, db, "alice")

	base := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, content := range []string{"first", "second", "third"} {
		p := &models.Post{UserID: alice.ID, Title: content, Content: content, CreatedAt: base.Add(time.Duration(i) * time.Minute)}
		require.NoError(t, posts.Create(ctx, p))
	}

	got, err := posts.List(ctx, 2, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "third", got[0].Content)
	assert.Equal(t, "second", got[1].Content)
	require.NotNil(t, got[0].User)
	assert.Equal(t, "alice", got[0].User.Username)

	got, err = posts.List(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "first", got[0].Content)
}

func TestCommentRepository_CreateValidatesParent(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	comments := NewCommentRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	p1 := testutil.CreatePost(t, db, alice.ID, "one")
	p2 := testutil.CreatePost(t, db, alice.ID, "two")
	onP2 := testutil.CreateComment(t, db, p2.ID, alice.ID, nil, "elsewhere")

	err := comments.Create(ctx, &models.Comment{PostID: p1.ID, UserID: alice.ID, ParentID: &onP2.ID, Content: "cross"})
	assert.ErrorIs(t, err, models.ErrInvalidParent)
	assert.Equal(t, models.CodeValidation, models.ErrorCode(err))

	missing := uint(9999)
	err = comments.Create(ctx, &models.Comment{PostID: p1.ID, UserID: alice.ID, ParentID: &missing, Content: "ghost"})
	assert.ErrorIs(t, err, models.ErrInvalidParent)

	err = comments.Create(ctx, &models.Comment{PostID: 9999, UserID: alice.ID, Content: "no post"})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	root := &models.Comment{PostID: p1.ID, UserID: alice.ID, Content: "root"}
	require.NoError(t, comments.Create(ctx, root))
	reply := &models.Comment{PostID: p1.ID, UserID: alice.ID, ParentID: &root.ID, Content: "reply"}
	require.NoError(t, comments.Create(ctx, reply))

	listed, err := comments.ListByPost(ctx, p1.ID)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, root.ID, listed[0].ID)
}

func TestCommentRepository_DeleteSubtree(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	comments := NewCommentRepository(db)
	likes := NewLikeRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, alice.ID, "poem")

	a := testutil.CreateComment(t, db, post.ID, bob.ID, nil, "a")
	b := testutil.CreateComment(t, db, post.ID, alice.ID, &a.ID, "b")
	c := testutil.CreateComment(t, db, post.ID, bob.ID, &b.ID, "c")
	d := testutil.CreateComment(t, db, post.ID, bob.ID, nil, "d")

	for _, id := range []uint{a.ID, c.ID, d.ID} {
		_, err := likes.Like(ctx, alice.ID, models.CommentTarget(id), nil)
		require.NoError(t, err)
	}

	removed, err := comments.DeleteSubtree(ctx, a.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	left, err := comments.ListByPost(ctx, post.ID)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, d.ID, left[0].ID)

	var likeTargets []uint
	require.NoError(t, db.Model(&models.Like{}).Pluck("target_id", &likeTargets).Error)
	assert.Equal(t, []uint{d.ID}, likeTargets)

	_, err = comments.DeleteSubtree(ctx, a.ID, nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestFollowRepository_Lifecycle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	follows := NewFollowRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	carol := testutil.CreateUser(t, db, "carol")

	first, err := follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	again, err := follows.Follow(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "re-follow keeps the existing edge")

	_, err = follows.Follow(ctx, carol.ID, bob.ID)
	require.NoError(t, err)

	ok, err := follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = follows.IsFollowing(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	followers, err := follows.Followers(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, followers, 2)
	assert.Equal(t, "alice", followers[0].Username)
	assert.Equal(t, "carol", followers[1].Username)

	following, err := follows.Following(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, following, 1)
	assert.Equal(t, "bob", following[0].Username)

	n, err := follows.CountFollowers(ctx, bob.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
	n, err = follows.CountFollowing(ctx, bob.ID)
	require.NoError(t, err)
	assert.Zero(t, n)

	require.NoError(t, follows.Unfollow(ctx, alice.ID, bob.ID))
	ok, err = follows.IsFollowing(ctx, alice.ID, bob.ID)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.ErrorIs(t, follows.Unfollow(ctx, alice.ID, bob.ID), models.ErrNotFollowing)

	_, err = follows.Follow(ctx, alice.ID, 9999)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestLikeRepository_IdempotentAndGuarded(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	likes := NewLikeRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, bob.ID, "by bob")
	target := models.PostTarget(post.ID)

	owner, err := likes.TargetOwner(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, bob.ID, owner)

	selfLike := func(ownerID uint) error {
		if ownerID == bob.ID {
			return models.WrapDomainError(models.CodeValidation, models.ErrSelfLike)
		}
		return nil
	}
	_, err = likes.Like(ctx, bob.ID, target, selfLike)
	assert.ErrorIs(t, err, models.ErrSelfLike)

	_, err = likes.Like(ctx, alice.ID, target, nil)
	require.NoError(t, err)
	_, err = likes.Like(ctx, alice.ID, target, nil)
	require.NoError(t, err)

	n, err := likes.Count(ctx, target)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	liked, err := likes.HasLiked(ctx, alice.ID, target)
	require.NoError(t, err)
	assert.True(t, liked)

	counts, err := likes.CountsFor(ctx, models.LikeTargetPost, []uint{post.ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, map[uint]int64{post.ID: 1}, counts)

	by, err := likes.LikedBy(ctx, alice.ID, models.LikeTargetPost, []uint{post.ID})
	require.NoError(t, err)
	assert.True(t, by[post.ID])

	require.NoError(t, likes.Unlike(ctx, alice.ID, target))
	assert.ErrorIs(t, likes.Unlike(ctx, alice.ID, target), models.ErrNotLiked)

	_, err = likes.Like(ctx, alice.ID, models.CommentTarget(12345), nil)
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))
}

func TestLikeRepository_Toggle(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	likes := NewLikeRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, bob.ID, "by bob")
	comment := testutil.CreateComment(t, db, post.ID, bob.ID, nil, "also bob")

	state, err := likes.Toggle(ctx, alice.ID, models.CommentTarget(comment.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: true, Count: 1}, state)

	state, err = likes.Toggle(ctx, alice.ID, models.CommentTarget(comment.ID), nil)
	require.NoError(t, err)
	assert.Equal(t, models.LikeState{Liked: false, Count: 0}, state)
}

func TestLikeRepository_ConcurrentLikesStoreOneRow(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	likes := NewLikeRepository(db)

	alice := testutil.CreateUser(t, db, "alice")
	bob := testutil.CreateUser(t, db, "bob")
	post := testutil.CreatePost(t, db, bob.ID, "popular")

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := likes.Like(ctx, alice.ID, models.PostTarget(post.ID), nil)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	n, err := likes.Count(ctx, models.PostTarget(post.ID))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUserRepository_SQLite(t *testing.T) {
	db := testutil.NewSQLiteDB(t)
	ctx := context.Background()
	users := NewUserRepository(db)

	u := &models.User{Username: "emily", Password: "00.00"}
	require.NoError(t, users.Create(ctx, u))

	err := users.Create(ctx, &models.User{Username: "emily", Password: "00.00"})
	assert.ErrorIs(t, err, models.ErrUsernameTaken)

	byName, err := users.GetByUsername(ctx, "emily")
	require.NoError(t, err)
	assert.Equal(t, u.ID, byName.ID)

	_, err = users.GetByUsername(ctx, "nobody")
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	updated, err := users.Update(ctx, u.ID, map[string]interface{}{"is_suspended": true, "bio": "recluse"})
	require.NoError(t, err)
	assert.True(t, updated.IsSuspended)
	assert.Equal(t, "recluse", updated.Bio)

	_, err = users.Update(ctx, 9999, map[string]interface{}{"bio": "x"})
	assert.Equal(t, models.CodeNotFound, models.ErrorCode(err))

	byID, err := users.GetByIDs(ctx, []uint{u.ID, 9999})
	require.NoError(t, err)
	assert.Len(t, byID, 1)

	list, err := users.List(ctx, 0, 0)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
