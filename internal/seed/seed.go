// Package seed populates a database with fake poets and their activity for
// local development and demos.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"poetportal/internal/auth"
	"poetportal/internal/models"
	"poetportal/internal/observability"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "poetry123"

// Options configuration for the seeder
type Options struct {
	Users              int
	PostsPerUser       int
	MaxCommentsPerPost int
	// FollowRatio is the chance that any ordered pair of users is a follow edge.
	FollowRatio float64
	// LikeRatio is the chance that a user likes any given post or comment.
	LikeRatio float64
	Clean     bool
	// Seed makes runs reproducible. Zero uses the clock.
	Seed int64
}

// Result counts what a run inserted.
type Result struct {
	Users    int
	Posts    int
	Comments int
	Follows  int
	Likes    int
}

// Seeder writes fake data straight through gorm, bypassing the services.
type Seeder struct {
	db    *gorm.DB
	faker *gofakeit.Faker
}

func NewSeeder(db *gorm.DB, seed int64) *Seeder {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Seeder{db: db, faker: gofakeit.New(seed)}
}

// Run seeds according to opts.
func Run(ctx context.Context, db *gorm.DB, opts Options) (*Result, error) {
	s := NewSeeder(db, opts.Seed)
	if opts.Clean {
		if err := s.ClearAll(ctx); err != nil {
			return nil, fmt.Errorf("clear data: %w", err)
		}
	}
	return s.Seed(ctx, opts)
}

// ClearAll removes every domain row, children first.
func (s *Seeder) ClearAll(ctx context.Context) error {
	for _, table := range []string{"likes", "comments", "posts", "follows", "users"} {
		if err := s.db.WithContext(ctx).Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	log := observability.Ctx(ctx)
	res := &Result{}
	db := s.db.WithContext(ctx)

	digest, err := auth.HashPassword(DefaultPassword)
	if err != nil {
		return nil, err
	}

	users := make([]*models.User, 0, opts.Users)
	for i := 0; i < opts.Users; i++ {
		first := s.faker.FirstName()
		users = append(users, &models.User{
			Username:    fmt.Sprintf("%s_%d", handle(first), i+1),
			Password:    digest,
			DisplayName: first + " " + s.faker.LastName(),
			Bio:         s.faker.Sentence(10),
		})
	}
	if len(users) == 0 {
		return res, nil
	}
	if err := db.CreateInBatches(users, 100).Error; err != nil {
		return nil, fmt.Errorf("create users: %w", err)
	}
	res.Users = len(users)
	log.Info().Int("count", res.Users).Msg("seeded users")

	posts := make([]*models.Post, 0, len(users)*opts.PostsPerUser)
	for _, u := range users {
		for j := 0; j < opts.PostsPerUser; j++ {
			content := s.poem()
			posts = append(posts, &models.Post{
				UserID:    u.ID,
				Title:     models.DeriveTitle(content),
				Content:   content,
				CreatedAt: s.pastTime(),
			})
		}
	}
	if len(posts) > 0 {
		if err := db.CreateInBatches(posts, 100).Error; err != nil {
			return nil, fmt.Errorf("create posts: %w", err)
		}
	}
	res.Posts = len(posts)

	comments, err := s.seedThreads(db, users, posts, opts.MaxCommentsPerPost)
	if err != nil {
		return nil, err
	}
	res.Comments = len(comments)

	if res.Follows, err = s.seedFollows(db, users, opts.FollowRatio); err != nil {
		return nil, err
	}
	if res.Likes, err = s.seedLikes(db, users, posts, comments, opts.LikeRatio); err != nil {
		return nil, err
	}

	log.Info().
		Int("posts", res.Posts).
		Int("comments", res.Comments).
		Int("follows", res.Follows).
		Int("likes", res.Likes).
		Msg("seeding complete")
	return res, nil
}

// seedThreads writes comments one level at a time so each reply can point at
// a parent that already has an id.
func (s *Seeder) seedThreads(db *gorm.DB, users []*models.User, posts []*models.Post, maxPerPost int) ([]*models.Comment, error) {
	var all []*models.Comment
	if maxPerPost <= 0 {
		return all, nil
	}

	var level []*models.Comment
	for _, p := range posts {
		n := s.faker.Number(0, maxPerPost)
		for k := 0; k < n; k++ {
			level = append(level, &models.Comment{
				PostID:    p.ID,
				UserID:    s.pickUser(users).ID,
				Content:   s.faker.Sentence(s.faker.Number(4, 14)),
				CreatedAt: p.CreatedAt.Add(time.Duration(s.faker.Number(1, 600)) * time.Minute),
			})
		}
	}

	for depth := 1; depth <= models.MaxReplyDepth && len(level) > 0; depth++ {
		if err := db.CreateInBatches(level, 100).Error; err != nil {
			return nil, fmt.Errorf("create depth %d comments: %w", depth, err)
		}
		all = append(all, level...)

		var next []*models.Comment
		for _, parent := range level {
			if !s.faker.Bool() {
				continue
			}
			parentID := parent.ID
			next = append(next, &models.Comment{
				PostID:    parent.PostID,
				UserID:    s.pickUser(users).ID,
				ParentID:  &parentID,
				Content:   s.faker.Sentence(s.faker.Number(3, 10)),
				CreatedAt: parent.CreatedAt.Add(time.Duration(s.faker.Number(1, 240)) * time.Minute),
			})
		}
		level = next
	}
	return all, nil
}

func (s *Seeder) seedFollows(db *gorm.DB, users []*models.User, ratio float64) (int, error) {
	var edges []*models.Follow
	for _, a := range users {
		for _, b := range users {
			if a.ID == b.ID || !s.chance(ratio) {
				continue
			}
			edges = append(edges, &models.Follow{FollowerID: a.ID, FollowedID: b.ID})
		}
	}
	if len(edges) == 0 {
		return 0, nil
	}
	if err := db.CreateInBatches(edges, 200).Error; err != nil {
		return 0, fmt.Errorf("create follows: %w", err)
	}
	return len(edges), nil
}

func (s *Seeder) seedLikes(db *gorm.DB, users []*models.User, posts []*models.Post, comments []*models.Comment, ratio float64) (int, error) {
	var likes []*models.Like
	for _, u := range users {
		for _, p := range posts {
			if p.UserID != u.ID && s.chance(ratio) {
				likes = append(likes, &models.Like{UserID: u.ID, TargetType: models.LikeTargetPost, TargetID: p.ID})
			}
		}
		for _, c := range comments {
			if c.UserID != u.ID && s.chance(ratio) {
				likes = append(likes, &models.Like{UserID: u.ID, TargetType: models.LikeTargetComment, TargetID: c.ID})
			}
		}
	}
	if len(likes) == 0 {
		return 0, nil
	}
	if err := db.CreateInBatches(likes, 200).Error; err != nil {
		return 0, fmt.Errorf("create likes: %w", err)
	}
	return len(likes), nil
}

// poem returns a few short lines of fake verse.
func (s *Seeder) poem() string {
	lines := make([]string, s.faker.Number(2, 6))
	for i := range lines {
		lines[i] = strings.TrimSuffix(s.faker.Sentence(s.faker.Number(3, 8)), ".")
	}
	return strings.Join(lines, "\n")
}

func (s *Seeder) pastTime() time.Time {
	back := time.Duration(s.faker.Number(0, 90*24*60)) * time.Minute
	return time.Now().Add(-back)
}

func (s *Seeder) pickUser(users []*models.User) *models.User {
	return users[s.faker.Number(0, len(users)-1)]
}

func (s *Seeder) chance(ratio float64) bool {
	if ratio <= 0 {
		return false
	}
	return s.faker.Float64Range(0, 1) < ratio
}

// handle lowercases name and drops anything a username cannot contain. Names
// without a letter fall back to "poet".
func handle(name string) string {
	var b strings.Builder
	letters := 0
	for _, r := range strings.ToLower(name) {
		if r > unicode.MaxASCII {
			continue
		}
		switch {
		case unicode.IsLetter(r):
			letters++
			b.WriteRune(r)
		case unicode.IsDigit(r):
			b.WriteRune(r)
		}
	}
	if letters == 0 {
		return "poet"
	}
	return b.String()
}
