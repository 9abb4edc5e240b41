// Command seed fills the database with fake poets, poems and activity.
package main

import (
	"context"
	"flag"

	"poetportal/internal/config"
	"poetportal/internal/database"
	"poetportal/internal/observability"
	"poetportal/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 30, "Number of users to create")
	postsPerUser := flag.Int("posts", 4, "Posts per user")
	maxComments := flag.Int("comments", 5, "Maximum top-level comments per post")
	followRatio := flag.Float64("follow-ratio", 0.2, "Chance that a user follows another")
	likeRatio := flag.Float64("like-ratio", 0.15, "Chance that a user likes a post or comment")
	clean := flag.Bool("clean", true, "Clean database before seeding")
	seedValue := flag.Int64("seed", 0, "Random seed (0 uses the clock)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		observability.L().Fatal().Err(err).Msg("failed to load configuration")
	}
	observability.InitLogger(observability.LogConfig{Level: cfg.LogLevel, Pretty: true})
	log := observability.L()

	if cfg.IsProduction() {
		log.Fatal().Msg("refusing to seed a production database")
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}

	ctx := context.Background()
	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		log.Fatal().Err(err).Msg("schema apply failed")
	}

	res, err := seed.Run(ctx, db, seed.Options{
		Users:              *numUsers,
		PostsPerUser:       *postsPerUser,
		MaxCommentsPerPost: *maxComments,
		FollowRatio:        *followRatio,
		LikeRatio:          *likeRatio,
		Clean:              *clean,
		Seed:               *seedValue,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("seeding failed")
	}

	log.Info().
		Int("users", res.Users).
		Int("posts", res.Posts).
		Int("comments", res.Comments).
		Str("password", seed.DefaultPassword).
		Msg("database populated")
}
