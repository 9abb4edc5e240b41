// Package bootstrap wires the process-wide runtime dependencies.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"poetportal/internal/auth"
	"poetportal/internal/cache"
	"poetportal/internal/config"
	"poetportal/internal/database"
	"poetportal/internal/models"
	"poetportal/internal/observability"
	"poetportal/internal/validation"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultRootUsername = "portal_root"

// InitRuntime connects to the database, applies the schema, connects Redis
// and ensures the development root admin. The Redis client is nil when Redis
// is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if err := database.ApplySchema(ctx, db, cfg); err != nil {
		return nil, nil, fmt.Errorf("schema apply failed: %w", err)
	}

	rdb := cache.InitRedis(cfg.RedisURL)

	if err := EnsureDevRootAdmin(ctx, cfg, db); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap development root admin: %w", err)
	}

	return db, rdb, nil
}

// EnsureDevRootAdmin creates or re-enables the configured root admin. It only
// acts in development with DEV_BOOTSTRAP_ROOT set.
func EnsureDevRootAdmin(ctx context.Context, cfg *config.Config, db *gorm.DB) error {
	if cfg == nil || db == nil {
		return nil
	}
	if !strings.EqualFold(cfg.Env, "development") || !cfg.DevBootstrapRoot {
		return nil
	}

	username := strings.TrimSpace(cfg.DevRootUsername)
	if username == "" {
		username = defaultRootUsername
	}
	if err := validation.ValidateUsername(username); err != nil {
		return fmt.Errorf("DEV_ROOT_USERNAME: %w", err)
	}
	if cfg.DevRootPassword == "" {
		return errors.New("DEV_ROOT_PASSWORD must be set when DEV_BOOTSTRAP_ROOT is enabled")
	}

	digest, err := auth.HashPassword(cfg.DevRootPassword)
	if err != nil {
		return fmt.Errorf("hash root password: %w", err)
	}

	err = db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var root models.User
		findErr := tx.Where("username = ?", username).First(&root).Error
		switch {
		case errors.Is(findErr, gorm.ErrRecordNotFound):
			root = models.User{
				Username:    username,
				Password:    digest,
				DisplayName: "Root",
				IsAdmin:     true,
			}
			return tx.Create(&root).Error
		case findErr != nil:
			return findErr
		default:
			return tx.Model(&models.User{}).Where("id = ?", root.ID).Updates(map[string]interface{}{
				"is_admin":     true,
				"is_suspended": false,
				"password":     digest,
			}).Error
		}
	})
	if err != nil {
		return err
	}

	observability.Ctx(ctx).Info().Str("username", username).Msg("development root admin ensured")
	return nil
}
