// Command migrate runs schema operations for the API database.
package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"poetportal/internal/config"
	"poetportal/internal/database"
	"poetportal/internal/observability"
)

func main() {
	if err := run(); err != nil {
		observability.L().Fatal().Err(err).Msg("migrate failed")
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/migrate <up|auto|status|down> [version]")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	observability.InitLogger(observability.LogConfig{Level: cfg.LogLevel, Pretty: true})
	log := observability.L()

	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(strings.TrimSpace(flag.Arg(0))) {
	case "up":
		if err := database.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("sql migrations failed: %w", err)
		}
		log.Info().Msg("sql migrations applied")
	case "auto":
		cfg.DBSchemaMode = database.SchemaModeAuto
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return fmt.Errorf("auto schema apply failed: %w", err)
		}
		log.Info().Msg("automigrations applied")
	case "status":
		status, err := database.GetSchemaStatus(ctx, db, cfg)
		if err != nil {
			return fmt.Errorf("schema status failed: %w", err)
		}
		log.Info().
			Str("mode", status.Mode).
			Str("env", status.Environment).
			Str("driver", status.Driver).
			Bool("run_sql", status.WillRunSQL).
			Bool("run_auto", status.WillRunAutoMigrate).
			Int("applied", len(status.AppliedVersions)).
			Int("pending", len(status.PendingMigrations)).
			Msg("schema status")
		for _, m := range status.PendingMigrations {
			log.Info().Msgf("pending: %06d_%s", m.Version, m.Name)
		}
	case "down":
		if flag.NArg() < 2 {
			return fmt.Errorf("usage: go run ./cmd/migrate down <version>")
		}
		version, err := strconv.Atoi(flag.Arg(1))
		if err != nil {
			return fmt.Errorf("invalid version %q: %w", flag.Arg(1), err)
		}
		if err := database.RollbackMigration(ctx, db, version); err != nil {
			return fmt.Errorf("rollback failed: %w", err)
		}
		log.Info().Int("version", version).Msg("rolled back migration")
	default:
		return usage()
	}

	return nil
}
