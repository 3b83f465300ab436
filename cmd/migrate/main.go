package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/scrap-tracker/internal/config"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/migrations"
)

func main() {
	cfg := config.Load()
	cfg.BindFlags(flag.CommandLine)
	appliedBy := flag.String("applied-by", "migrate-cli", "Name of the tool applying migrations")
	dryRun := flag.Bool("dry-run", false, "List pending migrations without applying them")
	flag.Parse()

	log := logger.NewWithLevel(cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	m, closeFn, err := newMigrator(ctx, cfg, *appliedBy)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Backend).Msg("Failed to connect")
	}
	defer closeFn()

	all, err := readMigrations(migrations.FS, cfg.Backend, placeholders(cfg))
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to read migrations")
	}
	log.Info().Int("count", len(all)).Str("backend", cfg.Backend).Msg("Found migration files")

	n, err := run(ctx, m, all, *dryRun, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Migration failed")
	}

	switch {
	case n == 0:
		log.Info().Msg("No new migrations to apply. Database is up to date.")
	case *dryRun:
		log.Info().Int("pending", n).Msg("Dry run, nothing applied")
	default:
		log.Info().Int("applied", n).Msg("Migrations applied")
	}
}

func newMigrator(ctx context.Context, cfg config.Config, appliedBy string) (migrator, func(), error) {
	switch cfg.Backend {
	case config.BackendBigQuery:
		if cfg.GCPProject == "" {
			return nil, nil, fmt.Errorf("-project (or GCP_PROJECT) is required")
		}
		m, err := newBigQueryMigrator(ctx, cfg.GCPProject, cfg.BQDataset, appliedBy)
		if err != nil {
			return nil, nil, err
		}
		return m, func() { m.client.Close() }, nil
	case config.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, nil, fmt.Errorf("-database-url (or DATABASE_URL) is required")
		}
		m, err := newPostgresMigrator(ctx, cfg.DatabaseURL, appliedBy)
		if err != nil {
			return nil, nil, err
		}
		return m, m.pool.Close, nil
	}
	return nil, nil, fmt.Errorf("backend %q has no migrations", cfg.Backend)
}

func placeholders(cfg config.Config) map[string]string {
	return map[string]string{
		"{{PROJECT_ID}}": cfg.GCPProject,
		"{{DATASET_ID}}": cfg.BQDataset,
	}
}

// run applies the migrations m has not seen yet, in version order.
func run(ctx context.Context, m migrator, all []Migration, dryRun bool, log zerolog.Logger) (int, error) {
	if err := m.EnsureTable(ctx); err != nil {
		return 0, fmt.Errorf("ensuring schema_migrations table: %w", err)
	}

	applied, err := m.Applied(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading applied migrations: %w", err)
	}
	log.Info().Int("count", len(applied)).Msg("Found already applied migrations")

	for _, mig := range all {
		if am, ok := applied[mig.Version]; ok && am.Checksum != "" && am.Checksum != mig.Checksum {
			log.Warn().
				Int("version", mig.Version).
				Str("name", mig.Name).
				Msg("Applied migration file has changed since it was applied")
		}
	}

	todo := pending(all, applied)
	for _, mig := range todo {
		l := log.With().Int("version", mig.Version).Str("name", mig.Name).Logger()
		if dryRun {
			l.Info().Msg("Pending")
			continue
		}

		l.Info().Msg("Applying")
		if err := m.Apply(ctx, mig); err != nil {
			return 0, fmt.Errorf("applying %04d_%s: %w", mig.Version, mig.Name, err)
		}
		l.Info().Msg("Applied")
	}
	return len(todo), nil
}

func init() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: migrate [flags]\n\nApplies the embedded schema migrations for -backend (bigquery or postgres).\n\n")
		flag.PrintDefaults()
	}
}
