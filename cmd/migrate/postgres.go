package main

import (
	"context"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dvloznov/scrap-tracker/internal/infra/postgres"
)

type postgresMigrator struct {
	pool      *pgxpool.Pool
	appliedBy string
}

func newPostgresMigrator(ctx context.Context, dsn, appliedBy string) (*postgresMigrator, error) {
	pool, err := postgres.NewPool(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &postgresMigrator{pool: pool, appliedBy: appliedBy}, nil
}

func (m *postgresMigrator) EnsureTable(ctx context.Context) error {
	_, err := m.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			name       TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			checksum   TEXT,
			applied_by TEXT
		)
	`)
	return err
}

func (m *postgresMigrator) Applied(ctx context.Context) (map[int]AppliedMigration, error) {
	var rows []struct {
		Version   int     `db:"version"`
		Name      string  `db:"name"`
		Checksum  *string `db:"checksum"`
		AppliedBy *string `db:"applied_by"`
	}
	if err := pgxscan.Select(ctx, m.pool, &rows,
		`SELECT version, name, checksum, applied_by FROM schema_migrations ORDER BY version`); err != nil {
		return nil, err
	}

	applied := make(map[int]AppliedMigration, len(rows))
	for _, r := range rows {
		am := AppliedMigration{Version: r.Version, Name: r.Name}
		if r.Checksum != nil {
			am.Checksum = *r.Checksum
		}
		if r.AppliedBy != nil {
			am.AppliedBy = *r.AppliedBy
		}
		applied[r.Version] = am
	}
	return applied, nil
}

// Apply runs the migration and its bookkeeping row in one transaction.
func (m *postgresMigrator) Apply(ctx context.Context, mig Migration) error {
	return pgx.BeginFunc(ctx, m.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, mig.SQL); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO schema_migrations (version, name, checksum, applied_by) VALUES ($1, $2, $3, $4)`,
			mig.Version, mig.Name, mig.Checksum, m.appliedBy)
		if err != nil {
			return fmt.Errorf("recording migration: %w", err)
		}
		return nil
	})
}
