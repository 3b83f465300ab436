package main

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/iterator"
)

type bigQueryMigrator struct {
	client    *bigquery.Client
	projectID string
	datasetID string
	appliedBy string
}

func newBigQueryMigrator(ctx context.Context, projectID, datasetID, appliedBy string) (*bigQueryMigrator, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating BigQuery client: %w", err)
	}
	return &bigQueryMigrator{
		client:    client,
		projectID: projectID,
		datasetID: datasetID,
		appliedBy: appliedBy,
	}, nil
}

func (m *bigQueryMigrator) table() string {
	return fmt.Sprintf("`%s.%s.schema_migrations`", m.projectID, m.datasetID)
}

// EnsureTable creates the schema_migrations table if it doesn't exist
func (m *bigQueryMigrator) EnsureTable(ctx context.Context) error {
	return m.exec(ctx, m.client.Query(fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version       INT64 NOT NULL,
			name          STRING NOT NULL,
			applied_at    TIMESTAMP NOT NULL,
			checksum      STRING,
			applied_by    STRING
		)
	`, m.table())))
}

// Applied retrieves the already applied migrations by version
func (m *bigQueryMigrator) Applied(ctx context.Context) (map[int]AppliedMigration, error) {
	it, err := m.client.Query(fmt.Sprintf(`
		SELECT version, name, applied_at, checksum, applied_by
		FROM %s
		ORDER BY version ASC
	`, m.table())).Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading applied migrations: %w", err)
	}

	applied := make(map[int]AppliedMigration)
	for {
		var row struct {
			Version   int64               `bigquery:"version"`
			Name      string              `bigquery:"name"`
			AppliedAt time.Time           `bigquery:"applied_at"`
			Checksum  bigquery.NullString `bigquery:"checksum"`
			AppliedBy bigquery.NullString `bigquery:"applied_by"`
		}

		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iterating results: %w", err)
		}

		applied[int(row.Version)] = AppliedMigration{
			Version:   int(row.Version),
			Name:      row.Name,
			AppliedAt: row.AppliedAt,
			Checksum:  row.Checksum.StringVal,
			AppliedBy: row.AppliedBy.StringVal,
		}
	}
	return applied, nil
}

// Apply executes the migration SQL and records it in schema_migrations
func (m *bigQueryMigrator) Apply(ctx context.Context, mig Migration) error {
	if err := m.exec(ctx, m.client.Query(mig.SQL)); err != nil {
		return err
	}

	q := m.client.Query(fmt.Sprintf(`
		INSERT INTO %s
		(version, name, applied_at, checksum, applied_by)
		VALUES (@version, @name, CURRENT_TIMESTAMP(), @checksum, @applied_by)
	`, m.table()))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "version", Value: mig.Version},
		{Name: "name", Value: mig.Name},
		{Name: "checksum", Value: mig.Checksum},
		{Name: "applied_by", Value: m.appliedBy},
	}
	if err := m.exec(ctx, q); err != nil {
		return fmt.Errorf("recording migration: %w", err)
	}
	return nil
}

func (m *bigQueryMigrator) exec(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("running query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("waiting for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
