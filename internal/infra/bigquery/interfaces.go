package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// BigQueryRecordRepository is the concrete implementation of RecordRepository
// that interacts with BigQuery. It holds a shared BigQuery client to avoid
// creating a new connection for each operation.
type BigQueryRecordRepository struct {
	client *bigquery.Client
	ds     Dataset
}

// NewBigQueryRecordRepository creates a repository for the records table of
// ds with a shared BigQuery client.
func NewBigQueryRecordRepository(ctx context.Context, ds Dataset) (*BigQueryRecordRepository, error) {
	client, err := bigquery.NewClient(ctx, ds.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("NewBigQueryRecordRepository: creating client: %w", err)
	}
	return &BigQueryRecordRepository{
		client: client,
		ds:     ds,
	}, nil
}

// Close closes the BigQuery client connection. This should be called when
// the repository is no longer needed to release resources.
func (r *BigQueryRecordRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// InsertRecord delegates to InsertRecordWithClient with the shared client.
func (r *BigQueryRecordRepository) InsertRecord(ctx context.Context, row *RecordRow) error {
	return InsertRecordWithClient(ctx, r.client, r.ds, row)
}

// ListRecords delegates to ListRecordsWithClient with the shared client.
func (r *BigQueryRecordRepository) ListRecords(ctx context.Context, f domain.Filters) ([]*RecordRow, error) {
	return ListRecordsWithClient(ctx, r.client, r.ds, f)
}

// GetRecord delegates to GetRecordWithClient with the shared client.
func (r *BigQueryRecordRepository) GetRecord(ctx context.Context, id string) (*RecordRow, error) {
	return GetRecordWithClient(ctx, r.client, r.ds, id)
}

// DeleteRecord delegates to DeleteRecordWithClient with the shared client.
func (r *BigQueryRecordRepository) DeleteRecord(ctx context.Context, id string) error {
	return DeleteRecordWithClient(ctx, r.client, r.ds, id)
}
