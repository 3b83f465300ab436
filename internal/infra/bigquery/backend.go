package bigquery

import (
	"context"
	"fmt"

	bq "github.com/dvloznov/scrap-tracker/internal/bigquery"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

// Backend adapts a RecordRepository to store.Backend.
type Backend struct {
	repo RecordRepository
}

var _ store.Backend = (*Backend)(nil)

// NewBackend returns a store backend over repo.
func NewBackend(repo RecordRepository) *Backend {
	return &Backend{repo: repo}
}

func (b *Backend) List(ctx context.Context, f domain.Filters) ([]map[string]any, error) {
	rows, err := b.repo.ListRecords(ctx, f)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.Map())
	}
	return out, nil
}

func (b *Backend) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	row, err := bq.RecordRowFromMap(payload)
	if err != nil {
		return nil, fmt.Errorf("Create: %w", err)
	}
	if err := b.repo.InsertRecord(ctx, row); err != nil {
		return nil, err
	}
	return row.Map(), nil
}

func (b *Backend) Get(ctx context.Context, id string) (map[string]any, error) {
	row, err := b.repo.GetRecord(ctx, id)
	if err != nil {
		return nil, err
	}
	if row == nil {
		return nil, fmt.Errorf("Get %q: %w", id, store.ErrNotFound)
	}
	return row.Map(), nil
}

func (b *Backend) Delete(ctx context.Context, id string) error {
	return b.repo.DeleteRecord(ctx, id)
}
