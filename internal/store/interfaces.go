package store

import (
	"context"

	"github.com/dvloznov/scrap-tracker/internal/domain"
)

// Backend is the remote record table. Rows use the storage naming
// (item_name, price_per_kg, supplier_name, transaction_date, total_amount,
// created_at, user_id).
type Backend interface {
	// List returns the rows matching f, newest transaction date first.
	// ItemName and SupplierName match as substrings ignoring case, and the
	// date bounds are inclusive.
	List(ctx context.Context, f domain.Filters) ([]map[string]any, error)

	// Create inserts payload and returns the stored row with its id.
	Create(ctx context.Context, payload map[string]any) (map[string]any, error)

	// Get returns the row with id, or an error wrapping ErrNotFound.
	Get(ctx context.Context, id string) (map[string]any, error)

	// Delete removes the row with id. Deleting a missing row is not an error.
	Delete(ctx context.Context, id string) error
}

// Mirror is the local copy of the record collection, kept in a single slot.
type Mirror interface {
	// Load returns the mirrored records. An empty slot yields no records.
	Load(ctx context.Context) ([]domain.Record, error)

	// Save replaces the slot contents with recs.
	Save(ctx context.Context, recs []domain.Record) error
}
