package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
)

// RecordRepository provides an interface for record-related database operations.
type RecordRepository interface {
	// InsertRecord inserts a single RecordRow, assigning its id and created_at.
	InsertRecord(ctx context.Context, row *RecordRow) error

	// ListRecords returns the rows matching f, newest transaction date first.
	ListRecords(ctx context.Context, f domain.Filters) ([]*RecordRow, error)

	// GetRecord returns the row with id, or nil if there is none.
	GetRecord(ctx context.Context, id string) (*RecordRow, error)

	// DeleteRecord removes the row with id.
	DeleteRecord(ctx context.Context, id string) error
}

// RecordRow represents a purchase record in BigQuery.
type RecordRow struct {
	ID     string              `bigquery:"id"`      // REQUIRED
	UserID bigquery.NullString `bigquery:"user_id"` // NULLABLE

	ItemName     string  `bigquery:"item_name"`     // REQUIRED
	Weight       float64 `bigquery:"weight"`        // REQUIRED FLOAT64, kg
	SupplierName string  `bigquery:"supplier_name"` // REQUIRED

	PricePerKg  *big.Rat `bigquery:"price_per_kg"` // NULLABLE NUMERIC, 0 for Pot
	Amount      *big.Rat `bigquery:"amount"`       // NULLABLE NUMERIC, Pot only
	TotalAmount *big.Rat `bigquery:"total_amount"` // REQUIRED NUMERIC

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED
	CreatedAt       time.Time  `bigquery:"created_at"`       // REQUIRED (default CURRENT_TIMESTAMP)
}

// RecordRowFromMap builds a row from a storage-named payload.
func RecordRowFromMap(m map[string]any) (*RecordRow, error) {
	date, err := civil.ParseDate(strings.TrimSpace(fmt.Sprint(m["transaction_date"])))
	if err != nil {
		return nil, fmt.Errorf("RecordRowFromMap: transaction_date: %w", err)
	}

	row := &RecordRow{
		ItemName:        stringValue(m["item_name"]),
		Weight:          records.ToFloat(m["weight"]),
		SupplierName:    stringValue(m["supplier_name"]),
		PricePerKg:      numeric(records.ToFloat(m["price_per_kg"])),
		Amount:          numeric(records.ToFloat(m["amount"])),
		TotalAmount:     numeric(records.ToFloat(m["total_amount"])),
		TransactionDate: date,
	}
	if id := stringValue(m["id"]); id != "" {
		row.ID = id
	}
	if uid := stringValue(m["user_id"]); uid != "" {
		row.UserID = bigquery.NullString{StringVal: uid, Valid: true}
	}
	return row, nil
}

// Map returns the row with storage field names, ready for normalization.
func (r *RecordRow) Map() map[string]any {
	m := map[string]any{
		"id":               r.ID,
		"item_name":        r.ItemName,
		"weight":           r.Weight,
		"supplier_name":    r.SupplierName,
		"price_per_kg":     records.ToFloat(r.PricePerKg),
		"amount":           records.ToFloat(r.Amount),
		"total_amount":     records.ToFloat(r.TotalAmount),
		"transaction_date": r.TransactionDate,
	}
	if !r.CreatedAt.IsZero() {
		m["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if r.UserID.Valid {
		m["user_id"] = r.UserID.StringVal
	}
	return m
}

// numeric converts f to a NUMERIC value rounded to BigQuery's nine decimal
// digits.
func numeric(f float64) *big.Rat {
	r, ok := new(big.Rat).SetString(big.NewFloat(records.Finite(f)).Text('f', 9))
	if !ok {
		return new(big.Rat)
	}
	return r
}

func stringValue(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}
