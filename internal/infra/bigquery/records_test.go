package bigquery

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

var testDataset = Dataset{ProjectID: "proj", DatasetID: "scrap"}

func paramNames(params []bigquery.QueryParameter) []string {
	var names []string
	for _, p := range params {
		names = append(names, p.Name)
	}
	return names
}

func TestBuildListQuery_NoFilters(t *testing.T) {
	query, params := buildListQuery(testDataset, domain.Filters{})

	if !strings.Contains(query, "FROM `proj.scrap.records`") {
		t.Errorf("query missing table: %s", query)
	}
	if strings.Contains(query, "WHERE") {
		t.Errorf("unexpected WHERE clause: %s", query)
	}
	if !strings.Contains(query, "ORDER BY transaction_date DESC") {
		t.Errorf("query missing ordering: %s", query)
	}
	if len(params) != 0 {
		t.Errorf("expected no params, got %v", paramNames(params))
	}
}

func TestBuildListQuery_AllFilters(t *testing.T) {
	query, params := buildListQuery(testDataset, domain.Filters{
		ItemName:     " Iron ",
		SupplierName: "musa",
		StartDate:    "2024-01-01",
		EndDate:      "2024-01-31",
	})

	for _, clause := range []string{
		"transaction_date >= @start_date",
		"transaction_date <= @end_date",
		"STRPOS(LOWER(item_name), LOWER(@item_name)) > 0",
		"STRPOS(LOWER(supplier_name), LOWER(@supplier_name)) > 0",
	} {
		if !strings.Contains(query, clause) {
			t.Errorf("query missing %q:\n%s", clause, query)
		}
	}

	want := []string{"start_date", "end_date", "item_name", "supplier_name"}
	got := paramNames(params)
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("params = %v, want %v", got, want)
	}
	if params[0].Value != (civil.Date{Year: 2024, Month: time.January, Day: 1}) {
		t.Errorf("start_date = %v", params[0].Value)
	}
	if params[2].Value != "Iron" {
		t.Errorf("item_name = %v, want trimmed", params[2].Value)
	}
}

func TestBuildListQuery_InvalidDatesIgnored(t *testing.T) {
	query, params := buildListQuery(testDataset, domain.Filters{StartDate: "yesterday", EndDate: "2024-13-01"})

	if strings.Contains(query, "WHERE") || len(params) != 0 {
		t.Errorf("invalid bounds should be ignored, got %s %v", query, paramNames(params))
	}
}

// fakeRepo is an in-memory RecordRepository.
type fakeRepo struct {
	rows []*RecordRow
	err  error
}

func (f *fakeRepo) InsertRecord(_ context.Context, row *RecordRow) error {
	if f.err != nil {
		return f.err
	}
	row.ID = "bq-1"
	row.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	f.rows = append(f.rows, row)
	return nil
}

func (f *fakeRepo) ListRecords(context.Context, domain.Filters) ([]*RecordRow, error) {
	return f.rows, f.err
}

func (f *fakeRepo) GetRecord(_ context.Context, id string) (*RecordRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	for _, r := range f.rows {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, nil
}

func (f *fakeRepo) DeleteRecord(context.Context, string) error { return f.err }

func TestBackend_CreateRoundTrip(t *testing.T) {
	repo := &fakeRepo{}
	b := NewBackend(repo)

	row, err := b.Create(context.Background(), map[string]any{
		"item_name":        "Iron",
		"weight":           10.0,
		"price_per_kg":     50.0,
		"amount":           0.0,
		"total_amount":     500.0,
		"supplier_name":    "Musa",
		"transaction_date": "2024-01-02",
		"user_id":          "1",
	})
	if err != nil {
		t.Fatalf("Create() error: %v", err)
	}

	rec := records.Normalize(row)
	if rec.ID != "bq-1" || rec.ItemName != "Iron" || rec.TotalAmount != 500 || rec.PricePerKg != 50 {
		t.Errorf("normalized row = %+v", rec)
	}
	if rec.TransactionDate != "2024-01-02" {
		t.Errorf("TransactionDate = %q", rec.TransactionDate)
	}
	if rec.CreatedAt != "2024-01-02T03:04:05Z" {
		t.Errorf("CreatedAt = %q", rec.CreatedAt)
	}
}

func TestBackend_CreateRejectsBadDate(t *testing.T) {
	b := NewBackend(&fakeRepo{})

	if _, err := b.Create(context.Background(), map[string]any{"transaction_date": "soon"}); err == nil {
		t.Error("expected an error for an unparsable transaction date")
	}
}

func TestBackend_GetNotFound(t *testing.T) {
	b := NewBackend(&fakeRepo{})

	_, err := b.Get(context.Background(), "missing")
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
}

func TestBackend_PropagatesErrors(t *testing.T) {
	boom := errors.New("bigquery down")
	b := NewBackend(&fakeRepo{err: boom})
	ctx := context.Background()

	if _, err := b.List(ctx, domain.Filters{}); !errors.Is(err, boom) {
		t.Errorf("List() error = %v", err)
	}
	if err := b.Delete(ctx, "x"); !errors.Is(err, boom) {
		t.Errorf("Delete() error = %v", err)
	}
}
