package bigquery

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
)

const recordColumns = `
			id,
			user_id,
			item_name,
			weight,
			supplier_name,
			price_per_kg,
			amount,
			total_amount,
			transaction_date,
			created_at`

// InsertRecordWithClient inserts row with a DML statement so it can be
// deleted right away (streamed rows cannot). A missing id is generated and
// created_at is set to now.
func InsertRecordWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, row *RecordRow) error {
	if row.ID == "" {
		row.ID = uuid.NewString()
	}
	row.CreatedAt = time.Now().UTC()

	q := client.Query(fmt.Sprintf(`
		INSERT %s (%s
		)
		VALUES (
			@id,
			@user_id,
			@item_name,
			@weight,
			@supplier_name,
			@price_per_kg,
			@amount,
			@total_amount,
			@transaction_date,
			@created_at
		)
	`, ds.table(recordsTable), recordColumns))

	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: row.ID},
		{Name: "user_id", Value: row.UserID},
		{Name: "item_name", Value: row.ItemName},
		{Name: "weight", Value: row.Weight},
		{Name: "supplier_name", Value: row.SupplierName},
		{Name: "price_per_kg", Value: row.PricePerKg},
		{Name: "amount", Value: row.Amount},
		{Name: "total_amount", Value: row.TotalAmount},
		{Name: "transaction_date", Value: row.TransactionDate},
		{Name: "created_at", Value: row.CreatedAt},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("InsertRecord: %w", err)
	}
	return nil
}

// buildListQuery renders the record listing SQL for f. Bounds that are not
// valid dates are ignored.
func buildListQuery(ds Dataset, f domain.Filters) (string, []bigquery.QueryParameter) {
	var where []string
	var params []bigquery.QueryParameter

	if d, err := civil.ParseDate(strings.TrimSpace(f.StartDate)); err == nil {
		where = append(where, "transaction_date >= @start_date")
		params = append(params, bigquery.QueryParameter{Name: "start_date", Value: d})
	}
	if d, err := civil.ParseDate(strings.TrimSpace(f.EndDate)); err == nil {
		where = append(where, "transaction_date <= @end_date")
		params = append(params, bigquery.QueryParameter{Name: "end_date", Value: d})
	}
	if item := strings.TrimSpace(f.ItemName); item != "" {
		where = append(where, "STRPOS(LOWER(item_name), LOWER(@item_name)) > 0")
		params = append(params, bigquery.QueryParameter{Name: "item_name", Value: item})
	}
	if supplier := strings.TrimSpace(f.SupplierName); supplier != "" {
		where = append(where, "STRPOS(LOWER(supplier_name), LOWER(@supplier_name)) > 0")
		params = append(params, bigquery.QueryParameter{Name: "supplier_name", Value: supplier})
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "SELECT%s\n\t\tFROM %s", recordColumns, ds.table(recordsTable))
	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, "\n\t\t  AND "))
	}
	sb.WriteString("\n\t\tORDER BY transaction_date DESC, created_at DESC")
	return sb.String(), params
}

// ListRecordsWithClient returns the rows matching f, newest first.
func ListRecordsWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, f domain.Filters) ([]*RecordRow, error) {
	query, params := buildListQuery(ds, f)
	q := client.Query(query)
	q.Parameters = params

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("ListRecords: reading query: %w", err)
	}

	var rows []*RecordRow
	for {
		var row RecordRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("ListRecords: iterating: %w", err)
		}
		rows = append(rows, &row)
	}

	return rows, nil
}

// GetRecordWithClient returns the row with id, or nil if none exists.
func GetRecordWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) (*RecordRow, error) {
	q := client.Query(fmt.Sprintf(`
		SELECT%s
		FROM %s
		WHERE id = @id
		LIMIT 1
	`, recordColumns, ds.table(recordsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("GetRecord: reading query: %w", err)
	}

	var row RecordRow
	err = it.Next(&row)
	if err == iterator.Done {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("GetRecord: iterating: %w", err)
	}
	return &row, nil
}

// DeleteRecordWithClient removes the row with id.
func DeleteRecordWithClient(ctx context.Context, client *bigquery.Client, ds Dataset, id string) error {
	q := client.Query(fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = @id
	`, ds.table(recordsTable)))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "id", Value: id},
	}

	if err := runDML(ctx, q); err != nil {
		return fmt.Errorf("DeleteRecord: %w", err)
	}
	return nil
}

func runDML(ctx context.Context, q *bigquery.Query) error {
	job, err := q.Run(ctx)
	if err != nil {
		return fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return fmt.Errorf("wait for job: %w", err)
	}

	if err := status.Err(); err != nil {
		return fmt.Errorf("job error: %w", err)
	}

	return nil
}
