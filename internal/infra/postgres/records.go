package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

const recordsTable = "records"

var recordColumns = []string{
	"id",
	"user_id",
	"item_name",
	"weight",
	"price_per_kg",
	"amount",
	"supplier_name",
	"transaction_date",
	"total_amount",
	"created_at",
}

// DB is the subset of *pgxpool.Pool the repository uses.
type DB interface {
	pgxscan.Querier
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// RecordRow is a row of the records table.
type RecordRow struct {
	ID              string    `db:"id"`
	UserID          *string   `db:"user_id"`
	ItemName        string    `db:"item_name"`
	Weight          float64   `db:"weight"`
	PricePerKg      float64   `db:"price_per_kg"`
	Amount          float64   `db:"amount"`
	SupplierName    string    `db:"supplier_name"`
	TransactionDate time.Time `db:"transaction_date"`
	TotalAmount     float64   `db:"total_amount"`
	CreatedAt       time.Time `db:"created_at"`
}

// Map returns the row with storage field names.
func (r *RecordRow) Map() map[string]any {
	m := map[string]any{
		"id":               r.ID,
		"item_name":        r.ItemName,
		"weight":           r.Weight,
		"price_per_kg":     r.PricePerKg,
		"amount":           r.Amount,
		"supplier_name":    r.SupplierName,
		"transaction_date": r.TransactionDate.Format(domain.DateLayout),
		"total_amount":     r.TotalAmount,
	}
	if !r.CreatedAt.IsZero() {
		m["created_at"] = r.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	if r.UserID != nil {
		m["user_id"] = *r.UserID
	}
	return m
}

// Repo implements store.Backend on a Postgres records table.
type Repo struct {
	db DB
	qb squirrel.StatementBuilderType
}

var _ store.Backend = (*Repo)(nil)

// NewRepo returns a repository over db.
func NewRepo(db DB) *Repo {
	return &Repo{
		db: db,
		qb: squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}
}

// likeEscaper escapes LIKE wildcards in user input.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repo) listQuery(f domain.Filters) squirrel.SelectBuilder {
	q := r.qb.Select(recordColumns...).From(recordsTable)

	if d, err := time.Parse(domain.DateLayout, strings.TrimSpace(f.StartDate)); err == nil {
		q = q.Where(squirrel.GtOrEq{"transaction_date": d})
	}
	if d, err := time.Parse(domain.DateLayout, strings.TrimSpace(f.EndDate)); err == nil {
		q = q.Where(squirrel.LtOrEq{"transaction_date": d})
	}
	if item := strings.TrimSpace(f.ItemName); item != "" {
		q = q.Where(squirrel.ILike{"item_name": "%" + likeEscaper.Replace(item) + "%"})
	}
	if supplier := strings.TrimSpace(f.SupplierName); supplier != "" {
		q = q.Where(squirrel.ILike{"supplier_name": "%" + likeEscaper.Replace(supplier) + "%"})
	}

	return q.OrderBy("transaction_date DESC", "created_at DESC")
}

// List returns the rows matching f, newest first.
func (r *Repo) List(ctx context.Context, f domain.Filters) ([]map[string]any, error) {
	sql, args, err := r.listQuery(f).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var rows []*RecordRow
	if err := pgxscan.Select(ctx, r.db, &rows, sql, args...); err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}

	out := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Map())
	}
	return out, nil
}

func (r *Repo) insertQuery(payload map[string]any) (squirrel.InsertBuilder, error) {
	date, err := time.Parse(domain.DateLayout, strings.TrimSpace(fmt.Sprint(payload["transaction_date"])))
	if err != nil {
		return squirrel.InsertBuilder{}, fmt.Errorf("transaction_date: %w", err)
	}

	var userID any
	if uid, ok := payload["user_id"].(string); ok && uid != "" {
		userID = uid
	}

	return r.qb.Insert(recordsTable).
		Columns("user_id", "item_name", "weight", "price_per_kg", "amount", "supplier_name", "transaction_date", "total_amount").
		Values(
			userID,
			fmt.Sprint(payload["item_name"]),
			records.ToFloat(payload["weight"]),
			records.ToFloat(payload["price_per_kg"]),
			records.ToFloat(payload["amount"]),
			fmt.Sprint(payload["supplier_name"]),
			date,
			records.ToFloat(payload["total_amount"]),
		).
		Suffix("RETURNING " + strings.Join(recordColumns, ", ")), nil
}

// Create inserts payload and returns the stored row.
func (r *Repo) Create(ctx context.Context, payload map[string]any) (map[string]any, error) {
	q, err := r.insertQuery(payload)
	if err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	sql, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build insert: %w", err)
	}

	var row RecordRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		return nil, fmt.Errorf("create record: %w", err)
	}
	return row.Map(), nil
}

// Get returns the row with id.
func (r *Repo) Get(ctx context.Context, id string) (map[string]any, error) {
	sql, args, err := r.qb.Select(recordColumns...).
		From(recordsTable).
		Where(squirrel.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	var row RecordRow
	if err := pgxscan.Get(ctx, r.db, &row, sql, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, fmt.Errorf("get record %q: %w", id, store.ErrNotFound)
		}
		return nil, fmt.Errorf("get record: %w", err)
	}
	return row.Map(), nil
}

// Delete removes the row with id.
func (r *Repo) Delete(ctx context.Context, id string) error {
	sql, args, err := r.qb.Delete(recordsTable).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete: %w", err)
	}
	if _, err := r.db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}
