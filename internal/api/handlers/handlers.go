package handlers

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/api/middleware"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

// RecordStore is the record store as the handlers use it.
type RecordStore interface {
	Create(ctx context.Context, in records.Input) (domain.Record, error)
	List(ctx context.Context, f domain.Filters) (store.ListResult, error)
	Get(ctx context.Context, id string) (domain.Record, error)
	DeleteByID(ctx context.Context, id string) error
}

// DataSourceHeader tells clients whether data came from the remote backend
// or the local mirror.
const DataSourceHeader = "X-Data-Source"

// query returns the first non-empty value among the given parameter names.
func query(q url.Values, names ...string) string {
	for _, n := range names {
		if v := q.Get(n); v != "" {
			return v
		}
	}
	return ""
}

// filtersFromQuery reads view filters in either naming convention. Date
// bounds must be YYYY-MM-DD.
func filtersFromQuery(q url.Values) (domain.Filters, error) {
	f := domain.Filters{
		ItemName:     query(q, "itemName", "item_name"),
		SupplierName: query(q, "supplierName", "supplier_name"),
		StartDate:    query(q, "startDate", "start_date"),
		EndDate:      query(q, "endDate", "end_date"),
	}
	for _, d := range []string{f.StartDate, f.EndDate} {
		if d == "" {
			continue
		}
		if _, err := time.Parse(domain.DateLayout, d); err != nil {
			return domain.Filters{}, errInvalidDate
		}
	}
	return f, nil
}

var errInvalidDate = errors.New("dates must be in YYYY-MM-DD format")

// markSource sets the data source header and returns the warning to show,
// if the store fell back to local data.
func markSource(w http.ResponseWriter, source string, err error) string {
	if source == "" {
		source = store.SourceRemote
		if store.IsRemoteFallback(err) {
			source = store.SourceLocal
		}
	}
	w.Header().Set(DataSourceHeader, source)
	if store.IsRemoteFallback(err) {
		return err.Error()
	}
	return ""
}

// writeStoreError maps a non-recoverable store error onto a response.
func writeStoreError(w http.ResponseWriter, err error, fallback string) {
	var ve *records.ValidationError
	switch {
	case errors.As(err, &ve):
		middleware.WriteJSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "Invalid record",
			"fields": ve.Fields,
		})
	case errors.Is(err, store.ErrNotFound):
		middleware.WriteError(w, http.StatusNotFound, "Record not found")
	default:
		middleware.WriteError(w, http.StatusInternalServerError, fallback)
	}
}
