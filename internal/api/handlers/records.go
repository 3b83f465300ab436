package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/dvloznov/scrap-tracker/internal/api/middleware"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
	"github.com/rs/zerolog"
)

// RecordsHandler handles record endpoints.
type RecordsHandler struct {
	store RecordStore
	log   zerolog.Logger
}

// NewRecordsHandler creates a new records handler.
func NewRecordsHandler(s RecordStore, log zerolog.Logger) *RecordsHandler {
	return &RecordsHandler{
		store: s,
		log:   log,
	}
}

// ListRecords handles GET /api/records
// Query: itemName, supplierName, startDate, endDate, sort.
func (h *RecordsHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort := domain.ParseSortKey(r.URL.Query().Get("sort"))

	res, err := h.store.List(ctx, filters)
	if err != nil && !store.IsRemoteFallback(err) {
		log.Error().Err(err).Msg("Failed to list records")
		writeStoreError(w, err, "Failed to list records")
		return
	}

	view := records.BuildView(res.Records, filters, sort)
	warning := markSource(w, res.Source, err)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"records": view,
		"count":   len(view),
		"source":  res.Source,
		"sort":    sort,
		"warning": warning,
	})
}

// CreateRecord handles POST /api/records
// The body may use display or storage field names.
func (h *RecordsHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	var body map[string]any
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	rec, err := h.store.Create(ctx, records.InputFromMap(body))
	if err != nil && !store.IsRemoteFallback(err) {
		if !records.IsValidationError(err) {
			log.Error().Err(err).Msg("Failed to create record")
		}
		writeStoreError(w, err, "Failed to create record")
		return
	}

	warning := markSource(w, "", err)
	log.Info().
		Str("record_id", rec.ID).
		Str("item_name", rec.ItemName).
		Bool("local", warning != "").
		Msg("Record created")

	middleware.WriteJSON(w, http.StatusCreated, map[string]interface{}{
		"record":  rec,
		"warning": warning,
	})
}

// GetRecord handles GET /api/records/{id}
func (h *RecordsHandler) GetRecord(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()

	rec, err := h.store.Get(ctx, id)
	if err != nil && !store.IsRemoteFallback(err) {
		writeStoreError(w, err, "Failed to get record")
		return
	}

	warning := markSource(w, "", err)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"record":  rec,
		"warning": warning,
	})
}

// DeleteRecord handles DELETE /api/records/{id}
// The record is removed locally even when the backend cannot be reached.
func (h *RecordsHandler) DeleteRecord(w http.ResponseWriter, r *http.Request, id string) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	err := h.store.DeleteByID(ctx, id)
	if err != nil && !store.IsRemoteFallback(err) {
		log.Error().Err(err).Str("record_id", id).Msg("Failed to delete record")
		writeStoreError(w, err, "Failed to delete record")
		return
	}

	warning := markSource(w, "", err)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"id":      id,
		"deleted": true,
		"warning": warning,
	})
}
