package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/api/middleware"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
	"github.com/rs/zerolog"
)

// DashboardHandler serves the aggregate and per-day views.
type DashboardHandler struct {
	store RecordStore
	log   zerolog.Logger
	now   func() time.Time
}

// NewDashboardHandler creates a new dashboard handler.
func NewDashboardHandler(s RecordStore, log zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		store: s,
		log:   log,
		now:   time.Now,
	}
}

// GetDashboard handles GET /api/dashboard
// Accepts the same filters as the record list.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	filters, err := filtersFromQuery(r.URL.Query())
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.store.List(ctx, filters)
	if err != nil && !store.IsRemoteFallback(err) {
		log.Error().Err(err).Msg("Failed to load dashboard")
		writeStoreError(w, err, "Failed to load dashboard")
		return
	}

	summary := records.Aggregate(records.Filter(res.Records, filters))
	warning := markSource(w, res.Source, err)

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"summary":      summary,
		"topSuppliers": summary.SuppliersByAmount(),
		"source":       res.Source,
		"warning":      warning,
	})
}

// GetDaily handles GET /api/daily?date=YYYY-MM-DD
// The date defaults to today.
func (h *DashboardHandler) GetDaily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)

	day := strings.TrimSpace(r.URL.Query().Get("date"))
	if day == "" {
		day = h.now().Format(domain.DateLayout)
	}
	if _, err := time.Parse(domain.DateLayout, day); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid date format")
		return
	}

	res, err := h.store.List(ctx, domain.Filters{StartDate: day, EndDate: day})
	if err != nil && !store.IsRemoteFallback(err) {
		log.Error().Err(err).Msg("Failed to load daily records")
		writeStoreError(w, err, "Failed to load daily records")
		return
	}

	warning := markSource(w, res.Source, err)
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"day":     records.DailySummary(res.Records, day),
		"source":  res.Source,
		"warning": warning,
	})
}
