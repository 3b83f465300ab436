package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"path"
	"strconv"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/api/middleware"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/gcs"
	"github.com/dvloznov/scrap-tracker/internal/gcsuploader"
	"github.com/dvloznov/scrap-tracker/internal/jobs"
	"github.com/dvloznov/scrap-tracker/internal/logger"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/report"
	"github.com/dvloznov/scrap-tracker/internal/store"
	"github.com/rs/zerolog"
)

// ExportsHandler handles report export endpoints.
type ExportsHandler struct {
	store     RecordStore
	publisher jobs.Publisher
	jobStore  jobs.JobStore
	storage   gcs.StorageService
	log       zerolog.Logger
	now       func() time.Time
}

// NewExportsHandler creates a new exports handler. publisher, jobStore and
// storage may be nil, in which case only direct downloads are served.
func NewExportsHandler(s RecordStore, publisher jobs.Publisher, jobStore jobs.JobStore, storage gcs.StorageService, log zerolog.Logger) *ExportsHandler {
	return &ExportsHandler{
		store:     s,
		publisher: publisher,
		jobStore:  jobStore,
		storage:   storage,
		log:       log,
		now:       time.Now,
	}
}

func parseFormat(s string) (report.Format, error) {
	switch report.Format(s) {
	case "", report.FormatCSV:
		return report.FormatCSV, nil
	case report.FormatXLSX:
		return report.FormatXLSX, nil
	}
	return "", fmt.Errorf("unsupported format %q", s)
}

func attachment(w http.ResponseWriter, f report.Format, filename string, size int) {
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(size))
}

// Download handles GET /api/export
// Query: format (csv or xlsx) plus the record list filters and sort.
func (h *ExportsHandler) Download(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.FromContext(ctx)
	q := r.URL.Query()

	format, err := parseFormat(q.Get("format"))
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	filters, err := filtersFromQuery(q)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	sort := domain.ParseSortKey(q.Get("sort"))

	res, err := h.store.List(ctx, filters)
	if err != nil && !store.IsRemoteFallback(err) {
		log.Error().Err(err).Msg("Failed to list records for export")
		writeStoreError(w, err, "Failed to export records")
		return
	}
	markSource(w, res.Source, err)

	view := records.BuildView(res.Records, filters, sort)

	var buf bytes.Buffer
	if err := report.Render(&buf, format, view); err != nil {
		log.Error().Err(err).Msg("Failed to render export")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to export records")
		return
	}

	attachment(w, format, report.Filename(format, h.now().UTC()), buf.Len())
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// EnqueueExport handles POST /api/exports
func (h *ExportsHandler) EnqueueExport(w http.ResponseWriter, r *http.Request) {
	if h.publisher == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Export jobs are not configured")
		return
	}

	var req struct {
		Format       string `json:"format"`
		ItemName     string `json:"itemName"`
		SupplierName string `json:"supplierName"`
		StartDate    string `json:"startDate"`
		EndDate      string `json:"endDate"`
		Sort         string `json:"sort"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	format, err := parseFormat(req.Format)
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, d := range []string{req.StartDate, req.EndDate} {
		if _, err := time.Parse(domain.DateLayout, d); d != "" && err != nil {
			middleware.WriteError(w, http.StatusBadRequest, errInvalidDate.Error())
			return
		}
	}

	ctx := r.Context()
	log := logger.FromContext(ctx)

	job := &jobs.ExportReportJob{
		Format: string(format),
		Filters: domain.Filters{
			ItemName:     req.ItemName,
			SupplierName: req.SupplierName,
			StartDate:    req.StartDate,
			EndDate:      req.EndDate,
		},
		Sort: domain.ParseSortKey(req.Sort),
	}

	if err := h.publisher.PublishExportReport(ctx, job); err != nil {
		log.Error().Err(err).Msg("Failed to enqueue export job")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to enqueue export job")
		return
	}

	log.Info().Str("job_id", job.JobID).Str("format", job.Format).Msg("Export job enqueued")

	middleware.WriteJSON(w, http.StatusAccepted, map[string]string{
		"job_id": job.JobID,
		"format": job.Format,
		"status": string(jobs.JobStatusPending),
	})
}

// DownloadJob handles GET /api/exports/{id}/download
func (h *ExportsHandler) DownloadJob(w http.ResponseWriter, r *http.Request, jobID string) {
	if h.jobStore == nil || h.storage == nil {
		middleware.WriteError(w, http.StatusServiceUnavailable, "Export jobs are not configured")
		return
	}
	ctx := r.Context()
	log := logger.FromContext(ctx)

	job, err := h.jobStore.GetJob(ctx, jobID)
	if err != nil {
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}
	if job.Status != jobs.JobStatusCompleted || job.ObjectURI == "" {
		middleware.WriteJSON(w, http.StatusConflict, map[string]string{
			"error":  "Export is not ready",
			"status": string(job.Status),
		})
		return
	}

	data, err := h.storage.FetchFromGCS(ctx, job.ObjectURI)
	if err != nil {
		status := http.StatusBadGateway
		if errors.Is(err, gcsuploader.ErrObjectNotFound) {
			status = http.StatusGone
		}
		log.Error().Err(err).Str("job_id", jobID).Msg("Failed to fetch export")
		middleware.WriteError(w, status, "Failed to fetch export")
		return
	}

	filename := path.Base(h.storage.ExtractFilenameFromGCSURI(job.ObjectURI))
	attachment(w, report.ParseFormat(job.Format), filename, len(data))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
