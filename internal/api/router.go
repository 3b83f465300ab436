// Package api assembles the HTTP routes and middleware of the service.
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/api/handlers"
	"github.com/dvloznov/scrap-tracker/internal/api/middleware"
	"github.com/rs/zerolog"
)

// Handlers groups the endpoint handlers served by the router.
type Handlers struct {
	Records   *handlers.RecordsHandler
	Dashboard *handlers.DashboardHandler
	Exports   *handlers.ExportsHandler
	Jobs      *handlers.JobsHandler
}

func methodNotAllowed(w http.ResponseWriter) {
	middleware.WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NewRouter registers every route and wraps the mux in the middleware chain.
func NewRouter(h Handlers, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	// Records endpoints
	mux.HandleFunc("/api/records", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.Records.ListRecords(w, r)
		case http.MethodPost:
			h.Records.CreateRecord(w, r)
		default:
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/records/", func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimPrefix(r.URL.Path, "/api/records/")
		if id == "" {
			middleware.WriteError(w, http.StatusBadRequest, "Record ID is required")
			return
		}
		switch r.Method {
		case http.MethodGet:
			h.Records.GetRecord(w, r, id)
		case http.MethodDelete:
			h.Records.DeleteRecord(w, r, id)
		default:
			methodNotAllowed(w)
		}
	})

	// Dashboard endpoints
	mux.HandleFunc("/api/dashboard", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Dashboard.GetDashboard(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/daily", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Dashboard.GetDaily(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	// Export endpoints
	mux.HandleFunc("/api/export", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Exports.Download(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/exports", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			h.Exports.EnqueueExport(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/exports/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			methodNotAllowed(w)
			return
		}
		rest := strings.TrimPrefix(r.URL.Path, "/api/exports/")
		jobID, ok := strings.CutSuffix(rest, "/download")
		if !ok || jobID == "" || strings.Contains(jobID, "/") {
			middleware.WriteError(w, http.StatusNotFound, "Not found")
			return
		}
		h.Exports.DownloadJob(w, r, jobID)
	})

	// Jobs endpoints
	mux.HandleFunc("/api/jobs", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			h.Jobs.ListJobs(w, r)
		} else {
			methodNotAllowed(w)
		}
	})

	mux.HandleFunc("/api/jobs/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			jobID := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
			if jobID == "" {
				middleware.WriteError(w, http.StatusBadRequest, "Job ID is required")
				return
			}
			h.Jobs.GetJob(w, r, jobID)
		} else {
			methodNotAllowed(w)
		}
	})

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		middleware.WriteJSON(w, http.StatusOK, map[string]string{
			"status": "healthy",
			"time":   time.Now().Format(time.RFC3339),
		})
	})

	return middleware.Recovery(log)(
		middleware.RequestID(
			middleware.Logger(log)(
				middleware.CORS(
					middleware.Auth(mux),
				),
			),
		),
	)
}
