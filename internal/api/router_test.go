package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/scrap-tracker/internal/api/handlers"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/jobs"
	"github.com/dvloznov/scrap-tracker/internal/jobs/inmemory"
	"github.com/dvloznov/scrap-tracker/internal/mirror"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/report"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

// memBackend is a remote backend held in memory.
type memBackend struct {
	mu   sync.Mutex
	rows []map[string]any
	seq  int
}

func (b *memBackend) List(context.Context, domain.Filters) ([]map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.rows), nil
}

func (b *memBackend) Create(_ context.Context, payload map[string]any) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	row := map[string]any{"id": fmt.Sprintf("rec-%d", b.seq), "created_at": "2024-03-15T09:30:00Z"}
	for k, v := range payload {
		row[k] = v
	}
	b.rows = append(b.rows, row)
	return row, nil
}

func (b *memBackend) Get(_ context.Context, id string) (map[string]any, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, r := range b.rows {
		if r["id"] == id {
			return r, nil
		}
	}
	return nil, store.ErrNotFound
}

func (b *memBackend) Delete(_ context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.rows = slices.DeleteFunc(b.rows, func(r map[string]any) bool { return r["id"] == id })
	return nil
}

type memStorage struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func (s *memStorage) UploadBytes(_ context.Context, bucket, object, _ string, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uri := "gs://" + bucket + "/" + object
	s.objects[uri] = slices.Clone(data)
	return uri, nil
}

func (s *memStorage) FetchFromGCS(_ context.Context, uri string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data, ok := s.objects[uri]
	if !ok {
		return nil, fmt.Errorf("no object %s", uri)
	}
	return data, nil
}

func (s *memStorage) ExtractFilenameFromGCSURI(uri string) string {
	return uri[strings.LastIndex(uri, "/")+1:]
}

type testServer struct {
	handler  http.Handler
	jobStore *inmemory.Store
	storage  *memStorage
}

func newTestServer(t *testing.T, backend store.Backend) *testServer {
	t.Helper()

	m, err := mirror.NewFileMirror(t.TempDir(), mirror.DefaultSlot)
	require.NoError(t, err)

	s := store.New(backend, m)
	require.NoError(t, s.Open(context.Background()))

	storage := &memStorage{objects: map[string][]byte{}}
	jobStore := inmemory.NewStore()
	queue := inmemory.NewQueue(10, jobStore).WithWorkers(1)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, queue.Start(ctx, jobs.NewExportHandler(s, storage, "exports-bucket")))
	t.Cleanup(func() {
		cancel()
		queue.Stop(context.Background())
	})

	log := zerolog.Nop()
	return &testServer{
		handler: NewRouter(Handlers{
			Records:   handlers.NewRecordsHandler(s, log),
			Dashboard: handlers.NewDashboardHandler(s, log),
			Exports:   handlers.NewExportsHandler(s, queue, jobStore, storage, log),
			Jobs:      handlers.NewJobsHandler(jobStore, log),
		}, log),
		jobStore: jobStore,
		storage:  storage,
	}
}

func (ts *testServer) do(t *testing.T, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

type recordResponse struct {
	Record  domain.Record `json:"record"`
	Warning string        `json:"warning"`
}

type listResponse struct {
	Records []domain.Record `json:"records"`
	Count   int             `json:"count"`
	Source  string          `json:"source"`
	Warning string          `json:"warning"`
}

func seed(t *testing.T, ts *testServer) {
	t.Helper()
	for _, body := range []map[string]any{
		{"itemName": "Iron", "weight": 10, "pricePerKg": 50, "supplierName": "Musa", "transactionDate": "2024-01-01"},
		{"itemName": "Copper", "weight": 2, "pricePerKg": 900, "supplierName": "Ada Metals", "transactionDate": "2024-01-02"},
		{"item_name": "Pot", "weight": 3, "amount": "250", "supplier_name": "Musa", "transaction_date": "2024-01-02"},
	} {
		rec := ts.do(t, http.MethodPost, "/api/records", body)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
}

func TestCreateRecord_Remote(t *testing.T) {
	ts := newTestServer(t, &memBackend{})

	rec := ts.do(t, http.MethodPost, "/api/records", map[string]any{
		"itemName": "Pot", "weight": 3, "pricePerKg": 20, "amount": 500, "supplierName": "Ada", "transactionDate": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, store.SourceRemote, rec.Header().Get(handlers.DataSourceHeader))

	got := decode[recordResponse](t, rec)
	assert.Equal(t, "rec-1", got.Record.ID)
	assert.Equal(t, 500.0, got.Record.TotalAmount)
	assert.Equal(t, 0.0, got.Record.PricePerKg)
	assert.Empty(t, got.Warning)
}

func TestCreateRecord_OfflineKeepsLocally(t *testing.T) {
	ts := newTestServer(t, store.Offline{})

	rec := ts.do(t, http.MethodPost, "/api/records", map[string]any{
		"itemName": "Iron", "weight": 4, "pricePerKg": 25, "supplierName": "Musa", "transactionDate": "2024-02-01",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, store.SourceLocal, rec.Header().Get(handlers.DataSourceHeader))

	got := decode[recordResponse](t, rec)
	assert.NotEmpty(t, got.Record.ID)
	assert.Equal(t, 100.0, got.Record.TotalAmount)
	assert.NotEmpty(t, got.Warning)

	rec = ts.do(t, http.MethodGet, "/api/records", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.SourceLocal, rec.Header().Get(handlers.DataSourceHeader))
	list := decode[listResponse](t, rec)
	require.Len(t, list.Records, 1)
	assert.Equal(t, got.Record.ID, list.Records[0].ID)
	assert.NotEmpty(t, list.Warning)
}

func TestCreateRecord_Invalid(t *testing.T) {
	ts := newTestServer(t, &memBackend{})

	rec := ts.do(t, http.MethodPost, "/api/records", map[string]any{"itemName": "Iron", "weight": 4})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	got := decode[struct {
		Fields map[string]string `json:"fields"`
	}](t, rec)
	assert.Contains(t, got.Fields, "supplierName")
	assert.Contains(t, got.Fields, "pricePerKg")

	req := httptest.NewRequest(http.MethodPost, "/api/records", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListRecords_FiltersAndSort(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/records?supplierName=musa&sort=amount-desc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[listResponse](t, rec)
	require.Len(t, list.Records, 2)
	assert.Equal(t, "Iron", list.Records[0].ItemName)
	assert.Equal(t, "Pot", list.Records[1].ItemName)
	assert.Equal(t, store.SourceRemote, list.Source)

	rec = ts.do(t, http.MethodGet, "/api/records?item_name=copper&start_date=2024-01-02&end_date=2024-01-02", nil)
	list = decode[listResponse](t, rec)
	require.Len(t, list.Records, 1)
	assert.Equal(t, "Ada Metals", list.Records[0].SupplierName)

	rec = ts.do(t, http.MethodGet, "/api/records?startDate=01/02/2024", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndDeleteRecord(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/records/rec-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Copper", decode[recordResponse](t, rec).Record.ItemName)

	rec = ts.do(t, http.MethodDelete, "/api/records/rec-2", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/records/rec-2", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodPut, "/api/records/rec-1", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDeleteRecord_OfflineStillRemovesLocally(t *testing.T) {
	ts := newTestServer(t, store.Offline{})
	seed(t, ts)

	list := decode[listResponse](t, ts.do(t, http.MethodGet, "/api/records", nil))
	require.Len(t, list.Records, 3)

	rec := ts.do(t, http.MethodDelete, "/api/records/"+list.Records[0].ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, store.SourceLocal, rec.Header().Get(handlers.DataSourceHeader))

	list = decode[listResponse](t, ts.do(t, http.MethodGet, "/api/records", nil))
	assert.Len(t, list.Records, 2)
}

func TestDashboard(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[struct {
		Summary      records.Summary        `json:"summary"`
		TopSuppliers []records.SupplierStat `json:"topSuppliers"`
	}](t, rec)
	assert.Equal(t, 3, got.Summary.Count)
	assert.InDelta(t, 15.0, got.Summary.TotalWeight, 1e-9)
	assert.InDelta(t, 500.0+1800.0+250.0, got.Summary.TotalAmount, 1e-9)
	require.Len(t, got.TopSuppliers, 2)
	assert.Equal(t, "Ada Metals", got.TopSuppliers[0].SupplierName)
	assert.InDelta(t, 750.0, got.TopSuppliers[1].TotalAmount, 1e-9)
}

func TestDaily(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/daily?date=2024-01-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[struct {
		Day records.DaySummary `json:"day"`
	}](t, rec)
	assert.Equal(t, "2024-01-02", got.Day.Date)
	assert.Equal(t, 2, got.Day.Count)
	assert.InDelta(t, 2050.0, got.Day.TotalAmount, 1e-9)

	rec = ts.do(t, http.MethodGet, "/api/daily?date=yesterday", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_Download(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodGet, "/api/export?format=csv&sort=date-asc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.FormatCSV.ContentType(), rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment; filename=")

	lines := strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(report.Header, ","), lines[0])
	assert.True(t, strings.HasPrefix(lines[1], `"2024-01-01","Iron"`), lines[1])

	rec = ts.do(t, http.MethodGet, "/api/export?format=xlsx", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, report.FormatXLSX.ContentType(), rec.Header().Get("Content-Type"))
	assert.NotZero(t, rec.Body.Len())

	rec = ts.do(t, http.MethodGet, "/api/export?format=pdf", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestExport_Job(t *testing.T) {
	ts := newTestServer(t, &memBackend{})
	seed(t, ts)

	rec := ts.do(t, http.MethodPost, "/api/exports", map[string]any{"format": "csv", "supplierName": "Musa"})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	jobID := decode[map[string]string](t, rec)["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		job, err := ts.jobStore.GetJob(context.Background(), jobID)
		return err == nil && job.Status == jobs.JobStatusCompleted
	}, 2*time.Second, 5*time.Millisecond)

	rec = ts.do(t, http.MethodGet, "/api/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	job := decode[jobs.ExportReportJob](t, rec)
	assert.Equal(t, 2, job.RecordCount)
	assert.True(t, strings.HasPrefix(job.ObjectURI, "gs://exports-bucket/exports/"+jobID+"/"), job.ObjectURI)

	rec = ts.do(t, http.MethodGet, "/api/exports/"+jobID+"/download", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, strings.Split(strings.TrimRight(rec.Body.String(), "\n"), "\n"), 3)

	rec = ts.do(t, http.MethodGet, "/api/jobs?format=csv", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode[map[string]any](t, rec)["count"])
}

func TestExport_JobErrors(t *testing.T) {
	ts := newTestServer(t, &memBackend{})

	rec := ts.do(t, http.MethodPost, "/api/exports", map[string]any{"format": "pdf"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/exports/missing/download", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/exports/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = ts.do(t, http.MethodGet, "/api/jobs/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndRequestID(t *testing.T) {
	ts := newTestServer(t, store.Offline{})

	rec := ts.do(t, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodOptions, "/api/records", nil)
	w := httptest.NewRecorder()
	ts.handler.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}
