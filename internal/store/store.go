// Package store is the single entry point for reading and writing records.
// It prefers the remote backend and falls back to the local mirror when the
// backend cannot be reached, so every action yields usable data.
package store

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/rs/zerolog"
)

// Data sources reported by List.
const (
	SourceRemote = "remote"
	SourceLocal  = "local"
)

// timestampLayout matches the millisecond ISO form earlier local records
// were written with.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// ListResult is a normalized record list and where it came from.
type ListResult struct {
	Records []domain.Record `json:"records"`
	Source  string          `json:"source"`
	Warning string          `json:"warning,omitempty"`
}

// Option configures a RecordStore.
type Option func(*RecordStore)

// WithLogger sets the store logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *RecordStore) { s.logger = l }
}

// WithClock sets the clock used for default dates, local ids and timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *RecordStore) { s.now = now }
}

// WithUserID sets the owner written into created rows.
func WithUserID(id string) Option {
	return func(s *RecordStore) { s.userID = id }
}

// RecordStore owns the in-memory record collection and the mirror. Each
// action holds the store lock until it completes, fallback included.
type RecordStore struct {
	mu      sync.Mutex
	backend Backend
	mirror  Mirror
	records []domain.Record

	norm   *records.Normalizer
	view   *records.ViewBuilder
	now    func() time.Time
	userID string
	logger zerolog.Logger
}

// New returns a store over backend and mirror. Call Open before use.
func New(backend Backend, mirror Mirror, opts ...Option) *RecordStore {
	s := &RecordStore{
		backend: backend,
		mirror:  mirror,
		records: []domain.Record{},
		now:     time.Now,
		userID:  "1",
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.norm = records.NewNormalizer().WithClock(s.now)
	s.view = records.NewViewBuilder(records.NewDateResolver().WithClock(s.now))
	return s
}

// Open loads the mirror into memory. A mirror that cannot be read leaves the
// store empty and is returned for logging; the store stays usable.
func (s *RecordStore) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.mirror.Load(ctx)
	if err != nil {
		s.records = []domain.Record{}
		return fmt.Errorf("Open: loading mirror: %w", err)
	}
	s.records = s.norm.NormalizeMany(recs)
	s.logger.Info().Int("records", len(s.records)).Msg("local mirror loaded")
	return nil
}

// Create validates in and writes it to the backend. If the backend fails the
// record is kept locally with a generated id, and the returned error is a
// *RemoteError. A *records.ValidationError leaves everything unchanged.
func (s *RecordStore) Create(ctx context.Context, in records.Input) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := in.Validate(); err != nil {
		return domain.Record{}, err
	}

	now := s.now()
	rec := in.Prepare(now)

	payload := rec.StorageMap()
	delete(payload, "id")
	payload["user_id"] = s.userID

	row, err := s.backend.Create(ctx, payload)
	if err == nil {
		created := s.norm.Normalize(row)
		s.appendLocked(ctx, created)
		return created, nil
	}

	s.logger.Warn().Err(err).Str("item_name", rec.ItemName).Msg("remote create failed, keeping record locally")

	rec.ID = records.LocalID(now)
	rec.Timestamp = localTimestamp(in.TransactionDate, now)
	local := s.norm.Normalize(rec.Map())
	s.appendLocked(ctx, local)

	return local, &RemoteError{Op: "create", Err: err}
}

// localTimestamp is midnight UTC of a supplied transaction date, otherwise
// now.
func localTimestamp(date string, now time.Time) string {
	if d, err := time.Parse(domain.DateLayout, date); err == nil {
		return d.UTC().Format(timestampLayout)
	}
	return now.UTC().Format(timestampLayout)
}

// List returns the records matching f. Remote rows are returned as the
// backend ordered them. On a remote failure the in-memory records are
// filtered locally, newest first, and a *RemoteError is returned with the
// usable result.
func (s *RecordStore) List(ctx context.Context, f domain.Filters) (ListResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.backend.List(ctx, f)
	if err == nil {
		return ListResult{Records: s.norm.NormalizeMany(rows), Source: SourceRemote}, nil
	}

	// Memory holds every record kept this process, including ones whose
	// mirror write failed.
	s.logger.Warn().Err(err).Msg("remote list failed, serving in-memory records")
	remoteErr := &RemoteError{Op: "list", Err: err}

	return ListResult{
		Records: s.view.Build(slices.Clone(s.records), f, domain.SortDateDesc),
		Source:  SourceLocal,
		Warning: remoteErr.Error(),
	}, remoteErr
}

// Get returns the record with id from the backend, or from memory when the
// backend fails or does not know it.
func (s *RecordStore) Get(ctx context.Context, id string) (domain.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row, err := s.backend.Get(ctx, id)
	if err == nil {
		return s.norm.Normalize(row), nil
	}

	var remoteErr error
	if !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Str("id", id).Msg("remote get failed, searching memory")
		remoteErr = &RemoteError{Op: "get", Err: err}
	}

	i := slices.IndexFunc(s.records, func(r domain.Record) bool { return r.ID == id })
	if i < 0 {
		return domain.Record{}, fmt.Errorf("Get %q: %w", id, ErrNotFound)
	}
	return s.records[i], remoteErr
}

// DeleteByID removes id from the backend and, regardless of the outcome,
// from memory and the mirror. A backend failure is returned as a
// *RemoteError after the local removal.
func (s *RecordStore) DeleteByID(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.backend.Delete(ctx, id)

	s.records = slices.DeleteFunc(s.records, func(r domain.Record) bool { return r.ID == id })
	s.saveLocked(ctx)

	if err != nil && !errors.Is(err, ErrNotFound) {
		s.logger.Warn().Err(err).Str("id", id).Msg("remote delete failed, removed locally")
		return &RemoteError{Op: "delete", Err: err}
	}
	return nil
}

// Snapshot returns a copy of the in-memory collection.
func (s *RecordStore) Snapshot() []domain.Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.records)
}

func (s *RecordStore) appendLocked(ctx context.Context, rec domain.Record) {
	s.records = append(s.records, rec)
	s.saveLocked(ctx)
}

// saveLocked writes memory to the mirror. A failed write is logged and the
// in-memory collection stays authoritative for this process.
func (s *RecordStore) saveLocked(ctx context.Context) {
	if err := s.mirror.Save(ctx, s.records); err != nil {
		s.logger.Warn().Err(err).Msg("local mirror write failed")
	}
}
