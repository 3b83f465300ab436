// Package app wires configuration into a ready record store: the remote
// backend, the local mirror and their cleanup.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/dvloznov/scrap-tracker/internal/config"
	infraBQ "github.com/dvloznov/scrap-tracker/internal/infra/bigquery"
	"github.com/dvloznov/scrap-tracker/internal/infra/postgres"
	"github.com/dvloznov/scrap-tracker/internal/mirror"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

// App holds the record store and the resources behind it.
type App struct {
	Store *store.RecordStore

	closers []func() error
}

// Open builds the store described by cfg and loads its mirror. A backend
// that cannot be reached at startup leaves the store offline, and a Redis
// mirror that cannot be reached is replaced by the file mirror; both are
// logged rather than returned.
func Open(ctx context.Context, cfg config.Config, log zerolog.Logger) (*App, error) {
	a := &App{}

	backend, err := a.openBackend(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Str("backend", cfg.Backend).Msg("Remote backend unavailable, running on local mirror")
		backend = store.Offline{}
	}

	m, err := a.openMirror(ctx, cfg)
	if err != nil && cfg.Mirror == config.MirrorRedis {
		log.Warn().Err(err).Msg("Redis mirror unavailable, using file mirror")
		m, err = mirror.NewFileMirror(cfg.MirrorDir, cfg.MirrorKey)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("app: opening mirror: %w", err)
	}

	a.Store = store.New(backend, m,
		store.WithLogger(log),
		store.WithUserID(cfg.UserID),
	)
	if err := a.Store.Open(ctx); err != nil {
		log.Warn().Err(err).Msg("Local mirror unreadable, starting empty")
	}

	return a, nil
}

func (a *App) openBackend(ctx context.Context, cfg config.Config) (store.Backend, error) {
	switch cfg.Backend {
	case config.BackendBigQuery:
		repo, err := infraBQ.NewBigQueryRecordRepository(ctx, infraBQ.Dataset{
			ProjectID: cfg.GCPProject,
			DatasetID: cfg.BQDataset,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, repo.Close)
		return infraBQ.NewBackend(repo), nil

	case config.BackendPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() error {
			pool.Close()
			return nil
		})
		return postgres.NewRepo(pool), nil

	case config.BackendNone:
		return store.Offline{}, nil
	}
	return nil, fmt.Errorf("unknown backend %q", cfg.Backend)
}

func (a *App) openMirror(ctx context.Context, cfg config.Config) (store.Mirror, error) {
	switch cfg.Mirror {
	case config.MirrorRedis:
		client, err := mirror.DialRedis(ctx, cfg.RedisAddr)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		return mirror.NewRedisMirror(client, cfg.MirrorKey), nil
	case config.MirrorFile, "":
		return mirror.NewFileMirror(cfg.MirrorDir, cfg.MirrorKey)
	}
	return nil, fmt.Errorf("unknown mirror %q", cfg.Mirror)
}

// Close releases every opened resource, newest first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
