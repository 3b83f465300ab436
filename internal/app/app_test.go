package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dvloznov/scrap-tracker/internal/config"
	"github.com/dvloznov/scrap-tracker/internal/domain"
	"github.com/dvloznov/scrap-tracker/internal/records"
	"github.com/dvloznov/scrap-tracker/internal/store"
)

func offlineConfig(dir string) config.Config {
	return config.Config{
		Backend:   config.BackendNone,
		Mirror:    config.MirrorFile,
		MirrorDir: dir,
		MirrorKey: "scrapRecords",
		UserID:    "1",
	}
}

func TestOpen_OfflineFileMirror(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	a, err := Open(ctx, offlineConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	weight, price := 2.0, 100.0
	_, err = a.Store.Create(ctx, records.Input{ItemName: "Brass", Weight: &weight, PricePerKg: &price, SupplierName: "Ada"})
	require.True(t, store.IsRemoteFallback(err))

	_, err = os.Stat(filepath.Join(dir, "scrapRecords.json"))
	require.NoError(t, err)

	// A second process sees the mirrored record.
	b, err := Open(ctx, offlineConfig(dir), zerolog.Nop())
	require.NoError(t, err)
	defer b.Close()
	assert.Len(t, b.Store.Snapshot(), 1)
}

func TestOpen_UnknownBackendFallsBackOffline(t *testing.T) {
	cfg := offlineConfig(t.TempDir())
	cfg.Backend = "mongo"

	a, err := Open(context.Background(), cfg, zerolog.Nop())
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Store.List(context.Background(), domain.Filters{})
	assert.True(t, store.IsRemoteFallback(err))
}

func TestOpen_UnknownMirror(t *testing.T) {
	cfg := offlineConfig(t.TempDir())
	cfg.Mirror = "s3"

	_, err := Open(context.Background(), cfg, zerolog.Nop())
	assert.Error(t, err)
}
