// Package config reads service settings from a .env file, the environment
// and command-line flags, in increasing order of precedence.
package config

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Backend names accepted by BACKEND / -backend.
const (
	BackendBigQuery = "bigquery"
	BackendPostgres = "postgres"
	BackendNone     = "none"
)

// Mirror names accepted by MIRROR / -mirror.
const (
	MirrorFile  = "file"
	MirrorRedis = "redis"
)

// Config holds all runtime settings.
type Config struct {
	Port     string
	LogLevel string

	Backend     string
	GCPProject  string
	BQDataset   string
	DatabaseURL string
	UserID      string

	Mirror    string
	MirrorDir string
	RedisAddr string
	MirrorKey string

	ExportBucket string
}

// Load reads the given .env files (default ".env"; missing files are
// ignored) and then the process environment.
func Load(envFiles ...string) Config {
	if len(envFiles) == 0 {
		envFiles = []string{".env"}
	}
	for _, f := range envFiles {
		// godotenv never overrides variables that are already set.
		_ = godotenv.Load(f)
	}

	return Config{
		Port:         getenv("PORT", "8080"),
		LogLevel:     getenv("LOG_LEVEL", "info"),
		Backend:      strings.ToLower(getenv("BACKEND", BackendBigQuery)),
		GCPProject:   getenv("GCP_PROJECT", ""),
		BQDataset:    getenv("BQ_DATASET", "scrap"),
		DatabaseURL:  getenv("DATABASE_URL", ""),
		UserID:       getenv("USER_ID", "1"),
		Mirror:       strings.ToLower(getenv("MIRROR", MirrorFile)),
		MirrorDir:    getenv("MIRROR_DIR", "data"),
		RedisAddr:    getenv("REDIS_ADDR", "localhost:6379"),
		MirrorKey:    getenv("MIRROR_KEY", "scrapRecords"),
		ExportBucket: getenv("EXPORT_BUCKET", ""),
	}
}

// BindFlags registers flags on fs whose defaults are the current values, so
// flags take precedence over the environment once fs is parsed.
func (c *Config) BindFlags(fs *flag.FlagSet) {
	fs.StringVar(&c.Port, "port", c.Port, "HTTP server port")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "log level (debug, info, warn, error)")
	fs.StringVar(&c.Backend, "backend", c.Backend, "remote backend: bigquery, postgres or none")
	fs.StringVar(&c.GCPProject, "project", c.GCPProject, "GCP project ID (or set GCP_PROJECT env)")
	fs.StringVar(&c.BQDataset, "dataset", c.BQDataset, "BigQuery dataset holding the records table")
	fs.StringVar(&c.DatabaseURL, "database-url", c.DatabaseURL, "Postgres connection string (or set DATABASE_URL env)")
	fs.StringVar(&c.Mirror, "mirror", c.Mirror, "local mirror: file or redis")
	fs.StringVar(&c.MirrorDir, "mirror-dir", c.MirrorDir, "directory for the file mirror")
	fs.StringVar(&c.RedisAddr, "redis-addr", c.RedisAddr, "Redis address for the redis mirror")
	fs.StringVar(&c.ExportBucket, "bucket", c.ExportBucket, "GCS bucket for exported reports (or set EXPORT_BUCKET env)")
}

// Validate checks that the selected backend and mirror have what they need.
func (c Config) Validate() error {
	switch c.Backend {
	case BackendBigQuery:
		if c.GCPProject == "" {
			return fmt.Errorf("config: backend %q requires GCP_PROJECT", c.Backend)
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("config: backend %q requires DATABASE_URL", c.Backend)
		}
	case BackendNone:
	default:
		return fmt.Errorf("config: unknown backend %q", c.Backend)
	}

	switch c.Mirror {
	case MirrorFile:
		if c.MirrorDir == "" {
			return fmt.Errorf("config: file mirror requires MIRROR_DIR")
		}
	case MirrorRedis:
		if c.RedisAddr == "" {
			return fmt.Errorf("config: redis mirror requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("config: unknown mirror %q", c.Mirror)
	}

	return nil
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
