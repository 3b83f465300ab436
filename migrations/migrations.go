// Package migrations embeds the schema migrations applied by cmd/migrate.
package migrations

import "embed"

// FS holds bigquery/*.sql and postgres/*.sql.
//
//go:embed bigquery/*.sql postgres/*.sql
var FS embed.FS
