package migrations

import "embed"

// FS contains embedded SQLite migrations for files storage.
//
//go:embed *.sql
var FS embed.FS
