package migrations

import "embed"

// FS contains embedded SQLite migrations for cases storage.
//
//go:embed *.sql
var FS embed.FS
