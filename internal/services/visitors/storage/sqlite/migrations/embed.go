package migrations

import "embed"

// FS contains embedded SQLite migrations for visitors storage.
//
//go:embed *.sql
var FS embed.FS
