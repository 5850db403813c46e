package migrations

import "embed"

// FS contains embedded SQLite migrations for clients storage.
//
//go:embed *.sql
var FS embed.FS
