package migrations

import "embed"

// FS contains embedded SQLite migrations for appointments storage.
//
//go:embed *.sql
var FS embed.FS
