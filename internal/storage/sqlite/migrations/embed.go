package migrations

import "embed"

// FS contains embedded SQLite migrations for the result archive.
//
//go:embed *.sql
var FS embed.FS
