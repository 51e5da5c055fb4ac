package migrations

import "embed"

// FS contains embedded SQLite migrations for events storage.
//
//go:embed *.sql
var FS embed.FS
