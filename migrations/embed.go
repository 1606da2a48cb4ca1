// Package migrations embeds the SQL schema so binaries and tests share one source.
package migrations

import "embed"

// FS holds every NNN_name.sql migration in this directory.
//
//go:embed *.sql
var FS embed.FS
