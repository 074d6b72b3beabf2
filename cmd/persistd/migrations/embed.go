// Package migrations embeds the persistd schema migrations.
package migrations

import "embed"

// FS holds the VERSION_name.{up,down}.sql files at its root.
//
//go:embed *.sql
var FS embed.FS
