// Package migrations embeds the goose migrations of the local SQLite file.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
