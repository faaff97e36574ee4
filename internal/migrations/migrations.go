// Package migrations embeds the goose migrations for a document store file.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
