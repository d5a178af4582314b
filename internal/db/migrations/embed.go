// Package migrations embeds goose SQL migrations for the buff store.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
