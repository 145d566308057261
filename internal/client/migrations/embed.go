// Package migrations embeds the client-side sqlite schema, applied with
// goose at startup.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
