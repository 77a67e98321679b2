// Package migrations embeds the SQL schema owned by this service.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
