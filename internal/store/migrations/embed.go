// Package migrations embeds the goose migration scripts for the vault store.
package migrations

import "embed"

//go:embed *.sql
var Migrations embed.FS
