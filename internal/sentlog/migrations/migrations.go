// Package migrations embeds the sqlite schema for the sent-log.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
