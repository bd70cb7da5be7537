// Package migrations embeds the idempotent table definitions for every
// supported SQL dialect, one directory per dialect.
package migrations

import "embed"

//go:embed postgres/*.sql mysql/*.sql sqlite/*.sql
var FS embed.FS
