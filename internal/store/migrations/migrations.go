// Package migrations embeds the goose schema migrations for each backend.
package migrations

import "embed"

// FS holds one directory of SQL migrations per dialect: postgres/ and sqlite/.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
