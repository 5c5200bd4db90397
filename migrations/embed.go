// Package migrations embeds the SQL schema for each supported database dialect.
package migrations

import "embed"

// FS holds one directory of golang-migrate files per dialect.
//
//go:embed postgres/*.sql sqlite/*.sql
var FS embed.FS
