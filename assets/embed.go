// Package assets embeds the bundled puzzles and SQL migrations so the server
// runs without any files on disk.
package assets

import "embed"

// FS holds puzzles/*.json (plus manifest.json) and sql/*.sql.
//
//go:embed puzzles/*.json sql/*.sql
var FS embed.FS
