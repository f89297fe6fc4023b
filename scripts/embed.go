// Package scripts embeds the default scenario scripts so the CLI works
// without a scripts directory on disk.
package scripts

import "embed"

// FS holds the embedded scenario scripts.
//
//go:embed scenarios/*.risor
var FS embed.FS
