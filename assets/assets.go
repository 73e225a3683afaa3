// Package assets ships the default accreditation logos.
package assets

import "embed"

// Defaults holds the logos named by the default configuration.
// The asset resolver falls back to it when a file is missing below its root.
//
//go:embed nabl.png qai.png
var Defaults embed.FS
