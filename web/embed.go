// Package web bundles the server-rendered pages and their assets into the
// binary.
package web

import "embed"

// Templates holds layouts, partials and pages under templates/.
//
//go:embed templates
var Templates embed.FS

// Static holds the stylesheet and other assets served under /static/.
//
//go:embed static
var Static embed.FS
