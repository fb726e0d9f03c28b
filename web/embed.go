// Package web holds the portal's server-rendered templates and static assets.
package web

import "embed"

// Templates holds the layout, partial and page templates.
//
//go:embed templates/layouts/*.html templates/partials/*.html templates/pages/*.html
var Templates embed.FS

// Static holds the stylesheet and the script that posts UI events.
//
//go:embed static/css static/js
var Static embed.FS
