// Package assets embeds files shipped with the binaries: email templates and SQL migrations.
package assets

import "embed"

//go:embed templates migrations
var FS embed.FS
