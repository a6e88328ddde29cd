// Package marbles holds the assets shipped inside the marbles binary.
package marbles

import (
	"embed"
	"io/fs"
)

//go:embed static/*
var staticFiles embed.FS

// Static returns the launch page assets rooted at static/.
func Static() fs.FS {
	sub, err := fs.Sub(staticFiles, "static")
	if err != nil {
		// static/ is embedded at build time; a failure here is a build defect.
		panic(err)
	}
	return sub
}
