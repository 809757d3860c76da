// Package web holds the page shell served at "/". The page only hosts the
// geolocation, audio and DOM capabilities; all behaviour is driven over the
// WebSocket.
package web

import (
	"embed"
	"io/fs"
)

//go:embed static
var content embed.FS

// Static returns the files under static/ rooted at the directory itself.
func Static() fs.FS {
	sub, err := fs.Sub(content, "static")
	if err != nil {
		// static is embedded at build time
		panic(err)
	}
	return sub
}
