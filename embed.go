package main

import (
	"embed"
	"io/fs"
)

//go:embed frontend
var frontendFiles embed.FS

// GetFrontendFS returns the embedded static UI rooted at its directory,
// so the file server resolves / to frontend/index.html.
func GetFrontendFS() (fs.FS, error) {
	return fs.Sub(frontendFiles, "frontend")
}
