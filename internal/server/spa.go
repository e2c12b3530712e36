package server

import (
	"io/fs"
	"net/http"
	"path"
	"strings"
)

// handleSPA serves the player and dashboard front end from fsys. Paths that
// name no file get index.html so client-side routes survive a reload.
func handleSPA(fsys fs.FS) http.HandlerFunc {
	fileServer := http.FileServerFS(fsys)

	return func(w http.ResponseWriter, r *http.Request) {
		name := strings.TrimPrefix(path.Clean(r.URL.Path), "/")
		if name == "" {
			name = "."
		}
		if info, err := fs.Stat(fsys, name); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, r)
			return
		}
		http.ServeFileFS(w, r, fsys, "index.html")
	}
}
