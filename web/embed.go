// Package web embeds the dialogue frontend (static/) and serves it.
//
// GET / returns index.html; every other asset lives under /static/.
package web

import (
	"embed"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
)

//go:embed all:static
var staticFS embed.FS

// Assets returns the embedded static files rooted at static/, or the files
// in dir when dir is non-empty.
func Assets(dir string) fs.FS {
	if dir != "" {
		return os.DirFS(dir)
	}
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic("web: failed to create sub filesystem: " + err.Error())
	}
	return sub
}

// IndexHandler serves index.html from assets.
func IndexHandler(assets fs.FS) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := fs.ReadFile(assets, "index.html")
		if err != nil {
			slog.Warn("web: index.html unavailable", "error", err)
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if _, err := w.Write(data); err != nil {
			slog.Debug("web: failed to write index.html", "error", err)
		}
	})
}

// StaticHandler serves assets under the /static/ prefix.
func StaticHandler(assets fs.FS) http.Handler {
	return http.StripPrefix("/static/", http.FileServer(http.FS(assets)))
}
