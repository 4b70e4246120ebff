package server

import (
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/hitushen/localbrowser/internal/metrics"
	"github.com/hitushen/localbrowser/internal/thumbnail"
)

//go:embed themes/*.css
var themeFS embed.FS

const defaultTheme = "light"

// serveTheme 只提供内置主题，未知名称一律 404。
func (s *Server) serveTheme(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("name")
	if name == "" {
		name = defaultTheme
	}
	if strings.ContainsAny(name, `/\.`) {
		http.NotFound(w, r)
		return
	}
	file := "themes/" + name + ".css"
	if _, err := fs.Stat(themeFS, file); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFileFS(w, r, themeFS, file)
}

func (s *Server) apiThumbnail(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if strings.TrimSpace(rel) == "" {
		http.Error(w, "Path parameter is required", http.StatusBadRequest)
		return
	}
	if _, err := s.root.Resolve(rel); err != nil {
		writeText(w, err)
		return
	}
	if !thumbnail.IsImage(rel) {
		metrics.RecordThumbnail("rejected")
		http.Error(w, "File is not an image", http.StatusBadRequest)
		return
	}

	f, _, err := s.root.Open(r.Context(), rel)
	if err != nil {
		metrics.RecordThumbnail("error")
		logFailure(r, "open image", err)
		writeText(w, err)
		return
	}
	defer f.Close()

	data, err := thumbnail.Generate(f)
	if err != nil {
		if errors.Is(err, thumbnail.ErrUnsupported) {
			metrics.RecordThumbnail("unsupported")
			http.Error(w, "Unsupported image format or corrupted file", http.StatusBadRequest)
			return
		}
		metrics.RecordThumbnail("error")
		logFailure(r, "generate thumbnail", err)
		writeText(w, err)
		return
	}

	metrics.RecordThumbnail("ok")
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", thumbnail.CacheControl)
	_, _ = w.Write(data)
}
