package server

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/hitushen/localbrowser/internal/models"
)

func (s *Server) apiList(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if rel == "" {
		rel = "/"
	}
	entries, err := s.root.List(r.Context(), rel)
	if err != nil {
		logFailure(r, "list directory", err)
		writeErr(w, err)
		return
	}
	writeJSON(w, entries)
}

func (s *Server) apiSearch(w http.ResponseWriter, r *http.Request) {
	results, err := s.root.Search(r.Context(), r.URL.Query().Get("term"))
	if err != nil {
		if r.Context().Err() != nil {
			// 客户端已放弃请求。
			return
		}
		logFailure(r, "search", err)
		writeMessage(w, "File search error", http.StatusInternalServerError)
		return
	}
	if results == nil {
		results = []models.DirectoryEntry{}
	}
	writeJSON(w, results)
}

// isTextPreview 判断文件是否按 UTF-8 文本返回。
func isTextPreview(rel string) bool {
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".txt", ".csv":
		return true
	}
	return false
}

func (s *Server) apiFileContent(w http.ResponseWriter, r *http.Request) {
	rel := r.URL.Query().Get("path")
	if strings.TrimSpace(rel) == "" {
		http.Error(w, "Path parameter is missing", http.StatusBadRequest)
		return
	}

	if isTextPreview(rel) {
		data, err := s.root.ReadText(r.Context(), rel)
		if err != nil {
			logFailure(r, "read text file", err)
			writeText(w, err)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write(data)
		return
	}
	s.serveRaw(w, r, rel)
}

// serveFile 对应 /files/*，与 /api/file-content 的非文本分支一样直接输出原始字节。
func (s *Server) serveFile(w http.ResponseWriter, r *http.Request) {
	rel := strings.TrimPrefix(r.URL.Path, "/files")
	if strings.Trim(rel, "/") == "" {
		http.NotFound(w, r)
		return
	}
	s.serveRaw(w, r, rel)
}

// serveRaw 通过 http.ServeContent 输出文件，支持 Range 与条件请求。
func (s *Server) serveRaw(w http.ResponseWriter, r *http.Request, rel string) {
	f, info, err := s.root.Open(r.Context(), rel)
	if err != nil {
		logFailure(r, "open file", err)
		writeText(w, err)
		return
	}
	defer f.Close()
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}
