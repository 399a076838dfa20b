package handlers

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
)

const banner = "DiscoverHealth API is running. Try <code>/api/resources?region=London</code>"

// StaticHandler serves the single-page frontend from dir. Paths with no
// matching file fall back to index.html so client-side routes resolve;
// unmatched /api paths answer 404. With no dir it serves a banner at "/".
type StaticHandler struct {
	dir        string
	fileServer http.Handler
}

// NewStaticHandler creates a static handler. dir may be empty.
func NewStaticHandler(dir string) *StaticHandler {
	h := &StaticHandler{dir: dir}
	if dir != "" {
		h.fileServer = http.FileServer(http.Dir(dir))
	}
	return h
}

// ServeHTTP implements http.Handler
func (h *StaticHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == "/api" || strings.HasPrefix(r.URL.Path, "/api/") {
		respondWithError(w, http.StatusNotFound, "Not found")
		return
	}

	if h.fileServer == nil {
		if r.URL.Path != "/" {
			respondWithError(w, http.StatusNotFound, "Not found")
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(banner))
		return
	}

	name := filepath.Join(h.dir, filepath.FromSlash(path.Clean("/"+r.URL.Path)))
	if info, err := os.Stat(name); err != nil || info.IsDir() {
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			respondWithError(w, http.StatusInternalServerError, "Failed to serve file")
			return
		}
		if r.URL.Path != "/" {
			http.ServeFile(w, r, filepath.Join(h.dir, "index.html"))
			return
		}
	}
	h.fileServer.ServeHTTP(w, r)
}
