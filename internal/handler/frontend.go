package handler

import (
	"net/http"
	"os"
	"path/filepath"
)

// Frontend serves the single-page client from dir/index.html.
func Frontend(dir string) http.HandlerFunc {
	index := filepath.Join(dir, "index.html")

	return func(w http.ResponseWriter, r *http.Request) {
		if _, err := os.Stat(index); err != nil {
			writeJSON(w, http.StatusNotFound, errorResponse("frontend not found"))
			return
		}
		http.ServeFile(w, r, index)
	}
}
