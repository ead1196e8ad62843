package http

import (
	"errors"
	"io"
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/mindengage-cat/internal/storage"
)

// ReportHandler streams reports/<session>.json from the archive.
func ReportHandler(reports *storage.ReportArchive) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rc, err := reports.Open(chi.URLParam(r, "sessionID"))
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				http.Error(w, "report not found", http.StatusNotFound)
				return
			}
			http.Error(w, "report unavailable", http.StatusInternalServerError)
			return
		}
		defer rc.Close()
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.Copy(w, rc)
	}
}
