package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/mind-engage/mindengage-cat/internal/exam"
	"github.com/mind-engage/mindengage-cat/internal/grading"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/presets"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, exam.ErrInvalidConfiguration),
		errors.Is(err, grading.ErrOptionOutOfRange),
		errors.Is(err, presets.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, exam.ErrSessionNotFound),
		errors.Is(err, exam.ErrResponseNotFound):
		return http.StatusNotFound
	case errors.Is(err, exam.ErrNotActive),
		errors.Is(err, exam.ErrNotCompleted),
		errors.Is(err, itembank.ErrExhausted):
		return http.StatusConflict
	case errors.Is(err, itembank.ErrBankUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal error"
	}
	writeJSON(w, status, map[string]string{"error": msg})
}
