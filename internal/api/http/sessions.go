package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	authmw "github.com/mind-engage/mindengage-cat/internal/auth/middleware"
	"github.com/mind-engage/mindengage-cat/internal/exam"
	"github.com/mind-engage/mindengage-cat/internal/presets"
)

// POST /sessions {preset?, categories?, item_count?, mode?, time_limit_seconds?}
func StartSessionHandler(engine *exam.Engine, catalog *presets.Catalog) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Preset           string    `json:"preset"`
			Categories       []string  `json:"categories"`
			ItemCount        int       `json:"item_count"`
			Mode             exam.Mode `json:"mode"`
			TimeLimitSeconds int       `json:"time_limit_seconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cfg, err := catalog.Apply(req.Preset, presets.Overrides{
			Categories:       req.Categories,
			ItemCount:        req.ItemCount,
			Mode:             req.Mode,
			TimeLimitSeconds: req.TimeLimitSeconds,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		snap, err := engine.Start(r.Context(), authmw.SubjectFromContext(r.Context()), cfg)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, snap)
	}
}

func GetSessionHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := engine.Snapshot(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

// POST /sessions/{sessionID}/answers {option_index}
func SubmitAnswerHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			OptionIndex *int `json:"option_index"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.OptionIndex == nil {
			http.Error(w, "option_index required", http.StatusBadRequest)
			return
		}
		out, err := engine.SubmitAnswer(r.Context(), chi.URLParam(r, "sessionID"), *req.OptionIndex)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func ToggleFlagHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		on, err := engine.ToggleFlag(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"flagged": on})
	}
}

func ToggleResponseFlagHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		on, err := engine.ToggleResponseFlag(chi.URLParam(r, "sessionID"), chi.URLParam(r, "itemID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"flagged": on})
	}
}

func ReviewHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entries, err := engine.Review(chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"responses": entries})
	}
}

// PauseHandler and ResumeHandler answer with the snapshot so clients see
// whether the call changed anything.
func PauseHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := engine.Pause(id); err != nil {
			writeError(w, err)
			return
		}
		GetSessionHandler(engine)(w, r)
	}
}

func ResumeHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "sessionID")
		if err := engine.Resume(id); err != nil {
			writeError(w, err)
			return
		}
		GetSessionHandler(engine)(w, r)
	}
}

func FinishHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.Finish(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func ResultHandler(engine *exam.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := engine.Result(r.Context(), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

// GET /results lists the caller's archived results, newest first.
func ListResultsHandler(repo *exam.ResultRepo) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := repo.ListByOwner(r.Context(), authmw.SubjectFromContext(r.Context()), 50)
		if err != nil {
			writeError(w, err)
			return
		}
		if list == nil {
			list = []exam.TestResult{}
		}
		writeJSON(w, http.StatusOK, map[string]any{"results": list})
	}
}

// sessionOwner reports whether the caller started the session in the URL.
func sessionOwner(engine *exam.Engine) func(r *http.Request) bool {
	return func(r *http.Request) bool {
		sub := authmw.SubjectFromContext(r.Context())
		if sub == "" {
			return false
		}
		owner, err := engine.Owner(r.Context(), chi.URLParam(r, "sessionID"))
		return err == nil && owner == sub
	}
}
