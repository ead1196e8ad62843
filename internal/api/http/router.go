package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	guestauth "github.com/mind-engage/mindengage-cat/internal/auth"
	authmw "github.com/mind-engage/mindengage-cat/internal/auth/middleware"
	"github.com/mind-engage/mindengage-cat/internal/config"
	"github.com/mind-engage/mindengage-cat/internal/exam"
	"github.com/mind-engage/mindengage-cat/internal/itembank"
	"github.com/mind-engage/mindengage-cat/internal/platform/logger"
	"github.com/mind-engage/mindengage-cat/internal/presets"
	"github.com/mind-engage/mindengage-cat/internal/rbac"
	"github.com/mind-engage/mindengage-cat/internal/storage"
)

// Deps are the collaborators the router mounts. Importer, Results and
// Reports are optional; their routes are skipped when nil.
type Deps struct {
	Config   config.Config
	Log      *logger.Logger
	Auth     *authmw.AuthService
	Engine   *exam.Engine
	Presets  *presets.Catalog
	Bank     itembank.Gateway
	Importer ItemImporter
	Results  *exam.ResultRepo
	Reports  *storage.ReportArchive
	Ready    func(ctx context.Context) error
}

func NewRouter(d Deps) http.Handler {
	if d.Log == nil {
		d.Log = logger.Nop()
	}
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, RequestLogger(d.Log), middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.Config.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", authmw.LoginHandler(d.Auth))
	r.Post("/auth/guest", guestauth.GuestLoginHandler(d.Auth, d.Config))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if d.Ready != nil {
			if err := d.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(authmw.JWTMiddleware(d.Auth))

		pr.With(rbac.Require(rbac.PermSessionStart)).Get("/presets", ListPresetsHandler(d.Presets))
		pr.With(rbac.Require(rbac.PermSessionStart)).Post("/sessions", StartSessionHandler(d.Engine, d.Presets))

		pr.Route("/sessions/{sessionID}", func(sr chi.Router) {
			sr.Use(rbac.RequireOwnerOr(rbac.PermSessionViewAll, sessionOwner(d.Engine)))
			sr.Get("/", GetSessionHandler(d.Engine))
			sr.Post("/answers", SubmitAnswerHandler(d.Engine))
			sr.Post("/flag", ToggleFlagHandler(d.Engine))
			sr.Post("/responses/{itemID}/flag", ToggleResponseFlagHandler(d.Engine))
			sr.Get("/responses", ReviewHandler(d.Engine))
			sr.Post("/pause", PauseHandler(d.Engine))
			sr.Post("/resume", ResumeHandler(d.Engine))
			sr.Post("/finish", FinishHandler(d.Engine))
			sr.Get("/result", ResultHandler(d.Engine))
			if d.Reports != nil {
				sr.Get("/report", ReportHandler(d.Reports))
			}
		})

		if d.Results != nil {
			pr.With(rbac.RequireAny(rbac.PermResultViewOwn, rbac.PermSessionViewAll)).
				Get("/results", ListResultsHandler(d.Results))
		}

		pr.With(rbac.Require(rbac.PermBankView)).Get("/bank/categories", CategoriesHandler(d.Bank))
		if d.Importer != nil && d.Config.EnableBankImport {
			pr.With(rbac.Require(rbac.PermBankImport)).Post("/bank/items", ImportItemsHandler(d.Importer))
		}
	})
	return r
}
