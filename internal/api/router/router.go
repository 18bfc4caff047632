package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/clinical-agent-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinical-agent-platform/internal/http/middleware"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger         *logging.Logger
	Patients       *handlers.PatientHandler
	Chat           *handlers.ChatHandler
	Account        *handlers.AccountHandler
	MetricsHandler http.Handler
	MetricsToken   string

	AuthSecret   string
	AuthDisabled bool
	DemoUserID   string

	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints
	r.Group(func(public chi.Router) {
		public.Get("/health", health)
		if cfg.MetricsHandler != nil {
			public.With(requireMetricsToken(cfg.MetricsToken)).Handle("/metrics", cfg.MetricsHandler)
		}
	})

	r.Route("/api", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		api.Use(authenticate(cfg))

		if cfg.Patients != nil {
			api.Get("/patients", cfg.Patients.ListPatients)
		}
		api.Route("/patients/{patientID}", func(patient chi.Router) {
			if cfg.Patients != nil {
				patient.Get("/", cfg.Patients.GetPatient)
				patient.Put("/", cfg.Patients.UpdatePatient)
				patient.Post("/reports", cfg.Patients.AddReport)
				patient.Post("/reports/upload", cfg.Patients.UploadReport)
				patient.Route("/reports/{reportID}", func(report chi.Router) {
					report.Delete("/", cfg.Patients.DeleteReport)
					report.Get("/view", cfg.Patients.ViewReport)
					report.Get("/extraction", cfg.Patients.GetExtraction)
				})
			}
			if cfg.Chat != nil {
				patient.Post("/chat", cfg.Chat.PostQuery)
				patient.Get("/chat", cfg.Chat.History)
				patient.Delete("/chat", cfg.Chat.ClearHistory)
				patient.Post("/chat/stop", cfg.Chat.Stop)
				patient.Post("/live-sessions", cfg.Chat.SaveLiveSession)
				patient.Get("/stream", cfg.Chat.Stream)
			}
		})

		if cfg.Account != nil {
			api.Get("/settings", cfg.Account.GetSettings)
			api.Put("/settings", cfg.Account.PutSettings)
			api.Put("/me/api-key", cfg.Account.PutAPIKey)
			api.Get("/questions", cfg.Account.Questions)
			api.Post("/feedback", cfg.Account.Feedback)
			api.Get("/briefing", cfg.Account.Briefing)
			api.Get("/session/quota", cfg.Account.Quota)
			api.Get("/operations", cfg.Account.Operations)
		}
	})

	return r
}

func health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
