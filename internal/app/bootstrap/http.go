package bootstrap

import (
	"net/http"

	"github.com/wolfman30/clinical-agent-platform/internal/api/router"
	"github.com/wolfman30/clinical-agent-platform/internal/http/handlers"
)

// BuildHTTPHandler mounts the API handlers over svc.
func BuildHTTPHandler(svc *Services) http.Handler {
	cfg := svc.Config
	patientOpts := []handlers.PatientOption{
		handlers.WithExtraction(svc.Extraction, svc.ExtractionJobs),
	}
	if svc.Attachments.Enabled() {
		patientOpts = append(patientOpts, handlers.WithAttachments(svc.Attachments))
	}

	return router.New(&router.Config{
		Logger:   svc.Logger,
		Patients: handlers.NewPatientHandler(svc.Repo, svc.Logger, patientOpts...),
		Chat: handlers.NewChatHandler(handlers.ChatDeps{
			Repo:       svc.Repo,
			Dispatcher: svc.Agents,
			Chats:      svc.Chats,
			Profiles:   svc.Profiles,
			Operations: svc.Operations,
			Stream:     svc.Hub,
			Live:       svc.Live,
			Logger:     svc.Logger,
		}),
		Account: handlers.NewAccountHandler(handlers.AccountDeps{
			Profiles:   svc.Profiles,
			Chats:      svc.Chats,
			Repo:       svc.Repo,
			Briefing:   svc.Briefing,
			Quota:      svc.Quota,
			Operations: svc.Operations,
			Logger:     svc.Logger,
		}),
		MetricsHandler:     svc.MetricsHandler(),
		MetricsToken:       cfg.MetricsToken,
		AuthSecret:         cfg.AuthJWTSecret,
		AuthDisabled:       cfg.AuthDisabled,
		DemoUserID:         cfg.DemoUserID,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitRPS:       cfg.HTTPRateLimitRPS,
		RateLimitBurst:     cfg.HTTPRateLimitBurst,
	})
}
