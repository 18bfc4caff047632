package router

import (
	"net/http"
	"strings"

	httpmiddleware "github.com/wolfman30/clinical-agent-platform/internal/http/middleware"
)

// authenticate picks the identity middleware for /api. With auth disabled
// every request runs as the demo clinician.
func authenticate(cfg *Config) func(http.Handler) http.Handler {
	if cfg.AuthDisabled {
		userID := strings.TrimSpace(cfg.DemoUserID)
		if userID == "" {
			userID = "demo-clinician"
		}
		if cfg.Logger != nil {
			cfg.Logger.Warn("api authentication disabled, using demo user", "user_id", userID)
		}
		return httpmiddleware.DemoUser(userID)
	}
	return httpmiddleware.UserJWT(cfg.AuthSecret)
}
