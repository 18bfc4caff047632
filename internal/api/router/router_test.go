package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/clinical-agent-platform/internal/http/middleware"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const (
	testSecret = "router-test-secret"
	demoUser   = "demo-clinician"
)

type echoDispatcher struct{}

func (echoDispatcher) Handle(ctx context.Context, req agents.Request) chat.Message {
	return chat.TextMessage(req.Patient.ID, "echo: "+req.Query)
}

func newTestRouter(t *testing.T, mutate func(*Config)) (http.Handler, *ehr.MemoryRepository) {
	t.Helper()

	logger := logging.New("error")
	repo := ehr.NewMemoryRepository()
	if err := ehr.EnsureDemoPatients(context.Background(), repo, demoUser); err != nil {
		t.Fatalf("seed demo patients: %v", err)
	}
	if err := ehr.EnsureDemoPatients(context.Background(), repo, "clinician-jwt"); err != nil {
		t.Fatalf("seed demo patients: %v", err)
	}
	chats := chat.NewMemoryStore(50)
	profiles := profile.NewMemoryStore()
	ops := session.NewOperations()

	cfg := &Config{
		Logger:   logger,
		Patients: handlers.NewPatientHandler(repo, logger),
		Chat: handlers.NewChatHandler(handlers.ChatDeps{
			Repo:       repo,
			Dispatcher: echoDispatcher{},
			Chats:      chats,
			Profiles:   profiles,
			Operations: ops,
			Logger:     logger,
		}),
		Account: handlers.NewAccountHandler(handlers.AccountDeps{
			Profiles:   profiles,
			Chats:      chats,
			Repo:       repo,
			Operations: ops,
			Logger:     logger,
		}),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		AuthSecret:     testSecret,
		DemoUserID:     demoUser,
		RateLimitRPS:   100,
		RateLimitBurst: 100,
	}
	if mutate != nil {
		mutate(cfg)
	}
	return New(cfg), repo
}

func signedToken(t *testing.T, subject string) string {
	t.Helper()
	claims := httpmiddleware.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(5 * time.Minute)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestRouterHealthEndpoint(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()

	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}

	var resp map[string]string
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}

	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %q", resp["status"])
	}
}

func TestRouterMetricsToken(t *testing.T) {
	router, _ := newTestRouter(t, func(cfg *Config) { cfg.MetricsToken = "scrape" })

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	req.Header.Set(metricsTokenHeader, "scrape")
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
}

func TestRouterAPIRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/patients", nil))

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rr.Code)
	}
}

func TestRouterAPIWithToken(t *testing.T) {
	router, _ := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "clinician-jwt"))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Patients []struct {
			ID string `json:"id"`
		} `json:"patients"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Patients) != len(ehr.DemoPatients("clinician-jwt")) {
		t.Fatalf("expected the caller's demo panel, got %d patients", len(resp.Patients))
	}
}

func TestRouterAuthDisabledUsesDemoUser(t *testing.T) {
	router, _ := newTestRouter(t, func(cfg *Config) { cfg.AuthDisabled = true })
	patientID := ehr.DemoPatients(demoUser)[0].ID

	body := strings.NewReader(`{"query":"how is the patient doing?"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/patients/"+patientID+"/chat", body)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "echo: how is the patient doing?") {
		t.Fatalf("unexpected body %s", rr.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, "/api/patients/"+patientID+"/chat", nil)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected history 200, got %d", rr.Code)
	}
}

func TestRouterReportRoutesRegistered(t *testing.T) {
	router, _ := newTestRouter(t, func(cfg *Config) { cfg.AuthDisabled = true })
	patient := ehr.DemoPatients(demoUser)[0]
	reportID := patient.Reports[0].ID

	req := httptest.NewRequest(http.MethodGet, "/api/patients/"+patient.ID+"/reports/"+reportID+"/view", nil)
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rr.Code, rr.Body.String())
	}

	for _, route := range []string{
		"/api/settings",
		"/api/questions",
		"/api/session/quota",
		"/api/operations",
	} {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, route, nil))
		if rr.Code != http.StatusOK {
			t.Errorf("%s: expected 200, got %d", route, rr.Code)
		}
	}
}
