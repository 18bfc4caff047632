package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// BriefingSource produces the daily briefing message.
type BriefingSource interface {
	Get(ctx context.Context, userID string, patients []clinical.Patient, settings clinical.Settings) (chat.Message, error)
}

type QuotaSource interface {
	Summary() session.QuotaSummary
}

// AccountHandler serves per user settings and session state.
type AccountHandler struct {
	profiles   profile.Store
	chats      chat.Store
	repo       ehr.Repository
	briefing   BriefingSource
	quota      QuotaSource
	operations *session.Operations
	logger     *logging.Logger
}

type AccountDeps struct {
	Profiles   profile.Store
	Chats      chat.Store
	Repo       ehr.Repository
	Briefing   BriefingSource
	Quota      QuotaSource
	Operations *session.Operations
	Logger     *logging.Logger
}

func NewAccountHandler(deps AccountDeps) *AccountHandler {
	if deps.Profiles == nil || deps.Chats == nil {
		panic("handlers: account handler requires profile and chat stores")
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &AccountHandler{
		profiles:   deps.Profiles,
		chats:      deps.Chats,
		repo:       deps.Repo,
		briefing:   deps.Briefing,
		quota:      deps.Quota,
		operations: deps.Operations,
		logger:     deps.Logger,
	}
}

type profileResponse struct {
	UserID       string            `json:"userId"`
	DisplayName  string            `json:"displayName,omitempty"`
	Settings     clinical.Settings `json:"settings"`
	HasAPIKey    bool              `json:"hasApiKey"`
	MaskedAPIKey string            `json:"maskedApiKey,omitempty"`
}

func toProfileResponse(p profile.Profile) profileResponse {
	return profileResponse{
		UserID:       p.UserID,
		DisplayName:  p.DisplayName,
		Settings:     p.Settings,
		HasAPIKey:    p.HasAPIKey(),
		MaskedAPIKey: profile.MaskKey(p.GeminiAPIKey),
	}
}

// GET /api/settings
func (h *AccountHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	p, err := h.profiles.Get(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load profile", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// PUT /api/settings
func (h *AccountHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	var settings clinical.Settings
	if err := decodeJSON(w, r, &settings); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := settings.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	p, err := h.profiles.UpdateSettings(r.Context(), userID, settings)
	if err != nil {
		h.logger.Error("failed to update settings", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

type apiKeyRequest struct {
	APIKey string `json:"apiKey"`
}

// PutAPIKey stores the user's own model key. An empty key clears it.
// PUT /api/me/api-key
func (h *AccountHandler) PutAPIKey(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	var body apiKeyRequest
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	p, err := h.profiles.UpdateGeminiAPIKey(r.Context(), userID, strings.TrimSpace(body.APIKey))
	if err != nil {
		h.logger.Error("failed to update api key", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toProfileResponse(p))
}

// GET /api/questions
func (h *AccountHandler) Questions(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	questions, err := h.chats.Questions(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to load questions", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if questions == nil {
		questions = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

// POST /api/feedback
func (h *AccountHandler) Feedback(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	var fb chat.Feedback
	if err := decodeJSON(w, r, &fb); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if err := fb.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if fb.CreatedAt.IsZero() {
		fb.CreatedAt = time.Now().UTC()
	}
	if err := h.chats.AddFeedback(r.Context(), userID, fb); err != nil {
		h.logger.Error("failed to save feedback", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, fb)
}

// GET /api/briefing
func (h *AccountHandler) Briefing(w http.ResponseWriter, r *http.Request) {
	if h.briefing == nil || h.repo == nil {
		jsonError(w, "briefing disabled", http.StatusServiceUnavailable)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	patients, err := h.repo.FetchPatients(ctx, userID)
	if err != nil {
		h.logger.Error("failed to list patients", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	p, err := h.profiles.Get(ctx, userID)
	if err != nil {
		p = profile.Profile{UserID: userID, Settings: clinical.DefaultSettings()}
	}

	msg, err := h.briefing.Get(llm.WithAPIKey(ctx, p.GeminiAPIKey), userID, patients, p.Settings)
	var limited *ratelimit.LimitedError
	switch {
	case errors.As(err, &limited):
		w.Header().Set("Retry-After", limited.RetryAfter.UTC().Format(http.TimeFormat))
		jsonError(w, ratelimit.LimitedMessage, http.StatusTooManyRequests)
		return
	case errors.Is(err, llm.ErrMissingAPIKey):
		jsonError(w, "add a Gemini API key in Settings to generate the briefing", http.StatusPreconditionFailed)
		return
	case err != nil:
		h.logger.Error("failed to generate briefing", "user_id", userID, "error", err)
		jsonError(w, "failed to generate briefing", http.StatusBadGateway)
		return
	}
	writeJSON(w, http.StatusOK, msg)
}

// GET /api/session/quota
func (h *AccountHandler) Quota(w http.ResponseWriter, r *http.Request) {
	if _, ok := requestUser(w, r); !ok {
		return
	}
	if h.quota == nil {
		writeJSON(w, http.StatusOK, session.QuotaSummary{})
		return
	}
	writeJSON(w, http.StatusOK, h.quota.Summary())
}

// GET /api/operations
func (h *AccountHandler) Operations(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	ops := []session.ActiveOperation{}
	if h.operations != nil {
		ops = h.operations.List(userID)
	}
	writeJSON(w, http.StatusOK, map[string]any{"operations": ops})
}
