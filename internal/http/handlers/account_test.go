package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/ratelimit"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
)

type stubBriefing struct {
	patients int
	err      error
}

func (b *stubBriefing) Get(ctx context.Context, userID string, patients []clinical.Patient, settings clinical.Settings) (chat.Message, error) {
	b.patients = len(patients)
	if b.err != nil {
		return chat.Message{}, b.err
	}
	return chat.NewAIMessage("", &chat.DailyBriefing{Date: "2024-05-01", Overview: "All stable."}), nil
}

type stubQuota struct{ summary session.QuotaSummary }

func (q stubQuota) Summary() session.QuotaSummary { return q.summary }

func newAccountFixture(briefing BriefingSource) (*AccountHandler, *profile.MemoryStore, *chat.MemoryStore) {
	profiles := profile.NewMemoryStore()
	chats := chat.NewMemoryStore(50)
	h := NewAccountHandler(AccountDeps{
		Profiles:   profiles,
		Chats:      chats,
		Repo:       seededRepo(),
		Briefing:   briefing,
		Quota:      stubQuota{summary: session.QuotaSummary{ModelCalls: 4, Failures: 1}},
		Operations: session.NewOperations(),
		Logger:     testLogger(),
	})
	return h, profiles, chats
}

func TestAccountHandler_SettingsRoundTrip(t *testing.T) {
	h, _, _ := newAccountFixture(nil)

	rec := httptest.NewRecorder()
	h.GetSettings(rec, newRequest(t, http.MethodGet, "/api/settings", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	settings := decodeBody(t, rec)["settings"].(map[string]any)
	assert.Equal(t, "formal", settings["tone"])

	rec = httptest.NewRecorder()
	h.PutSettings(rec, newRequest(t, http.MethodPut, "/api/settings", map[string]string{"tone": "friendly", "verbosity": "brief"}, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	settings = decodeBody(t, rec)["settings"].(map[string]any)
	assert.Equal(t, "friendly", settings["tone"])
	assert.Equal(t, "brief", settings["verbosity"])

	rec = httptest.NewRecorder()
	h.PutSettings(rec, newRequest(t, http.MethodPut, "/api/settings", map[string]string{"tone": "sarcastic", "verbosity": "brief"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler_PutAPIKeyMasksResponse(t *testing.T) {
	h, profiles, _ := newAccountFixture(nil)

	rec := httptest.NewRecorder()
	h.PutAPIKey(rec, newRequest(t, http.MethodPut, "/api/me/api-key", map[string]string{"apiKey": " AIzaSecret9876 "}, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["hasApiKey"])
	assert.Equal(t, "**********9876", body["maskedApiKey"])
	assert.NotContains(t, rec.Body.String(), "AIzaSecret")

	p, err := profiles.Get(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, "AIzaSecret9876", p.GeminiAPIKey)
}

func TestAccountHandler_QuestionsAndFeedback(t *testing.T) {
	h, _, chats := newAccountFixture(nil)
	ctx := context.Background()
	require.NoError(t, chats.AddQuestion(ctx, testUser, "latest EF?"))

	rec := httptest.NewRecorder()
	h.Questions(rec, newRequest(t, http.MethodGet, "/api/questions", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{"latest EF?"}, decodeBody(t, rec)["questions"])

	rec = httptest.NewRecorder()
	h.Feedback(rec, newRequest(t, http.MethodPost, "/api/feedback", map[string]string{"messageId": "m-1", "patientId": testPatient, "rating": "up"}, nil))
	require.Equal(t, http.StatusCreated, rec.Code)

	feedback, err := chats.Feedback(ctx, testUser)
	require.NoError(t, err)
	require.Len(t, feedback, 1)
	assert.Equal(t, "m-1", feedback[0].MessageID)
	assert.False(t, feedback[0].CreatedAt.IsZero())

	rec = httptest.NewRecorder()
	h.Feedback(rec, newRequest(t, http.MethodPost, "/api/feedback", map[string]string{"messageId": "m-2", "rating": "meh"}, nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAccountHandler_Briefing(t *testing.T) {
	source := &stubBriefing{}
	h, _, _ := newAccountFixture(source)

	rec := httptest.NewRecorder()
	h.Briefing(rec, newRequest(t, http.MethodGet, "/api/briefing", nil, nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, chat.TypeDailyBriefing, decodeBody(t, rec)["type"])
	assert.Equal(t, 1, source.patients)
}

func TestAccountHandler_BriefingRateLimited(t *testing.T) {
	retryAt := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	h, _, _ := newAccountFixture(&stubBriefing{err: &ratelimit.LimitedError{RetryAfter: retryAt}})

	rec := httptest.NewRecorder()
	h.Briefing(rec, newRequest(t, http.MethodGet, "/api/briefing", nil, nil))

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, retryAt.Format(http.TimeFormat), rec.Header().Get("Retry-After"))
	assert.Equal(t, ratelimit.LimitedMessage, decodeBody(t, rec)["error"])
}

func TestAccountHandler_QuotaAndOperations(t *testing.T) {
	h, _, _ := newAccountFixture(nil)
	op, err := h.operations.Begin(testUser, testPatient, "medical board")
	require.NoError(t, err)
	defer h.operations.Finish(op)

	rec := httptest.NewRecorder()
	h.Quota(rec, newRequest(t, http.MethodGet, "/api/session/quota", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"modelCalls":4`)

	rec = httptest.NewRecorder()
	h.Operations(rec, newRequest(t, http.MethodGet, "/api/operations", nil, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ops := decodeBody(t, rec)["operations"].([]any)
	require.Len(t, ops, 1)
	assert.Equal(t, "medical board", ops[0].(map[string]any)["query"])
}
