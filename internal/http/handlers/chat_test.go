package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
)

type fakeDispatcher struct {
	requests []agents.Request
	apiKeys  []string
	partial  bool
}

func (d *fakeDispatcher) Handle(ctx context.Context, req agents.Request) chat.Message {
	d.requests = append(d.requests, req)
	d.apiKeys = append(d.apiKeys, llm.APIKeyFromContext(ctx))
	msg := chat.TextMessage(req.Patient.ID, "answer for "+req.Query)
	if d.partial {
		live := msg
		live.IsLive = true
		req.Emit(live)
	}
	return msg
}

type fakeLive struct {
	got agents.LiveSession
}

func (l *fakeLive) Save(ctx context.Context, s agents.LiveSession) (clinical.Report, chat.Message, error) {
	l.got = s
	report := clinical.Report{
		ID:      "live-1",
		Type:    clinical.ReportLiveSession,
		Date:    "2024-04-01",
		Title:   "Live session",
		Content: clinical.LiveSessionContent{Transcript: s.Transcript},
	}
	return report, chat.TextMessage(s.Patient.ID, "session saved"), nil
}

func newChatFixture(t *testing.T) (*ChatHandler, *fakeDispatcher, *chat.MemoryStore, *recordingStreamer, *session.Operations) {
	t.Helper()
	dispatcher := &fakeDispatcher{}
	chats := chat.NewMemoryStore(50)
	profiles := profile.NewMemoryStore()
	_, err := profiles.UpdateGeminiAPIKey(context.Background(), testUser, "user-key-1234")
	require.NoError(t, err)
	stream := &recordingStreamer{}
	ops := session.NewOperations()
	h := NewChatHandler(ChatDeps{
		Repo:       seededRepo(),
		Dispatcher: dispatcher,
		Chats:      chats,
		Profiles:   profiles,
		Operations: ops,
		Stream:     stream,
		Live:       &fakeLive{},
		Logger:     testLogger(),
	})
	return h, dispatcher, chats, stream, ops
}

func TestChatHandler_PostQueryRoutesAndPersists(t *testing.T) {
	h, dispatcher, chats, stream, ops := newChatFixture(t)
	dispatcher.partial = true

	rec := httptest.NewRecorder()
	h.PostQuery(rec, newRequest(t, http.MethodPost, "/chat", map[string]string{"query": "summarize the last ECG"}, map[string]string{"patientID": testPatient}))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "text", body["type"])
	assert.Equal(t, "answer for summarize the last ECG", body["data"].(map[string]any)["text"])

	require.Len(t, dispatcher.requests, 1)
	req := dispatcher.requests[0]
	assert.Equal(t, testUser, req.UserID)
	assert.Equal(t, "Ada Lovelace", req.Patient.Name)
	assert.NotNil(t, req.Stop)
	assert.Equal(t, "user-key-1234", dispatcher.apiKeys[0])

	history, err := chats.History(context.Background(), testUser, testPatient)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, chat.SenderUser, history[0].Sender)
	assert.False(t, history[1].IsLive)

	questions, err := chats.Questions(context.Background(), testUser)
	require.NoError(t, err)
	assert.Equal(t, []string{"summarize the last ECG"}, questions)

	// user message, live snapshot, final message
	assert.Len(t, stream.published(), 3)
	assert.Empty(t, ops.List(testUser))
}

func TestChatHandler_PostQueryValidation(t *testing.T) {
	h, dispatcher, _, _, _ := newChatFixture(t)

	rec := httptest.NewRecorder()
	h.PostQuery(rec, newRequest(t, http.MethodPost, "/chat", map[string]string{"query": "   "}, map[string]string{"patientID": testPatient}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.PostQuery(rec, newRequest(t, http.MethodPost, "/chat", map[string]string{"query": "hello"}, map[string]string{"patientID": "missing"}))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	assert.Empty(t, dispatcher.requests)
}

func TestChatHandler_PostQueryConflictsWhileBusy(t *testing.T) {
	h, dispatcher, _, _, ops := newChatFixture(t)
	op, err := ops.Begin(testUser, testPatient, "medical board")
	require.NoError(t, err)
	defer ops.Finish(op)

	rec := httptest.NewRecorder()
	h.PostQuery(rec, newRequest(t, http.MethodPost, "/chat", map[string]string{"query": "another question"}, map[string]string{"patientID": testPatient}))

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Empty(t, dispatcher.requests)
}

func TestChatHandler_StopSignalsOperation(t *testing.T) {
	h, _, _, _, ops := newChatFixture(t)
	params := map[string]string{"patientID": testPatient}

	rec := httptest.NewRecorder()
	h.Stop(rec, newRequest(t, http.MethodPost, "/chat/stop", nil, params))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	op, err := ops.Begin(testUser, testPatient, "debate this")
	require.NoError(t, err)
	defer ops.Finish(op)

	rec = httptest.NewRecorder()
	h.Stop(rec, newRequest(t, http.MethodPost, "/chat/stop", nil, params))
	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, string(session.StatusStopped), decodeBody(t, rec)["status"])

	select {
	case <-op.Stopped():
	default:
		t.Fatal("expected operation to be stopped")
	}
}

func TestChatHandler_HistoryAndClear(t *testing.T) {
	h, _, chats, _, _ := newChatFixture(t)
	ctx := context.Background()
	require.NoError(t, chats.Upsert(ctx, testUser, chat.TextMessage(testPatient, "earlier")))
	params := map[string]string{"patientID": testPatient}

	rec := httptest.NewRecorder()
	h.History(rec, newRequest(t, http.MethodGet, "/chat", nil, params))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody(t, rec)["messages"], 1)

	rec = httptest.NewRecorder()
	h.ClearHistory(rec, newRequest(t, http.MethodDelete, "/chat", nil, params))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.History(rec, newRequest(t, http.MethodGet, "/chat", nil, params))
	assert.Len(t, decodeBody(t, rec)["messages"], 0)
}

func TestChatHandler_SaveLiveSession(t *testing.T) {
	h, _, chats, _, _ := newChatFixture(t)
	body := map[string]any{"transcript": "Patient reports less dyspnea.", "biomarkers": map[string]string{"hr": "71"}}

	rec := httptest.NewRecorder()
	h.SaveLiveSession(rec, newRequest(t, http.MethodPost, "/live-sessions", body, map[string]string{"patientID": testPatient}))

	require.Equal(t, http.StatusCreated, rec.Code)
	live := h.live.(*fakeLive)
	assert.Equal(t, "Patient reports less dyspnea.", live.got.Transcript)
	assert.Equal(t, "71", live.got.Biomarkers["hr"])

	history, err := chats.History(context.Background(), testUser, testPatient)
	require.NoError(t, err)
	assert.Len(t, history, 1)
}
