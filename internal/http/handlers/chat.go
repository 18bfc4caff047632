package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/internal/profile"
	"github.com/wolfman30/clinical-agent-platform/internal/session"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const maxQueryChars = 4000

// Dispatcher routes a query to an agent. *agents.Router implements it.
type Dispatcher interface {
	Handle(ctx context.Context, req agents.Request) chat.Message
}

// Streamer pushes message updates to open client streams.
type Streamer interface {
	Publish(userID string, msg chat.Message)
	Serve(w http.ResponseWriter, r *http.Request, userID, patientID string)
}

// LiveSessionSaver writes a finished live session to the chart.
type LiveSessionSaver interface {
	Save(ctx context.Context, s agents.LiveSession) (clinical.Report, chat.Message, error)
}

// ChatHandler runs agent queries against a patient chart.
type ChatHandler struct {
	repo       ehr.Repository
	dispatcher Dispatcher
	chats      chat.Store
	profiles   profile.Store
	operations *session.Operations
	stream     Streamer
	live       LiveSessionSaver
	logger     *logging.Logger
}

type ChatDeps struct {
	Repo       ehr.Repository
	Dispatcher Dispatcher
	Chats      chat.Store
	Profiles   profile.Store
	Operations *session.Operations
	Stream     Streamer
	Live       LiveSessionSaver
	Logger     *logging.Logger
}

func NewChatHandler(deps ChatDeps) *ChatHandler {
	if deps.Repo == nil || deps.Dispatcher == nil || deps.Chats == nil || deps.Profiles == nil {
		panic("handlers: chat handler requires repo, dispatcher, chat store and profile store")
	}
	if deps.Operations == nil {
		deps.Operations = session.NewOperations()
	}
	if deps.Logger == nil {
		deps.Logger = logging.Default()
	}
	return &ChatHandler{
		repo:       deps.Repo,
		dispatcher: deps.Dispatcher,
		chats:      deps.Chats,
		profiles:   deps.Profiles,
		operations: deps.Operations,
		stream:     deps.Stream,
		live:       deps.Live,
		logger:     deps.Logger,
	}
}

type queryRequest struct {
	Query string `json:"query"`
}

// PostQuery routes the clinician's query and returns the final AI message.
// Partial messages from multi-agent runs are pushed to the patient stream as
// they are produced.
// POST /api/patients/{patientID}/chat
func (h *ChatHandler) PostQuery(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	var body queryRequest
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	query := strings.TrimSpace(body.Query)
	if query == "" {
		jsonError(w, "query is required", http.StatusBadRequest)
		return
	}
	if len(query) > maxQueryChars {
		jsonError(w, "query is too long", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	patient, err := h.repo.GetPatient(ctx, userID, patientID)
	if errors.Is(err, ehr.ErrPatientNotFound) {
		jsonError(w, "patient not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load patient", "patient_id", patientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	prof, err := h.profiles.Get(ctx, userID)
	if err != nil {
		h.logger.Warn("failed to load profile, using defaults", "user_id", userID, "error", err)
		prof = profile.Profile{UserID: userID, Settings: clinical.DefaultSettings()}
	}

	op, err := h.operations.Begin(userID, patientID, query)
	if errors.Is(err, session.ErrOperationInProgress) {
		jsonError(w, err.Error(), http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	defer h.operations.Finish(op)

	h.record(ctx, userID, chat.NewUserMessage(patientID, query))
	if err := h.chats.AddQuestion(ctx, userID, query); err != nil {
		h.logger.Warn("failed to record question", "user_id", userID, "error", err)
	}

	ctx = llm.WithAPIKey(ctx, prof.GeminiAPIKey)
	msg := h.dispatcher.Handle(ctx, agents.Request{
		UserID:   userID,
		Query:    query,
		Patient:  patient,
		Settings: prof.Settings,
		Emit:     func(m chat.Message) { h.record(ctx, userID, m) },
		Stop:     op.Stopped(),
	})
	h.record(ctx, userID, msg)
	writeJSON(w, http.StatusOK, msg)
}

// record persists a message and pushes it to open streams.
func (h *ChatHandler) record(ctx context.Context, userID string, msg chat.Message) {
	if err := h.chats.Upsert(ctx, userID, msg); err != nil {
		h.logger.Warn("failed to persist chat message", "user_id", userID, "message_id", msg.ID, "error", err)
	}
	if h.stream != nil {
		h.stream.Publish(userID, msg)
	}
}

// GET /api/patients/{patientID}/chat
func (h *ChatHandler) History(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	history, err := h.chats.History(r.Context(), userID, patientID)
	if err != nil {
		h.logger.Error("failed to load chat history", "patient_id", patientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	if history == nil {
		history = []chat.Message{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"messages": history})
}

// DELETE /api/patients/{patientID}/chat
func (h *ChatHandler) ClearHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	if err := h.chats.ClearHistory(r.Context(), userID, patientID); err != nil {
		h.logger.Error("failed to clear chat history", "patient_id", patientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stop asks the running operation for the patient to finish early.
// POST /api/patients/{patientID}/chat/stop
func (h *ChatHandler) Stop(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	op, err := h.operations.Stop(userID, patientID)
	if errors.Is(err, session.ErrNoActiveOperation) {
		jsonError(w, err.Error(), http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusAccepted, op)
}

type liveSessionRequest struct {
	Transcript string            `json:"transcript"`
	Biomarkers map[string]string `json:"biomarkers"`
}

// SaveLiveSession saves a finished live session to the chart.
// POST /api/patients/{patientID}/live-sessions
func (h *ChatHandler) SaveLiveSession(w http.ResponseWriter, r *http.Request) {
	if h.live == nil {
		jsonError(w, "live sessions disabled", http.StatusServiceUnavailable)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	var body liveSessionRequest
	if err := decodeJSON(w, r, &body); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(body.Transcript) == "" {
		jsonError(w, "transcript is required", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	patient, err := h.repo.GetPatient(ctx, userID, patientID)
	if errors.Is(err, ehr.ErrPatientNotFound) {
		jsonError(w, "patient not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load patient", "patient_id", patientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	prof, err := h.profiles.Get(ctx, userID)
	if err != nil {
		prof = profile.Profile{UserID: userID, Settings: clinical.DefaultSettings()}
	}

	ctx = llm.WithAPIKey(ctx, prof.GeminiAPIKey)
	report, msg, err := h.live.Save(ctx, agents.LiveSession{
		Patient:    patient,
		Settings:   prof.Settings,
		Transcript: body.Transcript,
		Biomarkers: body.Biomarkers,
	})
	if err != nil {
		h.logger.Error("failed to save live session", "patient_id", patientID, "error", err)
		jsonError(w, "failed to save live session", http.StatusInternalServerError)
		return
	}
	h.record(ctx, userID, msg)
	writeJSON(w, http.StatusCreated, map[string]any{"report": report, "message": msg})
}

// Stream opens the patient's websocket update stream.
// GET /api/patients/{patientID}/stream
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	if h.stream == nil {
		jsonError(w, "streaming disabled", http.StatusServiceUnavailable)
		return
	}
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return
	}
	h.stream.Serve(w, r, userID, patientID)
}
