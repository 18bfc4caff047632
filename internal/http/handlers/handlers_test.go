package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	httpmiddleware "github.com/wolfman30/clinical-agent-platform/internal/http/middleware"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

const (
	testUser    = "clinician-1"
	testPatient = "patient-1"
)

func testLogger() *logging.Logger {
	return logging.New("error")
}

func seededRepo() *ehr.MemoryRepository {
	return ehr.NewMemoryRepository(clinical.Patient{
		ID:     testPatient,
		UserID: testUser,
		Name:   "Ada Lovelace",
		Age:    64,
		Reports: []clinical.Report{
			{ID: "ecg-1", Type: clinical.ReportECG, Date: "2024-01-05", Title: "ECG", Content: clinical.TextContent("Sinus rhythm, rate 72.")},
			{ID: "pdf-1", Type: clinical.ReportLab, Date: "2024-02-10", Title: "Lipid panel", Content: clinical.AttachmentContent{Kind: clinical.AttachmentPDF, URL: "https://example.test/lipids.pdf", RawText: "LDL 131"}},
		},
	})
}

// newRequest builds an authenticated request with chi URL params.
func newRequest(t *testing.T, method, target string, body any, params map[string]string) *http.Request {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, rctx)
	ctx = httpmiddleware.WithUserClaims(ctx, httpmiddleware.UserClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: testUser},
	})
	return req.WithContext(ctx)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

type recordingStreamer struct {
	mu       sync.Mutex
	messages []chat.Message
}

func (s *recordingStreamer) Publish(userID string, msg chat.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
}

func (s *recordingStreamer) Serve(w http.ResponseWriter, r *http.Request, userID, patientID string) {
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func (s *recordingStreamer) published() []chat.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]chat.Message(nil), s.messages...)
}

func TestHelpers_RequestUserMissing(t *testing.T) {
	h := NewPatientHandler(seededRepo(), testLogger())
	req := httptest.NewRequest(http.MethodGet, "/api/patients", nil)
	rec := httptest.NewRecorder()

	h.ListPatients(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthenticated", decodeBody(t, rec)["error"])
}
