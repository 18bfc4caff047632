package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/clinical-agent-platform/internal/attachments"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/ehr"
	"github.com/wolfman30/clinical-agent-platform/internal/extraction"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// AttachmentStore uploads report files.
type AttachmentStore interface {
	Enabled() bool
	Upload(ctx context.Context, up attachments.Upload) (attachments.Stored, error)
}

// ExtractionQueue schedules structured extraction of report text.
type ExtractionQueue interface {
	Enqueue(ctx context.Context, job extraction.Job) (string, error)
}

// JobLookup reads extraction job status.
type JobLookup interface {
	GetJob(ctx context.Context, jobID string) (*extraction.JobRecord, error)
}

// PatientHandler serves patient charts and their reports.
type PatientHandler struct {
	repo        ehr.Repository
	attachments AttachmentStore
	extraction  ExtractionQueue
	jobs        JobLookup
	logger      *logging.Logger
}

type PatientOption func(*PatientHandler)

func WithAttachments(store AttachmentStore) PatientOption {
	return func(h *PatientHandler) { h.attachments = store }
}

func WithExtraction(queue ExtractionQueue, jobs JobLookup) PatientOption {
	return func(h *PatientHandler) {
		h.extraction = queue
		h.jobs = jobs
	}
}

func NewPatientHandler(repo ehr.Repository, logger *logging.Logger, opts ...PatientOption) *PatientHandler {
	if repo == nil {
		panic("handlers: patient repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	h := &PatientHandler{repo: repo, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ListPatients returns the caller's patients.
// GET /api/patients
func (h *PatientHandler) ListPatients(w http.ResponseWriter, r *http.Request) {
	userID, ok := requestUser(w, r)
	if !ok {
		return
	}
	patients, err := h.repo.FetchPatients(r.Context(), userID)
	if err != nil {
		h.logger.Error("failed to list patients", "user_id", userID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"patients": patients})
}

// GET /api/patients/{patientID}
func (h *PatientHandler) GetPatient(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// UpdatePatient replaces the editable chart fields. Reports are managed
// through the report endpoints and are ignored here.
// PUT /api/patients/{patientID}
func (h *PatientHandler) UpdatePatient(w http.ResponseWriter, r *http.Request) {
	existing, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	var patient clinical.Patient
	if err := decodeJSON(w, r, &patient); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(patient.Name) == "" {
		jsonError(w, "name is required", http.StatusBadRequest)
		return
	}
	patient.ID = existing.ID
	patient.UserID = existing.UserID
	patient.Reports = existing.Reports

	if err := h.repo.UpdatePatient(r.Context(), patient); err != nil {
		h.writeRepoError(w, "update patient", patient.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, patient)
}

// AddReport attaches report metadata sent as JSON.
// POST /api/patients/{patientID}/reports
func (h *PatientHandler) AddReport(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	var report clinical.Report
	if err := decodeJSON(w, r, &report); err != nil {
		jsonError(w, "invalid report: "+err.Error(), http.StatusBadRequest)
		return
	}
	if report.ID == "" {
		report.ID = uuid.NewString()
	}
	if report.Date == "" {
		report.Date = time.Now().UTC().Format("2006-01-02")
	}
	if err := report.Validate(); err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.AddReportMetadata(r.Context(), patient.ID, report); err != nil {
		h.writeRepoError(w, "add report", patient.ID, err)
		return
	}
	jobID := h.scheduleExtraction(r.Context(), patient, report)
	writeJSON(w, http.StatusCreated, map[string]any{"report": report, "extractionJobId": jobID})
}

// UploadReport stores a file in S3 and adds the matching report.
// POST /api/patients/{patientID}/reports/upload (multipart: file, title, date, rawText)
func (h *PatientHandler) UploadReport(w http.ResponseWriter, r *http.Request) {
	if h.attachments == nil || !h.attachments.Enabled() {
		jsonError(w, "attachments disabled", http.StatusServiceUnavailable)
		return
	}
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 32<<20)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		jsonError(w, "invalid multipart form", http.StatusBadRequest)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		jsonError(w, "file is required", http.StatusBadRequest)
		return
	}
	defer file.Close()

	stored, err := h.attachments.Upload(r.Context(), attachments.Upload{
		UserID:      patient.UserID,
		PatientID:   patient.ID,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	switch {
	case errors.Is(err, attachments.ErrUnsupportedType), errors.Is(err, attachments.ErrEmptyFile):
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, attachments.ErrTooLarge):
		jsonError(w, err.Error(), http.StatusRequestEntityTooLarge)
		return
	case err != nil:
		h.logger.Error("failed to upload attachment", "patient_id", patient.ID, "error", err)
		jsonError(w, "upload failed", http.StatusBadGateway)
		return
	}

	title := strings.TrimSpace(r.FormValue("title"))
	if title == "" {
		title = header.Filename
	}
	date := strings.TrimSpace(r.FormValue("date"))
	if date == "" {
		date = time.Now().UTC().Format("2006-01-02")
	}
	report := stored.Report(uuid.NewString(), title, date, strings.TrimSpace(r.FormValue("rawText")))
	if err := h.repo.AddReportMetadata(r.Context(), patient.ID, report); err != nil {
		h.writeRepoError(w, "add uploaded report", patient.ID, err)
		return
	}
	jobID := h.scheduleExtraction(r.Context(), patient, report)
	writeJSON(w, http.StatusCreated, map[string]any{"report": report, "extractionJobId": jobID})
}

// DELETE /api/patients/{patientID}/reports/{reportID}
func (h *PatientHandler) DeleteReport(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	reportID, ok := pathParam(w, r, "reportID")
	if !ok {
		return
	}
	if err := h.repo.DeleteReport(r.Context(), patient.ID, reportID); err != nil {
		h.writeRepoError(w, "delete report", patient.ID, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ViewReport resolves which viewer opens the report.
// GET /api/patients/{patientID}/reports/{reportID}/view
func (h *PatientHandler) ViewReport(w http.ResponseWriter, r *http.Request) {
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	reportID, ok := pathParam(w, r, "reportID")
	if !ok {
		return
	}
	report, err := h.repo.GetReport(r.Context(), patient.ID, reportID)
	if err != nil {
		h.writeRepoError(w, "get report", patient.ID, err)
		return
	}
	writeJSON(w, http.StatusOK, clinical.Render(report))
}

// GET /api/patients/{patientID}/reports/{reportID}/extraction
func (h *PatientHandler) GetExtraction(w http.ResponseWriter, r *http.Request) {
	if h.jobs == nil {
		jsonError(w, "extraction disabled", http.StatusServiceUnavailable)
		return
	}
	patient, ok := h.loadPatient(w, r)
	if !ok {
		return
	}
	reportID, ok := pathParam(w, r, "reportID")
	if !ok {
		return
	}
	job, err := h.jobs.GetJob(r.Context(), reportID)
	if errors.Is(err, extraction.ErrJobNotFound) || (err == nil && job.PatientID != patient.ID) {
		jsonError(w, "extraction job not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("failed to load extraction job", "report_id", reportID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (h *PatientHandler) loadPatient(w http.ResponseWriter, r *http.Request) (clinical.Patient, bool) {
	userID, ok := requestUser(w, r)
	if !ok {
		return clinical.Patient{}, false
	}
	patientID, ok := pathParam(w, r, "patientID")
	if !ok {
		return clinical.Patient{}, false
	}
	patient, err := h.repo.GetPatient(r.Context(), userID, patientID)
	if err != nil {
		h.writeRepoError(w, "get patient", patientID, err)
		return clinical.Patient{}, false
	}
	return patient, true
}

func (h *PatientHandler) scheduleExtraction(ctx context.Context, patient clinical.Patient, report clinical.Report) string {
	if h.extraction == nil {
		return ""
	}
	text := extractableText(report)
	if text == "" {
		return ""
	}
	jobID, err := h.extraction.Enqueue(ctx, extraction.Job{
		UserID:    patient.UserID,
		PatientID: patient.ID,
		ReportID:  report.ID,
		Title:     report.Title,
		Text:      text,
	})
	if err != nil {
		h.logger.Warn("failed to enqueue extraction", "report_id", report.ID, "error", err)
		return ""
	}
	return jobID
}

// extractableText is the report text worth sending for extraction.
func extractableText(report clinical.Report) string {
	switch c := report.Content.(type) {
	case clinical.TextContent:
		return strings.TrimSpace(string(c))
	case clinical.AttachmentContent:
		return strings.TrimSpace(c.RawText)
	}
	return ""
}

func (h *PatientHandler) writeRepoError(w http.ResponseWriter, op, patientID string, err error) {
	switch {
	case errors.Is(err, ehr.ErrPatientNotFound):
		jsonError(w, "patient not found", http.StatusNotFound)
	case errors.Is(err, ehr.ErrReportNotFound):
		jsonError(w, "report not found", http.StatusNotFound)
	case errors.Is(err, clinical.ErrInvalidReportType), errors.Is(err, clinical.ErrContentMismatch):
		jsonError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("patient repository failure", "op", op, "patient_id", patientID, "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
