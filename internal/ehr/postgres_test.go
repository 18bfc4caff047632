package ehr

import (
	"context"
	"errors"
	"testing"
	"time"

	pgx "github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

var patientCols = []string{"id", "user_id", "name", "age", "gender", "mrn", "current_status", "medical_history", "vitals_log", "critical_alerts", "notes", "tasks"}

var reportCols = []string{"patient_id", "id", "type", "report_date", "title", "content", "ai_summary", "key_findings", "extracted_data"}

func newMockRepo(t *testing.T) (*PostgresRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgx mock: %v", err)
	}
	t.Cleanup(mock.Close)
	return newPostgresRepositoryWithExec(mock), mock
}

func TestPostgresFetchPatients(t *testing.T) {
	repo, mock := newMockRepo(t)

	mock.ExpectQuery("SELECT .* FROM patients WHERE user_id = \\$1").
		WithArgs("user-1").
		WillReturnRows(pgxmock.NewRows(patientCols).AddRow(
			"p-1", "user-1", "Jane Doe", 67, "female", "MRN1",
			[]byte(`{"condition":"HFrEF","vitals":"stable","medications":["metoprolol"]}`),
			[]byte(`[{"condition":"CKD"}]`), []byte(`[]`), []byte(`["K 5.4"]`), []byte(`[]`), []byte(`[]`),
		))
	mock.ExpectQuery("SELECT .* FROM reports WHERE patient_id = ANY\\(\\$1\\)").
		WithArgs([]string{"p-1"}).
		WillReturnRows(pgxmock.NewRows(reportCols).
			AddRow("p-1", "r-2", "PDF", "2024-02-01", "Consult", []byte(`{"type":"pdf","url":"https://x/y.pdf","rawText":"note"}`), "", []byte(`[]`), []byte("null")).
			AddRow("p-1", "r-1", "ECG", "2024-01-01", "ECG", []byte(`"Sinus rhythm"`), "normal", []byte(`["sinus"]`), []byte(`{"summary":"normal ECG","keyFindings":["sinus"],"extractedAt":"2024-01-02T00:00:00Z"}`)))

	patients, err := repo.FetchPatients(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(patients) != 1 {
		t.Fatalf("expected one patient, got %d", len(patients))
	}
	p := patients[0]
	if p.CurrentStatus.Condition != "HFrEF" || len(p.CriticalAlerts) != 1 {
		t.Fatalf("unexpected patient %+v", p)
	}
	if len(p.Reports) != 2 {
		t.Fatalf("expected two reports, got %d", len(p.Reports))
	}
	pdf, ok := p.Reports[0].Content.(clinical.AttachmentContent)
	if !ok || pdf.Kind != clinical.AttachmentPDF || pdf.RawText != "note" {
		t.Fatalf("expected pdf attachment, got %#v", p.Reports[0].Content)
	}
	if p.Reports[1].Content != clinical.TextContent("Sinus rhythm") {
		t.Fatalf("expected text content, got %#v", p.Reports[1].Content)
	}
	if p.Reports[1].ExtractedData == nil || p.Reports[1].ExtractedData.Summary != "normal ECG" {
		t.Fatalf("expected extracted data, got %+v", p.Reports[1].ExtractedData)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresGetPatientNotFound(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectQuery("SELECT .* FROM patients WHERE id = \\$1 AND user_id = \\$2").
		WithArgs("p-9", "user-1").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetPatient(context.Background(), "user-1", "p-9")
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
}

func TestPostgresUpdatePatient(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE patients").
		WithArgs("p-1", "user-1", "Jane Doe", 68, "female", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE patients").
		WithArgs("p-2", "user-1", "Nobody", 0, "", "", pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.UpdatePatient(context.Background(), clinical.Patient{ID: "p-1", UserID: "user-1", Name: "Jane Doe", Age: 68, Gender: "female"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	err := repo.UpdatePatient(context.Background(), clinical.Patient{ID: "p-2", UserID: "user-1", Name: "Nobody"})
	if !errors.Is(err, ErrPatientNotFound) {
		t.Fatalf("expected ErrPatientNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAddReportMetadata(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("INSERT INTO reports").
		WithArgs("p-1", "r-1", "Lab", "2024-03-01", "CBC", []byte(`"Hgb 9.8"`), "", []byte(`[]`), []byte(nil)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.AddReportMetadata(context.Background(), "p-1", clinical.Report{
		ID: "r-1", Type: clinical.ReportLab, Date: "2024-03-01", Title: "CBC", Content: clinical.TextContent("Hgb 9.8"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresAddReportRejectsMismatchedContent(t *testing.T) {
	repo, mock := newMockRepo(t)
	err := repo.AddReportMetadata(context.Background(), "p-1", clinical.Report{
		ID: "r-1", Type: clinical.ReportLink, Date: "2024-03-01", Title: "Portal", Content: clinical.TextContent("not a link"),
	})
	if !errors.Is(err, clinical.ErrContentMismatch) {
		t.Fatalf("expected ErrContentMismatch, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unexpected database calls: %v", err)
	}
}

func TestPostgresSoftDelete(t *testing.T) {
	repo, mock := newMockRepo(t)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec("UPDATE reports SET deleted_at").
		WithArgs("p-1", "r-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	mock.ExpectExec("UPDATE reports SET deleted_at").
		WithArgs("p-1", "r-1", now).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	if err := repo.DeleteReport(context.Background(), "p-1", "r-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := repo.DeleteReport(context.Background(), "p-1", "r-1"); !errors.Is(err, ErrReportNotFound) {
		t.Fatalf("expected ErrReportNotFound on second delete, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPostgresSaveExtractedData(t *testing.T) {
	repo, mock := newMockRepo(t)
	mock.ExpectExec("UPDATE reports").
		WithArgs("p-1", "r-1", pgxmock.AnyArg(), "anemia").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := repo.SaveExtractedData(context.Background(), "p-1", "r-1", clinical.ExtractedData{Summary: "anemia"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
