package ehr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

type pgxExecutor interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores patients and reports in Postgres. List-valued
// chart fields and report bodies are jsonb columns.
type PostgresRepository struct {
	db  pgxExecutor
	now func() time.Time
}

// NewPostgresRepository initializes a repo backed by pgxpool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("ehr: pgx pool required")
	}
	return newPostgresRepositoryWithExec(pool)
}

func newPostgresRepositoryWithExec(db pgxExecutor) *PostgresRepository {
	if db == nil {
		panic("ehr: executor required")
	}
	return &PostgresRepository{db: db, now: time.Now}
}

const patientColumns = `id, user_id, name, age, gender, mrn, current_status, medical_history, vitals_log, critical_alerts, notes, tasks`

const reportColumns = `patient_id, id, type, report_date, title, content, ai_summary, key_findings, extracted_data`

func (r *PostgresRepository) FetchPatients(ctx context.Context, userID string) ([]clinical.Patient, error) {
	rows, err := r.db.Query(ctx, `SELECT `+patientColumns+` FROM patients WHERE user_id = $1 ORDER BY name`, userID)
	if err != nil {
		return nil, fmt.Errorf("ehr: list patients: %w", err)
	}
	defer rows.Close()

	patients := make([]clinical.Patient, 0)
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, err
		}
		patients = append(patients, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ehr: list patients: %w", err)
	}
	if len(patients) == 0 {
		return patients, nil
	}

	ids := make([]string, len(patients))
	for i, p := range patients {
		ids[i] = p.ID
	}
	byPatient, err := r.reportsFor(ctx, ids)
	if err != nil {
		return nil, err
	}
	for i := range patients {
		patients[i].Reports = byPatient[patients[i].ID]
	}
	return patients, nil
}

func (r *PostgresRepository) GetPatient(ctx context.Context, userID, patientID string) (clinical.Patient, error) {
	row := r.db.QueryRow(ctx, `SELECT `+patientColumns+` FROM patients WHERE id = $1 AND user_id = $2`, patientID, userID)
	p, err := scanPatient(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clinical.Patient{}, ErrPatientNotFound
		}
		return clinical.Patient{}, err
	}
	byPatient, err := r.reportsFor(ctx, []string{p.ID})
	if err != nil {
		return clinical.Patient{}, err
	}
	p.Reports = byPatient[p.ID]
	return p, nil
}

func (r *PostgresRepository) CreatePatient(ctx context.Context, patient clinical.Patient) error {
	args, err := patientArgs(patient)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO patients (` + patientColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := r.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("ehr: insert patient: %w", err)
	}
	for _, rep := range patient.Reports {
		if err := r.AddReportMetadata(ctx, patient.ID, rep); err != nil {
			return err
		}
	}
	return nil
}

func (r *PostgresRepository) UpdatePatient(ctx context.Context, patient clinical.Patient) error {
	args, err := patientArgs(patient)
	if err != nil {
		return err
	}
	query := `
		UPDATE patients
		SET name = $3, age = $4, gender = $5, mrn = $6, current_status = $7, medical_history = $8,
			vitals_log = $9, critical_alerts = $10, notes = $11, tasks = $12, updated_at = NOW()
		WHERE id = $1 AND user_id = $2
	`
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("ehr: update patient: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrPatientNotFound
	}
	return nil
}

func (r *PostgresRepository) AddReportMetadata(ctx context.Context, patientID string, report clinical.Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	content, err := json.Marshal(report.Content)
	if err != nil {
		return fmt.Errorf("ehr: encode report content: %w", err)
	}
	findings, err := json.Marshal(nonNil(report.KeyFindings))
	if err != nil {
		return fmt.Errorf("ehr: encode key findings: %w", err)
	}
	var extracted []byte
	if report.ExtractedData != nil {
		if extracted, err = json.Marshal(report.ExtractedData); err != nil {
			return fmt.Errorf("ehr: encode extracted data: %w", err)
		}
	}
	query := `
		INSERT INTO reports (` + reportColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	if _, err := r.db.Exec(ctx, query,
		patientID,
		report.ID,
		string(report.Type),
		report.Date,
		report.Title,
		content,
		report.AISummary,
		findings,
		extracted,
	); err != nil {
		return fmt.Errorf("ehr: insert report: %w", err)
	}
	return nil
}

// SaveExtractedData stores the extraction and fills the AI summary when the
// report does not have one yet.
func (r *PostgresRepository) SaveExtractedData(ctx context.Context, patientID, reportID string, data clinical.ExtractedData) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("ehr: encode extracted data: %w", err)
	}
	query := `
		UPDATE reports
		SET extracted_data = $3, ai_summary = COALESCE(NULLIF(ai_summary, ''), $4)
		WHERE patient_id = $1 AND id = $2 AND deleted_at IS NULL
	`
	tag, err := r.db.Exec(ctx, query, patientID, reportID, payload, data.Summary)
	if err != nil {
		return fmt.Errorf("ehr: save extracted data: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

func (r *PostgresRepository) GetReport(ctx context.Context, patientID, reportID string) (clinical.Report, error) {
	row := r.db.QueryRow(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE patient_id = $1 AND id = $2 AND deleted_at IS NULL`,
		patientID, reportID)
	_, rep, err := scanReport(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return clinical.Report{}, ErrReportNotFound
		}
		return clinical.Report{}, err
	}
	return rep, nil
}

func (r *PostgresRepository) DeleteReport(ctx context.Context, patientID, reportID string) error {
	query := `UPDATE reports SET deleted_at = $3 WHERE patient_id = $1 AND id = $2 AND deleted_at IS NULL`
	tag, err := r.db.Exec(ctx, query, patientID, reportID, r.now().UTC())
	if err != nil {
		return fmt.Errorf("ehr: delete report: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrReportNotFound
	}
	return nil
}

// reportsFor loads active reports grouped by patient, newest first.
func (r *PostgresRepository) reportsFor(ctx context.Context, patientIDs []string) (map[string][]clinical.Report, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+reportColumns+` FROM reports WHERE patient_id = ANY($1) AND deleted_at IS NULL ORDER BY report_date DESC, created_at DESC`,
		patientIDs)
	if err != nil {
		return nil, fmt.Errorf("ehr: list reports: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]clinical.Report, len(patientIDs))
	for rows.Next() {
		patientID, rep, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out[patientID] = append(out[patientID], rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ehr: list reports: %w", err)
	}
	return out, nil
}

func scanPatient(row pgx.Row) (clinical.Patient, error) {
	var (
		p                                             clinical.Patient
		status, history, vitals, alerts, notes, tasks []byte
	)
	if err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Name,
		&p.Age,
		&p.Gender,
		&p.MRN,
		&status,
		&history,
		&vitals,
		&alerts,
		&notes,
		&tasks,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return p, err
		}
		return p, fmt.Errorf("ehr: scan patient: %w", err)
	}
	for _, col := range []struct {
		raw []byte
		dst any
	}{
		{status, &p.CurrentStatus},
		{history, &p.MedicalHistory},
		{vitals, &p.VitalsLog},
		{alerts, &p.CriticalAlerts},
		{notes, &p.Notes},
		{tasks, &p.Tasks},
	} {
		if err := decodeJSONB(col.raw, col.dst); err != nil {
			return p, fmt.Errorf("ehr: decode patient %s: %w", p.ID, err)
		}
	}
	return p, nil
}

func scanReport(row pgx.Row) (string, clinical.Report, error) {
	var (
		patientID, typ               string
		rep                          clinical.Report
		content, findings, extracted []byte
	)
	if err := row.Scan(
		&patientID,
		&rep.ID,
		&typ,
		&rep.Date,
		&rep.Title,
		&content,
		&rep.AISummary,
		&findings,
		&extracted,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", rep, err
		}
		return "", rep, fmt.Errorf("ehr: scan report: %w", err)
	}
	rep.Type = clinical.ReportType(typ)
	body, err := clinical.DecodeContent(content)
	if err != nil {
		return "", rep, fmt.Errorf("ehr: decode report %s content: %w", rep.ID, err)
	}
	rep.Content = body
	if err := decodeJSONB(findings, &rep.KeyFindings); err != nil {
		return "", rep, fmt.Errorf("ehr: decode report %s findings: %w", rep.ID, err)
	}
	if len(extracted) > 0 && string(extracted) != "null" {
		var data clinical.ExtractedData
		if err := json.Unmarshal(extracted, &data); err != nil {
			return "", rep, fmt.Errorf("ehr: decode report %s extraction: %w", rep.ID, err)
		}
		rep.ExtractedData = &data
	}
	return patientID, rep, nil
}

func patientArgs(p clinical.Patient) ([]any, error) {
	args := []any{p.ID, p.UserID, p.Name, p.Age, p.Gender, p.MRN}
	for _, v := range []any{
		p.CurrentStatus,
		nonNil(p.MedicalHistory),
		nonNil(p.VitalsLog),
		nonNil(p.CriticalAlerts),
		nonNil(p.Notes),
		nonNil(p.Tasks),
	} {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("ehr: encode patient %s: %w", p.ID, err)
		}
		args = append(args, b)
	}
	return args, nil
}

func decodeJSONB(raw []byte, dst any) error {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

// nonNil keeps empty lists as [] rather than null in jsonb.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
