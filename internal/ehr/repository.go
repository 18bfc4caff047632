package ehr

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

var (
	// ErrPatientNotFound is returned when the patient does not exist for the user.
	ErrPatientNotFound = errors.New("ehr: patient not found")

	// ErrReportNotFound is returned for missing or deleted reports.
	ErrReportNotFound = errors.New("ehr: report not found")
)

// Repository is the chart store the agents and API read and write.
type Repository interface {
	FetchPatients(ctx context.Context, userID string) ([]clinical.Patient, error)
	GetPatient(ctx context.Context, userID, patientID string) (clinical.Patient, error)
	CreatePatient(ctx context.Context, patient clinical.Patient) error
	UpdatePatient(ctx context.Context, patient clinical.Patient) error
	AddReportMetadata(ctx context.Context, patientID string, report clinical.Report) error
	SaveExtractedData(ctx context.Context, patientID, reportID string, data clinical.ExtractedData) error
	GetReport(ctx context.Context, patientID, reportID string) (clinical.Report, error)
	// DeleteReport soft deletes; the report stays in storage with a deletion time.
	DeleteReport(ctx context.Context, patientID, reportID string) error
}

// MemoryRepository keeps charts in process memory.
type MemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]clinical.Patient
	now      func() time.Time
}

// NewMemoryRepository creates a repository seeded with the given patients.
func NewMemoryRepository(seed ...clinical.Patient) *MemoryRepository {
	r := &MemoryRepository{
		patients: make(map[string]clinical.Patient, len(seed)),
		now:      time.Now,
	}
	for _, p := range seed {
		r.patients[p.ID] = clonePatient(p)
	}
	return r
}

func (r *MemoryRepository) FetchPatients(ctx context.Context, userID string) ([]clinical.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]clinical.Patient, 0)
	for _, p := range r.patients {
		if p.UserID == userID {
			out = append(out, activeView(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *MemoryRepository) GetPatient(ctx context.Context, userID, patientID string) (clinical.Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[patientID]
	if !ok || p.UserID != userID {
		return clinical.Patient{}, ErrPatientNotFound
	}
	return activeView(p), nil
}

func (r *MemoryRepository) CreatePatient(ctx context.Context, patient clinical.Patient) error {
	if patient.ID == "" || patient.UserID == "" {
		return errors.New("ehr: patient id and user id are required")
	}
	for _, rep := range patient.Reports {
		if err := rep.Validate(); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.patients[patient.ID]; exists {
		return nil
	}
	r.patients[patient.ID] = clonePatient(patient)
	return nil
}

// UpdatePatient replaces demographics and chart lists. Reports are managed
// through the report methods and are left untouched.
func (r *MemoryRepository) UpdatePatient(ctx context.Context, patient clinical.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.patients[patient.ID]
	if !ok || existing.UserID != patient.UserID {
		return ErrPatientNotFound
	}
	updated := clonePatient(patient)
	updated.Reports = existing.Reports
	r.patients[patient.ID] = updated
	return nil
}

func (r *MemoryRepository) AddReportMetadata(ctx context.Context, patientID string, report clinical.Report) error {
	if err := report.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[patientID]
	if !ok {
		return ErrPatientNotFound
	}
	p.Reports = append(p.Reports, report)
	r.patients[patientID] = p
	return nil
}

func (r *MemoryRepository) SaveExtractedData(ctx context.Context, patientID, reportID string, data clinical.ExtractedData) error {
	return r.updateReport(patientID, reportID, func(rep *clinical.Report) {
		d := data
		rep.ExtractedData = &d
		if rep.AISummary == "" {
			rep.AISummary = data.Summary
		}
	})
}

func (r *MemoryRepository) GetReport(ctx context.Context, patientID, reportID string) (clinical.Report, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.patients[patientID]
	if !ok {
		return clinical.Report{}, ErrPatientNotFound
	}
	rep, ok := p.FindReport(reportID)
	if !ok {
		return clinical.Report{}, ErrReportNotFound
	}
	return rep, nil
}

func (r *MemoryRepository) DeleteReport(ctx context.Context, patientID, reportID string) error {
	now := r.now().UTC()
	return r.updateReport(patientID, reportID, func(rep *clinical.Report) {
		rep.DeletedAt = &now
	})
}

func (r *MemoryRepository) updateReport(patientID, reportID string, fn func(*clinical.Report)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.patients[patientID]
	if !ok {
		return ErrPatientNotFound
	}
	for i := range p.Reports {
		if p.Reports[i].ID == reportID && !p.Reports[i].Deleted() {
			fn(&p.Reports[i])
			r.patients[patientID] = p
			return nil
		}
	}
	return ErrReportNotFound
}

func clonePatient(p clinical.Patient) clinical.Patient {
	p.Reports = append([]clinical.Report(nil), p.Reports...)
	p.MedicalHistory = append([]clinical.HistoryItem(nil), p.MedicalHistory...)
	p.VitalsLog = append([]clinical.VitalsEntry(nil), p.VitalsLog...)
	p.CriticalAlerts = append([]string(nil), p.CriticalAlerts...)
	p.Notes = append([]clinical.Note(nil), p.Notes...)
	p.Tasks = append([]clinical.Task(nil), p.Tasks...)
	p.CurrentStatus.Medications = append([]string(nil), p.CurrentStatus.Medications...)
	return p
}

// activeView is a copy of p without soft deleted reports.
func activeView(p clinical.Patient) clinical.Patient {
	out := clonePatient(p)
	out.Reports = p.ActiveReports()
	return out
}
