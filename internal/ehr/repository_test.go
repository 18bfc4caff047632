package ehr

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

func TestMemoryRepositoryScopesByUser(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DemoPatients("alice")...)

	alice, err := repo.FetchPatients(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, alice, 3)
	assert.Equal(t, "Aisha Patel", alice[0].Name)

	bob, err := repo.FetchPatients(ctx, "bob")
	require.NoError(t, err)
	assert.Empty(t, bob)

	_, err = repo.GetPatient(ctx, "bob", alice[0].ID)
	assert.ErrorIs(t, err, ErrPatientNotFound)
}

func TestMemoryRepositorySoftDelete(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DemoPatients("alice")...)
	patients, _ := repo.FetchPatients(ctx, "alice")
	p := patients[0]
	target := p.Reports[0].ID

	require.NoError(t, repo.DeleteReport(ctx, p.ID, target))

	got, err := repo.GetPatient(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Reports, len(p.Reports)-1)
	_, err = repo.GetReport(ctx, p.ID, target)
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.ErrorIs(t, repo.DeleteReport(ctx, p.ID, target), ErrReportNotFound)

	// the record is kept with a deletion time
	repo.mu.RLock()
	stored := repo.patients[p.ID].Reports
	repo.mu.RUnlock()
	var found bool
	for _, r := range stored {
		if r.ID == target {
			found = r.DeletedAt != nil
		}
	}
	assert.True(t, found)
}

func TestMemoryRepositoryReportsAndExtraction(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DemoPatients("alice")...)
	patients, _ := repo.FetchPatients(ctx, "alice")
	p := patients[1]

	report := clinical.Report{ID: "new", Type: clinical.ReportLab, Date: "2024-07-01", Title: "CBC", Content: clinical.TextContent("Hgb 10.1")}
	require.NoError(t, repo.AddReportMetadata(ctx, p.ID, report))
	require.NoError(t, repo.SaveExtractedData(ctx, p.ID, "new", clinical.ExtractedData{Summary: "mild anemia", KeyFindings: []string{"Hgb 10.1"}}))

	got, err := repo.GetReport(ctx, p.ID, "new")
	require.NoError(t, err)
	require.NotNil(t, got.ExtractedData)
	assert.Equal(t, "mild anemia", got.AISummary)

	bad := clinical.Report{ID: "bad", Type: clinical.ReportLiveSession, Date: "2024-07-01", Title: "x", Content: clinical.TextContent("y")}
	assert.ErrorIs(t, repo.AddReportMetadata(ctx, p.ID, bad), clinical.ErrContentMismatch)
	assert.ErrorIs(t, repo.SaveExtractedData(ctx, p.ID, "missing", clinical.ExtractedData{}), ErrReportNotFound)
}

func TestMemoryRepositoryUpdateKeepsReports(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository(DemoPatients("alice")...)
	patients, _ := repo.FetchPatients(ctx, "alice")
	p := patients[0]

	p.Reports = nil
	p.Tasks = []clinical.Task{{ID: "t1", Text: "call patient"}}
	require.NoError(t, repo.UpdatePatient(ctx, p))

	got, err := repo.GetPatient(ctx, "alice", p.ID)
	require.NoError(t, err)
	assert.Len(t, got.Tasks, 1)
	assert.NotEmpty(t, got.Reports)

	p.UserID = "mallory"
	assert.ErrorIs(t, repo.UpdatePatient(ctx, p), ErrPatientNotFound)
}

func TestEnsureDemoPatientsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	require.NoError(t, EnsureDemoPatients(ctx, repo, "demo"))
	require.NoError(t, EnsureDemoPatients(ctx, repo, "demo"))

	patients, err := repo.FetchPatients(ctx, "demo")
	require.NoError(t, err)
	assert.Len(t, patients, 3)
	assert.Equal(t, DemoPatients("demo")[0].ID, demoID("demo", "hf"))
}
