package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
)

func TestService_Record(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	mock.ExpectExec("INSERT INTO agent_audit_events").
		WithArgs(
			sqlmock.AnyArg(), "user-1", "pat-1", "show me the last ecg", "retrieval",
			"retrieval", nil, "ok", "report_display", int64(12), nil,
			pq.Array([]string{"path:regex"}), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = service.Record(context.Background(), Event{
		UserID:      "user-1",
		PatientID:   "pat-1",
		Query:       "  show me the last ecg ",
		Agent:       "retrieval",
		Route:       "retrieval",
		Status:      "ok",
		MessageType: "report_display",
		DurationMs:  12,
		Tags:        []string{"path:regex"},
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_RecordDispatch(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	service := NewService(db)

	mock.ExpectExec("INSERT INTO agent_audit_events").
		WithArgs(
			sqlmock.AnyArg(), "user-1", "pat-1", "ecg please", "cardiology.ecg",
			nil, "Cardiology", "rate_limited", "text", int64(1500), "rate limited",
			pq.Array([]string{"path:model", "type:text"}), sqlmock.AnyArg(),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err = service.RecordDispatch(context.Background(), agents.DispatchRecord{
		UserID:      "user-1",
		PatientID:   "pat-1",
		Query:       "ecg please",
		Agent:       "cardiology.ecg",
		Specialty:   agents.Cardiology,
		Path:        "model",
		Status:      "rate_limited",
		MessageType: "text",
		Duration:    1500 * time.Millisecond,
		Err:         errors.New("rate limited"),
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestService_RecordError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO agent_audit_events").WillReturnError(errors.New("db down"))

	err = NewService(db).Record(context.Background(), Event{UserID: "u", Agent: "general", Status: "ok"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit: failed to record event")
}

func TestService_QueryEvents(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	created := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "user_id", "patient_id", "query", "agent", "route", "specialty",
		"status", "message_type", "duration_ms", "error", "tags", "created_at",
	}).AddRow("evt-1", "user-1", "pat-1", "board", "board_review", "board", nil,
		"ok", "multi_specialist_review", int64(9000), nil, "{path:regex}", created)

	mock.ExpectQuery("SELECT .* FROM agent_audit_events WHERE user_id = \\$1 AND agent = \\$2").
		WithArgs("user-1", "board_review").
		WillReturnRows(rows)

	events, err := NewService(db).QueryEvents(context.Background(), Filter{UserID: "user-1", Agent: "board_review", Limit: 10})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "pat-1", events[0].PatientID)
	assert.Empty(t, events[0].Specialty)
	assert.Equal(t, []string{"path:regex"}, events[0].Tags)
	assert.Equal(t, int64(9000), events[0].DurationMs)
	assert.NoError(t, mock.ExpectationsWereMet())
}
