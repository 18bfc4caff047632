// Package audit records every agent dispatch for later review.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/wolfman30/clinical-agent-platform/internal/agents"
)

const maxQueryChars = 500

// Event is an immutable audit record for one routed query.
type Event struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	PatientID   string    `json:"patient_id,omitempty"`
	Query       string    `json:"query,omitempty"`
	Agent       string    `json:"agent"`
	Route       string    `json:"route,omitempty"`
	Specialty   string    `json:"specialty,omitempty"`
	Status      string    `json:"status"`
	MessageType string    `json:"message_type,omitempty"`
	DurationMs  int64     `json:"duration_ms"`
	Error       string    `json:"error,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Service writes audit events to agent_audit_events.
type Service struct {
	db *sql.DB
}

var _ agents.Auditor = (*Service)(nil)

func NewService(db *sql.DB) *Service {
	return &Service{db: db}
}

// Record inserts an audit event.
func (s *Service) Record(ctx context.Context, event Event) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	if event.Tags == nil {
		event.Tags = []string{}
	}

	query := `
		INSERT INTO agent_audit_events (
			id, user_id, patient_id, query, agent, route, specialty,
			status, message_type, duration_ms, error, tags, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err := s.db.ExecContext(ctx, query,
		event.ID,
		event.UserID,
		nullString(event.PatientID),
		nullString(truncate(Redact(event.Query), maxQueryChars)),
		event.Agent,
		nullString(event.Route),
		nullString(event.Specialty),
		event.Status,
		nullString(event.MessageType),
		event.DurationMs,
		nullString(event.Error),
		pq.Array(event.Tags),
		event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("audit: failed to record event: %w", err)
	}
	return nil
}

// RecordDispatch adapts a router dispatch record into an audit event.
func (s *Service) RecordDispatch(ctx context.Context, rec agents.DispatchRecord) error {
	event := Event{
		UserID:      rec.UserID,
		PatientID:   rec.PatientID,
		Query:       rec.Query,
		Agent:       rec.Agent,
		Route:       string(rec.Route),
		Specialty:   string(rec.Specialty),
		Status:      rec.Status,
		MessageType: rec.MessageType,
		DurationMs:  rec.Duration.Milliseconds(),
	}
	if rec.Err != nil {
		event.Error = rec.Err.Error()
	}
	if rec.Path != "" {
		event.Tags = append(event.Tags, "path:"+rec.Path)
	}
	if rec.MessageType != "" {
		event.Tags = append(event.Tags, "type:"+rec.MessageType)
	}
	return s.Record(ctx, event)
}

// Filter narrows QueryEvents. UserID is required.
type Filter struct {
	UserID    string
	PatientID string
	Agent     string
	Status    string
	Since     time.Time
	Limit     int
}

func (s *Service) QueryEvents(ctx context.Context, filter Filter) ([]Event, error) {
	query := `
		SELECT id, user_id, patient_id, query, agent, route, specialty,
			   status, message_type, duration_ms, error, tags, created_at
		FROM agent_audit_events
		WHERE user_id = $1
	`
	args := []interface{}{filter.UserID}
	argIdx := 2

	if filter.PatientID != "" {
		query += fmt.Sprintf(" AND patient_id = $%d", argIdx)
		args = append(args, filter.PatientID)
		argIdx++
	}
	if filter.Agent != "" {
		query += fmt.Sprintf(" AND agent = $%d", argIdx)
		args = append(args, filter.Agent)
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}
	if !filter.Since.IsZero() {
		query += fmt.Sprintf(" AND created_at >= $%d", argIdx)
		args = append(args, filter.Since)
		argIdx++
	}

	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var patientID, q, route, specialty, msgType, errText sql.NullString
		err := rows.Scan(
			&e.ID, &e.UserID, &patientID, &q, &e.Agent, &route, &specialty,
			&e.Status, &msgType, &e.DurationMs, &errText, pq.Array(&e.Tags), &e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("audit: failed to scan event: %w", err)
		}
		e.PatientID = patientID.String
		e.Query = q.String
		e.Route = route.String
		e.Specialty = specialty.String
		e.MessageType = msgType.String
		e.Error = errText.String
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("audit: failed to read events: %w", err)
	}
	return events, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n]
}
