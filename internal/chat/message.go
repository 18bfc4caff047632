package chat

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// SuggestedAction points a message back at the report it was built from.
type SuggestedAction struct {
	Type     string `json:"type"`
	ReportID string `json:"reportId"`
	Label    string `json:"label,omitempty"`
}

// ViewReport is the suggested action for a source report.
func ViewReport(reportID string) *SuggestedAction {
	if reportID == "" {
		return nil
	}
	return &SuggestedAction{Type: "view_report", ReportID: reportID, Label: "View report"}
}

// Message is one chat entry. Content determines the wire "type" tag.
type Message struct {
	ID              string
	Sender          Sender
	Timestamp       time.Time
	PatientID       string
	Content         Content
	SuggestedAction *SuggestedAction
	IsLive          bool
}

// Type returns the content type tag.
func (m Message) Type() string {
	if m.Content == nil {
		return ""
	}
	return m.Content.Type()
}

// NewAIMessage wraps content produced by an agent.
func NewAIMessage(patientID string, content Content) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    SenderAI,
		Timestamp: time.Now().UTC(),
		PatientID: patientID,
		Content:   content,
	}
}

// NewUserMessage records the clinician's query.
func NewUserMessage(patientID, text string) Message {
	m := NewAIMessage(patientID, &Text{Text: text})
	m.Sender = SenderUser
	return m
}

// TextMessage is an AI text reply.
func TextMessage(patientID, text string) Message {
	return NewAIMessage(patientID, &Text{Text: text})
}

type messageWire struct {
	ID              string           `json:"id"`
	Sender          Sender           `json:"sender"`
	Timestamp       time.Time        `json:"timestamp"`
	PatientID       string           `json:"patientId"`
	Type            string           `json:"type"`
	Data            json.RawMessage  `json:"data"`
	SuggestedAction *SuggestedAction `json:"suggestedAction,omitempty"`
	IsLive          bool             `json:"isLive,omitempty"`
}

func (m Message) MarshalJSON() ([]byte, error) {
	if m.Content == nil {
		return nil, fmt.Errorf("chat: message %s has no content", m.ID)
	}
	data, err := json.Marshal(m.Content)
	if err != nil {
		return nil, err
	}
	return json.Marshal(messageWire{
		ID:              m.ID,
		Sender:          m.Sender,
		Timestamp:       m.Timestamp,
		PatientID:       m.PatientID,
		Type:            m.Content.Type(),
		Data:            data,
		SuggestedAction: m.SuggestedAction,
		IsLive:          m.IsLive,
	})
}

func (m *Message) UnmarshalJSON(b []byte) error {
	var w messageWire
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	factory, ok := registry[w.Type]
	if !ok {
		return fmt.Errorf("chat: unknown message type %q", w.Type)
	}
	content := factory()
	if len(w.Data) > 0 {
		if err := json.Unmarshal(w.Data, content); err != nil {
			return fmt.Errorf("chat: decode %s message: %w", w.Type, err)
		}
	}
	*m = Message{
		ID:              w.ID,
		Sender:          w.Sender,
		Timestamp:       w.Timestamp,
		PatientID:       w.PatientID,
		Content:         content,
		SuggestedAction: w.SuggestedAction,
		IsLive:          w.IsLive,
	}
	return nil
}
