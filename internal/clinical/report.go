package clinical

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ReportType is the closed set of report kinds.
type ReportType string

const (
	ReportLab         ReportType = "Lab"
	ReportECG         ReportType = "ECG"
	ReportEcho        ReportType = "Echo"
	ReportImaging     ReportType = "Imaging"
	ReportCTA         ReportType = "CTA"
	ReportPDF         ReportType = "PDF"
	ReportDICOM       ReportType = "DICOM"
	ReportCath        ReportType = "Cath"
	ReportDevice      ReportType = "Device"
	ReportHFDevice    ReportType = "HF Device"
	ReportLink        ReportType = "Link"
	ReportPathology   ReportType = "Pathology"
	ReportMRI         ReportType = "MRI"
	ReportGenomics    ReportType = "Genomics"
	ReportProcedure   ReportType = "Procedure"
	ReportLiveSession ReportType = "LiveSession"
	ReportMeds        ReportType = "Meds"
)

var reportTypes = []ReportType{
	ReportLab, ReportECG, ReportEcho, ReportImaging, ReportCTA, ReportPDF, ReportDICOM,
	ReportCath, ReportDevice, ReportHFDevice, ReportLink, ReportPathology, ReportMRI,
	ReportGenomics, ReportProcedure, ReportLiveSession, ReportMeds,
}

// ReportTypes lists every report type.
func ReportTypes() []ReportType { return append([]ReportType(nil), reportTypes...) }

func (t ReportType) Valid() bool {
	for _, rt := range reportTypes {
		if rt == t {
			return true
		}
	}
	return false
}

// Report is one chart document.
type Report struct {
	ID            string         `json:"id"`
	Type          ReportType     `json:"type"`
	Date          string         `json:"date"`
	Title         string         `json:"title"`
	Content       Content        `json:"content"`
	AISummary     string         `json:"aiSummary,omitempty"`
	KeyFindings   []string       `json:"keyFindings,omitempty"`
	ExtractedData *ExtractedData `json:"extractedData,omitempty"`
	DeletedAt     *time.Time     `json:"deletedAt,omitempty"`
}

// ExtractedData is the structured summary produced from a report's text.
type ExtractedData struct {
	Summary     string           `json:"summary"`
	KeyFindings []string         `json:"keyFindings"`
	Values      []ExtractedValue `json:"values,omitempty"`
	ExtractedAt time.Time        `json:"extractedAt"`
}

type ExtractedValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit,omitempty"`
	Flag  string `json:"flag,omitempty"`
}

func (r Report) Deleted() bool { return r.DeletedAt != nil }

var (
	ErrInvalidReportType = errors.New("clinical: unknown report type")
	ErrContentMismatch   = errors.New("clinical: report content does not match report type")
)

// Validate checks that the content shape matches the report type.
func (r Report) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return errors.New("clinical: report id is required")
	}
	if !r.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidReportType, r.Type)
	}
	if r.Content == nil {
		return errors.New("clinical: report content is required")
	}
	if !contentMatches(r.Type, r.Content) {
		return fmt.Errorf("%w: %s cannot hold %s content", ErrContentMismatch, r.Type, r.Content.contentKind())
	}
	return nil
}

func contentMatches(t ReportType, c Content) bool {
	switch c := c.(type) {
	case LiveSessionContent:
		return t == ReportLiveSession
	case AttachmentContent:
		switch c.Kind {
		case AttachmentPDF:
			return t != ReportLiveSession && t != ReportLink && t != ReportDICOM
		case AttachmentDICOM:
			return t == ReportDICOM || t == ReportImaging || t == ReportMRI || t == ReportCTA || t == ReportEcho
		case AttachmentLink:
			return t == ReportLink
		case AttachmentImage:
			return t != ReportLiveSession && t != ReportLink && t != ReportPDF
		}
		return false
	case TextContent:
		return t != ReportLiveSession && t != ReportLink && t != ReportPDF && t != ReportDICOM
	}
	return false
}

// Text returns the best textual rendering of the report for prompts.
func (r Report) Text() string {
	var body string
	switch c := r.Content.(type) {
	case TextContent:
		body = string(c)
	case AttachmentContent:
		body = c.RawText
		if body == "" {
			body = fmt.Sprintf("[%s attachment at %s]", c.Kind, c.URL)
		}
	case LiveSessionContent:
		body = c.Transcript
	}
	if r.ExtractedData != nil && r.ExtractedData.Summary != "" && body == "" {
		body = r.ExtractedData.Summary
	}
	return body
}

// PromptBlock renders the report for inclusion in a prompt.
func (r Report) PromptBlock() string {
	var b strings.Builder
	fmt.Fprintf(&b, "--- %s report %q (%s, id %s) ---\n", r.Type, r.Title, r.Date, r.ID)
	b.WriteString(r.Text())
	if r.AISummary != "" {
		fmt.Fprintf(&b, "\nPrior summary: %s", r.AISummary)
	}
	b.WriteString("\n")
	return b.String()
}

// reportWire is the JSON form with the content left raw.
type reportWire struct {
	ID            string          `json:"id"`
	Type          ReportType      `json:"type"`
	Date          string          `json:"date"`
	Title         string          `json:"title"`
	Content       json.RawMessage `json:"content"`
	AISummary     string          `json:"aiSummary,omitempty"`
	KeyFindings   []string        `json:"keyFindings,omitempty"`
	ExtractedData *ExtractedData  `json:"extractedData,omitempty"`
	DeletedAt     *time.Time      `json:"deletedAt,omitempty"`
}

func (r *Report) UnmarshalJSON(data []byte) error {
	var w reportWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	content, err := DecodeContent(w.Content)
	if err != nil {
		return fmt.Errorf("clinical: report %s: %w", w.ID, err)
	}
	*r = Report{
		ID:            w.ID,
		Type:          w.Type,
		Date:          w.Date,
		Title:         w.Title,
		Content:       content,
		AISummary:     w.AISummary,
		KeyFindings:   w.KeyFindings,
		ExtractedData: w.ExtractedData,
		DeletedAt:     w.DeletedAt,
	}
	return nil
}
