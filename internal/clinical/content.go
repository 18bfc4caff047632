package clinical

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

// Content is the sealed union of report bodies: TextContent,
// AttachmentContent or LiveSessionContent.
type Content interface {
	contentKind() string
}

// TextContent is a plain text report body.
type TextContent string

func (TextContent) contentKind() string { return "text" }

// AttachmentKind is the discriminator of an attachment body.
type AttachmentKind string

const (
	AttachmentPDF   AttachmentKind = "pdf"
	AttachmentImage AttachmentKind = "image"
	AttachmentDICOM AttachmentKind = "dicom"
	AttachmentLink  AttachmentKind = "link"
)

// AttachmentContent points at a stored file or external link.
type AttachmentContent struct {
	Kind    AttachmentKind `json:"type"`
	URL     string         `json:"url"`
	RawText string         `json:"rawText,omitempty"`
}

func (c AttachmentContent) contentKind() string { return string(c.Kind) }

// LiveSessionContent is a saved assistant session.
type LiveSessionContent struct {
	Transcript string            `json:"transcript"`
	Biomarkers map[string]string `json:"biomarkers,omitempty"`
}

func (LiveSessionContent) contentKind() string { return "live_session" }

// DecodeContent decodes the three JSON shapes a report body may take.
func DecodeContent(raw json.RawMessage) (Content, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, errors.New("content is missing")
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, err
		}
		return TextContent(s), nil
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, err
		}
		if _, ok := probe["transcript"]; ok {
			var live LiveSessionContent
			if err := json.Unmarshal(raw, &live); err != nil {
				return nil, err
			}
			return live, nil
		}
		var att AttachmentContent
		if err := json.Unmarshal(raw, &att); err != nil {
			return nil, err
		}
		switch att.Kind {
		case AttachmentPDF, AttachmentImage, AttachmentDICOM, AttachmentLink:
		default:
			return nil, fmt.Errorf("unknown attachment type %q", att.Kind)
		}
		if att.URL == "" {
			return nil, errors.New("attachment url is required")
		}
		return att, nil
	default:
		return nil, fmt.Errorf("unsupported content shape %q", raw[:1])
	}
}
