package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

const (
	extractionSystem = "You are a clinical documentation assistant. Extract structured data from the report text. " +
		"Use only facts present in the text. Flag abnormal values as high, low or critical."
	maxReportChars = 60000
)

var extractionSchema = llm.Object(map[string]*llm.Schema{
	"summary":     llm.String("Two to four sentence clinical summary of the report"),
	"keyFindings": llm.ArrayOf(llm.String("One notable finding")),
	"values": llm.Optional(llm.ArrayOf(llm.Object(map[string]*llm.Schema{
		"name":  llm.String("Measurement name"),
		"value": llm.String("Measured value as written"),
		"unit":  llm.Optional(llm.String("Unit of measure")),
		"flag":  llm.Optional(llm.Enum("Abnormality flag", "normal", "high", "low", "critical")),
	}))),
})

// Extractor turns raw report text into clinical.ExtractedData with one model call.
type Extractor struct {
	client llm.Client
	now    func() time.Time
}

func NewExtractor(client llm.Client) *Extractor {
	if client == nil {
		panic("extraction: llm client cannot be nil")
	}
	return &Extractor{client: client, now: time.Now}
}

func (e *Extractor) Extract(ctx context.Context, title, text string) (clinical.ExtractedData, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return clinical.ExtractedData{}, errors.New("extraction: report text is empty")
	}
	if len(text) > maxReportChars {
		text = text[:maxReportChars]
	}

	prompt := fmt.Sprintf("Report title: %s\n\nReport text:\n%s", title, text)
	data, err := llm.CompleteJSON[clinical.ExtractedData](ctx, e.client, llm.UserPrompt(extractionSystem, prompt), extractionSchema)
	if err != nil {
		return clinical.ExtractedData{}, err
	}
	data.Summary = strings.TrimSpace(data.Summary)
	if data.KeyFindings == nil {
		data.KeyFindings = []string{}
	}
	data.ExtractedAt = e.now().UTC()
	return data, nil
}
