package agents

import (
	"strings"
)

// Specialty is a classification label. The named constants are the closed
// set the classifier offers; any other non-empty value is a rare specialty
// handled by the universal specialist.
type Specialty string

const (
	Cardiology        Specialty = "Cardiology"
	Neurology         Specialty = "Neurology"
	Oncology          Specialty = "Oncology"
	Gastroenterology  Specialty = "Gastroenterology"
	Pulmonology       Specialty = "Pulmonology"
	Endocrinology     Specialty = "Endocrinology"
	Orthopedics       Specialty = "Orthopedics"
	Dermatology       Specialty = "Dermatology"
	Nephrology        Specialty = "Nephrology"
	Hematology        Specialty = "Hematology"
	Rheumatology      Specialty = "Rheumatology"
	InfectiousDisease Specialty = "InfectiousDisease"
	Psychiatry        Specialty = "Psychiatry"
	Urology           Specialty = "Urology"
	Ophthalmology     Specialty = "Ophthalmology"
	Geriatrics        Specialty = "Geriatrics"
	DeepReasoning     Specialty = "DeepReasoning"
	General           Specialty = "General"
)

var knownSpecialties = []Specialty{
	Cardiology, Neurology, Oncology, Gastroenterology, Pulmonology, Endocrinology,
	Orthopedics, Dermatology, Nephrology, Hematology, Rheumatology, InfectiousDisease,
	Psychiatry, Urology, Ophthalmology, Geriatrics, DeepReasoning, General,
}

// Known reports whether s is one of the named specialties.
func (s Specialty) Known() bool {
	for _, k := range knownSpecialties {
		if k == s {
			return true
		}
	}
	return false
}

// DisplayName renders the label for prompts and messages.
func (s Specialty) DisplayName() string {
	switch s {
	case InfectiousDisease:
		return "Infectious Disease"
	case DeepReasoning:
		return "Deep Reasoning"
	case General:
		return "General Medicine"
	}
	return string(s)
}

// parseLabel turns a classifier reply into a Specialty. The label is taken
// verbatim after trimming quotes and punctuation; known labels are matched
// case-insensitively and ignoring spaces.
func parseLabel(raw string) Specialty {
	label := strings.TrimSpace(raw)
	if i := strings.IndexByte(label, '\n'); i >= 0 {
		label = strings.TrimSpace(label[:i])
	}
	label = strings.Trim(label, "\"'`*.:;, ")
	if label == "" {
		return General
	}
	squashed := strings.ToLower(strings.ReplaceAll(label, " ", ""))
	for _, k := range knownSpecialties {
		if strings.ToLower(string(k)) == squashed {
			return k
		}
	}
	return Specialty(label)
}
