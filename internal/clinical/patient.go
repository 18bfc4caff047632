package clinical

import (
	"fmt"
	"strings"
	"time"
)

// Patient is the clinical record the agents reason over.
type Patient struct {
	ID             string        `json:"id"`
	UserID         string        `json:"userId,omitempty"`
	Name           string        `json:"name"`
	Age            int           `json:"age"`
	Gender         string        `json:"gender"`
	MRN            string        `json:"mrn,omitempty"`
	CurrentStatus  CurrentStatus `json:"currentStatus"`
	MedicalHistory []HistoryItem `json:"medicalHistory"`
	Reports        []Report      `json:"reports"`
	VitalsLog      []VitalsEntry `json:"vitalsLog,omitempty"`
	CriticalAlerts []string      `json:"criticalAlerts,omitempty"`
	Notes          []Note        `json:"notes,omitempty"`
	Tasks          []Task        `json:"tasks,omitempty"`
}

type CurrentStatus struct {
	Condition   string   `json:"condition"`
	Vitals      string   `json:"vitals"`
	Medications []string `json:"medications"`
}

type HistoryItem struct {
	Condition string `json:"condition"`
	Date      string `json:"date,omitempty"`
	Notes     string `json:"notes,omitempty"`
}

type VitalsEntry struct {
	Date          string  `json:"date"`
	HeartRate     int     `json:"heartRate,omitempty"`
	BloodPressure string  `json:"bloodPressure,omitempty"`
	SpO2          float64 `json:"spo2,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	Weight        float64 `json:"weight,omitempty"`
}

type Note struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Task struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	DueDate   string `json:"dueDate,omitempty"`
}

// ActiveReports returns reports that have not been soft deleted, in record order.
func (p Patient) ActiveReports() []Report {
	out := make([]Report, 0, len(p.Reports))
	for _, r := range p.Reports {
		if !r.Deleted() {
			out = append(out, r)
		}
	}
	return out
}

// FindReport returns the active report with the given id.
func (p Patient) FindReport(id string) (Report, bool) {
	for _, r := range p.Reports {
		if r.ID == id && !r.Deleted() {
			return r, true
		}
	}
	return Report{}, false
}

// ContextHeader is the fixed patient summary placed at the top of every prompt.
func (p Patient) ContextHeader() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Patient: %s, %d years old, %s.\n", p.Name, p.Age, p.Gender)
	fmt.Fprintf(&b, "Current condition: %s.\n", orNone(p.CurrentStatus.Condition))
	fmt.Fprintf(&b, "Vitals: %s.\n", orNone(p.CurrentStatus.Vitals))
	fmt.Fprintf(&b, "Medications: %s.\n", orNone(strings.Join(p.CurrentStatus.Medications, ", ")))
	if len(p.MedicalHistory) > 0 {
		items := make([]string, 0, len(p.MedicalHistory))
		for _, h := range p.MedicalHistory {
			if h.Date != "" {
				items = append(items, fmt.Sprintf("%s (%s)", h.Condition, h.Date))
			} else {
				items = append(items, h.Condition)
			}
		}
		fmt.Fprintf(&b, "Medical history: %s.\n", strings.Join(items, "; "))
	}
	if len(p.CriticalAlerts) > 0 {
		fmt.Fprintf(&b, "Critical alerts: %s.\n", strings.Join(p.CriticalAlerts, "; "))
	}
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none recorded"
	}
	return s
}
