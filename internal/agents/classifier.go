package agents

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/wolfman30/clinical-agent-platform/internal/llm"
	"github.com/wolfman30/clinical-agent-platform/pkg/logging"
)

// Route names the agent a query is sent to.
type Route string

const (
	RouteReportRetrieval Route = "report_retrieval"
	RouteBoardReview     Route = "board_review"
	RouteDebate          Route = "clinical_debate"
	RouteHCC             Route = "hcc_coding"
	RouteCompare         Route = "report_comparison"
	RouteTrend           Route = "lab_trend"
	RouteSummary         Route = "patient_summary"
	RouteRisk            Route = "risk_stratification"
	RouteDifferential    Route = "differential_diagnosis"
	RouteGuideline       Route = "guideline_check"
	RouteMedication      Route = "medication_review"
	RouteGenomics        Route = "genomics"
	RouteImaging         Route = "imaging_findings"
	RouteLabs            Route = "lab_interpretation"
	RouteSpecialty       Route = "specialty"
)

// Classifier paths, reported to metrics.
const (
	PathRegex   = "regex"
	PathKeyword = "keyword"
	PathModel   = "model"
	PathShort   = "short"
)

// minClassifiableLength is the shortest query worth a model call.
const minClassifiableLength = 5

// Decision is the outcome of routing one query.
type Decision struct {
	Route     Route
	Specialty Specialty
	Path      string
}

// retrievalPattern matches "action verb + medical artifact" requests such as
// "show ecg" or "pull up my latest labs".
var retrievalPattern = regexp.MustCompile(`(?i)\b(show|pull\s+up|open|display|view|bring\s+up|find|get|load)\b.*\b(ecg|ekg|labs?|lab\s+results?|echo(cardiogram)?|cta|mri|ct\s+scan|x-?ray|imaging|pathology|cath(eterization)?|angiogram|device\s+(report|interrogation)|genomics?|report|pdf|dicom)\b`)

type fastPath struct {
	route    Route
	keywords []string
}

// fastPaths is evaluated in order after the retrieval pattern; first hit wins.
var fastPaths = []fastPath{
	{RouteBoardReview, []string{"medical board", "tumor board", "board review", "multidisciplinary"}},
	{RouteDebate, []string{"debate"}},
	{RouteHCC, []string{"hcc"}},
	{RouteCompare, []string{"compare"}},
	{RouteTrend, []string{"trend"}},
	{RouteSummary, []string{"summarize", "summary"}},
	{RouteRisk, []string{"risk score", "risk stratif", "ascvd", "cha2ds2"}},
	{RouteDifferential, []string{"differential", "ddx"}},
	{RouteGuideline, []string{"guideline"}},
	{RouteMedication, []string{"medication review", "drug interaction", "interactions", "med rec"}},
	{RouteGenomics, []string{"genomic", "genetic", "variant"}},
	{RouteImaging, []string{"imaging findings", "radiology", "interpret the imaging"}},
	{RouteLabs, []string{"interpret labs", "interpret my labs", "lab interpretation", "lab results"}},
}

// MatchFastPath checks the retrieval pattern and keyword table without any
// model call.
func MatchFastPath(query string) (Decision, bool) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return Decision{}, false
	}
	if retrievalPattern.MatchString(q) {
		return Decision{Route: RouteReportRetrieval, Path: PathRegex}, true
	}
	for _, fp := range fastPaths {
		for _, kw := range fp.keywords {
			if strings.Contains(q, kw) {
				return Decision{Route: fp.route, Path: PathKeyword}, true
			}
		}
	}
	return Decision{}, false
}

const classifierPrompt = `You are routing a clinician's question to the right medical specialist.
Reply with exactly one label from this list and nothing else:

- Cardiology: heart, chest pain, ECG, echo, ejection fraction, stents, pacemakers, LVAD, heart failure, arrhythmia
- Neurology: stroke, seizures, headache, neuropathy, dementia, MS
- Oncology: cancer, tumors, chemotherapy, staging, metastasis
- Gastroenterology: GI bleeding, liver, IBD, endoscopy, pancreatitis
- Pulmonology: COPD, asthma, PE, pulmonary function, oxygen, pneumonia
- Endocrinology: diabetes, A1c, thyroid, adrenal, insulin
- Orthopedics: fractures, joints, spine, sports injuries
- Dermatology: rashes, skin lesions, melanoma, psoriasis
- Nephrology: kidney function, eGFR, creatinine, dialysis, electrolytes
- Hematology: anemia, anticoagulation, clotting, platelets, transfusion
- Rheumatology: lupus, rheumatoid arthritis, gout, vasculitis
- InfectiousDisease: infections, antibiotics, sepsis, HIV, cultures
- Psychiatry: depression, anxiety, psychosis, medications for mood
- Urology: prostate, urinary retention, kidney stones
- Ophthalmology: vision, retina, glaucoma
- Geriatrics: frailty, falls, polypharmacy in older adults
- DeepReasoning: complex multi-system reasoning, diagnostic dilemmas, "think step by step"
- General: anything else

If a rare specialty fits better than every option above, reply with its name instead.

Question: %s`

// Classifier picks a specialty for a free-text query.
type Classifier struct {
	client   llm.Client
	logger   *logging.Logger
	observer PathObserver
}

// PathObserver counts routing decisions by path.
type PathObserver interface {
	ObserveClassifierPath(path string)
}

func NewClassifier(client llm.Client, logger *logging.Logger, observer PathObserver) *Classifier {
	if client == nil {
		panic("agents: classifier requires an llm client")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Classifier{client: client, logger: logger, observer: observer}
}

// Classify returns the specialty for query. Short queries and any model
// failure yield General.
func (c *Classifier) Classify(ctx context.Context, query string) Specialty {
	query = strings.TrimSpace(query)
	if len([]rune(query)) < minClassifiableLength {
		c.observe(PathShort)
		return General
	}
	c.observe(PathModel)

	req := llm.UserPrompt("", fmt.Sprintf(classifierPrompt, query))
	req.MaxTokens = 20
	req.Temperature = 0
	resp, err := c.client.Complete(ctx, req)
	if err != nil {
		c.logger.Warn("specialty classification failed, defaulting to general", "error", err)
		return General
	}
	return parseLabel(resp.Text)
}

// Route applies the fast paths, then delegated classification.
func (c *Classifier) Route(ctx context.Context, query string) Decision {
	if d, ok := MatchFastPath(query); ok {
		c.observe(d.Path)
		return d
	}
	d := Decision{Route: RouteSpecialty, Path: PathModel}
	if len([]rune(strings.TrimSpace(query))) < minClassifiableLength {
		d.Path = PathShort
	}
	d.Specialty = c.Classify(ctx, query)
	return d
}

func (c *Classifier) observe(path string) {
	if c.observer != nil {
		c.observer.ObserveClassifierPath(path)
	}
}
