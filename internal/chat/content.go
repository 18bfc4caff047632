package chat

// Content is the sealed union of message bodies. Every variant is produced
// by one agent and consumed through Visitor.
type Content interface {
	Type() string
	Accept(v Visitor)
}

// Message type tags.
const (
	TypeText                  = "text"
	TypeReportDisplay         = "report_display"
	TypeTrendChart            = "trend_chart"
	TypeEFTrend               = "ef_trend"
	TypeRiskStratification    = "risk_stratification"
	TypeMultiSpecialistReview = "multi_specialist_review"
	TypeClinicalDebate        = "clinical_debate"
	TypeReportComparison      = "report_comparison"
	TypePatientSummary        = "patient_summary"
	TypeHCCCoding             = "hcc_coding"
	TypeECGAnalysis           = "ecg_analysis"
	TypeCTAAnalysis           = "cta_analysis"
	TypeInterventionalPlan    = "interventional_plan"
	TypeDeviceReport          = "device_report"
	TypeLVADStatus            = "lvad_status"
	TypeHeartFailureReview    = "heart_failure_review"
	TypeSpecialistConsult     = "specialist_consult"
	TypeDeepReasoning         = "deep_reasoning"
	TypeMedicationReview      = "medication_review"
	TypeDifferentialDiagnosis = "differential_diagnosis"
	TypeGuidelineCheck        = "guideline_check"
	TypeLabInterpretation     = "lab_interpretation"
	TypeImagingFindings       = "imaging_findings"
	TypeGenomicsReport        = "genomics_report"
	TypeDailyBriefing         = "daily_briefing"
	TypeLiveSessionSummary    = "live_session_summary"
)

type Text struct {
	Text string `json:"text"`
}

type ReportDisplay struct {
	ReportID   string `json:"reportId"`
	Title      string `json:"title"`
	ReportType string `json:"reportType"`
	Date       string `json:"date"`
	Summary    string `json:"summary,omitempty"`
}

type TrendPoint struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

type TrendChart struct {
	Title          string       `json:"title"`
	Metric         string       `json:"metric"`
	Unit           string       `json:"unit"`
	Points         []TrendPoint `json:"points"`
	Interpretation string       `json:"interpretation"`
}

type EFTrend struct {
	Points         []TrendPoint `json:"points"`
	CurrentEF      float64      `json:"currentEf"`
	Classification string       `json:"classification"`
	Interpretation string       `json:"interpretation"`
}

type RiskFactor struct {
	Name   string `json:"name"`
	Impact string `json:"impact"`
}

type RiskStratification struct {
	Model          string       `json:"model"`
	Score          float64      `json:"score"`
	Category       string       `json:"category"`
	Factors        []RiskFactor `json:"factors"`
	Recommendation string       `json:"recommendation"`
}

// SpecialistReport is one opinion inside a board review.
type SpecialistReport struct {
	Specialty       string   `json:"specialty"`
	Assessment      string   `json:"assessment"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
}

type MultiSpecialistReview struct {
	Specialties       []string           `json:"specialties"`
	SpecialistReports []SpecialistReport `json:"specialistReports"`
	Consensus         string             `json:"consensus,omitempty"`
	ActionItems       []string           `json:"actionItems,omitempty"`
	Status            string             `json:"status"`
	Stopped           bool               `json:"stopped,omitempty"`
}

type DebateParticipant struct {
	Name      string `json:"name"`
	Specialty string `json:"specialty"`
	Stance    string `json:"stance"`
}

type DebateTurn struct {
	Speaker   string `json:"speaker"`
	Role      string `json:"role"`
	Statement string `json:"statement"`
}

type ClinicalDebate struct {
	Topic            string              `json:"topic"`
	Participants     []DebateParticipant `json:"participants"`
	Turns            []DebateTurn        `json:"turns"`
	ConsensusReached bool                `json:"consensusReached"`
	Consensus        string              `json:"consensus,omitempty"`
	Status           string              `json:"status"`
	Stopped          bool                `json:"stopped,omitempty"`
}

type ComparisonChange struct {
	Finding      string `json:"finding"`
	Before       string `json:"before"`
	After        string `json:"after"`
	Significance string `json:"significance"`
}

type ReportComparison struct {
	BaseReportID    string             `json:"baseReportId"`
	CompareReportID string             `json:"compareReportId"`
	Changes         []ComparisonChange `json:"changes"`
	Summary         string             `json:"summary"`
}

type PatientSummary struct {
	Summary        string   `json:"summary"`
	ActiveProblems []string `json:"activeProblems"`
	KeyFindings    []string `json:"keyFindings"`
	Plan           []string `json:"plan"`
}

type HCCCode struct {
	ICD10       string `json:"icd10"`
	Description string `json:"description"`
	HCC         string `json:"hcc"`
	Evidence    string `json:"evidence"`
}

type HCCCoding struct {
	Codes   []HCCCode `json:"codes"`
	Summary string    `json:"summary"`
}

type ECGIntervals struct {
	PR  int `json:"pr"`
	QRS int `json:"qrs"`
	QTc int `json:"qtc"`
}

type ECGAnalysis struct {
	Rhythm         string       `json:"rhythm"`
	Rate           int          `json:"rate"`
	Intervals      ECGIntervals `json:"intervals"`
	Findings       []string     `json:"findings"`
	Interpretation string       `json:"interpretation"`
}

type Stenosis struct {
	Vessel   string `json:"vessel"`
	Severity string `json:"severity"`
}

type CTAAnalysis struct {
	CalciumScore   float64    `json:"calciumScore"`
	CADRADS        string     `json:"cadRads"`
	Stenoses       []Stenosis `json:"stenoses"`
	Recommendation string     `json:"recommendation"`
}

type InterventionalPlan struct {
	Indication     string   `json:"indication"`
	Procedure      string   `json:"procedure"`
	Steps          []string `json:"steps"`
	Risks          []string `json:"risks"`
	Recommendation string   `json:"recommendation"`
}

type DeviceReport struct {
	DeviceType      string   `json:"deviceType"`
	BatteryStatus   string   `json:"batteryStatus"`
	PacingPercent   float64  `json:"pacingPercent"`
	Events          []string `json:"events"`
	Recommendations []string `json:"recommendations"`
}

type LVADStatus struct {
	PumpSpeed  float64  `json:"pumpSpeed"`
	Flow       float64  `json:"flow"`
	Power      float64  `json:"power"`
	PI         float64  `json:"pulsatilityIndex"`
	Alarms     []string `json:"alarms"`
	Assessment string   `json:"assessment"`
}

type GDMTItem struct {
	Drug           string `json:"drug"`
	Status         string `json:"status"`
	Recommendation string `json:"recommendation"`
}

type HeartFailureReview struct {
	NYHAClass  string     `json:"nyhaClass"`
	Congestion string     `json:"congestion"`
	GDMT       []GDMTItem `json:"gdmt"`
	Assessment string     `json:"assessment"`
}

type SpecialistConsult struct {
	Specialty       string   `json:"specialty"`
	Assessment      string   `json:"assessment"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
	FollowUp        string   `json:"followUp"`
}

type DeepReasoning struct {
	Question  string `json:"question"`
	Reasoning string `json:"reasoning"`
}

type Interaction struct {
	Drugs       []string `json:"drugs"`
	Severity    string   `json:"severity"`
	Description string   `json:"description"`
}

type MedicationReview struct {
	Interactions    []Interaction `json:"interactions"`
	Recommendations []string      `json:"recommendations"`
}

type Diagnosis struct {
	Condition  string `json:"condition"`
	Likelihood string `json:"likelihood"`
	Supporting string `json:"supporting"`
	Against    string `json:"against"`
}

type DifferentialDiagnosis struct {
	Diagnoses []Diagnosis `json:"diagnoses"`
	NextSteps []string    `json:"nextSteps"`
}

type GuidelineItem struct {
	Recommendation string `json:"recommendation"`
	Status         string `json:"status"`
	Note           string `json:"note"`
}

type GuidelineCheck struct {
	Guideline string          `json:"guideline"`
	Items     []GuidelineItem `json:"items"`
}

type LabValue struct {
	Name  string `json:"name"`
	Value string `json:"value"`
	Unit  string `json:"unit"`
	Flag  string `json:"flag"`
}

type LabInterpretation struct {
	Values         []LabValue `json:"values"`
	Interpretation string     `json:"interpretation"`
}

type ImagingFindings struct {
	Modality   string   `json:"modality"`
	Findings   []string `json:"findings"`
	Impression string   `json:"impression"`
}

type GeneticVariant struct {
	Gene         string `json:"gene"`
	Variant      string `json:"variant"`
	Significance string `json:"significance"`
}

type GenomicsReport struct {
	Variants     []GeneticVariant `json:"variants"`
	Implications string           `json:"implications"`
}

type BriefingItem struct {
	PatientID   string `json:"patientId"`
	PatientName string `json:"patientName"`
	Priority    string `json:"priority"`
	Summary     string `json:"summary"`
}

type DailyBriefing struct {
	Date     string         `json:"date"`
	Overview string         `json:"overview"`
	Items    []BriefingItem `json:"items"`
}

type LiveSessionSummary struct {
	ReportID   string            `json:"reportId"`
	Summary    string            `json:"summary"`
	Biomarkers map[string]string `json:"biomarkers,omitempty"`
}

func (*Text) Type() string                  { return TypeText }
func (*ReportDisplay) Type() string         { return TypeReportDisplay }
func (*TrendChart) Type() string            { return TypeTrendChart }
func (*EFTrend) Type() string               { return TypeEFTrend }
func (*RiskStratification) Type() string    { return TypeRiskStratification }
func (*MultiSpecialistReview) Type() string { return TypeMultiSpecialistReview }
func (*ClinicalDebate) Type() string        { return TypeClinicalDebate }
func (*ReportComparison) Type() string      { return TypeReportComparison }
func (*PatientSummary) Type() string        { return TypePatientSummary }
func (*HCCCoding) Type() string             { return TypeHCCCoding }
func (*ECGAnalysis) Type() string           { return TypeECGAnalysis }
func (*CTAAnalysis) Type() string           { return TypeCTAAnalysis }
func (*InterventionalPlan) Type() string    { return TypeInterventionalPlan }
func (*DeviceReport) Type() string          { return TypeDeviceReport }
func (*LVADStatus) Type() string            { return TypeLVADStatus }
func (*HeartFailureReview) Type() string    { return TypeHeartFailureReview }
func (*SpecialistConsult) Type() string     { return TypeSpecialistConsult }
func (*DeepReasoning) Type() string         { return TypeDeepReasoning }
func (*MedicationReview) Type() string      { return TypeMedicationReview }
func (*DifferentialDiagnosis) Type() string { return TypeDifferentialDiagnosis }
func (*GuidelineCheck) Type() string        { return TypeGuidelineCheck }
func (*LabInterpretation) Type() string     { return TypeLabInterpretation }
func (*ImagingFindings) Type() string       { return TypeImagingFindings }
func (*GenomicsReport) Type() string        { return TypeGenomicsReport }
func (*DailyBriefing) Type() string         { return TypeDailyBriefing }
func (*LiveSessionSummary) Type() string    { return TypeLiveSessionSummary }

func (c *Text) Accept(v Visitor)                  { v.VisitText(c) }
func (c *ReportDisplay) Accept(v Visitor)         { v.VisitReportDisplay(c) }
func (c *TrendChart) Accept(v Visitor)            { v.VisitTrendChart(c) }
func (c *EFTrend) Accept(v Visitor)               { v.VisitEFTrend(c) }
func (c *RiskStratification) Accept(v Visitor)    { v.VisitRiskStratification(c) }
func (c *MultiSpecialistReview) Accept(v Visitor) { v.VisitMultiSpecialistReview(c) }
func (c *ClinicalDebate) Accept(v Visitor)        { v.VisitClinicalDebate(c) }
func (c *ReportComparison) Accept(v Visitor)      { v.VisitReportComparison(c) }
func (c *PatientSummary) Accept(v Visitor)        { v.VisitPatientSummary(c) }
func (c *HCCCoding) Accept(v Visitor)             { v.VisitHCCCoding(c) }
func (c *ECGAnalysis) Accept(v Visitor)           { v.VisitECGAnalysis(c) }
func (c *CTAAnalysis) Accept(v Visitor)           { v.VisitCTAAnalysis(c) }
func (c *InterventionalPlan) Accept(v Visitor)    { v.VisitInterventionalPlan(c) }
func (c *DeviceReport) Accept(v Visitor)          { v.VisitDeviceReport(c) }
func (c *LVADStatus) Accept(v Visitor)            { v.VisitLVADStatus(c) }
func (c *HeartFailureReview) Accept(v Visitor)    { v.VisitHeartFailureReview(c) }
func (c *SpecialistConsult) Accept(v Visitor)     { v.VisitSpecialistConsult(c) }
func (c *DeepReasoning) Accept(v Visitor)         { v.VisitDeepReasoning(c) }
func (c *MedicationReview) Accept(v Visitor)      { v.VisitMedicationReview(c) }
func (c *DifferentialDiagnosis) Accept(v Visitor) { v.VisitDifferentialDiagnosis(c) }
func (c *GuidelineCheck) Accept(v Visitor)        { v.VisitGuidelineCheck(c) }
func (c *LabInterpretation) Accept(v Visitor)     { v.VisitLabInterpretation(c) }
func (c *ImagingFindings) Accept(v Visitor)       { v.VisitImagingFindings(c) }
func (c *GenomicsReport) Accept(v Visitor)        { v.VisitGenomicsReport(c) }
func (c *DailyBriefing) Accept(v Visitor)         { v.VisitDailyBriefing(c) }
func (c *LiveSessionSummary) Accept(v Visitor)    { v.VisitLiveSessionSummary(c) }

// registry maps a type tag to a constructor for decoding.
var registry = map[string]func() Content{
	TypeText:                  func() Content { return &Text{} },
	TypeReportDisplay:         func() Content { return &ReportDisplay{} },
	TypeTrendChart:            func() Content { return &TrendChart{} },
	TypeEFTrend:               func() Content { return &EFTrend{} },
	TypeRiskStratification:    func() Content { return &RiskStratification{} },
	TypeMultiSpecialistReview: func() Content { return &MultiSpecialistReview{} },
	TypeClinicalDebate:        func() Content { return &ClinicalDebate{} },
	TypeReportComparison:      func() Content { return &ReportComparison{} },
	TypePatientSummary:        func() Content { return &PatientSummary{} },
	TypeHCCCoding:             func() Content { return &HCCCoding{} },
	TypeECGAnalysis:           func() Content { return &ECGAnalysis{} },
	TypeCTAAnalysis:           func() Content { return &CTAAnalysis{} },
	TypeInterventionalPlan:    func() Content { return &InterventionalPlan{} },
	TypeDeviceReport:          func() Content { return &DeviceReport{} },
	TypeLVADStatus:            func() Content { return &LVADStatus{} },
	TypeHeartFailureReview:    func() Content { return &HeartFailureReview{} },
	TypeSpecialistConsult:     func() Content { return &SpecialistConsult{} },
	TypeDeepReasoning:         func() Content { return &DeepReasoning{} },
	TypeMedicationReview:      func() Content { return &MedicationReview{} },
	TypeDifferentialDiagnosis: func() Content { return &DifferentialDiagnosis{} },
	TypeGuidelineCheck:        func() Content { return &GuidelineCheck{} },
	TypeLabInterpretation:     func() Content { return &LabInterpretation{} },
	TypeImagingFindings:       func() Content { return &ImagingFindings{} },
	TypeGenomicsReport:        func() Content { return &GenomicsReport{} },
	TypeDailyBriefing:         func() Content { return &DailyBriefing{} },
	TypeLiveSessionSummary:    func() Content { return &LiveSessionSummary{} },
}

// Types lists every registered message type tag.
func Types() []string {
	out := make([]string, 0, len(registry))
	for t := range registry {
		out = append(out, t)
	}
	return out
}
