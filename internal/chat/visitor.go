package chat

import (
	"fmt"
	"strings"
)

// Visitor has one method per Content variant. Adding a variant without a
// method here breaks every consumer at compile time.
type Visitor interface {
	VisitText(*Text)
	VisitReportDisplay(*ReportDisplay)
	VisitTrendChart(*TrendChart)
	VisitEFTrend(*EFTrend)
	VisitRiskStratification(*RiskStratification)
	VisitMultiSpecialistReview(*MultiSpecialistReview)
	VisitClinicalDebate(*ClinicalDebate)
	VisitReportComparison(*ReportComparison)
	VisitPatientSummary(*PatientSummary)
	VisitHCCCoding(*HCCCoding)
	VisitECGAnalysis(*ECGAnalysis)
	VisitCTAAnalysis(*CTAAnalysis)
	VisitInterventionalPlan(*InterventionalPlan)
	VisitDeviceReport(*DeviceReport)
	VisitLVADStatus(*LVADStatus)
	VisitHeartFailureReview(*HeartFailureReview)
	VisitSpecialistConsult(*SpecialistConsult)
	VisitDeepReasoning(*DeepReasoning)
	VisitMedicationReview(*MedicationReview)
	VisitDifferentialDiagnosis(*DifferentialDiagnosis)
	VisitGuidelineCheck(*GuidelineCheck)
	VisitLabInterpretation(*LabInterpretation)
	VisitImagingFindings(*ImagingFindings)
	VisitGenomicsReport(*GenomicsReport)
	VisitDailyBriefing(*DailyBriefing)
	VisitLiveSessionSummary(*LiveSessionSummary)
}

// PlainText renders message content as a readable transcript. It is used
// for text exports and terminal output.
func PlainText(c Content) string {
	if c == nil {
		return ""
	}
	r := &textRenderer{}
	c.Accept(r)
	return strings.TrimRight(r.b.String(), "\n")
}

type textRenderer struct {
	b strings.Builder
}

func (r *textRenderer) line(format string, args ...any) {
	fmt.Fprintf(&r.b, format, args...)
	r.b.WriteByte('\n')
}

func (r *textRenderer) list(title string, items []string) {
	if len(items) == 0 {
		return
	}
	r.line("%s:", title)
	for _, item := range items {
		r.line("  - %s", item)
	}
}

func (r *textRenderer) VisitText(c *Text) { r.line("%s", c.Text) }

func (r *textRenderer) VisitReportDisplay(c *ReportDisplay) {
	r.line("%s report %q (%s)", c.ReportType, c.Title, c.Date)
	if c.Summary != "" {
		r.line("%s", c.Summary)
	}
}

func (r *textRenderer) VisitTrendChart(c *TrendChart) {
	r.line("%s", c.Title)
	for _, p := range c.Points {
		r.line("  %s: %g %s", p.Date, p.Value, c.Unit)
	}
	r.line("%s", c.Interpretation)
}

func (r *textRenderer) VisitEFTrend(c *EFTrend) {
	r.line("Ejection fraction trend (current %g%%, %s)", c.CurrentEF, c.Classification)
	for _, p := range c.Points {
		r.line("  %s: %g%%", p.Date, p.Value)
	}
	r.line("%s", c.Interpretation)
}

func (r *textRenderer) VisitRiskStratification(c *RiskStratification) {
	r.line("%s risk score %g (%s)", c.Model, c.Score, c.Category)
	for _, f := range c.Factors {
		r.line("  - %s: %s", f.Name, f.Impact)
	}
	r.line("%s", c.Recommendation)
}

func (r *textRenderer) VisitMultiSpecialistReview(c *MultiSpecialistReview) {
	r.line("Medical board review (%s)", c.Status)
	for _, s := range c.SpecialistReports {
		r.line("[%s] %s", s.Specialty, s.Assessment)
		r.list("Concerns", s.Concerns)
		r.list("Recommendations", s.Recommendations)
	}
	if c.Consensus != "" {
		r.line("Consensus: %s", c.Consensus)
	}
	r.list("Action items", c.ActionItems)
}

func (r *textRenderer) VisitClinicalDebate(c *ClinicalDebate) {
	r.line("Debate: %s (%s)", c.Topic, c.Status)
	for _, t := range c.Turns {
		r.line("%s (%s): %s", t.Speaker, t.Role, t.Statement)
	}
	if c.Consensus != "" {
		r.line("Consensus: %s", c.Consensus)
	}
}

func (r *textRenderer) VisitReportComparison(c *ReportComparison) {
	r.line("Comparison of %s and %s", c.BaseReportID, c.CompareReportID)
	for _, ch := range c.Changes {
		r.line("  - %s: %s -> %s (%s)", ch.Finding, ch.Before, ch.After, ch.Significance)
	}
	r.line("%s", c.Summary)
}

func (r *textRenderer) VisitPatientSummary(c *PatientSummary) {
	r.line("%s", c.Summary)
	r.list("Active problems", c.ActiveProblems)
	r.list("Key findings", c.KeyFindings)
	r.list("Plan", c.Plan)
}

func (r *textRenderer) VisitHCCCoding(c *HCCCoding) {
	for _, code := range c.Codes {
		r.line("%s %s (HCC %s): %s", code.ICD10, code.Description, code.HCC, code.Evidence)
	}
	r.line("%s", c.Summary)
}

func (r *textRenderer) VisitECGAnalysis(c *ECGAnalysis) {
	r.line("%s at %d bpm, PR %d ms, QRS %d ms, QTc %d ms", c.Rhythm, c.Rate, c.Intervals.PR, c.Intervals.QRS, c.Intervals.QTc)
	r.list("Findings", c.Findings)
	r.line("%s", c.Interpretation)
}

func (r *textRenderer) VisitCTAAnalysis(c *CTAAnalysis) {
	r.line("Calcium score %g, CAD-RADS %s", c.CalciumScore, c.CADRADS)
	for _, s := range c.Stenoses {
		r.line("  - %s: %s", s.Vessel, s.Severity)
	}
	r.line("%s", c.Recommendation)
}

func (r *textRenderer) VisitInterventionalPlan(c *InterventionalPlan) {
	r.line("%s for %s", c.Procedure, c.Indication)
	r.list("Steps", c.Steps)
	r.list("Risks", c.Risks)
	r.line("%s", c.Recommendation)
}

func (r *textRenderer) VisitDeviceReport(c *DeviceReport) {
	r.line("%s, battery %s, pacing %g%%", c.DeviceType, c.BatteryStatus, c.PacingPercent)
	r.list("Events", c.Events)
	r.list("Recommendations", c.Recommendations)
}

func (r *textRenderer) VisitLVADStatus(c *LVADStatus) {
	r.line("LVAD speed %g rpm, flow %g L/min, power %g W, PI %g", c.PumpSpeed, c.Flow, c.Power, c.PI)
	r.list("Alarms", c.Alarms)
	r.line("%s", c.Assessment)
}

func (r *textRenderer) VisitHeartFailureReview(c *HeartFailureReview) {
	r.line("NYHA %s, congestion: %s", c.NYHAClass, c.Congestion)
	for _, g := range c.GDMT {
		r.line("  - %s (%s): %s", g.Drug, g.Status, g.Recommendation)
	}
	r.line("%s", c.Assessment)
}

func (r *textRenderer) VisitSpecialistConsult(c *SpecialistConsult) {
	r.line("%s consult: %s", c.Specialty, c.Assessment)
	r.list("Findings", c.Findings)
	r.list("Recommendations", c.Recommendations)
	if c.FollowUp != "" {
		r.line("Follow up: %s", c.FollowUp)
	}
}

func (r *textRenderer) VisitDeepReasoning(c *DeepReasoning) { r.line("%s", c.Reasoning) }

func (r *textRenderer) VisitMedicationReview(c *MedicationReview) {
	for _, i := range c.Interactions {
		r.line("%s [%s]: %s", strings.Join(i.Drugs, " + "), i.Severity, i.Description)
	}
	r.list("Recommendations", c.Recommendations)
}

func (r *textRenderer) VisitDifferentialDiagnosis(c *DifferentialDiagnosis) {
	for _, d := range c.Diagnoses {
		r.line("%s (%s)", d.Condition, d.Likelihood)
	}
	r.list("Next steps", c.NextSteps)
}

func (r *textRenderer) VisitGuidelineCheck(c *GuidelineCheck) {
	r.line("%s", c.Guideline)
	for _, item := range c.Items {
		r.line("  [%s] %s", item.Status, item.Recommendation)
	}
}

func (r *textRenderer) VisitLabInterpretation(c *LabInterpretation) {
	for _, v := range c.Values {
		r.line("%s %s %s %s", v.Name, v.Value, v.Unit, v.Flag)
	}
	r.line("%s", c.Interpretation)
}

func (r *textRenderer) VisitImagingFindings(c *ImagingFindings) {
	r.line("%s", c.Modality)
	r.list("Findings", c.Findings)
	r.line("Impression: %s", c.Impression)
}

func (r *textRenderer) VisitGenomicsReport(c *GenomicsReport) {
	for _, v := range c.Variants {
		r.line("%s %s: %s", v.Gene, v.Variant, v.Significance)
	}
	r.line("%s", c.Implications)
}

func (r *textRenderer) VisitDailyBriefing(c *DailyBriefing) {
	r.line("Briefing for %s: %s", c.Date, c.Overview)
	for _, item := range c.Items {
		r.line("  [%s] %s: %s", item.Priority, item.PatientName, item.Summary)
	}
}

func (r *textRenderer) VisitLiveSessionSummary(c *LiveSessionSummary) {
	r.line("Live session saved as report %s", c.ReportID)
	if c.Summary != "" {
		r.line("%s", c.Summary)
	}
}
