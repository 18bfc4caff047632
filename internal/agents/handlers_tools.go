package agents

import (
	"context"
	"regexp"
	"strings"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

// agentSpec describes one structured agent.
type agentSpec struct {
	role     string
	task     string
	selector reportSelector
	// emptyText is returned without a model call when no report matches.
	// Empty means the agent runs on the patient header alone.
	emptyText string
}

// contentPtr constrains T so a decoded value can be used as chat content.
type contentPtr[T any] interface {
	*T
	chat.Content
}

// runStructured selects reports, issues one schema constrained call and maps
// the decoded reply into the matching chat content.
func runStructured[T any, PT contentPtr[T]](ctx context.Context, client llm.Client, req Request, spec agentSpec, schema *llm.Schema) (chat.Message, []clinical.Report, error) {
	reports := selectReports(req.Patient, spec.selector)
	if len(reports) == 0 && spec.emptyText != "" {
		return chat.TextMessage(req.Patient.ID, spec.emptyText), nil, nil
	}
	out, err := llm.CompleteJSON[T](ctx, client, buildRequest(req, promptParts{
		role:    spec.role,
		task:    spec.task,
		query:   req.Query,
		reports: reports,
	}), schema)
	if err != nil {
		return chat.Message{}, nil, err
	}
	msg := chat.NewAIMessage(req.Patient.ID, PT(&out))
	if len(reports) > 0 {
		msg.SuggestedAction = chat.ViewReport(reports[0].ID)
	}
	return msg, reports, nil
}

// structured adapts runStructured into a handler.
func structured[T any, PT contentPtr[T]](client llm.Client, spec agentSpec, schema *llm.Schema) handlerFunc {
	return func(ctx context.Context, req Request) (chat.Message, error) {
		msg, _, err := runStructured[T, PT](ctx, client, req, spec, schema)
		return msg, err
	}
}

func (r *Router) buildFastHandlers() map[Route]handlerFunc {
	return map[Route]handlerFunc{
		RouteReportRetrieval: retrieveReport,
		RouteBoardReview:     r.board.run,
		RouteDebate:          r.debate.run,
		RouteCompare:         r.compareReports,
		RouteTrend:           r.trend,
		RouteHCC: structured[chat.HCCCoding](r.client, agentSpec{
			role:     "a certified risk adjustment coder",
			task:     "Identify ICD-10 diagnoses supported by the record that map to CMS-HCC categories. Cite the supporting evidence for each code.",
			selector: reportSelector{fallbackAll: true, limit: 10},
		}, hccSchema),
		RouteSummary: structured[chat.PatientSummary](r.client, agentSpec{
			role:     "an attending physician writing a handoff",
			task:     "Summarize the patient: active problems, key recent findings and the current plan.",
			selector: reportSelector{fallbackAll: true, limit: 8},
		}, summarySchema),
		RouteRisk: structured[chat.RiskStratification](r.client, agentSpec{
			role:     "a preventive medicine specialist",
			task:     "Pick the most appropriate validated risk model for the question (ASCVD, CHA2DS2-VASc, HAS-BLED, MELD ...), compute the score from the record and list contributing factors.",
			selector: reportSelector{types: []clinical.ReportType{clinical.ReportLab, clinical.ReportECG, clinical.ReportEcho}, fallbackAll: true, limit: 8},
		}, riskSchema),
		RouteDifferential: structured[chat.DifferentialDiagnosis](r.client, agentSpec{
			role:     "a diagnostician",
			task:     "Build a ranked differential diagnosis with supporting and opposing evidence, then list the next diagnostic steps.",
			selector: reportSelector{fallbackAll: true, limit: 8},
		}, differentialSchema),
		RouteGuideline: structured[chat.GuidelineCheck](r.client, agentSpec{
			role:     "a quality improvement physician",
			task:     "Check the patient's care against the most relevant current society guideline and mark each recommendation as met, not met, not applicable or unknown.",
			selector: reportSelector{fallbackAll: true, limit: 8},
		}, guidelineSchema),
		RouteMedication: r.medicationReview,
		RouteGenomics: structured[chat.GenomicsReport](r.client, agentSpec{
			role:      "a clinical geneticist",
			task:      "List the reported variants with their clinical significance and the implications for care and family screening.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportGenomics}, titleKeywords: []string{"genetic*", "genomic*"}},
			emptyText: "No genomics reports are on file for this patient.",
		}, genomicsSchema),
		RouteImaging: structured[chat.ImagingFindings](r.client, agentSpec{
			role:      "a radiologist",
			task:      "Report the imaging findings and give a concise impression.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportImaging, clinical.ReportMRI, clinical.ReportCTA, clinical.ReportDICOM}, limit: 3},
			emptyText: "No imaging reports are on file for this patient.",
		}, imagingSchema),
		RouteLabs: structured[chat.LabInterpretation](r.client, agentSpec{
			role:      "a laboratory medicine specialist",
			task:      "List each lab value with its flag and interpret the overall pattern.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportLab}, limit: 3},
			emptyText: "No lab reports are on file for this patient.",
		}, labSchema),
	}
}

// artifactSelectors maps retrieval nouns to report selectors.
var artifactSelectors = []struct {
	pattern  *regexp.Regexp
	selector reportSelector
}{
	{regexp.MustCompile(`\b(ecg|ekg)\b`), reportSelector{types: []clinical.ReportType{clinical.ReportECG}, titleKeywords: []string{"ecg", "ekg"}}},
	{regexp.MustCompile(`\becho`), reportSelector{types: []clinical.ReportType{clinical.ReportEcho}, titleKeywords: []string{"echo*"}}},
	{regexp.MustCompile(`\blab`), reportSelector{types: []clinical.ReportType{clinical.ReportLab}}},
	{regexp.MustCompile(`\bcta\b`), reportSelector{types: []clinical.ReportType{clinical.ReportCTA}}},
	{regexp.MustCompile(`\bmri\b`), reportSelector{types: []clinical.ReportType{clinical.ReportMRI}, titleKeywords: []string{"mri"}}},
	{regexp.MustCompile(`\b(ct\s+scan|x-?ray|imaging)\b`), reportSelector{types: []clinical.ReportType{clinical.ReportImaging, clinical.ReportDICOM}, titleKeywords: []string{"ct", "x-ray", "xray"}}},
	{regexp.MustCompile(`\bpathology\b`), reportSelector{types: []clinical.ReportType{clinical.ReportPathology}}},
	{regexp.MustCompile(`\b(cath|angiogram)`), reportSelector{types: []clinical.ReportType{clinical.ReportCath}, titleKeywords: []string{"cath*", "angiogra*"}}},
	{regexp.MustCompile(`\bdevice\b`), reportSelector{types: []clinical.ReportType{clinical.ReportDevice, clinical.ReportHFDevice}}},
	{regexp.MustCompile(`\bgenomic`), reportSelector{types: []clinical.ReportType{clinical.ReportGenomics}}},
	{regexp.MustCompile(`\bpdf\b`), reportSelector{types: []clinical.ReportType{clinical.ReportPDF}}},
	{regexp.MustCompile(`\bdicom\b`), reportSelector{types: []clinical.ReportType{clinical.ReportDICOM}}},
}

// retrieveReport answers "show my latest X" without a model call.
func retrieveReport(_ context.Context, req Request) (chat.Message, error) {
	q := strings.ToLower(req.Query)
	sel := reportSelector{fallbackAll: true}
	for _, a := range artifactSelectors {
		if a.pattern.MatchString(q) {
			sel = a.selector
			break
		}
	}
	reports := selectReports(req.Patient, sel)
	if len(reports) == 0 {
		return chat.TextMessage(req.Patient.ID, "No matching report was found for this patient."), nil
	}
	r := reports[0]
	summary := r.AISummary
	if summary == "" && r.ExtractedData != nil {
		summary = r.ExtractedData.Summary
	}
	msg := chat.NewAIMessage(req.Patient.ID, &chat.ReportDisplay{
		ReportID:   r.ID,
		Title:      r.Title,
		ReportType: string(r.Type),
		Date:       r.Date,
		Summary:    summary,
	})
	msg.SuggestedAction = chat.ViewReport(r.ID)
	return msg, nil
}

// compareReports diffs the two newest reports of one type.
func (r *Router) compareReports(ctx context.Context, req Request) (chat.Message, error) {
	pair := comparablePair(req.Patient, req.Query)
	if pair == nil {
		return chat.TextMessage(req.Patient.ID, "At least two reports of the same type are needed for a comparison."), nil
	}
	newer, older := pair[0], pair[1]
	out, err := llm.CompleteJSON[chat.ReportComparison](ctx, r.client, buildRequest(req, promptParts{
		role:    "a physician comparing serial studies",
		task:    "Compare the newer report (" + newer.Date + ") against the older report (" + older.Date + "). List each finding that changed and its significance.",
		query:   req.Query,
		reports: pair,
	}), comparisonSchema)
	if err != nil {
		return chat.Message{}, err
	}
	out.BaseReportID = older.ID
	out.CompareReportID = newer.ID
	msg := chat.NewAIMessage(req.Patient.ID, &out)
	msg.SuggestedAction = chat.ViewReport(newer.ID)
	return msg, nil
}

// comparablePair returns the newest two reports of the type named in the
// query, or of the most recent type with at least two reports.
func comparablePair(p clinical.Patient, query string) []clinical.Report {
	q := strings.ToLower(query)
	for _, a := range artifactSelectors {
		if a.pattern.MatchString(q) {
			if reports := selectReports(p, a.selector); len(reports) >= 2 {
				return reports[:2]
			}
			return nil
		}
	}
	byType := make(map[clinical.ReportType][]clinical.Report)
	all := p.ActiveReports()
	sortNewestFirst(all)
	for _, rep := range all {
		byType[rep.Type] = append(byType[rep.Type], rep)
		if len(byType[rep.Type]) == 2 {
			return byType[rep.Type]
		}
	}
	return nil
}

// trend charts lab values over time, or ejection fraction when asked.
func (r *Router) trend(ctx context.Context, req Request) (chat.Message, error) {
	if efPattern.MatchString(strings.ToLower(req.Query)) {
		return r.cardiology[cardioEchoTrend](ctx, req)
	}
	msg, _, err := runStructured[chat.TrendChart](ctx, r.client, req, agentSpec{
		role:      "a clinician reviewing serial labs",
		task:      "Pick the analyte the question is about (or the most clinically relevant one), list its values by date and interpret the trend.",
		selector:  reportSelector{types: []clinical.ReportType{clinical.ReportLab}, limit: 12},
		emptyText: "No lab reports are on file to trend.",
	}, trendChartSchema)
	return msg, err
}

func (r *Router) medicationReview(ctx context.Context, req Request) (chat.Message, error) {
	meds := selectReports(req.Patient, reportSelector{types: []clinical.ReportType{clinical.ReportMeds}})
	if len(req.Patient.CurrentStatus.Medications) == 0 && len(meds) == 0 {
		return chat.TextMessage(req.Patient.ID, "No medication list is on file for this patient."), nil
	}
	msg, _, err := runStructured[chat.MedicationReview](ctx, r.client, req, agentSpec{
		role:     "a clinical pharmacist",
		task:     "Review the medication list for interactions, duplications and dosing problems given the patient's conditions and labs.",
		selector: reportSelector{types: []clinical.ReportType{clinical.ReportMeds, clinical.ReportLab}, limit: 4},
	}, medicationSchema)
	return msg, err
}
