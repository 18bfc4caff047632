package agents

import (
	"context"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

const noReportsText = "No reports are on file for this patient yet. Upload a report to get a specialist review."

// specialistProfile narrows a consult to the reports a specialty cares about.
type specialistProfile struct {
	focus         string
	types         []clinical.ReportType
	titleKeywords []string
}

var specialistProfiles = map[Specialty]specialistProfile{
	Neurology:         {focus: "stroke, seizures, headache, neuropathy and cognition", types: []clinical.ReportType{clinical.ReportMRI, clinical.ReportImaging}, titleKeywords: []string{"eeg", "brain", "head", "neuro*"}},
	Oncology:          {focus: "cancer staging, treatment response and surveillance", types: []clinical.ReportType{clinical.ReportPathology, clinical.ReportGenomics, clinical.ReportImaging}, titleKeywords: []string{"tumor", "biopsy", "oncolog*", "pet"}},
	Gastroenterology:  {focus: "GI bleeding, liver disease, IBD and pancreaticobiliary disease", types: []clinical.ReportType{clinical.ReportProcedure}, titleKeywords: []string{"endoscopy", "colonoscopy", "liver", "hepatic", "abdomen"}},
	Pulmonology:       {focus: "airway disease, pulmonary embolism, oxygenation and lung imaging", titleKeywords: []string{"pft", "pulmonary", "chest", "lung", "spirometry"}},
	Endocrinology:     {focus: "diabetes, thyroid, adrenal and metabolic bone disease", types: []clinical.ReportType{clinical.ReportLab}, titleKeywords: []string{"a1c", "thyroid", "tsh"}},
	Orthopedics:       {focus: "fractures, joints, spine and sports injuries", types: []clinical.ReportType{clinical.ReportImaging, clinical.ReportMRI}, titleKeywords: []string{"x-ray", "xray", "spine", "knee", "hip", "shoulder"}},
	Dermatology:       {focus: "rashes, skin lesions and skin cancer", types: []clinical.ReportType{clinical.ReportPathology}, titleKeywords: []string{"skin", "derm*", "lesion"}},
	Nephrology:        {focus: "kidney function, electrolytes, dialysis and hypertension", types: []clinical.ReportType{clinical.ReportLab}, titleKeywords: []string{"renal", "kidney", "bmp", "urinalysis"}},
	Hematology:        {focus: "anemia, coagulation, platelets and anticoagulation", types: []clinical.ReportType{clinical.ReportLab}, titleKeywords: []string{"cbc", "coag*", "inr", "smear"}},
	Rheumatology:      {focus: "inflammatory arthritis, lupus, vasculitis and gout", types: []clinical.ReportType{clinical.ReportLab}, titleKeywords: []string{"ana", "rheumat*", "esr", "crp"}},
	InfectiousDisease: {focus: "infections, cultures, antimicrobial choice and stewardship", types: []clinical.ReportType{clinical.ReportLab}, titleKeywords: []string{"culture", "sensitivity", "pcr"}},
	Psychiatry:        {focus: "mood, anxiety, psychosis and psychotropic medications", types: []clinical.ReportType{clinical.ReportMeds}, titleKeywords: []string{"psych*", "phq", "gad"}},
	Urology:           {focus: "prostate, urinary tract and stone disease", types: []clinical.ReportType{clinical.ReportImaging}, titleKeywords: []string{"psa", "urology", "bladder", "prostate"}},
	Ophthalmology:     {focus: "vision, retina, glaucoma and ocular complications of systemic disease", titleKeywords: []string{"eye", "retina", "oct", "visual"}},
	Geriatrics:        {focus: "frailty, falls, cognition and polypharmacy", types: []clinical.ReportType{clinical.ReportMeds, clinical.ReportLab}, titleKeywords: []string{"fall", "cogniti*", "mmse", "moca"}},
}

func (r *Router) buildSpecialtyHandlers() map[Specialty]handlerFunc {
	handlers := make(map[Specialty]handlerFunc, len(specialistProfiles)+2)
	for specialty, profile := range specialistProfiles {
		handlers[specialty] = r.consult(specialty, profile)
	}
	handlers[DeepReasoning] = r.deepReasoning
	handlers[General] = r.general
	return handlers
}

// consult is the structured specialist consultation shared by every
// specialty. Without a matching report it reasons over all reports.
func (r *Router) consult(specialty Specialty, profile specialistProfile) handlerFunc {
	name := specialty.DisplayName()
	spec := agentSpec{
		role: "a board certified " + name + " consultant",
		task: "Give a " + name + " consultation focused on " + profile.focus +
			". List the relevant findings, your recommendations and the follow up interval.",
		selector: reportSelector{
			types:         profile.types,
			titleKeywords: profile.titleKeywords,
			fallbackAll:   true,
			limit:         6,
		},
		emptyText: noReportsText,
	}
	return func(ctx context.Context, req Request) (chat.Message, error) {
		msg, _, err := runStructured[chat.SpecialistConsult](ctx, r.client, req, spec, consultSchema)
		if err != nil {
			return msg, err
		}
		if c, ok := msg.Content.(*chat.SpecialistConsult); ok {
			c.Specialty = name
		}
		return msg, nil
	}
}

// universalSpecialist serves specialties outside the named set.
func (r *Router) universalSpecialist(specialty Specialty) handlerFunc {
	if specialty == "" {
		specialty = General
	}
	return r.consult(specialty, specialistProfile{
		focus: "the aspects of the case most relevant to " + specialty.DisplayName(),
	})
}

func (r *Router) deepReasoning(ctx context.Context, req Request) (chat.Message, error) {
	reports := selectReports(req.Patient, reportSelector{fallbackAll: true, limit: 10})
	prompt := buildRequest(req, promptParts{
		role:    "a senior diagnostician",
		task:    "Reason step by step across every organ system. State your assumptions, weigh competing explanations and finish with a clear conclusion.",
		query:   req.Query,
		reports: reports,
	})
	prompt.MaxTokens = 4096
	text, err := llm.CompleteText(ctx, r.client, prompt)
	if err != nil {
		return chat.Message{}, err
	}
	msg := chat.NewAIMessage(req.Patient.ID, &chat.DeepReasoning{Question: req.Query, Reasoning: text})
	if len(reports) > 0 {
		msg.SuggestedAction = chat.ViewReport(reports[0].ID)
	}
	return msg, nil
}

func (r *Router) general(ctx context.Context, req Request) (chat.Message, error) {
	text, err := llm.CompleteText(ctx, r.client, buildRequest(req, promptParts{
		role:    "a general internist",
		task:    "Answer the clinician's question using the record.",
		query:   req.Query,
		reports: selectReports(req.Patient, reportSelector{fallbackAll: true, limit: 5}),
	}))
	if err != nil {
		return chat.Message{}, err
	}
	return chat.TextMessage(req.Patient.ID, text), nil
}
