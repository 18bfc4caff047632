package agents

import (
	"regexp"
	"strings"

	"github.com/wolfman30/clinical-agent-platform/internal/chat"
	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
)

// Cardiology sub-agents.
const (
	cardioInterventional = "interventional"
	cardioDevice         = "device"
	cardioLVAD           = "lvad"
	cardioCTA            = "cta"
	cardioECG            = "ecg"
	cardioEchoTrend      = "echo_trend"
	cardioHeartFailure   = "heart_failure"
	cardioGeneral        = "general"
)

type keywordRoute struct {
	name    string
	pattern *regexp.Regexp
}

// cardiologyRoutes is matched in order against the lowercased query.
// Keywords match whole words; stems carry an explicit \w* suffix.
var cardiologyRoutes = []keywordRoute{
	{cardioInterventional, regexp.MustCompile(`\b(cath\w*|stent\w*|pci|angiogra\w*|angioplast\w*|cabg)\b`)},
	{cardioDevice, regexp.MustCompile(`\b(pacemakers?|icds?|crt(-d)?|ablations?|devices?|arrhythmi\w*|afib)\b`)},
	{cardioLVAD, regexp.MustCompile(`\b(lvad|heartmate|vad)\b`)},
	{cardioCTA, regexp.MustCompile(`\b(cta|calcium scores?|coronary ct)\b`)},
	{cardioECG, regexp.MustCompile(`\b(ecgs?|ekgs?|qtc?|rhythm strips?)\b`)},
	{cardioEchoTrend, efPattern},
	{cardioHeartFailure, regexp.MustCompile(`\b(heart failure|cardiomems|bnp|nt-probnp)\b`)},
}

// efPattern matches echo and ejection fraction mentions.
var efPattern = regexp.MustCompile(`\b(echo\w*|ejection fraction|l?v?ef)\b`)

// matchCardiology picks the cardiology sub-agent for a query.
func matchCardiology(query string) string {
	q := strings.ToLower(query)
	for _, route := range cardiologyRoutes {
		if route.pattern.MatchString(q) {
			return route.name
		}
	}
	return cardioGeneral
}

func (r *Router) buildCardiologyHandlers() map[string]handlerFunc {
	return map[string]handlerFunc{
		cardioInterventional: structured[chat.InterventionalPlan](r.client, agentSpec{
			role:      "an interventional cardiologist",
			task:      "Assess the indication for intervention and outline the procedural plan, its steps and its risks.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportCath, clinical.ReportProcedure, clinical.ReportCTA}, titleKeywords: []string{"cath*", "angiogra*", "pci"}, limit: 4},
			emptyText: "No catheterization or procedure reports are on file for this patient.",
		}, interventionalSchema),
		cardioDevice: structured[chat.DeviceReport](r.client, agentSpec{
			role:      "an electrophysiologist",
			task:      "Review the device interrogation: device type, battery, pacing burden, recorded events and recommendations.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportDevice}, titleKeywords: []string{"pacemaker", "icd", "interrogation"}, limit: 3},
			emptyText: "No device reports are on file for this patient.",
		}, deviceSchema),
		cardioLVAD: structured[chat.LVADStatus](r.client, agentSpec{
			role:      "an advanced heart failure cardiologist managing LVAD patients",
			task:      "Report the latest LVAD parameters (speed, flow, power, pulsatility index), any alarms and your assessment.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportHFDevice}, titleKeywords: []string{"lvad", "heartmate"}, limit: 3},
			emptyText: "No LVAD reports are on file for this patient.",
		}, lvadSchema),
		cardioCTA: structured[chat.CTAAnalysis](r.client, agentSpec{
			role:      "a cardiac imaging specialist",
			task:      "Report the coronary calcium score, CAD-RADS category, each stenosis and a recommendation.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportCTA}, titleKeywords: []string{"cta", "calcium"}, limit: 2},
			emptyText: "No coronary CTA reports are on file for this patient.",
		}, ctaSchema),
		cardioECG: structured[chat.ECGAnalysis](r.client, agentSpec{
			role:      "a cardiologist reading ECGs",
			task:      "Read the most recent ECG: rhythm, rate, PR/QRS/QTc intervals, findings and interpretation.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportECG}, titleKeywords: []string{"ecg", "ekg"}, limit: 2},
			emptyText: "No ECG reports are on file for this patient.",
		}, ecgSchema),
		cardioEchoTrend: structured[chat.EFTrend](r.client, agentSpec{
			role:      "an echocardiographer",
			task:      "Extract the LVEF from each echo by date, classify the current heart failure phenotype and interpret the trend.",
			selector:  reportSelector{types: []clinical.ReportType{clinical.ReportEcho}, titleKeywords: []string{"echo*"}, limit: 10},
			emptyText: "No echocardiogram reports are on file for this patient.",
		}, efTrendSchema),
		cardioHeartFailure: structured[chat.HeartFailureReview](r.client, agentSpec{
			role:     "a heart failure specialist",
			task:     "Assess NYHA class and congestion, then review guideline directed medical therapy item by item.",
			selector: reportSelector{types: []clinical.ReportType{clinical.ReportHFDevice, clinical.ReportEcho}, titleKeywords: []string{"bnp", "cardiomems"}, fallbackAll: true, limit: 6},
		}, heartFailureSchema),
		cardioGeneral: r.consult(Cardiology, specialistProfile{
			focus: "coronary disease, rhythm, valves, heart failure and preventive cardiology",
			types: []clinical.ReportType{clinical.ReportECG, clinical.ReportEcho, clinical.ReportCTA, clinical.ReportCath, clinical.ReportDevice, clinical.ReportHFDevice},
		}),
	}
}
