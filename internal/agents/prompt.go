package agents

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/wolfman30/clinical-agent-platform/internal/clinical"
	"github.com/wolfman30/clinical-agent-platform/internal/llm"
)

// maxReportChars bounds a single report's text inside a prompt.
const maxReportChars = 6000

// reportSelector picks the reports an agent reasons over.
type reportSelector struct {
	types         []clinical.ReportType
	titleKeywords []string
	// fallbackAll uses every active report when nothing matches.
	fallbackAll bool
	limit       int
}

// selectReports returns matching active reports, newest first.
func selectReports(p clinical.Patient, sel reportSelector) []clinical.Report {
	var out []clinical.Report
	for _, r := range p.ActiveReports() {
		if sel.matches(r) {
			out = append(out, r)
		}
	}
	if len(out) == 0 && sel.fallbackAll {
		out = p.ActiveReports()
	}
	sortNewestFirst(out)
	if sel.limit > 0 && len(out) > sel.limit {
		out = out[:sel.limit]
	}
	return out
}

func (sel reportSelector) matches(r clinical.Report) bool {
	for _, t := range sel.types {
		if r.Type == t {
			return true
		}
	}
	return titleHasKeyword(r.Title, sel.titleKeywords)
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune.
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// titleHasKeyword matches keywords against whole title words. A keyword
// ending in "*" matches any word starting with it.
func titleHasKeyword(title string, keywords []string) bool {
	words := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '-'
	})
	for _, kw := range keywords {
		stem, prefix := strings.CutSuffix(kw, "*")
		for _, w := range words {
			if w == stem || (prefix && strings.HasPrefix(w, stem)) {
				return true
			}
		}
	}
	return false
}

// sortNewestFirst orders by ISO date string, descending.
func sortNewestFirst(reports []clinical.Report) {
	sort.SliceStable(reports, func(i, j int) bool {
		return reports[i].Date > reports[j].Date
	})
}

// promptParts describes one agent prompt.
type promptParts struct {
	role    string
	task    string
	query   string
	reports []clinical.Report
}

// buildRequest assembles the system prompt (role + personalization) and the
// user prompt (patient header + reports + task).
func buildRequest(req Request, parts promptParts) llm.Request {
	system := fmt.Sprintf("You are %s assisting a clinician. %s Do not invent data that is not in the record.",
		parts.role, req.Settings.Instruction())

	var b strings.Builder
	b.WriteString(req.Patient.ContextHeader())
	if len(parts.reports) > 0 {
		b.WriteString("\nRelevant reports:\n")
		for _, r := range parts.reports {
			block := r.PromptBlock()
			if len(block) > maxReportChars {
				block = truncateUTF8(block, maxReportChars) + "\n[truncated]\n"
			}
			b.WriteString(block)
		}
	}
	b.WriteString("\nTask: ")
	b.WriteString(parts.task)
	if q := strings.TrimSpace(parts.query); q != "" {
		b.WriteString("\nClinician question: ")
		b.WriteString(q)
	}
	out := llm.UserPrompt(system, b.String())
	out.Temperature = 0.2
	return out
}
