// Package escalate converts an unreliable, possibly-malformed synthesized
// report into a trustworthy three-field verdict. It never fails: malformed
// input degrades to a fixed WARNING fallback instead of an error.
package escalate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/regcritic/internal/schema"
)

// Fixed fallback and OK-path text. These are part of the output contract;
// downstream automation matches on them.
const (
	fallbackReason     = "Synthesized report missing or malformed; cannot confidently determine compliance."
	fallbackSuggestion = "Check that the synthesizer produced the synthesized report and re-run the coordinator."
	okReason           = "No HIPAA or FDA issues detected in the synthesized report."
	okSuggestion       = "No action required."
)

// maxReasonWords is the soft cap on verdict reason length.
const maxReasonWords = 40

// Resolver derives verdicts from synthesized reports. The trigger list is
// fixed at construction and never mutated afterwards.
type Resolver struct {
	triggers []string
}

// NewResolver returns a Resolver using the built-in severity triggers plus
// any extra triggers, lowercased. Extras rank after the built-ins.
func NewResolver(extra ...string) *Resolver {
	triggers := Triggers()
	for _, t := range extra {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			triggers = append(triggers, t)
		}
	}
	return &Resolver{triggers: triggers}
}

// Fallback returns the canonical verdict for absent or malformed input.
func Fallback() schema.Verdict {
	return schema.Verdict{
		Status:      schema.StatusWarning,
		Reason:      fallbackReason,
		Suggestions: []string{fallbackSuggestion},
	}
}

// Resolve derives the final verdict from a synthesized report.
// It is total: any input, including nil and the malformed variant,
// produces a complete verdict with exactly one suggestion.
func (r *Resolver) Resolve(rep *schema.SynthesizedReport) schema.Verdict {
	// Step 1: malformed-input guard. Absolute precedence.
	if rep == nil || rep.Malformed {
		return Fallback()
	}

	status := r.resolveStatus(rep)
	if status == schema.StatusOK {
		return schema.Verdict{
			Status:      schema.StatusOK,
			Reason:      okReason,
			Suggestions: []string{okSuggestion},
		}
	}

	reason, suggestion := r.explain(rep, status)
	return schema.Verdict{
		Status:      status,
		Reason:      reason,
		Suggestions: []string{suggestion},
	}
}

// resolveStatus applies the strict priority order: an explicit VIOLATION is
// terminal, an explicit WARNING may escalate on raw-payload triggers, and an
// absent or unrecognised status is derived purely from the issue lists.
func (r *Resolver) resolveStatus(rep *schema.SynthesizedReport) schema.Status {
	switch rep.Status {
	case schema.StatusViolation:
		return schema.StatusViolation
	case schema.StatusWarning:
		if _, _, ok := r.scanRawDetails(rep.RawDetails); ok {
			return schema.StatusViolation
		}
		return schema.StatusWarning
	case schema.StatusOK:
		return schema.StatusOK
	}

	// Status absent or unrecognised: derive from issues.
	if _, _, _, ok := r.firstTriggerIssue(rep); ok {
		return schema.StatusViolation
	}
	if domainHasIssues(rep.HIPAA) || domainHasIssues(rep.FDA) {
		return schema.StatusWarning
	}
	return schema.StatusOK
}

// explain selects the primary reason and its matching suggestion.
// Preference order: trigger-matching issue, then any non-empty issue, then
// the top recommendation, then a raw-payload trigger match, then a generic
// per-status fallback. HIPAA outranks FDA throughout.
func (r *Resolver) explain(rep *schema.SynthesizedReport, status schema.Status) (string, string) {
	if domain, issue, trig, ok := r.firstTriggerIssue(rep); ok {
		reason := fmt.Sprintf("%s issue flagged: %s", domain, compress(issueText(issue), maxReasonWords))
		return reason, suggestionFor(domain, trig, issue)
	}

	if domain, issue, ok := firstIssue(rep); ok {
		reason := fmt.Sprintf("%s issue flagged: %s", domain, compress(issueText(issue), maxReasonWords))
		return reason, suggestionFor(domain, "", issue)
	}

	if len(rep.Recommendations) > 0 && strings.TrimSpace(rep.Recommendations[0]) != "" {
		top := strings.TrimSpace(rep.Recommendations[0])
		reason := "Top synthesized recommendation: " + compress(top, maxReasonWords)
		return reason, compress(top, maxReasonWords)
	}

	if domain, trig, ok := r.scanRawDetails(rep.RawDetails); ok {
		reason := fmt.Sprintf("%s raw report contains severity indicator %q.", domain, trig)
		return reason, suggestionFor(domain, trig, schema.Issue{})
	}

	if status == schema.StatusViolation {
		return "Synthesized report indicates a compliance violation without issue detail.",
			"Review the full synthesized report and notify Compliance before proceeding."
	}
	// WARNING with no issue, recommendation, or raw detail anywhere: there is
	// nothing to act on, so degrade to the safe fallback text.
	return fallbackReason, fallbackSuggestion
}

// firstTriggerIssue returns the first issue whose text contains a severity
// trigger, scanning HIPAA issues before FDA issues so that equal-severity
// matches tie-break toward HIPAA.
func (r *Resolver) firstTriggerIssue(rep *schema.SynthesizedReport) (schema.Domain, schema.Issue, string, bool) {
	for _, dr := range []struct {
		domain schema.Domain
		report *schema.DomainReport
	}{
		{schema.DomainHIPAA, rep.HIPAA},
		{schema.DomainFDA, rep.FDA},
	} {
		if dr.report == nil {
			continue
		}
		for _, issue := range dr.report.Issues {
			if trig, ok := findTrigger(r.triggers, issueText(issue)); ok {
				return dr.domain, issue, trig, true
			}
		}
		if trig, ok := findTrigger(r.triggers, dr.report.ShortSummary); ok {
			return dr.domain, schema.Issue{Explanation: dr.report.ShortSummary}, trig, true
		}
	}
	return "", schema.Issue{}, "", false
}

// firstIssue returns the first non-empty issue, HIPAA before FDA.
func firstIssue(rep *schema.SynthesizedReport) (schema.Domain, schema.Issue, bool) {
	if domainHasIssues(rep.HIPAA) {
		return schema.DomainHIPAA, rep.HIPAA.Issues[0], true
	}
	if domainHasIssues(rep.FDA) {
		return schema.DomainFDA, rep.FDA.Issues[0], true
	}
	return "", schema.Issue{}, false
}

// scanRawDetails flattens both domain raw payloads to text and scans them
// for triggers, HIPAA payload first.
func (r *Resolver) scanRawDetails(details *schema.RawDetails) (schema.Domain, string, bool) {
	if details == nil {
		return "", "", false
	}
	if trig, ok := findTrigger(r.triggers, flattenJSON(details.HIPAAReport)); ok {
		return schema.DomainHIPAA, trig, true
	}
	if trig, ok := findTrigger(r.triggers, flattenJSON(details.FDAReport)); ok {
		return schema.DomainFDA, trig, true
	}
	return "", "", false
}

func domainHasIssues(dr *schema.DomainReport) bool {
	return dr != nil && len(dr.Issues) > 0
}

// issueText is the scannable text of one issue: explanation plus type.
func issueText(i schema.Issue) string {
	switch {
	case i.Explanation != "" && i.Type != "":
		return i.Explanation + " (" + i.Type + ")"
	case i.Explanation != "":
		return i.Explanation
	default:
		return i.Type
	}
}

// flattenJSON recursively collects every string key and value in a JSON
// payload into one scannable text block. Payloads that are not valid JSON
// are scanned as-is.
func flattenJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	var sb strings.Builder
	flattenValue(v, &sb)
	return sb.String()
}

func flattenValue(v any, sb *strings.Builder) {
	switch t := v.(type) {
	case string:
		sb.WriteString(t)
		sb.WriteByte(' ')
	case map[string]any:
		for k, val := range t {
			sb.WriteString(k)
			sb.WriteByte(' ')
			flattenValue(val, sb)
		}
	case []any:
		for _, val := range t {
			flattenValue(val, sb)
		}
	}
}

// suggestionFor returns one short imperative suggestion addressing the
// selected reason. Trigger-specific suggestions come first; issues with a
// usable remediation fall through to it; anything else gets a per-domain
// generic action.
func suggestionFor(domain schema.Domain, trigger string, issue schema.Issue) string {
	switch trigger {
	case "patient name", "ssn", "social security":
		return "Redact the patient identifiers before sending and consult Compliance about breach reporting."
	case "breach", "leak", "exposed", "unauthorized":
		return "Contain the exposure and start the breach notification assessment with Compliance."
	case "hospitalization", "death", "serious adverse", "immediate report":
		return "Report the adverse event through the required FDA channels immediately and notify Compliance."
	}

	if rem := strings.TrimSpace(issue.Remediation); rem != "" {
		return compress(rem, maxReasonWords)
	}

	if domain == schema.DomainFDA {
		return "Remediate the flagged FDA Part 11 issue before continuing electronic record processing."
	}
	return "Remediate the flagged HIPAA issue before any further disclosure of PHI."
}

// compress collapses whitespace and bounds text to at most two sentences
// and maxWords words, ensuring a terminal period.
func compress(s string, maxWords int) string {
	words := strings.Fields(s)
	if len(words) == 0 {
		return ""
	}

	// Keep at most two sentences.
	kept := words[:0:0]
	sentences := 0
	for _, w := range words {
		kept = append(kept, w)
		if strings.HasSuffix(w, ".") || strings.HasSuffix(w, "!") || strings.HasSuffix(w, "?") {
			sentences++
			if sentences == 2 {
				break
			}
		}
		if len(kept) == maxWords {
			break
		}
	}

	out := strings.Join(kept, " ")
	if !strings.HasSuffix(out, ".") && !strings.HasSuffix(out, "!") && !strings.HasSuffix(out, "?") {
		out += "."
	}
	return out
}
