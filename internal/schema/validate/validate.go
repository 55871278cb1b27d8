// Package validate performs the defensive, non-throwing parses that sit at
// every stage boundary of the pipeline. Model output is an untrusted string:
// each parse either yields a usable structure or an explicit malformed
// variant, never a panic.
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dshills/regcritic/internal/schema"
)

// StripFences removes leading/trailing markdown code fences
// (```json ... ``` or ``` ... ```).
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		// Remove first line (the fence opener)
		idx := strings.Index(s, "\n")
		if idx >= 0 {
			s = s[idx+1:]
		}
	}
	if strings.HasSuffix(s, "```") {
		idx := strings.LastIndex(s, "\n```")
		if idx >= 0 {
			s = s[:idx]
		}
	}
	return strings.TrimSpace(s)
}

// ParseFinding interprets a specialist's raw model output as a finding set.
// Missing fields, a non-list issues value, and non-object issue entries are
// all tolerated; only entirely unusable payloads return an error, which the
// caller downgrades to "no data".
func ParseFinding(raw string) (*schema.Finding, error) {
	cleaned := StripFences(raw)

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return nil, fmt.Errorf("finding is not a JSON object: %w", err)
	}

	f := &schema.Finding{Raw: json.RawMessage(cleaned)}
	if v, ok := fields["short_summary"]; ok {
		// Ignore failure: a non-string summary is simply absent.
		json.Unmarshal(v, &f.ShortSummary) //nolint:errcheck
	}
	if v, ok := fields["issues"]; ok {
		f.Issues = parseIssues(v)
	}
	return f, nil
}

// parseIssues decodes an issues payload entry by entry, skipping anything
// that is not an object. An unrecognised severity keeps the issue but leaves
// the severity as-is; the resolver only scans issue text.
func parseIssues(raw json.RawMessage) []schema.Issue {
	var entries []json.RawMessage
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil
	}
	issues := make([]schema.Issue, 0, len(entries))
	for _, e := range entries {
		var issue schema.Issue
		if err := json.Unmarshal(e, &issue); err != nil {
			continue
		}
		issue.Severity = schema.Severity(strings.ToUpper(string(issue.Severity)))
		if issue.Type == "" && issue.Explanation == "" {
			continue
		}
		issues = append(issues, issue)
	}
	if len(issues) == 0 {
		return nil
	}
	return issues
}

// recognised synthesized-report fields; a payload with none of these is
// malformed, not merely empty.
var synthesizedFields = []string{"status", "hipaa", "fda", "recommendations", "raw_details"}

// ParseSynthesized interprets raw text as a synthesized report. It never
// fails: anything that cannot be read as the report shape comes back as the
// explicit malformed variant carrying the unparsed payload.
func ParseSynthesized(raw string) *schema.SynthesizedReport {
	cleaned := StripFences(raw)
	malformed := &schema.SynthesizedReport{Malformed: true, Raw: raw}

	if cleaned == "" {
		return malformed
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(cleaned), &fields); err != nil {
		return malformed
	}

	recognised := false
	for _, name := range synthesizedFields {
		if _, ok := fields[name]; ok {
			recognised = true
			break
		}
	}
	if !recognised {
		return malformed
	}

	rep := &schema.SynthesizedReport{}
	if v, ok := fields["status"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err == nil {
			// An unrecognised status value stays empty: the resolver treats
			// it as absent and derives from the issue lists instead.
			switch status := schema.Status(strings.ToUpper(strings.TrimSpace(s))); status {
			case schema.StatusOK, schema.StatusWarning, schema.StatusViolation:
				rep.Status = status
			}
		}
	}
	rep.HIPAA = parseDomainReport(fields["hipaa"])
	rep.FDA = parseDomainReport(fields["fda"])
	if v, ok := fields["recommendations"]; ok {
		json.Unmarshal(v, &rep.Recommendations) //nolint:errcheck
	}
	if v, ok := fields["raw_details"]; ok {
		var details schema.RawDetails
		if err := json.Unmarshal(v, &details); err == nil {
			rep.RawDetails = &details
		} else {
			// Unshaped raw details still get scanned for triggers.
			rep.RawDetails = &schema.RawDetails{HIPAAReport: v}
		}
	}
	return rep
}

// parseDomainReport decodes one domain section. A missing or unreadable
// section is absent (nil), never an error.
func parseDomainReport(raw json.RawMessage) *schema.DomainReport {
	if len(raw) == 0 {
		return nil
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil
	}
	dr := &schema.DomainReport{}
	if v, ok := fields["short_summary"]; ok {
		json.Unmarshal(v, &dr.ShortSummary) //nolint:errcheck
	}
	if v, ok := fields["issues"]; ok {
		dr.Issues = parseIssues(v)
	}
	if v, ok := fields["raw"]; ok {
		json.Unmarshal(v, &dr.Raw) //nolint:errcheck
	}
	return dr
}

// CheckVerdict enforces the hard output postcondition: status must be one of
// the three states, reason non-empty, and suggestions of length exactly 1.
// Callers rendering a verdict must reject anything that fails this check.
func CheckVerdict(v schema.Verdict) error {
	if schema.StatusOrdinal(v.Status) < 0 {
		return fmt.Errorf("verdict status %q is not OK, WARNING, or VIOLATION", v.Status)
	}
	if strings.TrimSpace(v.Reason) == "" {
		return fmt.Errorf("verdict reason is empty")
	}
	if len(v.Suggestions) != 1 {
		return fmt.Errorf("verdict has %d suggestions, want exactly 1", len(v.Suggestions))
	}
	return nil
}

// ParseVerdict reads a fenced verdict block back into a Verdict and checks
// the output contract. Used by callers that consume the rendered block.
func ParseVerdict(raw string) (*schema.Verdict, error) {
	cleaned := StripFences(raw)
	var v schema.Verdict
	if err := json.Unmarshal([]byte(cleaned), &v); err != nil {
		return nil, fmt.Errorf("verdict parse failed: %w", err)
	}
	if err := CheckVerdict(v); err != nil {
		return nil, err
	}
	return &v, nil
}
