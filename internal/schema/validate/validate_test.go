package validate

import (
	"testing"

	"github.com/dshills/regcritic/internal/schema"
)

// --- StripFences ---

func TestStripFences_JSONFence(t *testing.T) {
	in := "```json\n{\"a\": 1}\n```"
	got := StripFences(in)
	if got != `{"a": 1}` {
		t.Errorf("StripFences = %q", got)
	}
}

func TestStripFences_PlainFence(t *testing.T) {
	in := "```\n{\"a\": 1}\n```"
	if got := StripFences(in); got != `{"a": 1}` {
		t.Errorf("StripFences = %q", got)
	}
}

func TestStripFences_NoFence(t *testing.T) {
	in := `{"a": 1}`
	if got := StripFences(in); got != in {
		t.Errorf("StripFences modified unfenced input: %q", got)
	}
}

// --- ParseFinding ---

func TestParseFinding_WellFormed(t *testing.T) {
	raw := "```json\n" + `{
	  "short_summary": "One privacy issue found.",
	  "issues": [
	    {"type": "phi-disclosure", "severity": "high", "explanation": "patient name in export", "remediation": "Redact it."}
	  ],
	  "raw": {"analysis_type": "privacy_rule"}
	}` + "\n```"
	f, err := ParseFinding(raw)
	if err != nil {
		t.Fatalf("ParseFinding: %v", err)
	}
	if f.ShortSummary != "One privacy issue found." {
		t.Errorf("short_summary = %q", f.ShortSummary)
	}
	if len(f.Issues) != 1 {
		t.Fatalf("issues = %d, want 1", len(f.Issues))
	}
	if f.Issues[0].Severity != schema.SeverityHigh {
		t.Errorf("severity not normalized: %q", f.Issues[0].Severity)
	}
}

func TestParseFinding_MissingFieldsTolerated(t *testing.T) {
	f, err := ParseFinding(`{"short_summary": "all clear"}`)
	if err != nil {
		t.Fatalf("ParseFinding: %v", err)
	}
	if f.Issues != nil {
		t.Errorf("issues = %v, want nil", f.Issues)
	}
}

func TestParseFinding_NonListIssues(t *testing.T) {
	f, err := ParseFinding(`{"issues": "not a list"}`)
	if err != nil {
		t.Fatalf("non-list issues should not error: %v", err)
	}
	if f.Issues != nil {
		t.Errorf("issues = %v, want nil", f.Issues)
	}
}

func TestParseFinding_NonObjectEntriesSkipped(t *testing.T) {
	raw := `{"issues": [42, "nope", {"type": "real", "severity": "LOW", "explanation": "kept"}]}`
	f, err := ParseFinding(raw)
	if err != nil {
		t.Fatalf("ParseFinding: %v", err)
	}
	if len(f.Issues) != 1 || f.Issues[0].Type != "real" {
		t.Errorf("issues = %+v, want the single object entry", f.Issues)
	}
}

func TestParseFinding_UnrecognizedSeverityKept(t *testing.T) {
	f, err := ParseFinding(`{"issues": [{"type": "x", "severity": "SEVERE", "explanation": "text"}]}`)
	if err != nil {
		t.Fatalf("ParseFinding: %v", err)
	}
	if len(f.Issues) != 1 {
		t.Fatalf("issues = %d, want 1 (malformed severity is not a crash)", len(f.Issues))
	}
	if schema.IsValidSeverity(f.Issues[0].Severity) {
		t.Errorf("severity %q should be invalid", f.Issues[0].Severity)
	}
}

func TestParseFinding_NotJSON(t *testing.T) {
	if _, err := ParseFinding("I could not produce JSON, sorry."); err == nil {
		t.Error("expected error for non-JSON payload")
	}
}

// --- ParseSynthesized ---

func TestParseSynthesized_WellFormed(t *testing.T) {
	raw := "```json\n" + `{
	  "status": "warning",
	  "hipaa": {"short_summary": "gaps", "issues": [{"type": "t", "severity": "MEDIUM", "explanation": "e"}]},
	  "fda": {"short_summary": "clean", "issues": []},
	  "recommendations": ["Fix it."],
	  "raw_details": {"hipaa_report": {"k": "v"}}
	}` + "\n```"
	rep := ParseSynthesized(raw)
	if rep.Malformed {
		t.Fatal("well-formed report parsed as malformed")
	}
	if rep.Status != schema.StatusWarning {
		t.Errorf("status = %q, want WARNING (case-normalized)", rep.Status)
	}
	if rep.HIPAA == nil || len(rep.HIPAA.Issues) != 1 {
		t.Errorf("hipaa = %+v", rep.HIPAA)
	}
	if rep.FDA == nil || len(rep.FDA.Issues) != 0 {
		t.Errorf("fda = %+v", rep.FDA)
	}
	if rep.RawDetails == nil || len(rep.RawDetails.HIPAAReport) == 0 {
		t.Errorf("raw_details = %+v", rep.RawDetails)
	}
}

func TestParseSynthesized_StatusOnly(t *testing.T) {
	rep := ParseSynthesized(`{"status": "OK"}`)
	if rep.Malformed {
		t.Error("status-only report should be well-formed")
	}
	if rep.Status != schema.StatusOK {
		t.Errorf("status = %q", rep.Status)
	}
}

func TestParseSynthesized_UnrecognizedStatusTreatedAsAbsent(t *testing.T) {
	rep := ParseSynthesized(`{"status": "MAYBE", "hipaa": {"issues": []}}`)
	if rep.Malformed {
		t.Fatal("report with unknown status should not be malformed")
	}
	if rep.Status != "" {
		t.Errorf("status = %q, want absent", rep.Status)
	}
}

func TestParseSynthesized_MalformedShapes(t *testing.T) {
	inputs := []string{"", "not json", "[]", `{"x": 1}`, "null"}
	for _, in := range inputs {
		rep := ParseSynthesized(in)
		if !rep.Malformed {
			t.Errorf("input %q should parse as malformed", in)
		}
		if rep.Raw != in {
			t.Errorf("malformed variant should carry the raw payload, got %q", rep.Raw)
		}
	}
}

func TestParseSynthesized_MalformedDomainIsAbsent(t *testing.T) {
	rep := ParseSynthesized(`{"hipaa": "not an object", "fda": {"issues": []}}`)
	if rep.Malformed {
		t.Fatal("one bad domain should not poison the report")
	}
	if rep.HIPAA != nil {
		t.Errorf("hipaa = %+v, want nil (absent)", rep.HIPAA)
	}
	if rep.FDA == nil {
		t.Error("fda should parse")
	}
}

func TestParseSynthesized_UnshapedRawDetailsKept(t *testing.T) {
	rep := ParseSynthesized(`{"status": "WARNING", "raw_details": ["loose", "breach text"]}`)
	if rep.RawDetails == nil || len(rep.RawDetails.HIPAAReport) == 0 {
		t.Error("unshaped raw_details should still be carried for trigger scanning")
	}
}

// --- Verdict contract ---

func TestCheckVerdict_Valid(t *testing.T) {
	v := schema.Verdict{Status: schema.StatusOK, Reason: "fine", Suggestions: []string{"No action required."}}
	if err := CheckVerdict(v); err != nil {
		t.Errorf("CheckVerdict: %v", err)
	}
}

func TestCheckVerdict_Rejections(t *testing.T) {
	cases := []struct {
		name string
		v    schema.Verdict
	}{
		{"bad status", schema.Verdict{Status: "MAYBE", Reason: "r", Suggestions: []string{"s"}}},
		{"empty reason", schema.Verdict{Status: schema.StatusOK, Reason: " ", Suggestions: []string{"s"}}},
		{"no suggestions", schema.Verdict{Status: schema.StatusOK, Reason: "r"}},
		{"two suggestions", schema.Verdict{Status: schema.StatusOK, Reason: "r", Suggestions: []string{"a", "b"}}},
	}
	for _, tc := range cases {
		if err := CheckVerdict(tc.v); err == nil {
			t.Errorf("%s: expected rejection", tc.name)
		}
	}
}

func TestParseVerdict_RoundTrip(t *testing.T) {
	raw := "```json\n{\"status\": \"VIOLATION\", \"reason\": \"PHI exposed.\", \"suggestions\": [\"Redact it.\"]}\n```"
	v, err := ParseVerdict(raw)
	if err != nil {
		t.Fatalf("ParseVerdict: %v", err)
	}
	if v.Status != schema.StatusViolation || len(v.Suggestions) != 1 {
		t.Errorf("verdict = %+v", v)
	}
}

func TestParseVerdict_RejectsContractViolation(t *testing.T) {
	raw := `{"status": "OK", "reason": "fine", "suggestions": []}`
	if _, err := ParseVerdict(raw); err == nil {
		t.Error("expected contract rejection for empty suggestions")
	}
	if _, err := ParseVerdict("prose, not JSON"); err == nil {
		t.Error("expected parse error for prose")
	}
}
