package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/dshills/regcritic/internal/llm"
	"github.com/dshills/regcritic/internal/schema"
	"github.com/dshills/regcritic/internal/specialist"
)

// fakeProvider returns canned content keyed by a substring of the system
// prompt, which identifies the specialist. Unmatched prompts fall through to
// the default payload.
type fakeProvider struct {
	bySpecialist map[string]string // system-prompt substring -> response content
	defaultBody  string
	err          error
}

func (p *fakeProvider) Complete(_ context.Context, req *llm.Request) (*llm.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	for marker, body := range p.bySpecialist {
		if strings.Contains(req.SystemPrompt, marker) {
			return &llm.Response{Content: body, Model: "fake:model"}, nil
		}
	}
	return &llm.Response{Content: p.defaultBody, Model: "fake:model"}, nil
}

const cleanFinding = "```json\n{\"short_summary\": \"No issues found.\", \"issues\": []}\n```"

func findingWithIssue(summary, typ, severity, explanation string) string {
	return fmt.Sprintf("```json\n{%q: %q, \"issues\": [{\"type\": %q, \"severity\": %q, \"explanation\": %q}]}\n```",
		"short_summary", summary, typ, severity, explanation)
}

func TestRun_AllClearIsOK(t *testing.T) {
	p := &Pipeline{Provider: &fakeProvider{defaultBody: cleanFinding}}
	result, err := p.Run(context.Background(), "routine status report", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict.Status != schema.StatusOK {
		t.Errorf("status = %s, want OK", result.Verdict.Status)
	}
	if result.Synthesized.Malformed {
		t.Error("synthesized boundary should parse cleanly")
	}
}

func TestRun_HIPAAIssueEscalates(t *testing.T) {
	p := &Pipeline{Provider: &fakeProvider{
		bySpecialist: map[string]string{
			"Privacy Rule specialist": findingWithIssue(
				"PHI exposure found.", "phi-disclosure", "CRITICAL", "patient name: Jane Doe in export"),
		},
		defaultBody: cleanFinding,
	}}
	result, err := p.Run(context.Background(), "exporting charts", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict.Status != schema.StatusViolation {
		t.Errorf("status = %s, want VIOLATION", result.Verdict.Status)
	}
	if !strings.Contains(result.Verdict.Reason, "HIPAA") {
		t.Errorf("reason %q does not name HIPAA", result.Verdict.Reason)
	}
}

func TestRun_ProviderFailureDegradesToFallbackSafety(t *testing.T) {
	// Every specialist fails: all findings are error-shaped, both domains
	// merge to zero issues, and the verdict is still complete.
	p := &Pipeline{Provider: &fakeProvider{err: fmt.Errorf("connection refused")}}
	result, err := p.Run(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Run should not fail on specialist errors: %v", err)
	}
	if len(result.Verdict.Suggestions) != 1 {
		t.Errorf("suggestions = %v, want exactly 1", result.Verdict.Suggestions)
	}
}

func TestRun_UnparseableModelOutputIsNoData(t *testing.T) {
	p := &Pipeline{Provider: &fakeProvider{defaultBody: "I refuse to answer in JSON."}}
	result, err := p.Run(context.Background(), "anything", nil)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.Verdict.Status == "" {
		t.Error("verdict status missing")
	}
}

func TestRun_NilProvider(t *testing.T) {
	p := &Pipeline{}
	if _, err := p.Run(context.Background(), "q", nil); err == nil {
		t.Error("expected error for missing provider")
	}
}

// --- Aggregation ---

func TestAggregate_FixedSpecialistOrder(t *testing.T) {
	// Findings supplied in scrambled order; issues must come out in fixed
	// specialist order (privacy, security, breach).
	findings := []schema.Finding{
		{Specialist: "breach", Issues: []schema.Issue{{Type: "from-breach", Explanation: "c"}}},
		{Specialist: "privacy", Issues: []schema.Issue{{Type: "from-privacy", Explanation: "a"}}},
		{Specialist: "security", Issues: []schema.Issue{{Type: "from-security", Explanation: "b"}}},
	}
	report := Aggregate(schema.DomainHIPAA, findings)
	if len(report.Issues) != 3 {
		t.Fatalf("issues = %d, want 3", len(report.Issues))
	}
	want := []string{"from-privacy", "from-security", "from-breach"}
	for i, typ := range want {
		if report.Issues[i].Type != typ {
			t.Errorf("issue[%d].Type = %q, want %q", i, report.Issues[i].Type, typ)
		}
	}
}

func TestAggregate_PreservesRawPerSpecialist(t *testing.T) {
	findings := []schema.Finding{
		{Specialist: "records", Raw: json.RawMessage(`{"r": 1}`)},
		{Specialist: "signatures", Raw: json.RawMessage(`{"s": 2}`)},
	}
	report := Aggregate(schema.DomainFDA, findings)
	if len(report.Raw) != 2 {
		t.Fatalf("raw = %v, want 2 entries", report.Raw)
	}
	if _, ok := report.Raw["records"]; !ok {
		t.Error("raw missing records payload")
	}
}

func TestAggregate_IgnoresOtherDomain(t *testing.T) {
	findings := []schema.Finding{
		{Specialist: "privacy", Issues: []schema.Issue{{Type: "h", Explanation: "x"}}},
		{Specialist: "records", Issues: []schema.Issue{{Type: "f", Explanation: "y"}}},
	}
	report := Aggregate(schema.DomainFDA, findings)
	if len(report.Issues) != 1 || report.Issues[0].Type != "f" {
		t.Errorf("issues = %+v, want only FDA findings", report.Issues)
	}
}

func TestAggregate_DegradedSummary(t *testing.T) {
	findings := []schema.Finding{
		{Specialist: "privacy", Err: "call failed"},
		{Specialist: "security", Err: "call failed"},
		{Specialist: "breach", Err: "call failed"},
	}
	report := Aggregate(schema.DomainHIPAA, findings)
	if !strings.Contains(report.ShortSummary, "incomplete") {
		t.Errorf("summary %q should mention degraded analysis", report.ShortSummary)
	}
}

// --- Synthesis ---

func TestSynthesize_OKOnlyWhenBothClean(t *testing.T) {
	clean := &schema.DomainReport{}
	dirty := &schema.DomainReport{Issues: []schema.Issue{{Type: "t", Explanation: "e"}}}

	if rep := Synthesize(clean, clean); rep.Status != schema.StatusOK {
		t.Errorf("both clean: status = %q, want OK", rep.Status)
	}
	if rep := Synthesize(dirty, clean); rep.Status != "" {
		t.Errorf("dirty hipaa: status = %q, want absent", rep.Status)
	}
	if rep := Synthesize(clean, dirty); rep.Status != "" {
		t.Errorf("dirty fda: status = %q, want absent", rep.Status)
	}
}

func TestSynthesize_CollectsDedupedRecommendations(t *testing.T) {
	hipaa := &schema.DomainReport{Issues: []schema.Issue{
		{Type: "a", Explanation: "x", Remediation: "Encrypt the export."},
		{Type: "b", Explanation: "y", Remediation: "Encrypt the export."},
	}}
	fda := &schema.DomainReport{Issues: []schema.Issue{
		{Type: "c", Explanation: "z", Remediation: "Enable audit trails."},
	}}
	rep := Synthesize(hipaa, fda)
	if len(rep.Recommendations) != 2 {
		t.Fatalf("recommendations = %v, want 2 deduped", rep.Recommendations)
	}
	if rep.Recommendations[0] != "Encrypt the export." {
		t.Errorf("recommendations[0] = %q, want HIPAA remediation first", rep.Recommendations[0])
	}
}

func TestSynthesizeBlock_IsFencedAndReparseable(t *testing.T) {
	block := SynthesizeBlock(&schema.DomainReport{}, &schema.DomainReport{})
	if !strings.HasPrefix(block, "```json\n") || !strings.HasSuffix(block, "\n```") {
		t.Errorf("block is not fenced: %q", block)
	}
}

func TestSpecialistRegistryOrder(t *testing.T) {
	// The fixed order is load-bearing for tie-breaking; lock it down.
	want := []string{"privacy", "security", "breach", "records", "signatures"}
	if len(specialist.All) != len(want) {
		t.Fatalf("specialists = %d, want %d", len(specialist.All), len(want))
	}
	for i, name := range want {
		if specialist.All[i].Name != name {
			t.Errorf("specialist[%d] = %q, want %q", i, specialist.All[i].Name, name)
		}
	}
}
