// Package specialist defines the five single-topic compliance producers.
// Each specialist wraps one LLM call: a pass-through scan collects input
// metadata, the model analyzes the query, and the response is defensively
// parsed into a finding set. Nothing here ever fails the pipeline — internal
// errors become error-shaped findings.
package specialist

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dshills/regcritic/internal/llm"
	"github.com/dshills/regcritic/internal/policy"
	"github.com/dshills/regcritic/internal/regs"
	"github.com/dshills/regcritic/internal/schema"
	"github.com/dshills/regcritic/internal/schema/validate"
)

// Specialist is one single-topic compliance producer.
type Specialist struct {
	Name         string // stable key used in domain report raw maps
	Domain       schema.Domain
	AnalysisType string // tag recorded in scan metadata
	Instruction  string // role-specific prompt text, including regulation references
}

// All lists every specialist in fixed submission order. Domain aggregation
// reassembles issues in this order regardless of completion order, so the
// order here is load-bearing for reason tie-breaking.
var All = []Specialist{
	{
		Name:         "privacy",
		Domain:       schema.DomainHIPAA,
		AnalysisType: "privacy_rule",
		Instruction: `You are a HIPAA Privacy Rule specialist. Check for: authorization for use and
disclosure of PHI, minimum necessary standards, patient consent, Notice of
Privacy Practices, access controls on PHI, sharing with unauthorized parties
(e.g. partner clinics without a BAA), patients' rights (access, amendment,
accounting of disclosures), use limited to treatment, payment, or healthcare
operations, and safeguards against incidental disclosures.

` + regs.HIPAAPrivacySummary,
	},
	{
		Name:         "security",
		Domain:       schema.DomainHIPAA,
		AnalysisType: "security_rule",
		Instruction: `You are a HIPAA Security Rule specialist. Check for: administrative, physical,
and technical safeguards for ePHI, access control and unique user
identification, audit controls, integrity controls, transmission security
(encryption in transit and at rest), workstation and device security, and
contingency planning.

` + regs.HIPAASecuritySummary,
	},
	{
		Name:         "breach",
		Domain:       schema.DomainHIPAA,
		AnalysisType: "breach_notification",
		Instruction: `You are a HIPAA Breach Notification specialist. Check for: indications that
unsecured PHI was acquired, accessed, used, or disclosed impermissibly,
whether a breach risk assessment is needed, notification obligations to
individuals, HHS, and media, and notification timeliness requirements.

` + regs.HIPAABreachSummary,
	},
	{
		Name:         "records",
		Domain:       schema.DomainFDA,
		AnalysisType: "electronic_records",
		Instruction: `You are a Part 11 Records specialist for FDA 21 CFR Part 11 compliance.
Check for: record integrity controls, complete and tamper-proof audit trails,
accurate timestamping from secure time sources, defined and enforced
retention policies, availability of records for FDA inspection, controls
against unauthorized access or modification, and record versioning and
archival.

` + regs.Part11Summary + "\n\n" + regs.Part11RecordsGuidance,
	},
	{
		Name:         "signatures",
		Domain:       schema.DomainFDA,
		AnalysisType: "electronic_signatures",
		Instruction: `You are a Part 11 Signatures specialist for FDA 21 CFR Part 11 compliance.
Check for: signature uniqueness and linkage to records, identity proofing,
password and two-factor controls, non-repudiation, signature manifestation
(printed name, date/time, meaning), and controls preventing signature
falsification or reuse.

` + regs.Part11Summary + "\n\n" + regs.Part11SignaturesGuidance,
	},
}

// ByDomain returns the specialists for one domain in fixed order.
func ByDomain(d schema.Domain) []Specialist {
	out := make([]Specialist, 0, 3)
	for _, s := range All {
		if s.Domain == d {
			out = append(out, s)
		}
	}
	return out
}

// Scan is the pass-through collection stub at the specialist boundary.
// It forwards the query plus metadata for model analysis and never panics
// past this boundary: any internal failure returns the error-shaped variant.
func (s Specialist) Scan(query string) schema.ScanResult {
	defer func() {
		// The stub has no failure modes today, but the boundary contract is
		// that nothing propagates; recover guards future collection logic.
		recover() //nolint:errcheck
	}()
	now := float64(time.Now().UnixNano()) / 1e9
	return schema.ScanResult{
		Result: map[string]any{
			"user_query": query,
			"context":    fmt.Sprintf("Analyzing for %s %s compliance", s.Domain, s.AnalysisType),
		},
		Stats: schema.ScanStats{
			QueryLength:       len(query),
			AnalysisTimestamp: now,
		},
		AdditionalInfo: schema.ScanInfo{
			CollectedAt:  now,
			DataFormat:   "dict",
			AnalysisType: s.AnalysisType,
		},
	}
}

// errScanResult builds the failure shape of the scan contract.
func errScanResult(name string, err error) schema.ScanResult {
	success := false
	return schema.ScanResult{
		Result: map[string]any{"error": fmt.Sprintf("scan_%s failed: %v", name, err)},
		Stats:  schema.ScanStats{Success: &success},
		AdditionalInfo: schema.ScanInfo{
			ErrorType: fmt.Sprintf("%T", err),
		},
	}
}

// Run executes one specialist: scan, model call, defensive parse.
// It never returns an error — a failed call or unparseable response becomes
// an error-shaped finding with no issues, which downstream stages treat as
// "no data" rather than a pipeline abort.
func (s Specialist) Run(ctx context.Context, provider llm.Provider, req *llm.Request, query string, docs []policy.Document) schema.Finding {
	scan := s.Scan(query)
	scanJSON, err := json.Marshal(scan)
	if err != nil {
		scanJSON, _ = json.Marshal(errScanResult(s.Name, err)) //nolint:errcheck
	}

	callReq := &llm.Request{
		SystemPrompt: llm.BuildSpecialistSystemPrompt(s.Instruction),
		UserPrompt:   llm.BuildSpecialistUserPrompt(query, scanJSON, docs),
		Temperature:  req.Temperature,
		MaxTokens:    req.MaxTokens,
		Model:        req.Model,
	}

	resp, err := provider.Complete(ctx, callReq)
	if err != nil {
		return schema.Finding{
			Specialist: s.Name,
			Err:        fmt.Sprintf("specialist %s call failed: %v", s.Name, err),
		}
	}

	finding, err := validate.ParseFinding(resp.Content)
	if err != nil {
		return schema.Finding{
			Specialist: s.Name,
			Raw:        json.RawMessage(mustJSONString(resp.Content)),
			Err:        fmt.Sprintf("specialist %s output unparseable: %v", s.Name, err),
		}
	}
	finding.Specialist = s.Name
	return *finding
}

// mustJSONString wraps arbitrary text as a JSON string so it can ride in a
// json.RawMessage field without corrupting the enclosing document.
func mustJSONString(s string) []byte {
	b, err := json.Marshal(s)
	if err != nil {
		return []byte(`""`)
	}
	return b
}
