// Package pipeline runs the four-stage scan: specialists fan out
// concurrently, domain aggregators and the cross-domain synthesizer fan in,
// and the escalation resolver produces the final verdict. Stage boundaries
// are fenced JSON blocks parsed defensively, so a degraded stage never
// aborts the run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/regcritic/internal/escalate"
	"github.com/dshills/regcritic/internal/llm"
	"github.com/dshills/regcritic/internal/policy"
	"github.com/dshills/regcritic/internal/schema"
	"github.com/dshills/regcritic/internal/schema/validate"
	"github.com/dshills/regcritic/internal/specialist"
)

// Pipeline holds the immutable configuration for scan runs.
type Pipeline struct {
	Provider llm.Provider
	Resolver *escalate.Resolver

	Temperature float64
	MaxTokens   int

	// Logf receives verbose progress lines; nil disables logging.
	Logf func(format string, args ...any)
}

// Result is the outcome of one pipeline run.
type Result struct {
	Verdict     schema.Verdict
	Synthesized *schema.SynthesizedReport
	// SynthesizedBlock is the fenced JSON stage boundary the verdict was
	// derived from, kept for --format json raw output.
	SynthesizedBlock string
}

// Run executes the full pipeline for one query. The returned error covers
// infrastructure misuse only (nil provider); specialist and parse failures
// degrade into the verdict instead.
func (p *Pipeline) Run(ctx context.Context, query string, docs []policy.Document) (*Result, error) {
	if p.Provider == nil {
		return nil, fmt.Errorf("pipeline has no LLM provider")
	}
	resolver := p.Resolver
	if resolver == nil {
		resolver = escalate.NewResolver()
	}

	findings := p.gather(ctx, query, docs)

	hipaa := Aggregate(schema.DomainHIPAA, findings)
	fda := Aggregate(schema.DomainFDA, findings)
	p.logf("aggregated findings: hipaa=%d issues, fda=%d issues", len(hipaa.Issues), len(fda.Issues))

	block := SynthesizeBlock(hipaa, fda)

	// Reparse the rendered boundary: the resolver must only ever see what a
	// downstream consumer of the block would see.
	rep := validate.ParseSynthesized(block)
	verdict := resolver.Resolve(rep)
	p.logf("resolved status: %s", verdict.Status)

	return &Result{
		Verdict:     verdict,
		Synthesized: rep,
		SynthesizedBlock: block,
	}, nil
}

// gather fans out all specialists concurrently and reassembles their
// findings in fixed specialist order, not arrival order.
func (p *Pipeline) gather(ctx context.Context, query string, docs []policy.Document) []schema.Finding {
	req := &llm.Request{Temperature: p.Temperature, MaxTokens: p.MaxTokens}
	findings := make([]schema.Finding, len(specialist.All))

	g, gctx := errgroup.WithContext(ctx)
	for i, sp := range specialist.All {
		i, sp := i, sp
		g.Go(func() error {
			p.logf("specialist %s (%s) running", sp.Name, sp.Domain)
			findings[i] = sp.Run(gctx, p.Provider, req, query, docs)
			if findings[i].Err != "" {
				p.logf("specialist %s degraded: %s", sp.Name, findings[i].Err)
			}
			return nil // specialist failures never abort the group
		})
	}
	g.Wait() //nolint:errcheck // goroutines always return nil

	return findings
}

// Aggregate merges one domain's specialist findings into a domain report.
// Issues concatenate in fixed specialist order; per-specialist raw output is
// preserved under the specialist's name.
func Aggregate(domain schema.Domain, findings []schema.Finding) *schema.DomainReport {
	report := &schema.DomainReport{Raw: map[string]json.RawMessage{}}

	var summaries []string
	degraded := 0
	for _, sp := range specialist.ByDomain(domain) {
		f, ok := findingFor(sp.Name, findings)
		if !ok {
			continue
		}
		report.Issues = append(report.Issues, f.Issues...)
		if f.ShortSummary != "" {
			summaries = append(summaries, f.ShortSummary)
		}
		if f.Err != "" {
			degraded++
		}
		if len(f.Raw) > 0 {
			report.Raw[sp.Name] = f.Raw
		}
	}

	report.ShortSummary = summarize(domain, len(report.Issues), degraded, summaries)
	if len(report.Raw) == 0 {
		report.Raw = nil
	}
	return report
}

func findingFor(name string, findings []schema.Finding) (schema.Finding, bool) {
	for _, f := range findings {
		if f.Specialist == name {
			return f, true
		}
	}
	return schema.Finding{}, false
}

// summarize produces the domain short_summary: the first specialist summary
// when present, else a count-based fallback.
func summarize(domain schema.Domain, issueCount, degraded int, summaries []string) string {
	if len(summaries) > 0 {
		return summaries[0]
	}
	switch {
	case degraded > 0:
		return fmt.Sprintf("%s analysis incomplete: %d specialist(s) returned no data.", domain, degraded)
	case issueCount == 0:
		return fmt.Sprintf("No %s issues detected.", domain)
	default:
		return fmt.Sprintf("%d %s issue(s) detected.", issueCount, domain)
	}
}

// Synthesize merges the two domain reports. Status is computed only in the
// unambiguous all-clear case; otherwise it is left absent for the resolver,
// which is the authority of record.
func Synthesize(hipaa, fda *schema.DomainReport) *schema.SynthesizedReport {
	rep := &schema.SynthesizedReport{
		HIPAA: hipaa,
		FDA:   fda,
	}

	if len(hipaa.Issues) == 0 && len(fda.Issues) == 0 {
		rep.Status = schema.StatusOK
	}

	rep.Recommendations = collectRecommendations(hipaa, fda)

	hipaaRaw, err := json.Marshal(hipaa)
	if err == nil {
		fdaRaw, err := json.Marshal(fda)
		if err == nil {
			rep.RawDetails = &schema.RawDetails{
				HIPAAReport: hipaaRaw,
				FDAReport:   fdaRaw,
			}
		}
	}
	return rep
}

// collectRecommendations gathers deduplicated remediation texts in issue
// order, HIPAA before FDA.
func collectRecommendations(reports ...*schema.DomainReport) []string {
	var recs []string
	seen := map[string]bool{}
	for _, r := range reports {
		if r == nil {
			continue
		}
		for _, issue := range r.Issues {
			if issue.Remediation == "" || seen[issue.Remediation] {
				continue
			}
			seen[issue.Remediation] = true
			recs = append(recs, issue.Remediation)
		}
	}
	return recs
}

// SynthesizeBlock renders the synthesized report as the fenced JSON stage
// boundary consumed by the resolver and by callers of --format json.
func SynthesizeBlock(hipaa, fda *schema.DomainReport) string {
	rep := Synthesize(hipaa, fda)
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		// Unreachable with these types; the resolver treats it as malformed.
		return ""
	}
	return "```json\n" + string(b) + "\n```"
}

func (p *Pipeline) logf(format string, args ...any) {
	if p.Logf != nil {
		p.Logf(format, args...)
	}
}
