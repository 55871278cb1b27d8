package llm

import (
	"fmt"
	"strings"

	"github.com/dshills/regcritic/internal/policy"
)

const specialistPromptBase = `You are a regulatory compliance specialist. Your job is to identify compliance
issues in a user's description of their system, plans, or data handling.

Severity rules:
- CRITICAL: active noncompliance requiring immediate mitigation
- HIGH: likely noncompliance; must be resolved before proceeding
- MEDIUM: compliance gap; should be resolved
- LOW: improvement opportunity; does not block

Anti-hallucination rules:
- Only flag issues supported by the provided query or policy documents
- Do not invent facts about the user's system
- If no issues are found, return an empty issues list — an empty list is a valid answer

Output rules:
- Return a single fenced JSON block (` + "```json ... ```" + `) and nothing else
- JSON must match the provided schema exactly
- Do not include an overall status — that is computed externally`

const specialistSchemaExample = `{
  "short_summary": "One or two sentence overview of compliance status",
  "issues": [
    {
      "type": "short category of the issue",
      "severity": "CRITICAL | HIGH | MEDIUM | LOW",
      "explanation": "what is noncompliant and why",
      "remediation": "specific corrective action"
    }
  ],
  "raw": {}
}`

// BuildSpecialistSystemPrompt combines the shared specialist role with one
// specialist's instruction text and regulation references.
func BuildSpecialistSystemPrompt(instruction string) string {
	var sb strings.Builder
	sb.WriteString(specialistPromptBase)
	if instruction != "" {
		sb.WriteString("\n\n")
		sb.WriteString(instruction)
	}
	return sb.String()
}

// BuildSpecialistUserPrompt constructs the user prompt with the query, the
// scan metadata, optional policy documents, and the JSON schema example.
func BuildSpecialistUserPrompt(query string, scanJSON []byte, docs []policy.Document) string {
	var sb strings.Builder

	sb.WriteString("Analyze the following query for compliance issues.\n\n")

	sb.WriteString("<query>\n")
	sb.WriteString(query)
	if !strings.HasSuffix(query, "\n") {
		sb.WriteString("\n")
	}
	sb.WriteString("</query>\n")

	if len(scanJSON) > 0 {
		sb.WriteString(fmt.Sprintf("\n<scan>\n%s\n</scan>\n", scanJSON))
	}

	if len(docs) > 0 {
		sb.WriteString("\n")
		sb.WriteString(policy.FormatForPrompt(docs))
	}

	sb.WriteString("\nReturn your findings as JSON with this structure:\n")
	sb.WriteString(specialistSchemaExample)

	return sb.String()
}
