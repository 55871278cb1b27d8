package render

import (
	"encoding/json"
	"fmt"

	"github.com/dshills/regcritic/internal/escalate"
	"github.com/dshills/regcritic/internal/schema"
	"github.com/dshills/regcritic/internal/schema/validate"
)

// blockRenderer emits the verdict as a single fenced JSON block with exactly
// the three contract fields and no extra commentary. Downstream automation
// parses this block, so the shape is a hard postcondition.
type blockRenderer struct{}

func (r *blockRenderer) Render(report *schema.Report) ([]byte, error) {
	return VerdictBlock(report.Verdict)
}

// VerdictBlock renders a verdict as the fenced contract block. A verdict
// violating the output contract is repaired to the canonical fallback rather
// than emitted: the caller-facing surface never carries a malformed verdict.
func VerdictBlock(v schema.Verdict) ([]byte, error) {
	if err := validate.CheckVerdict(v); err != nil {
		v = escalate.Fallback()
	}
	// Re-marshal through an anonymous struct so only the three contract
	// fields can ever appear, regardless of future schema.Verdict growth.
	out := struct {
		Status      schema.Status `json:"status"`
		Reason      string        `json:"reason"`
		Suggestions []string      `json:"suggestions"`
	}{v.Status, v.Reason, v.Suggestions}

	b, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("rendering verdict block: %w", err)
	}
	return []byte("```json\n" + string(b) + "\n```\n"), nil
}
