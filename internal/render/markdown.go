package render

import (
	"bytes"
	"fmt"
	"text/template"

	"github.com/dshills/regcritic/internal/schema"
)

type markdownRenderer struct{}

var mdTemplate = template.Must(template.New("report").Parse(`# RegCritic Report

**Status:** {{ .Verdict.Status }}

{{ .Verdict.Reason }}
{{ range .Verdict.Suggestions }}
**Suggested action:** {{ . }}
{{ end }}{{ if .Synthesized }}{{ if .Synthesized.HIPAA }}
---

## HIPAA

{{ .Synthesized.HIPAA.ShortSummary }}
{{ range .Synthesized.HIPAA.Issues }}
### {{ .Type }} · {{ .Severity }}

{{ .Explanation }}
{{ if .Remediation }}**Remediation:** {{ .Remediation }}
{{ end }}{{ end }}{{ end }}{{ if .Synthesized.FDA }}
---

## FDA

{{ .Synthesized.FDA.ShortSummary }}
{{ range .Synthesized.FDA.Issues }}
### {{ .Type }} · {{ .Severity }}

{{ .Explanation }}
{{ if .Remediation }}**Remediation:** {{ .Remediation }}
{{ end }}{{ end }}{{ end }}{{ if .Synthesized.Recommendations }}
---

## Recommendations
{{ range .Synthesized.Recommendations }}
- {{ . }}{{ end }}
{{ end }}{{ end }}
---
*Model: {{ .Meta.Model }} | Temperature: {{ .Meta.Temperature }}*
`))

func (r *markdownRenderer) Render(report *schema.Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := mdTemplate.Execute(&buf, report); err != nil {
		return nil, fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.Bytes(), nil
}
