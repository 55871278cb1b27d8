// Package policy loads organization policy documents (BAAs, SOPs, retention
// schedules) that ground the specialists' analysis. Every document is
// credential-redacted before it can reach a model prompt.
package policy

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/dshills/regcritic/internal/redact"
)

// Document holds a loaded policy document after redaction.
type Document struct {
	Path    string
	Content string // after redaction
}

// Load reads a list of policy documents from disk and redacts each one.
func Load(paths []string) ([]Document, error) {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		content, err := redact.RedactFile(p)
		if err != nil {
			return nil, fmt.Errorf("loading policy document %q: %w", p, err)
		}
		docs = append(docs, Document{
			Path:    p,
			Content: content,
		})
	}
	return docs, nil
}

// FormatForPrompt wraps each policy document in XML-style tags for prompt insertion.
func FormatForPrompt(docs []Document) string {
	if len(docs) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, d := range docs {
		name := filepath.Base(d.Path)
		sb.WriteString(fmt.Sprintf("<policy file=%q>\n", name))
		sb.WriteString(d.Content)
		if !strings.HasSuffix(d.Content, "\n") {
			sb.WriteString("\n")
		}
		sb.WriteString("</policy>\n")
	}
	return sb.String()
}
