package render

import (
	"fmt"

	"github.com/dshills/regcritic/internal/schema"
)

// Renderer formats a Report into bytes for output.
type Renderer interface {
	Render(report *schema.Report) ([]byte, error)
}

// NewRenderer returns a Renderer for the given format string.
// Supported formats: "block" (default; the fenced verdict contract surface),
// "json" (full report), "md".
func NewRenderer(format string) (Renderer, error) {
	switch format {
	case "block":
		return &blockRenderer{}, nil
	case "json":
		return &jsonRenderer{}, nil
	case "md":
		return &markdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("unknown format %q: supported formats are block, json, md", format)
	}
}
