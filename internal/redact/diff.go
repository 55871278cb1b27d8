package redact

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

// Diff returns a patch-format description of what Redact changed, for
// --show-redactions output. Empty when nothing was redacted.
func Diff(original string) string {
	cleaned := Redact(original)
	if cleaned == original {
		return ""
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(normalize(original), normalize(cleaned), false)
	patches := dmp.PatchMake(normalize(original), diffs)
	return dmp.PatchToText(patches)
}

// normalize trims trailing whitespace from each line and converts CRLF to LF
// so the patch is free of spurious whitespace hunks.
func normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
