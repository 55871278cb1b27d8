// Package query loads the scan input: a free-text description of a system
// or planned action, read from a file or stdin.
package query

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dshills/regcritic/internal/redact"
)

// Query holds the loaded scan input with derived metadata.
type Query struct {
	Source   string // file path, or "stdin"
	Hash     string // "sha256:<hex>", computed before redaction
	Raw      string // original content
	Redacted string // credential-redacted content sent to models
}

// Load reads the query from path, or from stdin when path is "-".
// The hash covers the original bytes; redaction happens after hashing.
func Load(path string, stdin io.Reader) (*Query, error) {
	var data []byte
	var err error
	source := path
	if path == "-" {
		source = "stdin"
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("reading query from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading query file: %w", err)
		}
	}

	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return nil, fmt.Errorf("query is empty")
	}

	sum := sha256.Sum256(data)
	return &Query{
		Source:   source,
		Hash:     fmt.Sprintf("sha256:%x", sum),
		Raw:      raw,
		Redacted: redact.Redact(raw),
	}, nil
}
