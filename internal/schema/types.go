package schema

import "encoding/json"

// Status is the overall compliance state derived for a scan.
type Status string

const (
	StatusOK        Status = "OK"
	StatusWarning   Status = "WARNING"
	StatusViolation Status = "VIOLATION"
)

// StatusOrdinal returns the numeric ordering for a status, used by --fail-on
// comparison. OK(0) < WARNING(1) < VIOLATION(2).
// Returns -1 for an unrecognised status.
func StatusOrdinal(s Status) int {
	switch s {
	case StatusOK:
		return 0
	case StatusWarning:
		return 1
	case StatusViolation:
		return 2
	default:
		return -1
	}
}

// Severity levels for compliance issues.
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
)

// IsValidSeverity reports whether s is one of the 4 defined severity levels.
// An unrecognised severity marks a malformed issue, never a crash.
func IsValidSeverity(s Severity) bool {
	switch s {
	case SeverityCritical, SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Domain identifies a regulatory area.
type Domain string

const (
	DomainHIPAA Domain = "HIPAA"
	DomainFDA   Domain = "FDA"
)

// Issue is a single compliance finding.
type Issue struct {
	Type        string   `json:"type"`
	Severity    Severity `json:"severity"`
	Explanation string   `json:"explanation"`
	Remediation string   `json:"remediation,omitempty"`
}

// Finding is one specialist's parsed output.
type Finding struct {
	Specialist   string          `json:"specialist"`
	ShortSummary string          `json:"short_summary"`
	Issues       []Issue         `json:"issues"`
	Raw          json.RawMessage `json:"raw,omitempty"`
	// Err is set when the specialist failed internally or returned
	// unparseable output. Downstream stages treat it as "no data".
	Err string `json:"error,omitempty"`
}

// DomainReport is the merged output of one domain's specialists.
// Issues preserve fixed specialist order, not arrival order.
type DomainReport struct {
	ShortSummary string                     `json:"short_summary"`
	Issues       []Issue                    `json:"issues"`
	Raw          map[string]json.RawMessage `json:"raw,omitempty"`
}

// RawDetails carries the opaque domain payloads through the synthesizer.
type RawDetails struct {
	HIPAAReport json.RawMessage `json:"hipaa_report,omitempty"`
	FDAReport   json.RawMessage `json:"fda_report,omitempty"`
}

// SynthesizedReport is the cross-domain merge. Every field may be absent
// or invalid; the escalation resolver is the authority of record and does
// not fully trust any of them.
//
// Malformed is the explicit bad-payload variant: when set, no other field
// is meaningful and Raw holds the unparsed payload.
type SynthesizedReport struct {
	Status          Status        `json:"status,omitempty"`
	HIPAA           *DomainReport `json:"hipaa,omitempty"`
	FDA             *DomainReport `json:"fda,omitempty"`
	Recommendations []string      `json:"recommendations,omitempty"`
	RawDetails      *RawDetails   `json:"raw_details,omitempty"`

	Malformed bool   `json:"-"`
	Raw       string `json:"-"`
}

// Verdict is the final output of the escalation resolver — the only
// contractually-guaranteed structured artifact of the whole pipeline.
// Suggestions always has length exactly 1.
type Verdict struct {
	Status      Status   `json:"status"`
	Reason      string   `json:"reason"`
	Suggestions []string `json:"suggestions"`
}

// ScanStats captures counters from a specialist scan.
type ScanStats struct {
	QueryLength       int     `json:"query_length,omitempty"`
	AnalysisTimestamp float64 `json:"analysis_timestamp,omitempty"`
	Success           *bool   `json:"success,omitempty"`
}

// ScanInfo carries collection metadata from a specialist scan.
type ScanInfo struct {
	CollectedAt  float64 `json:"collected_at,omitempty"`
	DataFormat   string  `json:"data_format,omitempty"`
	AnalysisType string  `json:"analysis_type,omitempty"`
	ErrorType    string  `json:"error_type,omitempty"`
}

// ScanResult is the specialist-boundary contract: a scan returns this
// shape on success and an error-shaped variant of it on internal failure.
// Nothing ever panics past this boundary.
type ScanResult struct {
	Result         map[string]any `json:"result"`
	Stats          ScanStats      `json:"stats"`
	AdditionalInfo ScanInfo       `json:"additional_info"`
}

// Report is the full tool output for --format json.
type Report struct {
	Tool        string             `json:"tool"`
	Version     string             `json:"version"`
	Input       Input              `json:"input"`
	Verdict     Verdict            `json:"verdict"`
	Synthesized *SynthesizedReport `json:"synthesized,omitempty"`
	Meta        Meta               `json:"meta"`
}

// Input captures the parameters used for this run.
type Input struct {
	Source      string   `json:"source"`
	QueryHash   string   `json:"query_hash"` // SHA-256 of the original query, computed before redaction
	PolicyFiles []string `json:"policy_files,omitempty"`
}

// Meta holds runtime metadata about the LLM calls.
type Meta struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	SessionID   string  `json:"session_id,omitempty"`
}
