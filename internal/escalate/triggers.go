package escalate

import "strings"

// baseTriggers is the fixed set of case-insensitive substrings whose
// presence in findings text forces escalation to VIOLATION. Order matters:
// when one text block contains several triggers, the first in this list wins.
var baseTriggers = []string{
	"violation",
	"unauthorized",
	"exposed",
	"ssn",
	"social security",
	"patient name",
	"hospitalization",
	"death",
	"serious adverse",
	"immediate report",
	"breach",
	"leak",
}

// Triggers returns a copy of the built-in severity trigger list.
func Triggers() []string {
	out := make([]string, len(baseTriggers))
	copy(out, baseTriggers)
	return out
}

// findTrigger scans text for the first matching trigger in list order.
// Matching is a plain case-insensitive substring test.
func findTrigger(triggers []string, text string) (string, bool) {
	if text == "" {
		return "", false
	}
	lower := strings.ToLower(text)
	for _, trig := range triggers {
		if strings.Contains(lower, trig) {
			return trig, true
		}
	}
	return "", false
}
