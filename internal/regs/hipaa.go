// Package regs holds short regulation reference texts injected into
// specialist prompts. These are intentionally brief summaries for grounding
// the model, not a substitute for legal counsel.
package regs

// HIPAAPrivacySummary summarizes the HIPAA Privacy Rule.
const HIPAAPrivacySummary = `HIPAA Privacy Rule (summary):
- Protects individually identifiable health information (PHI).
- Requires appropriate safeguards and limits on disclosure without patient authorization.
- Patients have rights to access their PHI and request amendments.`

// HIPAASecuritySummary summarizes the HIPAA Security Rule.
const HIPAASecuritySummary = `HIPAA Security Rule (summary):
- Requires administrative, physical, and technical safeguards to protect electronic PHI (ePHI).
- Includes access control, audit controls, integrity controls, and transmission security.`

// HIPAABreachSummary summarizes HIPAA Breach Notification requirements.
const HIPAABreachSummary = `HIPAA Breach Notification (summary):
- If there is a breach of unsecured PHI, covered entities must notify affected individuals,
  HHS, and sometimes media depending on size and scope.
- Notification timelines, thresholds, and exceptions depend on breach size and risk assessment.`
