package regs

// Part11Summary summarizes FDA 21 CFR Part 11.
const Part11Summary = `21 CFR Part 11 (summary):
- Governs electronic records and signatures used in FDA-regulated activities.
- Requires systems to ensure record integrity, secure user accounts, audit trails, and signature linking to records.
- Controls must prevent unauthorized changes and ensure traceability.`

// Part11RecordsGuidance covers electronic record-keeping controls.
const Part11RecordsGuidance = `Part 11 Records Guidance:
- Maintain audit trails that capture who, when, and what changed for records.
- Ensure records are tamper-evident and retained per retention policy.`

// Part11SignaturesGuidance covers electronic signature controls.
const Part11SignaturesGuidance = `Part 11 Signatures Guidance:
- Electronic signatures must be unique to a user and linked to their records.
- Use controls for identity proofing, password/2FA, and prevent signature repudiation.`
