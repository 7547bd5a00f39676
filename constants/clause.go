package constants

// ClauseType is a legal clause category the classifier may emit.
type ClauseType string

const (
	ArbitrationClause ClauseType = "arbitration_clause"
	IndemnityClause   ClauseType = "indemnity_clause"
)

// ClauseConfidenceThreshold is the exclusive lower bound a classification must exceed.
const ClauseConfidenceThreshold = 0.7

// MinClauseSentenceLen is the minimum rune length of a clause candidate.
const MinClauseSentenceLen = 11

var recordedClauses = []ClauseType{ArbitrationClause, IndemnityClause}

// ClauseLabels returns the labels that are recorded as clauses.
func ClauseLabels() []string {
	out := make([]string, len(recordedClauses))
	for i, c := range recordedClauses {
		out[i] = string(c)
	}
	return out
}

// ParseClauseType maps a classifier label onto a recorded clause type.
func ParseClauseType(label string) (ClauseType, bool) {
	for _, c := range recordedClauses {
		if label == string(c) {
			return c, true
		}
	}
	return "", false
}

// Relationship actions recorded by the dependency pass.
const (
	ActionSubmitted = "submitted"
	ActionFiled     = "filed"
)

// IsClaimAction reports whether verb is one of the recorded claim actions.
func IsClaimAction(verb string) bool {
	return verb == ActionSubmitted || verb == ActionFiled
}
