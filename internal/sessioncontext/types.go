// Package sessioncontext fans out the three concurrent LLM calls
// (general-intent, clinical-intent, insights) described in the
// specification's §4.C, merges their outputs, and emits a SessionContext
// consumed by every downstream component.
package sessioncontext

// LikelySubspecialty is a subspecialty name inferred from the query
// together with a confidence in [0.4, 1.0].
type LikelySubspecialty struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
}

// Insights carries the free-form clinical summary produced by the third
// LLM call.
type Insights struct {
	Symptoms    string `json:"symptoms"`
	Preferences string `json:"preferences"`
	Urgency     string `json:"urgency"` // routine, urgent, emergency
	Specialty   string `json:"specialty"`
	Location    string `json:"location"`
	Summary     string `json:"summary"`
}

// SessionContext is the structured intent record produced per request.
type SessionContext struct {
	QPatient string `json:"q_patient"`

	IntentTerms         []string             `json:"intent_terms"`
	SafeLaneTerms       []string             `json:"safe_lane_terms"`
	AnchorPhrases       []string             `json:"anchor_phrases"`
	LikelySubspecialties []LikelySubspecialty `json:"likely_subspecialties"`
	NegativeTerms       []string             `json:"negative_terms"`

	Goal            string `json:"goal"`
	Specificity     string `json:"specificity"`
	PrimaryIntent   string `json:"primary_intent"`
	Confidence      float64 `json:"confidence"`
	IsQueryAmbiguous bool   `json:"is_query_ambiguous"`

	Insights Insights `json:"insights"`

	// Fallback reports which of the three LLM legs fell back to its
	// default, so the HTTP layer can surface degradation per §7.
	Fallback FallbackReport `json:"fallback"`
}

// FallbackReport records which session-context legs could not complete.
type FallbackReport struct {
	GeneralIntent  bool `json:"general_intent"`
	ClinicalIntent bool `json:"clinical_intent"`
	Insights       bool `json:"insights"`
}

// isQueryClear implements the specification's definition:
// isQueryAmbiguous = ¬(confidence ≥ 0.75 ∧ specificity ∈ {named_procedure, confirmed_diagnosis}).
func isQueryClear(confidence float64, specificity string) bool {
	if confidence < 0.75 {
		return false
	}
	return specificity == "named_procedure" || specificity == "confirmed_diagnosis"
}
