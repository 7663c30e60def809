package sessioncontext

import "strings"

// generalIntentResult is the shape parsed from the general-intent LLM leg.
type generalIntentResult struct {
	Goal                 string               `json:"goal"`
	Specificity          string               `json:"specificity"`
	Confidence           float64              `json:"confidence"`
	ExpansionTerms       []string             `json:"expansion_terms"`
	NegativeTerms        []string             `json:"negative_terms"`
	AnchorPhrases        []string             `json:"anchor_phrases"`
	LikelySubspecialties []LikelySubspecialty `json:"likely_subspecialties"`
}

func defaultGeneralIntent() generalIntentResult {
	return generalIntentResult{
		Goal:        "diagnostic_workup",
		Specificity: "symptom_only",
		Confidence:  0.3,
	}
}

// clinicalIntentResult is the shape parsed from the clinical-intent LLM leg.
type clinicalIntentResult struct {
	PrimaryIntent        string               `json:"primary_intent"`
	ExpansionTerms       []string             `json:"expansion_terms"`
	NegativeTerms        []string             `json:"negative_terms"`
	AnchorPhrases        []string             `json:"anchor_phrases"`
	LikelySubspecialties []LikelySubspecialty `json:"likely_subspecialties"`
}

func defaultClinicalIntent(specialty string) clinicalIntentResult {
	lanes := clinicalLanesFor(specialty)
	return clinicalIntentResult{PrimaryIntent: lanes[len(lanes)-1]}
}

// procedureBlacklistWords implements the safe_lane_terms filter: a term
// containing any of these words is procedure-heavy and is not appended
// to the BM25 query; every other term counts as symptom/condition-oriented.
var procedureBlacklistWords = map[string]bool{
	"surgery": true, "ablation": true, "resection": true, "implant": true,
	"catheter": true, "angioplasty": true, "bypass": true, "transplant": true,
	"operation": true, "biopsy": true,
}

func isProcedureHeavy(term string) bool {
	for word := range procedureBlacklistWords {
		if strings.Contains(term, word) {
			return true
		}
	}
	return false
}

// merge combines the general, clinical, and insights legs into a
// SessionContext, applying every cap and ordering rule in §4.C.
func merge(query string, general generalIntentResult, clinical clinicalIntentResult, insights Insights, fallback FallbackReport) SessionContext {
	sc := SessionContext{
		QPatient:         strings.TrimSpace(query),
		Goal:             general.Goal,
		Specificity:      general.Specificity,
		Confidence:       general.Confidence,
		PrimaryIntent:    clinical.PrimaryIntent,
		Insights:         insights,
		Fallback:         fallback,
	}

	sc.IntentTerms = mergeIntentTerms(clinical.ExpansionTerms, general.ExpansionTerms)
	sc.AnchorPhrases = mergeAnchorPhrases(clinical.AnchorPhrases, general.AnchorPhrases)
	sc.LikelySubspecialties = mergeSubspecialties(clinical.LikelySubspecialties, general.LikelySubspecialties)

	sc.IsQueryAmbiguous = !isQueryClear(sc.Confidence, sc.Specificity)
	if !sc.IsQueryAmbiguous {
		sc.NegativeTerms = dedupeLower(append(append([]string{}, clinical.NegativeTerms...), general.NegativeTerms...))
	}

	sc.SafeLaneTerms = safeLaneTerms(sc.IntentTerms)

	return sc
}

// mergeIntentTerms places clinical expansion terms before general ones,
// lowercased, trimmed, and deduplicated, per §4.C merging rule 1.
func mergeIntentTerms(clinicalTerms, generalTerms []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(clinicalTerms)+len(generalTerms))
	for _, t := range append(append([]string{}, clinicalTerms...), generalTerms...) {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// mergeAnchorPhrases unions and caps at 5, per invariant 5.
func mergeAnchorPhrases(clinicalPhrases, generalPhrases []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, 5)
	for _, p := range append(append([]string{}, clinicalPhrases...), generalPhrases...) {
		p = strings.ToLower(strings.TrimSpace(p))
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
		if len(out) == 5 {
			break
		}
	}
	return out
}

// mergeSubspecialties keeps each name's max-confidence entry, drops
// below 0.4, sorts descending, caps at 3, per invariant 5.
func mergeSubspecialties(a, b []LikelySubspecialty) []LikelySubspecialty {
	best := make(map[string]float64)
	order := make([]string, 0)
	for _, s := range append(append([]LikelySubspecialty{}, a...), b...) {
		name := strings.TrimSpace(s.Name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if existing, ok := best[key]; !ok || s.Confidence > existing {
			if !ok {
				order = append(order, name)
			}
			best[key] = s.Confidence
		}
	}

	out := make([]LikelySubspecialty, 0, len(order))
	for _, name := range order {
		conf := best[strings.ToLower(name)]
		if conf < 0.4 {
			continue
		}
		out = append(out, LikelySubspecialty{Name: name, Confidence: conf})
	}

	sortSubspecialtiesDesc(out)
	if len(out) > 3 {
		out = out[:3]
	}
	return out
}

func sortSubspecialtiesDesc(s []LikelySubspecialty) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j].Confidence > s[j-1].Confidence; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

func dedupeLower(terms []string) []string {
	seen := make(map[string]bool)
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// safeLaneTerms applies the symptom/condition whitelist (everything
// that isn't procedure-heavy) to intent_terms and caps at 4.
func safeLaneTerms(intentTerms []string) []string {
	out := make([]string, 0, 4)
	for _, t := range intentTerms {
		if isProcedureHeavy(t) {
			continue
		}
		out = append(out, t)
		if len(out) == 4 {
			break
		}
	}
	return out
}
