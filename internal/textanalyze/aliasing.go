package textanalyze

import "strings"

// equivalence is the curated abbreviation/spelling-variant table used
// by NormalizeMedicalQuery. Each entry is a bidirectional pair: seeing
// either side of the pair in the query can surface the other as an
// expansion term.
type equivalence struct {
	terms []string // canonical pair of equivalent surface forms
	// contextRequires, when non-empty, means the alias only fires if one
	// of these tokens is also present in the query (e.g. "echo" only
	// expands to "echocardiogram" when a cardiac token is present).
	contextRequires []string
}

var equivalenceTable = []equivalence{
	{terms: []string{"svt", "supraventricular tachycardia"}},
	{terms: []string{"afib", "atrial fibrillation"}},
	{terms: []string{"a-fib", "atrial fibrillation"}},
	{terms: []string{"gp", "general practitioner"}},
	{terms: []string{"ob-gyn", "obstetrics and gynaecology"}},
	{terms: []string{"obgyn", "obstetrics and gynaecology"}},
	{terms: []string{"ibs", "irritable bowel syndrome"}},
	{terms: []string{"gerd", "acid reflux"}},
	{terms: []string{"bp", "blood pressure"}},
	{
		terms:           []string{"echo", "echocardiogram"},
		contextRequires: []string{"heart", "cardiac", "cardiology", "chest"},
	},
	{terms: []string{"ekg", "electrocardiogram"}},
	{terms: []string{"ecg", "electrocardiogram"}},
	{terms: []string{"pcp", "primary care physician"}},
}

// maxAliasExpansions bounds the equivalence expansion to at most two
// aliases total per query, per the specification ("capped at <=2
// aliases total per query to prevent bloat").
const maxAliasExpansions = 2

// NormalizeMedicalQuery performs bounded, equivalence-only expansion of
// a query: for each matching entry, the other side of its equivalence
// pair is added as an expansion term, up to maxAliasExpansions total.
// Context-sensitive entries only fire when one of their required
// context tokens is also present. This never introduces unrelated
// synonyms — only the curated table's exact pairs.
func NormalizeMedicalQuery(query string) []string {
	tokens := TokenizeForIntent(query)
	tokenSet := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		tokenSet[t] = struct{}{}
	}

	var expansions []string
	seen := make(map[string]bool)

	for _, eq := range equivalenceTable {
		if len(expansions) >= maxAliasExpansions {
			break
		}
		matchIdx, ok := indexOfPresent(eq.terms, tokenSet, strings.ToLower(query))
		if !ok {
			continue
		}
		if len(eq.contextRequires) > 0 && !anyPresent(eq.contextRequires, tokenSet) {
			continue
		}
		for i, term := range eq.terms {
			if i == matchIdx {
				continue
			}
			if seen[term] {
				continue
			}
			expansions = append(expansions, term)
			seen[term] = true
			if len(expansions) >= maxAliasExpansions {
				break
			}
		}
	}
	return expansions
}

// indexOfPresent reports the index of the first equivalence-table term
// found either as a standalone token or as a substring phrase of the
// original (lowercased) query.
func indexOfPresent(terms []string, tokenSet map[string]struct{}, lowerQuery string) (int, bool) {
	for i, term := range terms {
		if _, ok := tokenSet[term]; ok {
			return i, true
		}
		if strings.ContainsAny(term, " -") && strings.Contains(lowerQuery, term) {
			return i, true
		}
	}
	return 0, false
}

func anyPresent(terms []string, tokenSet map[string]struct{}) bool {
	for _, t := range terms {
		if _, ok := tokenSet[t]; ok {
			return true
		}
	}
	return false
}
