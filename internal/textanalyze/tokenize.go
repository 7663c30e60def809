// Package textanalyze implements tokenization, medical-query equivalence
// aliasing, stopword filtering, and structured clinical_expertise
// parsing (component T of the specification).
package textanalyze

import (
	"regexp"
	"strings"
)

var wordRe = regexp.MustCompile(`[^\w]+`)

// stopwords is the small denylist of function words filtered out of
// BM25 tokenization and token-overlap scoring. Grounded on the
// teacher's searxng_ranker.go stopword table, extended with a few
// medical-query fillers.
var stopwords = map[string]struct{}{
	"the": {}, "a": {}, "an": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"in": {}, "for": {}, "on": {}, "with": {}, "is": {}, "are": {}, "i": {},
	"my": {}, "me": {}, "it": {}, "be": {}, "have": {}, "has": {}, "had": {},
	"this": {}, "that": {}, "need": {}, "needs": {}, "looking": {}, "want": {},
	"been": {}, "having": {}, "about": {},
}

// Tokenize lowercases text, replaces non-word characters with spaces,
// splits on whitespace, and drops tokens shorter than minLen.
func Tokenize(text string, minLen int) []string {
	lower := strings.ToLower(text)
	replaced := wordRe.ReplaceAllString(lower, " ")
	fields := strings.Fields(replaced)

	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) < minLen {
			continue
		}
		out = append(out, f)
	}
	return out
}

// TokenizeForBM25 tokenizes and drops tokens shorter than 3 characters,
// matching the specification's BM25 tokenization rule.
func TokenizeForBM25(text string) []string {
	return filterStopwords(Tokenize(text, 3))
}

// TokenizeForIntent tokenizes and keeps tokens of length >= 2, matching
// the specification's intent-term / taxonomy-lookup tokenization rule.
func TokenizeForIntent(text string) []string {
	return Tokenize(text, 2)
}

func filterStopwords(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if _, stop := stopwords[t]; stop {
			continue
		}
		out = append(out, t)
	}
	return out
}

// TokenSet converts text into a deduplicated, stopword-filtered token
// set, used by the Stage-B rescorer's match-counting signals.
func TokenSet(text string) map[string]struct{} {
	toks := TokenizeForBM25(text)
	set := make(map[string]struct{}, len(toks))
	for _, t := range toks {
		set[t] = struct{}{}
	}
	return set
}

// CountIntersection counts how many tokens of a appear in b.
func CountIntersection(a, b map[string]struct{}) int {
	count := 0
	for k := range a {
		if _, ok := b[k]; ok {
			count++
		}
	}
	return count
}
