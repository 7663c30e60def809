// Package bm25 implements a per-request weighted multi-field BM25 index
// and scorer over a candidate slice of practitioners. Index state is
// built fresh for every request and never shared, matching the
// specification's shared-resource policy: the corpus is immutable and
// shared, but BM25 term statistics are request-scoped.
package bm25

import (
	"math"
	"sort"
	"strings"

	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/textanalyze"
)

// genericProcedureWords are too generic to count as a "relevant" token
// overlap when computing the procedures_completed quality boost.
var genericProcedureWords = map[string]bool{
	"surgical":     true,
	"treatment":    true,
	"procedure":    true,
	"clinic":       true,
	"consultation": true,
	"general":      true,
}

// Scored is a candidate document together with its BM25 score.
type Scored struct {
	Doc   *corpus.Practitioner
	Score float64
}

// Index is a per-request weighted-field BM25 inverted index.
type Index struct {
	fieldWeights map[string]float64
	k1           float64
	b            float64

	docs     []*corpus.Practitioner
	docTerms []map[string]int // per-doc weighted term frequency
	docLen   []float64        // per-doc weighted length
	avgDocLen float64

	df map[string]int // document frequency per term
	n  int
}

// Build tokenizes and indexes every field of every candidate, weighting
// each field's contribution to term frequency by its configured weight.
func Build(candidates []*corpus.Practitioner, cfg config.RankingConfig) *Index {
	idx := &Index{
		fieldWeights: cfg.FieldWeights,
		k1:           cfg.K1,
		b:            cfg.B,
		docs:         candidates,
		docTerms:     make([]map[string]int, len(candidates)),
		docLen:       make([]float64, len(candidates)),
		df:           make(map[string]int),
		n:            len(candidates),
	}

	var totalLen float64
	for i, doc := range candidates {
		terms := make(map[string]int)
		var weightedLen float64

		for field, text := range fieldTexts(doc) {
			weight := idx.fieldWeights[field]
			if weight == 0 {
				weight = 1.0
			}
			toks := textanalyze.TokenizeForBM25(text)
			// Field weight is applied as repeated term-frequency
			// multiplicity, per the specification's equivalence note in
			// §4.I ("per-field term frequencies summed with weights").
			mult := int(math.Round(weight))
			if mult < 1 {
				mult = 1
			}
			for _, tok := range toks {
				terms[tok] += mult
				weightedLen += weight
			}
		}

		idx.docTerms[i] = terms
		idx.docLen[i] = weightedLen
		totalLen += weightedLen

		seen := make(map[string]bool, len(terms))
		for tok := range terms {
			if seen[tok] {
				continue
			}
			seen[tok] = true
			idx.df[tok]++
		}
	}

	if idx.n > 0 {
		idx.avgDocLen = totalLen / float64(idx.n)
	}
	return idx
}

func fieldTexts(doc *corpus.Practitioner) map[string]string {
	return map[string]string{
		"clinical_expertise":    doc.ClinicalExpertise,
		"procedure_groups":      strings.Join(doc.ProcedureGroups, " "),
		"specialty":             doc.Specialty,
		"subspecialties":        strings.Join(doc.Subspecialties, " "),
		"specialty_description": doc.Specialty,
		"expertise_procedures":  strings.Join(doc.ExpertiseProcedures, " "),
		"expertise_conditions":  strings.Join(doc.ExpertiseConditions, " "),
		"description":           doc.Description,
		"about":                 doc.About,
		"expertise_fallback":    doc.ExpertiseFallback,
	}
}

// idf returns the non-negative Okapi IDF for a term. Terms present in
// every indexed document score exactly 0 rather than negative, per
// invariant 3.
func (idx *Index) idf(term string) float64 {
	df := idx.df[term]
	if df == 0 {
		return 0
	}
	v := math.Log(float64(idx.n-df)+0.5) - math.Log(float64(df)+0.5) + 1
	if v < 0 {
		return 0
	}
	return v
}

// Score computes the BM25 score for a single query against all indexed
// documents, in natural index order.
func (idx *Index) Score(query string) []Scored {
	queryTerms := textanalyze.TokenizeForBM25(query)
	return idx.scoreTerms(queryTerms)
}

func (idx *Index) scoreTerms(queryTerms []string) []Scored {
	out := make([]Scored, idx.n)
	for i, doc := range idx.docs {
		out[i] = Scored{Doc: doc, Score: idx.scoreDoc(i, queryTerms) * qualityBoost(doc, queryTerms)}
	}
	return out
}

func (idx *Index) scoreDoc(docIdx int, queryTerms []string) float64 {
	terms := idx.docTerms[docIdx]
	docLen := idx.docLen[docIdx]

	var score float64
	for _, qt := range queryTerms {
		tf := float64(terms[qt])
		if tf == 0 {
			continue
		}
		idfVal := idx.idf(qt)
		if idfVal == 0 {
			continue
		}
		denom := tf + idx.k1*(1-idx.b+idx.b*docLen/safeAvg(idx.avgDocLen))
		score += idfVal * (tf * (idx.k1 + 1)) / denom
	}
	return score
}

func safeAvg(avg float64) float64 {
	if avg == 0 {
		return 1
	}
	return avg
}

// qualityBoost applies the multiplicative rating/review_count/
// procedures_completed adjustments described in §4.I.
func qualityBoost(doc *corpus.Practitioner, queryTerms []string) float64 {
	boost := 1.0

	switch {
	case doc.RatingValue >= 4.8:
		boost *= 1.3
	case doc.RatingValue >= 4.5:
		boost *= 1.2
	case doc.RatingValue >= 4.0:
		boost *= 1.1
	}

	switch {
	case doc.ReviewCount >= 100:
		boost *= 1.2
	case doc.ReviewCount >= 50:
		boost *= 1.15
	case doc.ReviewCount >= 20:
		boost *= 1.1
	}

	if len(doc.ProceduresCompleted) > 0 {
		relevant := relevantAdmissionCount(doc.ProceduresCompleted, queryTerms)
		switch {
		case relevant >= 5:
			boost *= 1.25
		case relevant >= 2:
			boost *= 1.15
		case relevant >= 1:
			boost *= 1.08
		default:
			boost *= 0.85
		}
	}

	return boost
}

// relevantAdmissionCount counts procedures_completed entries that share
// at least one non-generic, length>=4 token with the query.
func relevantAdmissionCount(procedures []string, queryTerms []string) int {
	querySet := make(map[string]bool, len(queryTerms))
	for _, qt := range queryTerms {
		querySet[qt] = true
	}

	count := 0
	for _, proc := range procedures {
		toks := textanalyze.TokenizeForBM25(proc)
		for _, tok := range toks {
			if len(tok) < 4 || genericProcedureWords[tok] {
				continue
			}
			if querySet[tok] {
				count++
				break
			}
		}
	}
	return count
}

// Len returns the number of candidates indexed, used by the progressive
// controller to size its fetch-more queries against the true pool size
// rather than just the Stage-A top-N slice.
func (idx *Index) Len() int {
	return idx.n
}

// TopN exposes the package's deterministic min(k,n) truncation
// semantics (zero-score fill from natural order) for callers that
// already hold a scored slice, such as the query planner's two-query
// union merge.
func TopN(scored []Scored, k int) []Scored {
	return topN(scored, k)
}

// GetTopN returns min(k, len(candidates)) documents ranked by score
// descending. Zero-score documents fill the remainder from natural
// index order, preserving determinism, per invariant 4.
func (idx *Index) GetTopN(query string, k int) []Scored {
	scored := idx.Score(query)
	return topN(scored, k)
}

func topN(scored []Scored, k int) []Scored {
	if k > len(scored) {
		k = len(scored)
	}
	if k < 0 {
		k = 0
	}

	nonZero := make([]Scored, 0, len(scored))
	zero := make([]Scored, 0, len(scored))
	for _, s := range scored {
		if s.Score > 0 {
			nonZero = append(nonZero, s)
		} else {
			zero = append(zero, s)
		}
	}

	sort.SliceStable(nonZero, func(i, j int) bool {
		return nonZero[i].Score > nonZero[j].Score
	})

	out := make([]Scored, 0, k)
	out = append(out, nonZero...)
	out = append(out, zero...)
	if len(out) > k {
		out = out[:k]
	}
	return out
}

// NormalizedScores returns each Scored's score divided by the maximum
// score in the slice (0 for every entry if all scores are zero), used by the query
// planner's two-query union to compare legs on a common scale.
func NormalizedScores(scored []Scored) map[string]float64 {
	var max float64
	for _, s := range scored {
		if s.Score > max {
			max = s.Score
		}
	}
	out := make(map[string]float64, len(scored))
	for _, s := range scored {
		if max == 0 {
			out[s.Doc.ID] = 0
			continue
		}
		out[s.Doc.ID] = s.Score / max
	}
	return out
}
