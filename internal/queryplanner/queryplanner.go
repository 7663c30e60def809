// Package queryplanner builds the Stage-A BM25 query text from a
// SessionContext and applies the pre-ranking filter chain described in
// the specification's §4.Q, before the candidate slice ever reaches the
// BM25 index.
package queryplanner

import (
	"strings"

	"practitioner-ranker/internal/bm25"
	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/sessioncontext"
	"practitioner-ranker/internal/textanalyze"
)

// Filters carries the caller-supplied filter predicates honored by the
// pre-ranking chain. Geo/postcode resolution and insurance-plan lookups
// are out of scope for the core; the caller is expected to resolve
// "location" and "insurance" to plain string predicates before calling
// Apply.
type Filters struct {
	Specialty          string
	Location           string
	InsuranceProvider   string
	Gender              string
	PatientAgeGroup     string
	Language            string
}

// Apply runs the pre-ranking filter chain: blacklist -> specialty ->
// location -> insurance -> gender -> age-group -> language. Manual
// specialty, when non-empty, fully overrides AI-inferred subspecialty
// filtering.
func Apply(all []corpus.Practitioner, filters Filters, sc sessioncontext.SessionContext) []*corpus.Practitioner {
	kept, _ := corpus.ExcludeBlacklisted(all)

	out := make([]*corpus.Practitioner, 0, len(kept))
	for i := range kept {
		out = append(out, &kept[i])
	}

	out = filterBySpecialty(out, filters.Specialty, sc)
	out = filterByString(out, filters.Location, func(p *corpus.Practitioner) []string { return p.Locations })
	out = filterByString(out, filters.InsuranceProvider, func(p *corpus.Practitioner) []string { return p.InsuranceProviders })
	out = filterByGender(out, filters.Gender)
	out = filterByAgeGroup(out, filters.PatientAgeGroup)
	out = filterByString(out, filters.Language, func(p *corpus.Practitioner) []string { return p.Languages })

	return out
}

func filterBySpecialty(docs []*corpus.Practitioner, manualSpecialty string, sc sessioncontext.SessionContext) []*corpus.Practitioner {
	if manualSpecialty != "" {
		return filterByExactField(docs, manualSpecialty, func(p *corpus.Practitioner) string { return p.Specialty })
	}

	var inferred []string
	for _, s := range sc.LikelySubspecialties {
		if s.Confidence >= 0.4 {
			inferred = append(inferred, strings.ToLower(s.Name))
		}
	}
	if len(inferred) == 0 {
		return docs
	}

	out := make([]*corpus.Practitioner, 0, len(docs))
	for _, p := range docs {
		if subspecialtyMatchesAny(p, inferred) {
			out = append(out, p)
		}
	}
	return out
}

func subspecialtyMatchesAny(p *corpus.Practitioner, names []string) bool {
	for _, s := range p.Subspecialties {
		ls := strings.ToLower(s)
		for _, n := range names {
			if ls == n {
				return true
			}
		}
	}
	return false
}

func filterByExactField(docs []*corpus.Practitioner, value string, field func(*corpus.Practitioner) string) []*corpus.Practitioner {
	value = strings.ToLower(value)
	out := make([]*corpus.Practitioner, 0, len(docs))
	for _, p := range docs {
		if strings.ToLower(field(p)) == value {
			out = append(out, p)
		}
	}
	return out
}

func filterByString(docs []*corpus.Practitioner, value string, field func(*corpus.Practitioner) []string) []*corpus.Practitioner {
	if value == "" {
		return docs
	}
	value = strings.ToLower(value)
	out := make([]*corpus.Practitioner, 0, len(docs))
	for _, p := range docs {
		for _, v := range field(p) {
			if strings.ToLower(v) == value {
				out = append(out, p)
				break
			}
		}
	}
	return out
}

func filterByGender(docs []*corpus.Practitioner, value string) []*corpus.Practitioner {
	if value == "" {
		return docs
	}
	value = strings.ToLower(value)
	out := make([]*corpus.Practitioner, 0, len(docs))
	for _, p := range docs {
		if strings.ToLower(p.EffectiveGender()) == value {
			out = append(out, p)
		}
	}
	return out
}

func filterByAgeGroup(docs []*corpus.Practitioner, value string) []*corpus.Practitioner {
	if value == "" {
		return docs
	}
	value = strings.ToLower(value)
	out := make([]*corpus.Practitioner, 0, len(docs))
	for _, p := range docs {
		if strings.ToLower(p.PatientAgeGroup) == value {
			out = append(out, p)
		}
	}
	return out
}

// BuildQueryText constructs the Stage-A query string per §4.Q's
// single-query mode: q_patient union safe_lane_terms (<=4) union
// anchor_phrases (<=5), optionally appending intent_terms up to a cap.
func BuildQueryText(sc sessioncontext.SessionContext, cfg config.RankingConfig) string {
	parts := []string{sc.QPatient}
	parts = append(parts, sc.SafeLaneTerms...)
	parts = append(parts, sc.AnchorPhrases...)

	if cfg.IntentTermsInBM25 {
		cap := cfg.IntentTermsCap
		if cap > len(sc.IntentTerms) {
			cap = len(sc.IntentTerms)
		}
		parts = append(parts, sc.IntentTerms[:cap]...)
	}

	return strings.Join(parts, " ")
}

// RunStageA executes Stage A, selecting single-query or two-query-union
// mode per cfg.StageATwoQuery.
func RunStageA(idx *bm25.Index, sc sessioncontext.SessionContext, cfg config.RankingConfig) []bm25.Scored {
	if !cfg.StageATwoQuery {
		query := BuildQueryText(sc, cfg)
		scored := idx.Score(query)
		if cfg.StageANegativePenalty {
			scored = applyNegativePenalty(scored, sc, cfg)
		}
		return topN(scored, cfg.StageATopN)
	}
	return runTwoQueryUnion(idx, sc, cfg)
}

// runTwoQueryUnion runs the patient-leg query and an intent-only query,
// takes the union of their top-Np/top-Ni results, deduplicates by id,
// and orders by the max of the two normalized scores.
func runTwoQueryUnion(idx *bm25.Index, sc sessioncontext.SessionContext, cfg config.RankingConfig) []bm25.Scored {
	patientScored := idx.Score(sc.QPatient)
	patientTop := topNRaw(patientScored, cfg.StageATwoQueryNp)
	patientNorm := bm25.NormalizedScores(patientTop)

	intentCap := cfg.IntentTermsCap
	if intentCap > len(sc.IntentTerms) {
		intentCap = len(sc.IntentTerms)
	}
	intentQuery := strings.Join(sc.IntentTerms[:intentCap], " ")
	intentScored := idx.Score(intentQuery)
	intentTop := topNRaw(intentScored, cfg.StageATwoQueryNi)
	intentNorm := bm25.NormalizedScores(intentTop)

	byID := make(map[string]bm25.Scored)
	for _, s := range patientTop {
		byID[s.Doc.ID] = s
	}
	for _, s := range intentTop {
		if _, ok := byID[s.Doc.ID]; !ok {
			byID[s.Doc.ID] = s
		}
	}

	union := make([]bm25.Scored, 0, len(byID))
	for id, s := range byID {
		maxNorm := patientNorm[id]
		if intentNorm[id] > maxNorm {
			maxNorm = intentNorm[id]
		}
		union = append(union, bm25.Scored{Doc: s.Doc, Score: maxNorm})
	}

	if cfg.StageANegativePenalty {
		union = applyNegativePenalty(union, sc, cfg)
	}

	return topN(union, cfg.StageATopN)
}

// applyNegativePenalty applies the same negative-term multiplicative
// penalty used by the rescorer, but inside Stage A, before truncation
// to top-N. Off by default per cfg.StageANegativePenalty (§4.R).
func applyNegativePenalty(scored []bm25.Scored, sc sessioncontext.SessionContext, cfg config.RankingConfig) []bm25.Scored {
	if len(sc.NegativeTerms) == 0 {
		return scored
	}

	out := make([]bm25.Scored, len(scored))
	for i, s := range scored {
		text := searchableText(s.Doc)
		tokenSet := textanalyze.TokenSet(text)
		count := 0
		for _, term := range sc.NegativeTerms {
			if _, ok := tokenSet[term]; ok {
				count++
			}
		}
		out[i] = bm25.Scored{Doc: s.Doc, Score: s.Score * negativeMultiplier(count, cfg)}
	}
	return out
}

func negativeMultiplier(count int, cfg config.RankingConfig) float64 {
	switch {
	case count <= 0:
		return 1.0
	case count == 1:
		return cfg.NegativeMult1
	case count <= 3:
		return cfg.NegativeMult2
	default:
		return cfg.NegativeMult4OrMore
	}
}

func searchableText(doc *corpus.Practitioner) string {
	return strings.Join([]string{
		doc.ClinicalExpertise,
		strings.Join(doc.ProcedureGroups, " "),
		doc.Specialty,
		strings.Join(doc.Subspecialties, " "),
		strings.Join(doc.ExpertiseProcedures, " "),
		strings.Join(doc.ExpertiseConditions, " "),
		doc.Description,
		doc.About,
	}, " ")
}

// topN and topNRaw re-expose bm25's deterministic truncation semantics
// (min(k,n), zero-score fill from natural order) for query-planner
// internal use against already-scored slices.
func topN(scored []bm25.Scored, k int) []bm25.Scored {
	return bm25.TopN(scored, k)
}

func topNRaw(scored []bm25.Scored, k int) []bm25.Scored {
	return bm25.TopN(scored, k)
}
