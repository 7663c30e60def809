// Package rescorer implements the deterministic Stage-B rescoring pass
// described in the specification's §4.R. It takes the Stage-A BM25
// ranking and applies additive/multiplicative signals derived from the
// SessionContext, producing a new order and a per-candidate explanation
// ("rescoringInfo") for the response.
package rescorer

import (
	"sort"
	"strings"

	"practitioner-ranker/internal/bm25"
	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/sessioncontext"
	"practitioner-ranker/internal/textanalyze"
)

// Result is a rescored candidate with its explanation.
type Result struct {
	Doc           *corpus.Practitioner
	BM25Score     float64
	RescoreDelta  float64
	FinalScore    float64
	Info          Info
}

// Info is the per-candidate rescoring explanation surfaced in the HTTP
// response as rescoringInfo.
type Info struct {
	AnchorMatches       int      `json:"anchorMatches"`
	ProcedureMatches    int      `json:"procedureMatches"`
	SubspecialtyMatch   string   `json:"subspecialtyMatch,omitempty"`
	IntentTierMatches   []string `json:"intentTierMatches,omitempty"`
	SafeLaneMatchCount  int      `json:"safeLaneMatchCount"`
	NegativeMatchCount  int      `json:"negativeMatchCount"`
	ChecklistBoosted    bool     `json:"checklistBoosted"`
}

// Rescore applies Stage B to the Stage-A top-N and returns a new order.
// variantIsParallelFamily controls the ambiguity policy: when the query
// is ambiguous and the variant belongs to the "parallel" family, the
// rescoring delta becomes the primary ordering key and BM25 is used
// only as a tiebreaker; otherwise BM25 remains primary and the
// rescoring contribution is purely additive. safeLaneEnabled gates the
// safe-lane signal, which the specification marks "(variant v2 only)";
// callers pass true only when the request variant is exactly v2 (see
// DESIGN.md for how v5/v6/v7 were resolved).
func Rescore(stageA []bm25.Scored, sc sessioncontext.SessionContext, cfg config.RankingConfig, variantIsParallelFamily, safeLaneEnabled bool, checklist []string) []Result {
	out := make([]Result, 0, len(stageA))
	for _, s := range stageA {
		delta, info := computeDelta(s.Doc, sc, cfg, safeLaneEnabled, checklist)
		out = append(out, Result{
			Doc:          s.Doc,
			BM25Score:    s.Score,
			RescoreDelta: delta,
			FinalScore:   s.Score + delta,
			Info:         info,
		})
	}

	ambiguousParallel := sc.IsQueryAmbiguous && variantIsParallelFamily
	sort.SliceStable(out, func(i, j int) bool {
		if ambiguousParallel {
			if out[i].RescoreDelta != out[j].RescoreDelta {
				return out[i].RescoreDelta > out[j].RescoreDelta
			}
			return out[i].BM25Score > out[j].BM25Score
		}
		return out[i].FinalScore > out[j].FinalScore
	})
	return out
}

func computeDelta(doc *corpus.Practitioner, sc sessioncontext.SessionContext, cfg config.RankingConfig, safeLaneEnabled bool, checklist []string) (float64, Info) {
	text := searchableText(doc)
	tokenSet := textanalyze.TokenSet(text)

	var delta float64
	var info Info

	anchorMatches := 0
	for _, phrase := range sc.AnchorPhrases {
		if phraseMatches(text, phrase) {
			anchorMatches++
		}
	}
	info.AnchorMatches = anchorMatches
	anchorDelta := float64(anchorMatches) * cfg.AnchorPerMatch
	if anchorDelta > cfg.AnchorCap {
		anchorDelta = cfg.AnchorCap
	}
	delta += anchorDelta

	procedureMatches := 0
	queryTokens := textanalyze.TokenSet(strings.Join(append(append([]string{sc.QPatient}, sc.IntentTerms...), sc.AnchorPhrases...), " "))
	procTokens := textanalyze.TokenSet(strings.Join(doc.ProcedureGroups, " ") + " " + strings.Join(doc.ExpertiseProcedures, " "))
	for term := range procTokens {
		if _, ok := queryTokens[term]; ok {
			procedureMatches++
		}
	}
	info.ProcedureMatches = procedureMatches
	delta += float64(procedureMatches) * cfg.ProcedurePerMatch

	if len(sc.LikelySubspecialties) > 0 {
		best := sc.LikelySubspecialties[0]
		if subspecialtyMatches(doc, best.Name) {
			info.SubspecialtyMatch = best.Name
			add := cfg.SubspecialtyFactor * best.Confidence
			if add > cfg.SubspecialtyCap {
				add = cfg.SubspecialtyCap
			}
			delta += add
		}
	}

	tierMatches := intentTierMatches(sc.IntentTerms, tokenSet)
	info.IntentTierMatches = tierMatches
	for pos, term := range sc.IntentTerms {
		if _, ok := tokenSet[term]; ok {
			delta += intentTierWeight(pos+1, cfg)
		}
	}

	safeLaneCount := 0
	for _, term := range sc.SafeLaneTerms {
		if _, ok := tokenSet[term]; ok {
			safeLaneCount++
		}
	}
	info.SafeLaneMatchCount = safeLaneCount
	if safeLaneEnabled {
		delta += safeLaneWeight(safeLaneCount, cfg)
	}

	negCount := 0
	for _, term := range sc.NegativeTerms {
		if _, ok := tokenSet[term]; ok {
			negCount++
		}
	}
	info.NegativeMatchCount = negCount
	mult := negativeMultiplier(negCount, cfg)

	if checklistHitRatio(doc, checklist) >= cfg.ChecklistMatchThreshold && len(checklist) > 0 {
		info.ChecklistBoosted = true
		mult *= cfg.ChecklistBoostWeight
	}

	return delta * mult, info
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

func phraseMatches(text, phrase string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(phrase))
}

func subspecialtyMatches(doc *corpus.Practitioner, name string) bool {
	name = strings.ToLower(name)
	for _, s := range doc.Subspecialties {
		if strings.ToLower(s) == name {
			return true
		}
	}
	return false
}

// intentTierMatches returns the subset of intent_terms that appear in
// the candidate's token set, treated as tiered "high signal" vs
// "pathway" terms by position: the first two intent terms (clinical
// expansion terms, which precede general ones per the merge rule) are
// the high-signal tier, the rest are pathway terms.
func intentTierMatches(intentTerms []string, tokenSet map[string]struct{}) []string {
	var matches []string
	for _, term := range intentTerms {
		if _, ok := tokenSet[term]; ok {
			matches = append(matches, term)
		}
	}
	return matches
}

func intentTierWeight(position int, cfg config.RankingConfig) float64 {
	switch {
	case position == 0:
		return 0
	case position == 1:
		return cfg.HighSignal1
	case position == 2:
		return cfg.HighSignal2
	case position == 3:
		return cfg.Pathway1
	case position == 4:
		return cfg.Pathway2
	default:
		return cfg.Pathway3
	}
}

func safeLaneWeight(count int, cfg config.RankingConfig) float64 {
	switch {
	case count <= 0:
		return 0
	case count == 1:
		return cfg.SafeLane1
	case count == 2:
		return cfg.SafeLane2
	default:
		return cfg.SafeLane3OrMore
	}
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

// checklistHitRatio computes |checklist ∩ candidate filter sets| / |checklist|.
func checklistHitRatio(doc *corpus.Practitioner, checklist []string) float64 {
	if len(checklist) == 0 || doc.ChecklistProfile == nil {
		return 0
	}
	candidateSet := make(map[string]bool, len(doc.ChecklistProfile.ProceduresSet)+len(doc.ChecklistProfile.ConditionsSet))
	for _, v := range doc.ChecklistProfile.ProceduresSet {
		candidateSet[v] = true
	}
	for _, v := range doc.ChecklistProfile.ConditionsSet {
		candidateSet[v] = true
	}

	hits := 0
	for _, v := range checklist {
		if candidateSet[v] {
			hits++
		}
	}
	return float64(hits) / float64(len(checklist))
}
