// Package progressive implements the V6 progressive controller described
// in the specification's §4.P: it runs the V2 pipeline for an initial
// shortlist, then iteratively fetches and evaluates additional
// candidates until the top-K are all excellent or a resource budget is
// exhausted.
package progressive

import (
	"context"

	"practitioner-ranker/internal/bm25"
	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/queryplanner"
	"practitioner-ranker/internal/rescorer"
	"practitioner-ranker/internal/sessioncontext"
)

// TerminationReason is one of the tagged reasons the controller stops.
type TerminationReason string

const (
	ReasonTopKExcellent        TerminationReason = "top-k-excellent"
	ReasonMaxIterations        TerminationReason = "max-iterations"
	ReasonMaxProfilesReviewed  TerminationReason = "max-profiles-reviewed"
	ReasonNoMoreProfiles       TerminationReason = "no-more-profiles"
	ReasonEvaluationFailed     TerminationReason = "evaluation-failed"
	ReasonEmptyResults         TerminationReason = "empty-results"
)

// IterationDetail reports per-iteration progress for the response's
// queryInfo.
type IterationDetail struct {
	Iteration        int  `json:"iteration"`
	ProfilesFetched  int  `json:"profilesFetched"`
	ProfilesReviewed int  `json:"profilesReviewed"`
	Top3AllExcellent bool `json:"top3AllExcellent"`
}

// QualityBreakdown counts evaluated candidates per fit category.
type QualityBreakdown struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	IllFit    int `json:"illFit"`
}

// CandidateResult is one ranked candidate in the final output, carrying
// its score, fit evaluation, and the iteration it was first found in.
type CandidateResult struct {
	Doc             *corpus.Practitioner
	Score           float64
	RescoringInfo   rescorer.Info
	FitCategory     fitevaluator.FitCategory
	FitReason       string
	IterationFound  int
}

// Outcome is the complete result of a V6 run.
type Outcome struct {
	Results           []CandidateResult
	Iterations        int
	ProfilesEvaluated int
	ProfilesFetched   int
	TerminationReason TerminationReason
	QualityBreakdown  QualityBreakdown
	IterationDetails  []IterationDetail
}

// Controller runs the progressive algorithm over a fixed corpus slice,
// BM25 index, and fit evaluator.
type Controller struct {
	index     *bm25.Index
	evaluator *fitevaluator.Evaluator
	cfg       config.ProgressiveConfig
	ranking   config.RankingConfig
}

// NewController builds a progressive Controller.
func NewController(index *bm25.Index, evaluator *fitevaluator.Evaluator, cfg config.ProgressiveConfig, ranking config.RankingConfig) *Controller {
	return &Controller{index: index, evaluator: evaluator, cfg: cfg, ranking: ranking}
}

type state struct {
	iteration         int
	profilesFetched   int
	profilesReviewed  int
	evaluationMap     map[string]fitevaluator.Evaluation
	scoreMap          map[string]float64
	iterationFoundMap map[string]int
	docByID           map[string]*corpus.Practitioner
	infoByID          map[string]rescorer.Info
}

func newState() *state {
	return &state{
		evaluationMap:     make(map[string]fitevaluator.Evaluation),
		scoreMap:          make(map[string]float64),
		iterationFoundMap: make(map[string]int),
		docByID:           make(map[string]*corpus.Practitioner),
		infoByID:          make(map[string]rescorer.Info),
	}
}

// Run executes the V6 algorithm: initial V2 pipeline, evaluate,
// terminate-or-fetch-more loop, final re-rank by category.
func (c *Controller) Run(ctx context.Context, query string, sc sessioncontext.SessionContext, variantIsParallelFamily bool, checklistValues []string) Outcome {
	st := newState()

	stageA := queryplanner.RunStageA(c.index, sc, c.ranking)
	if len(stageA) == 0 {
		return Outcome{TerminationReason: ReasonEmptyResults}
	}

	// safeLaneEnabled is always false here: the progressive controller
	// only ever runs for v6/v7, never v2, and the safe-lane signal is
	// scoped to v2 only (see DESIGN.md).
	stageB := rescorer.Rescore(stageA, sc, c.ranking, variantIsParallelFamily, false, checklistValues)
	shortlist := truncate(stageB, c.cfg.ShortlistSize)
	recordCandidates(st, shortlist, 0)

	evals, ok := c.evaluator.Evaluate(ctx, query, docsOf(shortlist))
	if !ok {
		return c.buildOutcome(st, ReasonEvaluationFailed)
	}
	mergeEvaluations(st, evals, 0)
	st.profilesReviewed += len(evals)

	var iterationDetails []IterationDetail
	iterationDetails = append(iterationDetails, c.iterationDetail(st))

	for {
		if reason, done := c.checkTermination(st); done {
			return c.buildOutcomeWithDetails(st, reason, iterationDetails)
		}

		st.iteration++
		fetchCount := minFetchCount(st.profilesFetched, c.cfg.Batch, c.index.Len())
		more := fetchMore(c.index, sc, c.ranking, st, fetchCount, c.cfg.Batch, c.cfg.FetchStrategy, variantIsParallelFamily, checklistValues)
		if len(more) == 0 {
			return c.buildOutcomeWithDetails(st, ReasonNoMoreProfiles, iterationDetails)
		}

		recordCandidates(st, more, st.iteration)
		remainingCap := c.cfg.MaxProfilesReviewed - st.profilesReviewed
		if remainingCap <= 0 {
			return c.buildOutcomeWithDetails(st, ReasonMaxProfilesReviewed, iterationDetails)
		}
		toEvaluate := more
		if len(toEvaluate) > remainingCap {
			toEvaluate = toEvaluate[:remainingCap]
		}

		// A mid-loop evaluation failure degrades to defaulted "good"
		// evaluations (already baked into newEvals) rather than
		// terminating the run, per §4.P's failure policy: only the
		// initial evaluation's failure produces ReasonEvaluationFailed.
		newEvals, _ := c.evaluator.Evaluate(ctx, query, docsOf(toEvaluate))
		mergeEvaluations(st, newEvals, st.iteration)
		st.profilesReviewed += len(newEvals)

		iterationDetails = append(iterationDetails, c.iterationDetail(st))
	}
}

// checkTermination implements §4.P step 3's (a)-(c) conditions. (d) "no
// new candidates available" is detected by the caller when fetchMore
// returns nothing.
func (c *Controller) checkTermination(st *state) (TerminationReason, bool) {
	if top3AllExcellent(st, c.cfg.TargetTopK) {
		return ReasonTopKExcellent, true
	}
	if st.iteration >= c.cfg.MaxIterations {
		return ReasonMaxIterations, true
	}
	if st.profilesReviewed >= c.cfg.MaxProfilesReviewed {
		return ReasonMaxProfilesReviewed, true
	}
	return "", false
}

func top3AllExcellent(st *state, targetTopK int) bool {
	ranked := rankedByCategoryThenScore(st)
	if len(ranked) < targetTopK {
		return false
	}
	for i := 0; i < targetTopK; i++ {
		if st.evaluationMap[ranked[i]].FitCategory != fitevaluator.Excellent {
			return false
		}
	}
	return true
}

// minFetchCount implements §4.P step 4's formula.
func minFetchCount(profilesFetched, batch, poolSize int) int {
	a := profilesFetched + 2*batch
	b := 3 * batch
	c := profilesFetched + 5*batch
	if poolSize < c {
		c = poolSize
	}
	max := a
	if b > max {
		max = b
	}
	if c > max {
		max = c
	}
	return max
}

// fetchMore implements §4.P step 4: ask I for minCount candidates,
// re-querying the full BM25 index (not the fixed initial Stage-A slice)
// so the pool genuinely enlarges as iterations proceed, then filters
// out already-evaluated or already-fetched ids and keeps up to batch.
// strategy "stage-a" ranks the enlarged pool by raw BM25 score alone;
// "stage-b" additionally runs it through the deterministic rescorer,
// per the fetch-strategy knob in §9.
func fetchMore(idx *bm25.Index, sc sessioncontext.SessionContext, ranking config.RankingConfig, st *state, minCount, batch int, strategy string, variantIsParallelFamily bool, checklistValues []string) []rescorer.Result {
	query := queryplanner.BuildQueryText(sc, ranking)
	pool := idx.GetTopN(query, minCount)

	var ranked []rescorer.Result
	if strategy == "stage-b" {
		ranked = rescorer.Rescore(pool, sc, ranking, variantIsParallelFamily, false, checklistValues)
	} else {
		ranked = make([]rescorer.Result, len(pool))
		for i, s := range pool {
			ranked[i] = rescorer.Result{Doc: s.Doc, BM25Score: s.Score, FinalScore: s.Score}
		}
	}

	candidates := make([]rescorer.Result, 0, batch)
	for _, r := range ranked {
		if _, seen := st.evaluationMap[r.Doc.ID]; seen {
			continue
		}
		if _, fetched := st.docByID[r.Doc.ID]; fetched {
			continue
		}
		candidates = append(candidates, r)
		if len(candidates) == batch {
			break
		}
	}
	return candidates
}

func recordCandidates(st *state, results []rescorer.Result, iteration int) {
	for _, r := range results {
		if _, exists := st.docByID[r.Doc.ID]; !exists {
			st.docByID[r.Doc.ID] = r.Doc
			st.scoreMap[r.Doc.ID] = r.FinalScore
			st.infoByID[r.Doc.ID] = r.Info
			st.iterationFoundMap[r.Doc.ID] = iteration
			st.profilesFetched++
		}
	}
}

func mergeEvaluations(st *state, evals []fitevaluator.Evaluation, iteration int) {
	for _, e := range evals {
		st.evaluationMap[e.ID] = e
		if _, ok := st.iterationFoundMap[e.ID]; !ok {
			st.iterationFoundMap[e.ID] = iteration
		}
	}
}

func docsOf(results []rescorer.Result) []*corpus.Practitioner {
	out := make([]*corpus.Practitioner, 0, len(results))
	for _, r := range results {
		out = append(out, r.Doc)
	}
	return out
}

func truncate(results []rescorer.Result, n int) []rescorer.Result {
	if n > len(results) {
		n = len(results)
	}
	return results[:n]
}

// rankedByCategoryThenScore implements §4.P step 6: group into
// {excellent, good, ill-fit}, sort each by scoreMap descending,
// concatenate in that order.
func rankedByCategoryThenScore(st *state) []string {
	var excellent, good, illFit []string
	for id := range st.evaluationMap {
		switch st.evaluationMap[id].FitCategory {
		case fitevaluator.Excellent:
			excellent = append(excellent, id)
		case fitevaluator.IllFit:
			illFit = append(illFit, id)
		default:
			good = append(good, id)
		}
	}
	sortByScoreDesc(excellent, st.scoreMap)
	sortByScoreDesc(good, st.scoreMap)
	sortByScoreDesc(illFit, st.scoreMap)

	out := make([]string, 0, len(excellent)+len(good)+len(illFit))
	out = append(out, excellent...)
	out = append(out, good...)
	out = append(out, illFit...)
	return out
}

func sortByScoreDesc(ids []string, scoreMap map[string]float64) {
	for i := 1; i < len(ids); i++ {
		for j := i; j > 0 && scoreMap[ids[j]] > scoreMap[ids[j-1]]; j-- {
			ids[j], ids[j-1] = ids[j-1], ids[j]
		}
	}
}

func (c *Controller) iterationDetail(st *state) IterationDetail {
	return IterationDetail{
		Iteration:        st.iteration,
		ProfilesFetched:  st.profilesFetched,
		ProfilesReviewed: st.profilesReviewed,
		Top3AllExcellent: top3AllExcellent(st, c.cfg.TargetTopK),
	}
}

func (c *Controller) buildOutcome(st *state, reason TerminationReason) Outcome {
	return c.buildOutcomeWithDetails(st, reason, nil)
}

func (c *Controller) buildOutcomeWithDetails(st *state, reason TerminationReason, details []IterationDetail) Outcome {
	ranked := rankedByCategoryThenScore(st)
	if len(ranked) > c.cfg.ShortlistSize {
		ranked = ranked[:c.cfg.ShortlistSize]
	}

	results := make([]CandidateResult, 0, len(ranked))
	var breakdown QualityBreakdown
	for _, id := range ranked {
		eval := st.evaluationMap[id]
		switch eval.FitCategory {
		case fitevaluator.Excellent:
			breakdown.Excellent++
		case fitevaluator.IllFit:
			breakdown.IllFit++
		default:
			breakdown.Good++
		}
		results = append(results, CandidateResult{
			Doc:            st.docByID[id],
			Score:          st.scoreMap[id],
			RescoringInfo:  st.infoByID[id],
			FitCategory:    eval.FitCategory,
			FitReason:      eval.BriefReason,
			IterationFound: st.iterationFoundMap[id],
		})
	}

	return Outcome{
		Results:           results,
		Iterations:        st.iteration,
		ProfilesEvaluated: st.profilesReviewed,
		ProfilesFetched:   st.profilesFetched,
		TerminationReason: reason,
		QualityBreakdown:  breakdown,
		IterationDetails:  details,
	}
}
