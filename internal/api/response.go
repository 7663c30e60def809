package api

import (
	"time"

	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/progressive"
	"practitioner-ranker/internal/rescorer"
	"practitioner-ranker/internal/sessioncontext"
)

func resultDocs(results []rescorer.Result) []*corpus.Practitioner {
	docs := make([]*corpus.Practitioner, 0, len(results))
	for _, r := range results {
		docs = append(docs, r.Doc)
	}
	return docs
}

func sessionSummary(sc sessioncontext.SessionContext) sessionContextSummary {
	return sessionContextSummary{
		Goal:             sc.Goal,
		Specificity:      sc.Specificity,
		PrimaryIntent:    sc.PrimaryIntent,
		Confidence:       sc.Confidence,
		IsQueryAmbiguous: sc.IsQueryAmbiguous,
		IntentTerms:      sc.IntentTerms,
		AnchorPhrases:    sc.AnchorPhrases,
		Fallback: fallbackSummary{
			GeneralIntent:  sc.Fallback.GeneralIntent,
			ClinicalIntent: sc.Fallback.ClinicalIntent,
			Insights:       sc.Fallback.Insights,
		},
	}
}

func emptyResponse(query string, sc sessioncontext.SessionContext, start time.Time) rankResponse {
	elapsed := time.Since(start).Milliseconds()
	return rankResponse{
		Success:      true,
		Query:        query,
		TotalResults: 0,
		Results:      []rankedResult{},
		QueryInfo: queryInfo{
			SessionContext:    sessionSummary(sc),
			TerminationReason: "empty-results",
		},
		ProcessingTime: processingTime{RankingMs: elapsed, TotalMs: elapsed},
	}
}

// evalByID maps candidate id to its evaluation, for building fit_category
// / fit_reason on the base (non-V6) response when evaluateFit was set.
func evalByID(evals []fitevaluator.Evaluation) map[string]fitevaluator.Evaluation {
	m := make(map[string]fitevaluator.Evaluation, len(evals))
	for _, e := range evals {
		m[e.ID] = e
	}
	return m
}

func baseResponse(query string, sc sessioncontext.SessionContext, results []rescorer.Result, evals []fitevaluator.Evaluation, start time.Time, evalElapsed time.Duration) rankResponse {
	byID := evalByID(evals)

	out := make([]rankedResult, 0, len(results))
	for i, r := range results {
		rr := rankedResult{
			Rank:          i + 1,
			ID:            r.Doc.ID,
			Name:          r.Doc.Name,
			Title:         r.Doc.Title,
			Specialty:     r.Doc.Specialty,
			Score:         r.FinalScore,
			BM25Score:     r.BM25Score,
			RescoringInfo: r.Info,
			ProfileURL:    r.Doc.ProfileURL,
		}
		if e, ok := byID[r.Doc.ID]; ok {
			rr.FitCategory = string(e.FitCategory)
			rr.FitReason = e.BriefReason
		}
		out = append(out, rr)
	}

	total := time.Since(start).Milliseconds()
	evalMs := evalElapsed.Milliseconds()
	return rankResponse{
		Success:      true,
		Query:        query,
		TotalResults: len(out),
		Results:      out,
		QueryInfo: queryInfo{
			SessionContext: sessionSummary(sc),
		},
		ProcessingTime: processingTime{
			RankingMs:    total - evalMs,
			EvaluationMs: evalMs,
			TotalMs:      total,
		},
	}
}

func progressiveResponse(query string, sc sessioncontext.SessionContext, outcome progressive.Outcome, start time.Time, evalElapsed time.Duration) rankResponse {
	out := make([]rankedResult, 0, len(outcome.Results))
	for i, cr := range outcome.Results {
		iter := cr.IterationFound
		out = append(out, rankedResult{
			Rank:           i + 1,
			ID:             cr.Doc.ID,
			Name:           cr.Doc.Name,
			Title:          cr.Doc.Title,
			Specialty:      cr.Doc.Specialty,
			Score:          cr.Score,
			BM25Score:      cr.Score,
			RescoringInfo:  cr.RescoringInfo,
			FitCategory:    string(cr.FitCategory),
			FitReason:      cr.FitReason,
			IterationFound: &iter,
			ProfileURL:     cr.Doc.ProfileURL,
		})
	}

	iterations := outcome.Iterations
	profilesEvaluated := outcome.ProfilesEvaluated
	total := time.Since(start).Milliseconds()
	evalMs := evalElapsed.Milliseconds()

	return rankResponse{
		Success:      true,
		Query:        query,
		TotalResults: len(out),
		Results:      out,
		QueryInfo: queryInfo{
			SessionContext:    sessionSummary(sc),
			Iterations:        &iterations,
			ProfilesEvaluated: &profilesEvaluated,
			TerminationReason: string(outcome.TerminationReason),
			QualityBreakdown:  outcome.QualityBreakdown,
		},
		ProcessingTime: processingTime{
			RankingMs:    total - evalMs,
			EvaluationMs: evalMs,
			TotalMs:      total,
		},
	}
}
