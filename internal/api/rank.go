package api

import (
	"context"
	"strings"
	"time"

	"practitioner-ranker/internal/checklist"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/progressive"
	"practitioner-ranker/internal/queryplanner"
	"practitioner-ranker/internal/rescorer"
	"practitioner-ranker/internal/sessioncontext"
)

// variantIsParallelFamily decides the ambiguity-policy switch described
// in the specification's §4.R. v2, v6, and v7 all share the same
// BM25-top-N + deterministic-rescore base pipeline ("parallel" in the
// sense that C's three session-context calls feed it directly, with no
// intervening structured IdealProfile build); v5's ideal-profile-driven
// matching is a distinct policy. v5 is not implemented as a separate
// pipeline in this build (see DESIGN.md) and is treated as an alias of
// v2, so it is excluded from the parallel family for ordering purposes
// only when explicitly requested.
func variantIsParallelFamily(variant string) bool {
	return variant != "v5"
}

// isV6 / isV7 classify the request variant. An unrecognized variant
// falls back to v2, matching the "partial degradation over failure"
// policy in §7.
func isV6(variant string) bool { return variant == "v6" || variant == "v7" }
func isV7(variant string) bool { return variant == "v7" }

func normalizeVariant(v string) string {
	switch v {
	case "v2", "v5", "v6", "v7":
		return v
	default:
		return "v2"
	}
}

// runRanking executes the full pipeline: C -> pre-filter -> Q -> I -> R,
// with the V6 progressive loop and V7 checklist boost layered in when
// requested by the variant.
func runRanking(ctx context.Context, d *Deps, req rankRequest) rankResponse {
	start := time.Now()
	variant := normalizeVariant(req.Variant)

	shortlistSize := req.ShortlistSize
	if shortlistSize <= 0 {
		shortlistSize = 10
	}

	conversation := strings.Join(req.Messages, "\n")

	var sc sessioncontext.SessionContext
	if d.SessionCache != nil {
		if cached, ok := d.SessionCache.Get(ctx, req.Query, conversation); ok {
			sc = cached
		}
	}
	if sc.QPatient == "" {
		sc = d.SessionExtractor.Extract(ctx, req.Query, conversation, req.Specialty)
		if d.SessionCache != nil {
			_ = d.SessionCache.Set(ctx, req.Query, conversation, sc)
		}
	}

	filters := queryplanner.Filters{
		Specialty:         req.Specialty,
		Location:          firstNonEmpty(req.LocationFilter, req.Location),
		InsuranceProvider: req.InsurancePreference,
		Gender:            req.Gender,
		PatientAgeGroup:   req.PatientAgeGroup,
	}
	if len(req.Languages) > 0 {
		filters.Language = req.Languages[0]
	}

	candidates := queryplanner.Apply(d.Corpus, filters, sc)

	var checklistList checklist.Checklist
	if isV7(variant) && d.ChecklistGen != nil {
		checklistList = d.ChecklistGen.Generate(ctx, req.Query)
	}

	if len(candidates) == 0 {
		return emptyResponse(req.Query, sc, start)
	}

	idx := d.buildIndex(candidates)
	rankingCfg := d.Config.Ranking

	if isV6(variant) {
		progCfg := d.Config.Progressive
		if req.MaxIterations > 0 {
			progCfg.MaxIterations = req.MaxIterations
		}
		if req.MaxProfilesReviewed > 0 {
			progCfg.MaxProfilesReviewed = req.MaxProfilesReviewed
		}
		if req.Batch > 0 {
			progCfg.Batch = req.Batch
		}
		if req.TargetTopK > 0 {
			progCfg.TargetTopK = req.TargetTopK
		}
		progCfg.ShortlistSize = shortlistSize

		controller := progressive.NewController(idx, d.FitEvaluator, progCfg, rankingCfg)
		evalStart := time.Now()
		outcome := controller.Run(ctx, req.Query, sc, variantIsParallelFamily(variant), checklistList.FilterValues)
		evalElapsed := time.Since(evalStart)

		return progressiveResponse(req.Query, sc, outcome, start, evalElapsed)
	}

	stageA := queryplanner.RunStageA(idx, sc, rankingCfg)
	stageB := rescorer.Rescore(stageA, sc, rankingCfg, variantIsParallelFamily(variant), variant == "v2", checklistList.FilterValues)

	if len(stageB) > shortlistSize {
		stageB = stageB[:shortlistSize]
	}

	var evals []fitevaluator.Evaluation
	var evalElapsed time.Duration
	if req.EvaluateFit && d.FitEvaluator != nil {
		evalStart := time.Now()
		evals, _ = d.FitEvaluator.Evaluate(ctx, req.Query, resultDocs(stageB))
		evalElapsed = time.Since(evalStart)
	}

	return baseResponse(req.Query, sc, stageB, evals, start, evalElapsed)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
