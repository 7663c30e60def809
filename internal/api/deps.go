// Package api exposes the HTTP surface described in the specification's
// §6.1: POST /api/rank, GET /api/search, GET /api/status, GET /api/stats,
// GET /health. Handlers are gin.HandlerFunc closures over a Deps struct
// holding the immutable corpus and the per-process component instances,
// following the teacher's router/handler split
// (internal/api/router.go, internal/api/handlers.go).
package api

import (
	"practitioner-ranker/internal/bm25"
	"practitioner-ranker/internal/checklist"
	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/metrics"
	"practitioner-ranker/internal/progressive"
	"practitioner-ranker/internal/rediscache"
	"practitioner-ranker/internal/sessioncontext"
)

// Deps holds every component a ranking request touches. It is built once
// at startup in cmd/server/main.go and passed to SetupRouter; nothing in
// it is mutated on the request path, matching the specification's
// "corpus is immutable, shared read-only" resource policy.
type Deps struct {
	Config *config.Config

	Corpus           []corpus.Practitioner
	BlacklistedCount int

	SessionExtractor *sessioncontext.Extractor
	SessionCache     *rediscache.Cache // may be nil: caching is optional

	FitEvaluator     *fitevaluator.Evaluator
	ChecklistGen     *checklist.Generator

	Metrics *metrics.Collector
}

// buildIndex constructs a fresh, per-request BM25 index over the given
// candidate slice. Per the specification's §5 resource policy, BM25
// index state is per-request and never shared across requests.
func (d *Deps) buildIndex(candidates []*corpus.Practitioner) *bm25.Index {
	return bm25.Build(candidates, d.Config.Ranking)
}

func (d *Deps) newController(idx *bm25.Index) *progressive.Controller {
	return progressive.NewController(idx, d.FitEvaluator, d.Config.Progressive, d.Config.Ranking)
}
