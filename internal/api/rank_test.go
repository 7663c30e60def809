package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"practitioner-ranker/internal/config"
	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/fitevaluator"
	"practitioner-ranker/internal/llmqueue"
	"practitioner-ranker/internal/metrics"
	"practitioner-ranker/internal/sessioncontext"
)

// stubLLMServer returns canned JSON chat-completion responses regardless
// of prompt content: a generic-intent-shaped object for SessionContext's
// three legs (all three shapes are a superset of each other's fields, so
// one fixed body satisfies all of them after shape coercion) and an
// empty per_doctor list for the Fit evaluator.
func stubLLMServer(t *testing.T) (*httptest.Server, func()) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := `{"goal":"diagnostic_workup","specificity":"named_procedure","confidence":0.9,"expansion_terms":["ablation"],"negative_terms":[],"anchor_phrases":["catheter ablation"],"likely_subspecialties":[{"name":"Electrophysiology","confidence":0.8}],"primary_intent":"coronary_ischaemic","symptoms":"","preferences":"","urgency":"routine","specialty":"Cardiology","location":"","summary":"","per_doctor":[]}`
		w.Write([]byte(`{"choices":[{"message":{"content":` + jsonQuote(body) + `}}]}`))
	}))
	return srv, srv.Close
}

func jsonQuote(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func sampleCandidates() []corpus.Practitioner {
	return []corpus.Practitioner{
		{
			ID:                "p1",
			Name:              "Dr. A",
			Title:             "Dr",
			Specialty:         "Cardiology",
			Subspecialties:    []string{"Electrophysiology"},
			ClinicalExpertise: "Procedure: Catheter Ablation",
			RatingValue:       4.9,
			ReviewCount:       120,
		},
		{
			ID:                "p2",
			Name:              "Dr. B",
			Title:             "Dr",
			Specialty:         "Cardiology",
			ClinicalExpertise: "Procedure: Echocardiogram",
		},
	}
}

func testDeps(t *testing.T) (*Deps, func()) {
	t.Helper()
	srv, closeSrv := stubLLMServer(t)

	mgr := llmqueue.NewManager(&llmqueue.Config{
		MaxConcurrent: 4, CriticalQueueSize: 16, BackgroundQueueSize: 16,
		CriticalTimeout: 3 * time.Second, BackgroundTimeout: 3 * time.Second,
	}, nil)
	client := llmqueue.NewClient(mgr, llmqueue.PriorityCritical, 3*time.Second)

	extractor := sessioncontext.NewExtractor(client, srv.URL, "general-model", "clinical-model", "insights-model")
	evaluator := fitevaluator.NewEvaluator(client, srv.URL, "eval-model")

	cb := llmqueue.NewCircuitBreaker(5, time.Minute)
	candidates := sampleCandidates()

	deps := &Deps{
		Config:           &config.Config{Ranking: config.DefaultRankingConfig(), Progressive: config.DefaultProgressiveConfig(), Checklist: config.DefaultChecklistConfig()},
		Corpus:           candidates,
		SessionExtractor: extractor,
		FitEvaluator:     evaluator,
		Metrics:          metrics.NewCollector(mgr, cb, len(candidates), 0),
	}

	cleanup := func() {
		mgr.Stop()
		closeSrv()
	}
	return deps, cleanup
}

func TestSetupRouter_RankEndpointReturnsRankedResults(t *testing.T) {
	deps, cleanup := testDeps(t)
	defer cleanup()

	r := SetupRouter(deps)

	body, _ := json.Marshal(rankRequest{Query: "I need SVT ablation", Variant: "v2"})
	req := httptest.NewRequest(http.MethodPost, "/api/rank", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	var resp rankResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if !resp.Success {
		t.Errorf("expected success=true")
	}
	if resp.TotalResults == 0 {
		t.Errorf("expected non-empty results for a matching corpus")
	}
}

func TestSetupRouter_RankEndpointRejectsEmptyQuery(t *testing.T) {
	deps, cleanup := testDeps(t)
	defer cleanup()

	r := SetupRouter(deps)

	body, _ := json.Marshal(rankRequest{Query: ""})
	req := httptest.NewRequest(http.MethodPost, "/api/rank", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty query, got %d", w.Code)
	}
}

func TestSetupRouter_SearchEndpointMirrorsRank(t *testing.T) {
	deps, cleanup := testDeps(t)
	defer cleanup()

	r := SetupRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/search?q=ablation&limit=1", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp rankResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response JSON: %v", err)
	}
	if len(resp.Results) > 1 {
		t.Errorf("expected limit=1 to cap results, got %d", len(resp.Results))
	}
}

func TestSetupRouter_StatsEndpoint(t *testing.T) {
	deps, cleanup := testDeps(t)
	defer cleanup()

	r := SetupRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/api/stats", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestSetupRouter_HealthEndpoint(t *testing.T) {
	deps, cleanup := testDeps(t)
	defer cleanup()

	r := SetupRouter(deps)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}
