package fitevaluator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"practitioner-ranker/internal/corpus"
	"practitioner-ranker/internal/llmqueue"
)

func testClientWithURL(t *testing.T, handler http.HandlerFunc) (*llmqueue.Client, string, func()) {
	t.Helper()
	srv := httptest.NewServer(handler)
	mgr := llmqueue.NewManager(&llmqueue.Config{
		MaxConcurrent: 2, CriticalQueueSize: 4, BackgroundQueueSize: 4,
		CriticalTimeout: 2 * time.Second, BackgroundTimeout: 2 * time.Second,
	}, nil)
	client := llmqueue.NewClient(mgr, llmqueue.PriorityCritical, 2*time.Second)
	return client, srv.URL, func() { mgr.Stop(); srv.Close() }
}

func TestEvaluate_MapsByID(t *testing.T) {
	body := `{"choices":[{"message":{"content":"{\"overall_reason\":\"ok\",\"per_doctor\":[{\"id\":\"p1\",\"practitioner_name\":\"Dr A\",\"fit_category\":\"excellent\",\"brief_reason\":\"great match\"}]}"}}]}`
	client, url, cleanup := testClientWithURL(t, func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) })
	defer cleanup()

	e := NewEvaluator(client, url, "model")
	candidates := []*corpus.Practitioner{{ID: "p1", Name: "Dr A"}}
	out, ok := e.Evaluate(context.Background(), "query", candidates)
	if !ok {
		t.Fatalf("expected ok=true on a successful evaluation")
	}
	if len(out) != 1 || out[0].FitCategory != Excellent {
		t.Fatalf("expected excellent fit for p1, got %+v", out)
	}
}

func TestEvaluate_LegacyBooleanTranslation(t *testing.T) {
	body := `{"choices":[{"message":{"content":"{\"per_doctor\":[{\"id\":\"p1\",\"excellent_fit\":false}]}"}}]}`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.Write([]byte(body)) }))
	defer srv.Close()

	mgr := llmqueue.NewManager(&llmqueue.Config{
		MaxConcurrent: 2, CriticalQueueSize: 4, BackgroundQueueSize: 4,
		CriticalTimeout: 2 * time.Second, BackgroundTimeout: 2 * time.Second,
	}, nil)
	defer mgr.Stop()
	client := llmqueue.NewClient(mgr, llmqueue.PriorityCritical, 2*time.Second)

	e := NewEvaluator(client, srv.URL, "model")
	candidates := []*corpus.Practitioner{{ID: "p1", Name: "Dr A"}}
	out, ok := e.Evaluate(context.Background(), "query", candidates)
	if !ok {
		t.Fatalf("expected ok=true on a successful evaluation")
	}
	if out[0].FitCategory != IllFit {
		t.Fatalf("expected legacy excellent_fit=false to map to ill-fit, got %v", out[0].FitCategory)
	}
}

func TestEvaluate_TransportFailureDefaultsToGood(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mgr := llmqueue.NewManager(&llmqueue.Config{
		MaxConcurrent: 1, CriticalQueueSize: 1, BackgroundQueueSize: 1,
		CriticalTimeout: time.Second, BackgroundTimeout: time.Second,
	}, nil)
	defer mgr.Stop()
	client := llmqueue.NewClient(mgr, llmqueue.PriorityCritical, time.Second)

	e := NewEvaluator(client, srv.URL, "model")
	candidates := []*corpus.Practitioner{{ID: "p1"}, {ID: "p2"}}
	out, ok := e.Evaluate(context.Background(), "query", candidates)
	if ok {
		t.Fatalf("expected ok=false on transport failure")
	}
	for _, ev := range out {
		if ev.FitCategory != Good {
			t.Errorf("expected default Good on transport failure, got %v", ev.FitCategory)
		}
	}
}

func TestResolveCategory_UnknownDefaultsToGood(t *testing.T) {
	d := perDoctorResponse{FitCategory: "unknown-category"}
	if resolveCategory(d) != Good {
		t.Errorf("expected unknown category to default to Good")
	}
}
