package llmqueue

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_CallSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	mgr := NewManager(&Config{
		MaxConcurrent:       2,
		CriticalQueueSize:   4,
		BackgroundQueueSize: 4,
		CriticalTimeout:     2 * time.Second,
		BackgroundTimeout:   2 * time.Second,
	}, nil)
	defer mgr.Stop()

	client := NewClient(mgr, PriorityCritical, 2*time.Second)
	body, err := client.Call(context.Background(), srv.URL, map[string]interface{}{"model": "x"}, CallKindSessionGeneral)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(body) == "" {
		t.Errorf("expected non-empty body")
	}
}

func TestClient_CallNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	mgr := NewManager(&Config{
		MaxConcurrent:       1,
		CriticalQueueSize:   1,
		BackgroundQueueSize: 1,
		CriticalTimeout:     2 * time.Second,
		BackgroundTimeout:   2 * time.Second,
	}, nil)
	defer mgr.Stop()

	client := NewClient(mgr, PriorityCritical, 2*time.Second)
	_, err := client.Call(context.Background(), srv.URL, nil, CallKindFitEvaluation)
	if err == nil {
		t.Errorf("expected error for 500 response")
	}
}

func TestManager_TracksCallKindOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	}))
	defer srv.Close()

	mgr := NewManager(&Config{
		MaxConcurrent:       2,
		CriticalQueueSize:   4,
		BackgroundQueueSize: 4,
		CriticalTimeout:     2 * time.Second,
		BackgroundTimeout:   2 * time.Second,
	}, nil)
	defer mgr.Stop()

	client := NewClient(mgr, PriorityCritical, 2*time.Second)
	if _, err := client.Call(context.Background(), srv.URL, nil, CallKindSessionClinical); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	metrics := mgr.GetMetrics()
	if metrics.CallKindProcessed[CallKindSessionClinical] != 1 {
		t.Errorf("expected 1 processed session-clinical call, got %d", metrics.CallKindProcessed[CallKindSessionClinical])
	}
	if metrics.CallKindFailed[CallKindSessionClinical] != 0 {
		t.Errorf("expected 0 failed session-clinical calls, got %d", metrics.CallKindFailed[CallKindSessionClinical])
	}
}

func TestManager_QueueFullDrops(t *testing.T) {
	mgr := NewManager(&Config{
		MaxConcurrent:       1,
		CriticalQueueSize:   1,
		BackgroundQueueSize: 1,
		CriticalTimeout:     time.Second,
		BackgroundTimeout:   time.Second,
	}, nil)
	defer mgr.Stop()

	respCh := make(chan *Response, 1)
	errCh := make(chan error, 1)
	blockedCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Fill the queue past capacity by submitting more than CriticalQueueSize
	// requests back to back without draining them.
	var lastErr error
	for i := 0; i < 5; i++ {
		req := &Request{
			ID:         "t",
			Priority:   PriorityCritical,
			Context:    blockedCtx,
			URL:        "http://127.0.0.1:0",
			ResponseCh: respCh,
			ErrorCh:    errCh,
			SubmitTime: time.Now(),
			Timeout:    time.Second,
		}
		if err := mgr.Submit(req); err != nil {
			lastErr = err
		}
	}
	if lastErr == nil {
		t.Errorf("expected at least one dropped submission under queue pressure")
	}
}

func TestCircuitBreaker_OpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(2, 50*time.Millisecond)
	fail := func() error { return context.DeadlineExceeded }

	cb.Call(fail)
	cb.Call(fail)
	if !cb.IsOpen() {
		t.Fatalf("expected circuit to be open after threshold failures")
	}

	if err := cb.Call(func() error { return nil }); err != ErrCircuitOpen {
		t.Errorf("expected ErrCircuitOpen while open, got %v", err)
	}

	time.Sleep(60 * time.Millisecond)
	if err := cb.Call(func() error { return nil }); err != nil {
		t.Errorf("expected half-open probe to succeed, got %v", err)
	}
}
