package llmqueue

import (
	"context"
	"net/http"
	"time"
)

// Priority levels. Critical covers the user-facing SessionContext legs
// and the per-iteration Fit evaluator call; Background covers the V7
// checklist call, which can tolerate queuing behind user-facing work.
type Priority int

const (
	PriorityCritical Priority = 0
	PriorityBackground Priority = 1
)

// CallKind tags a Request with which domain signal it feeds, so
// /api/stats can show which of C's three legs, E, or K is actually
// degrading, rather than only an undifferentiated critical/background
// count.
type CallKind string

const (
	CallKindSessionGeneral  CallKind = "session-general"
	CallKindSessionClinical CallKind = "session-clinical"
	CallKindSessionInsights CallKind = "session-insights"
	CallKindFitEvaluation   CallKind = "fit-evaluation"
	CallKindChecklist       CallKind = "checklist"
)

// Request encapsulates a single LLM call submitted to the Manager.
type Request struct {
	ID       string
	Priority Priority
	Kind     CallKind
	Context  context.Context

	URL     string
	Payload map[string]interface{}

	ResponseCh chan<- *Response
	ErrorCh    chan<- error

	SubmitTime time.Time
	Timeout    time.Duration
}

// Response encapsulates the raw LLM HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
	HTTPResp   *http.Response
}

// Metrics tracks queue throughput, surfaced at /api/stats.
type Metrics struct {
	CriticalEnqueued    int64
	CriticalProcessed   int64
	CriticalDropped     int64
	BackgroundEnqueued  int64
	BackgroundProcessed int64
	BackgroundDropped   int64
	CurrentQueueDepth   map[Priority]int

	// CallKindProcessed/CallKindFailed break the above totals down by
	// which C leg, E, or K call kind they belong to.
	CallKindProcessed map[CallKind]int64
	CallKindFailed    map[CallKind]int64
}
