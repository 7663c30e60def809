// Package metrics aggregates the process-wide counters surfaced by the
// GET /api/stats operational endpoint: LLM queue depth/throughput,
// circuit breaker state, and corpus size. It is a thin read-only view
// over the components that already track this state themselves.
package metrics

import (
	"practitioner-ranker/internal/llmqueue"
)

// Snapshot is the point-in-time operational summary returned by /api/stats.
type Snapshot struct {
	CorpusSize         int                    `json:"corpusSize"`
	BlacklistedCount   int                    `json:"blacklistedCount"`
	LLMQueue           llmqueue.Metrics       `json:"llmQueue"`
	CircuitBreaker     map[string]interface{} `json:"circuitBreaker"`
}

// Collector reads live state from the components it wraps; it holds no
// state of its own.
type Collector struct {
	manager        *llmqueue.Manager
	circuitBreaker *llmqueue.CircuitBreaker
	corpusSize     int
	blacklistedCount int
}

// NewCollector builds a metrics Collector bound to the running
// llmqueue.Manager and circuit breaker, with the corpus sizes fixed at
// startup (the corpus is immutable thereafter).
func NewCollector(manager *llmqueue.Manager, cb *llmqueue.CircuitBreaker, corpusSize, blacklistedCount int) *Collector {
	return &Collector{manager: manager, circuitBreaker: cb, corpusSize: corpusSize, blacklistedCount: blacklistedCount}
}

// Snapshot returns the current operational state.
func (c *Collector) Snapshot() Snapshot {
	var cbStats map[string]interface{}
	if c.circuitBreaker != nil {
		cbStats = c.circuitBreaker.Stats()
	}
	return Snapshot{
		CorpusSize:       c.corpusSize,
		BlacklistedCount: c.blacklistedCount,
		LLMQueue:         c.manager.GetMetrics(),
		CircuitBreaker:   cbStats,
	}
}
