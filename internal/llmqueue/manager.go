// Package llmqueue coordinates bounded-concurrency, priority-ordered
// calls to the external language model. It is the concrete mechanism
// behind the specification's "each LLM call carries an independent
// deadline" and "one failure downgrades that signal" requirements: every
// call goes through a shared semaphore and circuit breaker so a slow or
// failing provider cannot starve or poison the whole request.
package llmqueue

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"sync"
	"time"
)

// Manager coordinates all LLM requests.
type Manager struct {
	criticalQueue   chan *Request
	backgroundQueue chan *Request

	maxConcurrent int
	semaphore     chan struct{}

	circuitBreaker *CircuitBreaker

	mu      sync.RWMutex
	metrics Metrics

	stopCh chan struct{}
	wg     sync.WaitGroup

	config *Config
}

// NewManager creates a new queue manager and starts its dispatcher.
func NewManager(config *Config, circuitBreaker *CircuitBreaker) *Manager {
	m := &Manager{
		criticalQueue:   make(chan *Request, config.CriticalQueueSize),
		backgroundQueue: make(chan *Request, config.BackgroundQueueSize),
		maxConcurrent:   config.MaxConcurrent,
		semaphore:       make(chan struct{}, config.MaxConcurrent),
		circuitBreaker:  circuitBreaker,
		metrics: Metrics{
			CurrentQueueDepth: map[Priority]int{
				PriorityCritical:   0,
				PriorityBackground: 0,
			},
			CallKindProcessed: make(map[CallKind]int64),
			CallKindFailed:    make(map[CallKind]int64),
		},
		stopCh: make(chan struct{}),
		config: config,
	}

	m.wg.Add(1)
	go m.dispatcher()

	log.Printf("[LLM Queue] Started with %d concurrent slots", config.MaxConcurrent)
	return m
}

// Submit adds a request to the queue (non-blocking with drop behavior).
func (m *Manager) Submit(req *Request) error {
	var queue chan *Request
	var priorityName string

	if req.Priority == PriorityCritical {
		queue = m.criticalQueue
		priorityName = "critical"
		m.mu.Lock()
		m.metrics.CriticalEnqueued++
		m.mu.Unlock()
	} else {
		queue = m.backgroundQueue
		priorityName = "background"
		m.mu.Lock()
		m.metrics.BackgroundEnqueued++
		m.mu.Unlock()
	}

	select {
	case queue <- req:
		m.mu.Lock()
		m.metrics.CurrentQueueDepth[req.Priority] = len(queue)
		m.mu.Unlock()
		return nil

	default:
		m.mu.Lock()
		if req.Priority == PriorityCritical {
			m.metrics.CriticalDropped++
		} else {
			m.metrics.BackgroundDropped++
		}
		m.mu.Unlock()

		log.Printf("[LLM Queue] WARNING: %s queue full, dropping request %s", priorityName, req.ID)
		return fmt.Errorf("queue full")
	}
}

// dispatcher selects the next request: critical first, then background.
func (m *Manager) dispatcher() {
	defer m.wg.Done()

	for {
		select {
		case <-m.stopCh:
			return

		case req := <-m.criticalQueue:
			m.semaphore <- struct{}{}
			m.wg.Add(1)
			go m.processRequest(req)

		case req := <-m.backgroundQueue:
			select {
			case criticalReq := <-m.criticalQueue:
				m.backgroundQueue <- req
				m.semaphore <- struct{}{}
				m.wg.Add(1)
				go m.processRequest(criticalReq)
			default:
				m.semaphore <- struct{}{}
				m.wg.Add(1)
				go m.processRequest(req)
			}
		}
	}
}

func (m *Manager) processRequest(req *Request) {
	defer func() {
		<-m.semaphore
		m.wg.Done()

		m.mu.Lock()
		if req.Priority == PriorityCritical {
			m.metrics.CriticalProcessed++
		} else {
			m.metrics.BackgroundProcessed++
		}
		m.mu.Unlock()
	}()

	startTime := time.Now()

	if req.Context.Err() != nil {
		m.recordCallOutcome(req.Kind, false)
		req.ErrorCh <- req.Context.Err()
		return
	}

	ctx, cancel := context.WithTimeout(req.Context, req.Timeout)
	defer cancel()

	resp, err := m.executeHTTPRequest(ctx, req)
	if err != nil {
		log.Printf("[LLM Queue] %s request %s failed after %s: %v", req.Kind, req.ID, time.Since(startTime), err)
		m.recordCallOutcome(req.Kind, false)
		req.ErrorCh <- err
		return
	}

	select {
	case req.ResponseCh <- resp:
		log.Printf("[LLM Queue] %s request %s completed in %s", req.Kind, req.ID, time.Since(startTime))
		m.recordCallOutcome(req.Kind, true)
	case <-ctx.Done():
		log.Printf("[LLM Queue] %s request %s timeout after %s", req.Kind, req.ID, time.Since(startTime))
		m.recordCallOutcome(req.Kind, false)
		req.ErrorCh <- ctx.Err()
	}
}

// recordCallOutcome tracks per-call-kind success/failure so /api/stats
// can show which domain signal (a SessionContext leg, Fit evaluation,
// or the Checklist call) is actually degrading.
func (m *Manager) recordCallOutcome(kind CallKind, success bool) {
	if kind == "" {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if success {
		m.metrics.CallKindProcessed[kind]++
	} else {
		m.metrics.CallKindFailed[kind]++
	}
}

func (m *Manager) executeHTTPRequest(ctx context.Context, req *Request) (*Response, error) {
	if m.circuitBreaker != nil && m.circuitBreaker.IsOpen() {
		return nil, ErrCircuitOpen
	}

	jsonData, err := json.Marshal(req.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", req.URL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	client := &http.Client{
		Timeout: req.Timeout,
		Transport: &http.Transport{
			ResponseHeaderTimeout: req.Timeout,
			IdleConnTimeout:       req.Timeout,
			MaxIdleConns:          10,
			DisableKeepAlives:     false,
		},
	}

	var httpResp *http.Response
	callErr := m.circuitBreakerOrDirect(func() error {
		var err error
		httpResp, err = client.Do(httpReq)
		return err
	})
	if callErr != nil {
		return nil, fmt.Errorf("http request failed: %w", callErr)
	}

	defer httpResp.Body.Close()
	body, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return &Response{
		StatusCode: httpResp.StatusCode,
		Body:       body,
	}, nil
}

func (m *Manager) circuitBreakerOrDirect(fn func() error) error {
	if m.circuitBreaker == nil {
		return fn()
	}
	return m.circuitBreaker.Call(fn)
}

// GetMetrics returns current queue statistics. The map fields are copied
// rather than shared, since the returned Metrics is read (e.g. JSON
// encoded for /api/stats) outside of m.mu.
func (m *Manager) GetMetrics() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()

	metrics := m.metrics

	metrics.CurrentQueueDepth = make(map[Priority]int, len(m.metrics.CurrentQueueDepth))
	for k, v := range m.metrics.CurrentQueueDepth {
		metrics.CurrentQueueDepth[k] = v
	}
	metrics.CurrentQueueDepth[PriorityCritical] = len(m.criticalQueue)
	metrics.CurrentQueueDepth[PriorityBackground] = len(m.backgroundQueue)

	metrics.CallKindProcessed = make(map[CallKind]int64, len(m.metrics.CallKindProcessed))
	for k, v := range m.metrics.CallKindProcessed {
		metrics.CallKindProcessed[k] = v
	}
	metrics.CallKindFailed = make(map[CallKind]int64, len(m.metrics.CallKindFailed))
	for k, v := range m.metrics.CallKindFailed {
		metrics.CallKindFailed[k] = v
	}

	return metrics
}

// Stop gracefully shuts down the queue.
func (m *Manager) Stop() {
	close(m.stopCh)
	m.wg.Wait()
	log.Printf("[LLM Queue] Stopped")
}
