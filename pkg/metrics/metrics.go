package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics holds performance metrics for the authentication pipeline
type Metrics struct {
	// Request metrics
	TotalRequests      int64 `json:"total_requests"`
	SuccessfulRequests int64 `json:"successful_requests"`
	FailedRequests     int64 `json:"failed_requests"`
	ActiveRequests     int64 `json:"active_requests"`

	// Response time metrics
	AverageResponseTime time.Duration `json:"average_response_time"`
	MaxResponseTime     time.Duration `json:"max_response_time"`

	// Balance cache metrics
	CacheHits   int64 `json:"cache_hits"`
	CacheMisses int64 `json:"cache_misses"`

	// Ledger RPC metrics
	RPCCalls       int64         `json:"rpc_calls"`
	RPCFailures    int64         `json:"rpc_failures"`
	AverageRPCTime time.Duration `json:"average_rpc_time"`

	// Session metrics
	TokensIssued    int64 `json:"tokens_issued"`
	TokensRefreshed int64 `json:"tokens_refreshed"`
	TokensRevoked   int64 `json:"tokens_revoked"`

	totalResponseTime time.Duration
	totalRPCTime      time.Duration
	mutex             sync.Mutex
}

// Collector provides thread-safe metrics collection
type Collector struct {
	metrics   *Metrics
	startTime time.Time
}

// NewCollector creates a new metrics collector
func NewCollector() *Collector {
	return &Collector{
		metrics:   &Metrics{},
		startTime: time.Now(),
	}
}

// RecordRequest records a new inbound request
func (c *Collector) RecordRequest() {
	atomic.AddInt64(&c.metrics.TotalRequests, 1)
	atomic.AddInt64(&c.metrics.ActiveRequests, 1)
}

// RecordRequestComplete records request completion
func (c *Collector) RecordRequestComplete(duration time.Duration, success bool) {
	atomic.AddInt64(&c.metrics.ActiveRequests, -1)

	if success {
		atomic.AddInt64(&c.metrics.SuccessfulRequests, 1)
	} else {
		atomic.AddInt64(&c.metrics.FailedRequests, 1)
	}

	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	c.metrics.totalResponseTime += duration
	if duration > c.metrics.MaxResponseTime {
		c.metrics.MaxResponseTime = duration
	}

	totalRequests := atomic.LoadInt64(&c.metrics.TotalRequests)
	if totalRequests > 0 {
		c.metrics.AverageResponseTime = c.metrics.totalResponseTime / time.Duration(totalRequests)
	}
}

// RecordCacheHit records a balance cache hit
func (c *Collector) RecordCacheHit() {
	atomic.AddInt64(&c.metrics.CacheHits, 1)
}

// RecordCacheMiss records a balance cache miss
func (c *Collector) RecordCacheMiss() {
	atomic.AddInt64(&c.metrics.CacheMisses, 1)
}

// RecordRPCCall records a ledger RPC call
func (c *Collector) RecordRPCCall(duration time.Duration, success bool) {
	atomic.AddInt64(&c.metrics.RPCCalls, 1)
	if !success {
		atomic.AddInt64(&c.metrics.RPCFailures, 1)
	}

	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	c.metrics.totalRPCTime += duration
	totalRPCCalls := atomic.LoadInt64(&c.metrics.RPCCalls)
	if totalRPCCalls > 0 {
		c.metrics.AverageRPCTime = c.metrics.totalRPCTime / time.Duration(totalRPCCalls)
	}
}

// RecordTokenIssued records a freshly issued session token pair
func (c *Collector) RecordTokenIssued() {
	atomic.AddInt64(&c.metrics.TokensIssued, 1)
}

// RecordTokenRefreshed records a refreshed session
func (c *Collector) RecordTokenRefreshed() {
	atomic.AddInt64(&c.metrics.TokensRefreshed, 1)
}

// RecordTokenRevoked records a revoked refresh token
func (c *Collector) RecordTokenRevoked() {
	atomic.AddInt64(&c.metrics.TokensRevoked, 1)
}

// GetMetrics returns a snapshot of the current metrics
func (c *Collector) GetMetrics() *Metrics {
	c.metrics.mutex.Lock()
	defer c.metrics.mutex.Unlock()

	return &Metrics{
		TotalRequests:       atomic.LoadInt64(&c.metrics.TotalRequests),
		SuccessfulRequests:  atomic.LoadInt64(&c.metrics.SuccessfulRequests),
		FailedRequests:      atomic.LoadInt64(&c.metrics.FailedRequests),
		ActiveRequests:      atomic.LoadInt64(&c.metrics.ActiveRequests),
		AverageResponseTime: c.metrics.AverageResponseTime,
		MaxResponseTime:     c.metrics.MaxResponseTime,
		CacheHits:           atomic.LoadInt64(&c.metrics.CacheHits),
		CacheMisses:         atomic.LoadInt64(&c.metrics.CacheMisses),
		RPCCalls:            atomic.LoadInt64(&c.metrics.RPCCalls),
		RPCFailures:         atomic.LoadInt64(&c.metrics.RPCFailures),
		AverageRPCTime:      c.metrics.AverageRPCTime,
		TokensIssued:        atomic.LoadInt64(&c.metrics.TokensIssued),
		TokensRefreshed:     atomic.LoadInt64(&c.metrics.TokensRefreshed),
		TokensRevoked:       atomic.LoadInt64(&c.metrics.TokensRevoked),
	}
}

// GetUptime returns how long the collector has been running
func (c *Collector) GetUptime() time.Duration {
	return time.Since(c.startTime)
}

// GetCacheHitRatio returns the cache hit percentage
func (c *Collector) GetCacheHitRatio() float64 {
	hits := atomic.LoadInt64(&c.metrics.CacheHits)
	misses := atomic.LoadInt64(&c.metrics.CacheMisses)
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total) * 100
}
