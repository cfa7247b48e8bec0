package ratelimiter

import (
	"sync"
	"time"
)

// RequestCounter tracks request count and reset time for a caller
type RequestCounter struct {
	Count     int
	ResetTime time.Time
}

// RateLimiter implements fixed-window rate limiting keyed by calling
// application (API key), with in-memory tracking
type RateLimiter struct {
	requests map[string]*RequestCounter
	mutex    sync.Mutex
	limit    int
	window   time.Duration
}

// New creates a new RateLimiter with the specified limit and window
func New(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		requests: make(map[string]*RequestCounter),
		limit:    limit,
		window:   window,
	}
}

// IsAllowed checks if the caller identified by key may make a request
func (rl *RateLimiter) IsAllowed(key string) bool {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()

	counter, exists := rl.requests[key]
	if !exists {
		rl.requests[key] = &RequestCounter{
			Count:     1,
			ResetTime: now.Add(rl.window),
		}
		return true
	}

	if now.After(counter.ResetTime) {
		counter.Count = 1
		counter.ResetTime = now.Add(rl.window)
		return true
	}

	if counter.Count >= rl.limit {
		return false
	}

	counter.Count++
	return true
}

// RequestInfo returns the current request count and reset time for a key
func (rl *RateLimiter) RequestInfo(key string) (count int, resetTime time.Time) {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	counter, exists := rl.requests[key]
	if !exists || time.Now().After(counter.ResetTime) {
		return 0, time.Now().Add(rl.window)
	}

	return counter.Count, counter.ResetTime
}

// Cleanup removes expired entries to prevent memory leaks
func (rl *RateLimiter) Cleanup() {
	rl.mutex.Lock()
	defer rl.mutex.Unlock()

	now := time.Now()
	for key, counter := range rl.requests {
		if now.After(counter.ResetTime) {
			delete(rl.requests, key)
		}
	}
}
