package cache

import (
	"fmt"
	"sync"
	"time"
)

// BalanceEntry represents a cached token balance with its timestamp
type BalanceEntry struct {
	Balance   float64
	Timestamp time.Time
}

// BalanceCache provides thread-safe caching of on-chain token balances with
// TTL support, plus a permanent cache of mint decimals. Mint decimals are
// immutable on-chain, so decimals entries never expire.
type BalanceCache struct {
	balances map[string]*BalanceEntry
	decimals map[string]uint8
	mutex    sync.RWMutex
	ttl      time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

// New creates a new BalanceCache instance with the specified balance TTL
func New(ttl time.Duration) *BalanceCache {
	c := &BalanceCache{
		balances: make(map[string]*BalanceEntry),
		decimals: make(map[string]uint8),
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}

	// Start cleanup goroutine
	go c.cleanup()

	return c
}

// BalanceKey builds the cache key for an (owner, mint, network) balance
func BalanceKey(network, mint, owner string) string {
	return fmt.Sprintf("balance:%s:%s:%s", owner, mint, network)
}

// DecimalsKey builds the cache key for a (network, mint) decimals entry
func DecimalsKey(network, mint string) string {
	return fmt.Sprintf("%s:%s", network, mint)
}

// GetBalance retrieves a cached balance if it exists and hasn't expired.
// Stale entries are evicted as a side effect of the lookup.
func (c *BalanceCache) GetBalance(network, mint, owner string) (float64, bool) {
	key := BalanceKey(network, mint, owner)

	c.mutex.RLock()
	entry, exists := c.balances[key]
	c.mutex.RUnlock()

	if !exists {
		return 0, false
	}

	if time.Since(entry.Timestamp) > c.ttl {
		c.mutex.Lock()
		// Re-check under the write lock; a concurrent SetBalance may have refreshed it
		if current, ok := c.balances[key]; ok && time.Since(current.Timestamp) > c.ttl {
			delete(c.balances, key)
		}
		c.mutex.Unlock()
		return 0, false
	}

	return entry.Balance, true
}

// SetBalance stores a balance in the cache with the current timestamp
func (c *BalanceCache) SetBalance(network, mint, owner string, balance float64) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.balances[BalanceKey(network, mint, owner)] = &BalanceEntry{
		Balance:   balance,
		Timestamp: time.Now(),
	}
}

// GetDecimals retrieves cached mint decimals for a (network, mint) pair
func (c *BalanceCache) GetDecimals(network, mint string) (uint8, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	decimals, exists := c.decimals[DecimalsKey(network, mint)]
	return decimals, exists
}

// SetDecimals stores mint decimals permanently for the process lifetime
func (c *BalanceCache) SetDecimals(network, mint string, decimals uint8) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.decimals[DecimalsKey(network, mint)] = decimals
}

// Clear removes all balance entries from the cache
func (c *BalanceCache) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.balances = make(map[string]*BalanceEntry)
}

// Size returns the number of balance entries in the cache
func (c *BalanceCache) Size() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.balances)
}

// DecimalsSize returns the number of decimals entries in the cache
func (c *BalanceCache) DecimalsSize() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	return len(c.decimals)
}

// cleanup runs periodically to remove expired balance entries
func (c *BalanceCache) cleanup() {
	ticker := time.NewTicker(c.ttl)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stopCh:
			return
		}
	}
}

// removeExpired removes all expired balance entries from the cache
func (c *BalanceCache) removeExpired() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	now := time.Now()
	for key, entry := range c.balances {
		if now.Sub(entry.Timestamp) > c.ttl {
			delete(c.balances, key)
		}
	}
}

// Stop stops the cleanup goroutine
func (c *BalanceCache) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
}
