package mutex

import (
	"sync"
	"time"
)

// KeyedMutex provides per-key mutex locking so that concurrent resolutions
// for the same (owner, mint, network) tuple collapse into a single upstream
// ledger query instead of racing.
type KeyedMutex struct {
	mutexes    map[string]*mutexEntry
	mapMutex   sync.RWMutex
	cleanupTTL time.Duration
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// mutexEntry holds a mutex and its last access time for cleanup
type mutexEntry struct {
	mutex      *sync.Mutex
	lastAccess time.Time
}

// New creates a new KeyedMutex instance with automatic cleanup of idle entries
func New(cleanupTTL time.Duration) *KeyedMutex {
	km := &KeyedMutex{
		mutexes:    make(map[string]*mutexEntry),
		cleanupTTL: cleanupTTL,
		stopCh:     make(chan struct{}),
	}

	go km.cleanup()

	return km
}

// Get returns the mutex for the given key, creating one if it doesn't exist
func (km *KeyedMutex) Get(key string) *sync.Mutex {
	km.mapMutex.RLock()
	entry, exists := km.mutexes[key]
	if exists {
		entry.lastAccess = time.Now()
		km.mapMutex.RUnlock()
		return entry.mutex
	}
	km.mapMutex.RUnlock()

	km.mapMutex.Lock()
	defer km.mapMutex.Unlock()

	// Double-check in case another goroutine created it
	if entry, exists := km.mutexes[key]; exists {
		entry.lastAccess = time.Now()
		return entry.mutex
	}

	newEntry := &mutexEntry{
		mutex:      &sync.Mutex{},
		lastAccess: time.Now(),
	}
	km.mutexes[key] = newEntry

	return newEntry.mutex
}

// Size returns the number of mutexes currently stored
func (km *KeyedMutex) Size() int {
	km.mapMutex.RLock()
	defer km.mapMutex.RUnlock()
	return len(km.mutexes)
}

// cleanup runs periodically to remove idle mutexes and bound memory
func (km *KeyedMutex) cleanup() {
	ticker := time.NewTicker(km.cleanupTTL)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			km.removeIdle()
		case <-km.stopCh:
			return
		}
	}
}

// removeIdle removes mutexes that haven't been accessed recently
func (km *KeyedMutex) removeIdle() {
	km.mapMutex.Lock()
	defer km.mapMutex.Unlock()

	now := time.Now()
	for key, entry := range km.mutexes {
		if now.Sub(entry.lastAccess) > km.cleanupTTL {
			// Only remove mutexes that are not currently held
			if entry.mutex.TryLock() {
				entry.mutex.Unlock()
				delete(km.mutexes, key)
			}
		}
	}
}

// Stop stops the cleanup goroutine
func (km *KeyedMutex) Stop() {
	km.stopOnce.Do(func() {
		close(km.stopCh)
	})
}
