package services

import (
	"context"
	"fmt"
	"time"
)

// HealthStatus represents the health status of a dependency
type HealthStatus string

const (
	HealthStatusHealthy   HealthStatus = "healthy"
	HealthStatusUnhealthy HealthStatus = "unhealthy"
)

// HealthCheck represents a health check result
type HealthCheck struct {
	Service      string        `json:"service"`
	Status       HealthStatus  `json:"status"`
	Message      string        `json:"message,omitempty"`
	ResponseTime time.Duration `json:"response_time"`
	Timestamp    time.Time     `json:"timestamp"`
}

// HealthService checks the server's external dependencies: the developer
// store and the per-network ledger connections
type HealthService struct {
	developers *DeveloperService
	ledger     *LedgerService
}

// NewHealthService creates a new health checker
func NewHealthService(developers *DeveloperService, ledger *LedgerService) *HealthService {
	return &HealthService{
		developers: developers,
		ledger:     ledger,
	}
}

// CheckDeveloperStore pings MongoDB
func (h *HealthService) CheckDeveloperStore(ctx context.Context) *HealthCheck {
	start := time.Now()
	check := &HealthCheck{
		Service:   "mongodb",
		Timestamp: start,
	}

	if err := h.developers.Ping(ctx); err != nil {
		check.Status = HealthStatusUnhealthy
		check.Message = fmt.Sprintf("ping failed: %v", err)
	} else {
		check.Status = HealthStatusHealthy
	}

	check.ResponseTime = time.Since(start)
	return check
}

// CheckLedger probes each configured ledger connection
func (h *HealthService) CheckLedger(ctx context.Context) map[string]*HealthCheck {
	checks := make(map[string]*HealthCheck)

	for _, network := range h.ledger.Networks() {
		start := time.Now()
		check := &HealthCheck{
			Service:   fmt.Sprintf("solana-%s", network),
			Timestamp: start,
		}

		if err := h.ledger.IsHealthy(ctx, network); err != nil {
			check.Status = HealthStatusUnhealthy
			check.Message = err.Error()
		} else {
			check.Status = HealthStatusHealthy
		}

		check.ResponseTime = time.Since(start)
		checks[string(network)] = check
	}

	return checks
}

// IsReady reports whether all dependencies are reachable
func (h *HealthService) IsReady(ctx context.Context) bool {
	if h.CheckDeveloperStore(ctx).Status != HealthStatusHealthy {
		return false
	}

	healthyNetworks := 0
	for _, check := range h.CheckLedger(ctx) {
		if check.Status == HealthStatusHealthy {
			healthyNetworks++
		}
	}

	// Resolution can proceed as long as at least one network answers
	return healthyNetworks > 0 || len(h.ledger.Networks()) == 0
}

var _ LedgerServiceInterface = (*LedgerService)(nil)
var _ DeveloperServiceInterface = (*DeveloperService)(nil)
var _ WalletVerifierInterface = (*WalletVerifier)(nil)
var _ ResolverServiceInterface = (*AccessResolver)(nil)
var _ SessionServiceInterface = (*SessionService)(nil)
var _ RevocationStoreInterface = (*RedisRevocationStore)(nil)
var _ RevocationStoreInterface = (*MemoryRevocationStore)(nil)
