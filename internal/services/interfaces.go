package services

import (
	"context"
	"time"

	"github.com/vimoda/web3-oauth-api/internal/models"
)

// DeveloperServiceInterface defines the lookup service for registered
// applications
type DeveloperServiceInterface interface {
	FindByAPIKey(ctx context.Context, apiKey string) (*models.Developer, error)
}

// LedgerServiceInterface defines the on-chain queries the resolver depends on
type LedgerServiceInterface interface {
	HasNetwork(network models.Network) bool
	GetTokenAccountBalance(ctx context.Context, network models.Network, mint, owner string) (uint64, error)
	GetTokenDecimals(ctx context.Context, network models.Network, mint string) (uint8, error)
}

// WalletVerifierInterface defines wallet signature verification
type WalletVerifierInterface interface {
	VerifySignature(publicKey, message string, signature []byte) error
}

// ResolverServiceInterface defines access-level resolution
type ResolverServiceInterface interface {
	Resolve(ctx context.Context, publicKey string, levels []models.AccessLevel) *models.ResolvedAccess
}

// SessionServiceInterface defines session token lifecycle operations
type SessionServiceInterface interface {
	Issue(publicKey, level string, tokenBalances map[string]float64) (*models.SessionResponse, error)
	Refresh(ctx context.Context, refreshToken string, levels []models.AccessLevel) (*models.SessionResponse, error)
	Revoke(ctx context.Context, refreshToken string) error
	Verify(accessToken string) (*models.AccessClaims, error)
}

// RevocationStoreInterface defines the refresh-token denylist. Entries live
// only as long as the token they revoke would have remained valid.
type RevocationStoreInterface interface {
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}
