package services

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/vimoda/web3-oauth-api/internal/config"
	"github.com/vimoda/web3-oauth-api/internal/models"
)

// LedgerService queries Solana clusters for associated-token-account balances
// and mint decimals. One RPC client is held per configured network; networks
// without an endpoint are reported as unavailable and skipped by the resolver.
type LedgerService struct {
	clients map[models.Network]*rpc.Client
	config  *config.RPCConfig
}

// NewLedgerService creates RPC clients for every network with a configured
// endpoint
func NewLedgerService(cfg *config.RPCConfig) *LedgerService {
	clients := make(map[models.Network]*rpc.Client)
	if cfg.TestnetEndpoint != "" {
		clients[models.NetworkTestnet] = rpc.New(cfg.TestnetEndpoint)
	}
	if cfg.MainnetEndpoint != "" {
		clients[models.NetworkMainnet] = rpc.New(cfg.MainnetEndpoint)
	}

	return &LedgerService{
		clients: clients,
		config:  cfg,
	}
}

// HasNetwork reports whether a ledger connection exists for the network
func (l *LedgerService) HasNetwork(network models.Network) bool {
	_, ok := l.clients[network]
	return ok
}

// GetTokenAccountBalance returns the raw on-chain amount held by owner's
// associated token account for mint. A missing token account surfaces as an
// RPC error; callers treat any error as a zero balance.
func (l *LedgerService) GetTokenAccountBalance(ctx context.Context, network models.Network, mint, owner string) (uint64, error) {
	client, ok := l.clients[network]
	if !ok {
		return 0, fmt.Errorf("no ledger connection for network %s", network)
	}

	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}
	ownerKey, err := solana.PublicKeyFromBase58(owner)
	if err != nil {
		return 0, fmt.Errorf("invalid owner address: %w", err)
	}

	tokenAccount, _, err := solana.FindAssociatedTokenAddress(ownerKey, mintKey)
	if err != nil {
		return 0, fmt.Errorf("failed to derive associated token account: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= l.config.MaxRetries; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, l.config.Timeout)
		result, err := client.GetTokenAccountBalance(attemptCtx, tokenAccount, rpc.CommitmentConfirmed)
		cancel()

		if err == nil {
			if result == nil || result.Value == nil {
				return 0, fmt.Errorf("empty token balance response for %s", tokenAccount)
			}
			amount, err := strconv.ParseUint(result.Value.Amount, 10, 64)
			if err != nil {
				return 0, fmt.Errorf("unparseable token amount %q: %w", result.Value.Amount, err)
			}
			return amount, nil
		}

		lastErr = err

		// Abandon retries once the caller has gone away
		if ctx.Err() != nil {
			return 0, ctx.Err()
		}
		if attempt < l.config.MaxRetries {
			time.Sleep(l.config.RetryDelay * time.Duration(attempt+1))
		}
	}

	return 0, fmt.Errorf("token balance query failed after %d attempts: %w", l.config.MaxRetries+1, lastErr)
}

// GetTokenDecimals returns the decimals of a mint via its token supply
func (l *LedgerService) GetTokenDecimals(ctx context.Context, network models.Network, mint string) (uint8, error) {
	client, ok := l.clients[network]
	if !ok {
		return 0, fmt.Errorf("no ledger connection for network %s", network)
	}

	mintKey, err := solana.PublicKeyFromBase58(mint)
	if err != nil {
		return 0, fmt.Errorf("invalid mint address: %w", err)
	}

	queryCtx, cancel := context.WithTimeout(ctx, l.config.Timeout)
	defer cancel()

	result, err := client.GetTokenSupply(queryCtx, mintKey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("token supply query failed for mint %s: %w", mint, err)
	}
	if result == nil || result.Value == nil {
		return 0, fmt.Errorf("empty token supply response for mint %s", mint)
	}

	return result.Value.Decimals, nil
}

// IsHealthy checks if the RPC endpoint for a network is responsive
func (l *LedgerService) IsHealthy(ctx context.Context, network models.Network) error {
	client, ok := l.clients[network]
	if !ok {
		return fmt.Errorf("no ledger connection for network %s", network)
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := client.GetHealth(ctx); err != nil {
		return fmt.Errorf("RPC health check failed: %w", err)
	}
	return nil
}

// Networks lists the networks with a configured ledger connection
func (l *LedgerService) Networks() []models.Network {
	networks := make([]models.Network, 0, len(l.clients))
	for network := range l.clients {
		networks = append(networks, network)
	}
	return networks
}
