package services

import (
	"context"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/pkg/cache"
	"github.com/vimoda/web3-oauth-api/pkg/logger"
	"github.com/vimoda/web3-oauth-api/pkg/metrics"
	"github.com/vimoda/web3-oauth-api/pkg/mutex"
)

// AccessResolver maps a wallet's on-chain token balances to the highest
// access level it qualifies for. Balances flow cache-then-ledger, with a
// per-key mutex so concurrent resolutions for the same (owner, mint, network)
// collapse into one upstream query.
type AccessResolver struct {
	ledger       LedgerServiceInterface
	cache        *cache.BalanceCache
	requestMutex *mutex.KeyedMutex
	metrics      *metrics.Collector
}

// NewAccessResolver creates a new resolver on top of a ledger client, a
// balance cache and a metrics collector
func NewAccessResolver(ledger LedgerServiceInterface, balanceCache *cache.BalanceCache, cleanupInterval time.Duration, collector *metrics.Collector) *AccessResolver {
	return &AccessResolver{
		ledger:       ledger,
		cache:        balanceCache,
		requestMutex: mutex.New(cleanupInterval),
		metrics:      collector,
	}
}

// Resolve evaluates levels in list order and returns the name of the highest
// satisfied one together with every balance observed along the way.
//
// Levels are expected ordered from lowest to highest privilege: when several
// are satisfied, the later entry wins. A level on a network without a ledger
// connection is skipped without disqualifying the others. Ledger failures
// degrade the affected requirement to a zero balance and never abort
// resolution.
func (r *AccessResolver) Resolve(ctx context.Context, publicKey string, levels []models.AccessLevel) *models.ResolvedAccess {
	log := logger.GetLogger().WithContext(ctx).WithFields(map[string]interface{}{
		"public_key": publicKey,
		"component":  "access_resolver",
	})

	highestIndex := -1
	tokenBalances := make(map[string]float64)

	for i, level := range levels {
		if !r.ledger.HasNetwork(level.Network) {
			log.Debug("Skipping level on unconnected network",
				zap.String("level", level.LevelName),
				zap.String("network", string(level.Network)),
			)
			continue
		}

		// A level with no requirements is trivially satisfied
		meetsRequirements := true

		for _, requirement := range level.TokenRequirements {
			balance := r.resolveBalance(ctx, level.Network, requirement.TokenMintAddress, publicKey, log)
			tokenBalances[requirement.TokenMintAddress+":"+string(level.Network)] = balance

			if balance < requirement.MinAmount {
				meetsRequirements = false
			}
		}

		if meetsRequirements && i > highestIndex {
			highestIndex = i
		}
	}

	levelName := "none"
	if highestIndex >= 0 {
		levelName = levels[highestIndex].LevelName
	}

	log.Debug("Access level resolved",
		zap.String("level", levelName),
		zap.Int("balances_observed", len(tokenBalances)),
	)

	return &models.ResolvedAccess{
		LevelName:     levelName,
		TokenBalances: tokenBalances,
	}
}

// resolveBalance returns the owner's balance of mint in human units,
// consulting the cache before the ledger. Any ledger failure degrades to 0.
func (r *AccessResolver) resolveBalance(ctx context.Context, network models.Network, mint, owner string, log *logger.Logger) float64 {
	if balance, found := r.cache.GetBalance(string(network), mint, owner); found {
		r.metrics.RecordCacheHit()
		return balance
	}
	r.metrics.RecordCacheMiss()

	// Serialize concurrent fetches of the same key
	key := cache.BalanceKey(string(network), mint, owner)
	keyMutex := r.requestMutex.Get(key)
	keyMutex.Lock()
	defer keyMutex.Unlock()

	// Another request may have populated the cache while we waited
	if balance, found := r.cache.GetBalance(string(network), mint, owner); found {
		r.metrics.RecordCacheHit()
		return balance
	}

	decimals := r.resolveDecimals(ctx, network, mint, log)

	rpcStart := time.Now()
	rawAmount, err := r.ledger.GetTokenAccountBalance(ctx, network, mint, owner)
	r.metrics.RecordRPCCall(time.Since(rpcStart), err == nil)

	var balance float64
	if err != nil {
		// Missing token accounts and transient RPC failures both read as a
		// zero balance; the failure stays local to this requirement
		log.Warn("Ledger balance query failed, treating as zero",
			zap.String("mint", mint),
			zap.String("network", string(network)),
			zap.Error(err),
		)
		balance = 0
	} else {
		balance = float64(rawAmount) / math.Pow10(int(decimals))
	}

	r.cache.SetBalance(string(network), mint, owner, balance)

	return balance
}

// resolveDecimals returns the mint's decimals, consulting the permanent
// decimals cache before the ledger. Failures fall back to 0 without caching,
// so a later call can still learn the real value.
func (r *AccessResolver) resolveDecimals(ctx context.Context, network models.Network, mint string, log *logger.Logger) uint8 {
	if decimals, found := r.cache.GetDecimals(string(network), mint); found {
		return decimals
	}

	rpcStart := time.Now()
	decimals, err := r.ledger.GetTokenDecimals(ctx, network, mint)
	r.metrics.RecordRPCCall(time.Since(rpcStart), err == nil)

	if err != nil {
		log.Warn("Mint decimals query failed, assuming 0",
			zap.String("mint", mint),
			zap.String("network", string(network)),
			zap.Error(err),
		)
		return 0
	}

	r.cache.SetDecimals(string(network), mint, decimals)
	return decimals
}

// Stop shuts down the resolver's per-key mutex janitor
func (r *AccessResolver) Stop() {
	r.requestMutex.Stop()
}
