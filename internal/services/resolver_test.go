package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/pkg/cache"
	"github.com/vimoda/web3-oauth-api/pkg/metrics"
)

// fakeLedger implements LedgerServiceInterface for resolver tests
type fakeLedger struct {
	networks     map[models.Network]bool
	rawBalances  map[string]uint64
	decimals     map[string]uint8
	balanceErrs  map[string]error
	balanceCalls map[string]int
	mu           sync.Mutex
}

func newFakeLedger(networks ...models.Network) *fakeLedger {
	available := make(map[models.Network]bool)
	for _, n := range networks {
		available[n] = true
	}
	return &fakeLedger{
		networks:     available,
		rawBalances:  make(map[string]uint64),
		decimals:     make(map[string]uint8),
		balanceErrs:  make(map[string]error),
		balanceCalls: make(map[string]int),
	}
}

func balanceFixtureKey(network models.Network, mint, owner string) string {
	return fmt.Sprintf("%s|%s|%s", network, mint, owner)
}

func (f *fakeLedger) setBalance(network models.Network, mint, owner string, raw uint64, decimals uint8) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rawBalances[balanceFixtureKey(network, mint, owner)] = raw
	f.decimals[string(network)+"|"+mint] = decimals
}

func (f *fakeLedger) setBalanceError(network models.Network, mint, owner string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.balanceErrs[balanceFixtureKey(network, mint, owner)] = err
}

func (f *fakeLedger) HasNetwork(network models.Network) bool {
	return f.networks[network]
}

func (f *fakeLedger) GetTokenAccountBalance(ctx context.Context, network models.Network, mint, owner string) (uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := balanceFixtureKey(network, mint, owner)
	f.balanceCalls[key]++

	if err, ok := f.balanceErrs[key]; ok {
		return 0, err
	}
	return f.rawBalances[key], nil
}

func (f *fakeLedger) GetTokenDecimals(ctx context.Context, network models.Network, mint string) (uint8, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if decimals, ok := f.decimals[string(network)+"|"+mint]; ok {
		return decimals, nil
	}
	return 0, fmt.Errorf("unknown mint %s", mint)
}

func (f *fakeLedger) calls(network models.Network, mint, owner string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.balanceCalls[balanceFixtureKey(network, mint, owner)]
}

func newTestResolver(ledger LedgerServiceInterface, ttl time.Duration) *AccessResolver {
	return NewAccessResolver(ledger, cache.New(ttl), time.Minute, metrics.NewCollector())
}

const testOwner = "WalletOwner1111111111111111111111111111111"

func basicLevel(name string) models.AccessLevel {
	return models.AccessLevel{
		LevelName:         name,
		Network:           models.NetworkMainnet,
		TokenRequirements: []models.TokenRequirement{},
	}
}

func gatedLevel(name, mint string, minAmount float64) models.AccessLevel {
	return models.AccessLevel{
		LevelName: name,
		Network:   models.NetworkMainnet,
		TokenRequirements: []models.TokenRequirement{
			{TokenMintAddress: mint, MinAmount: minAmount},
		},
	}
}

func TestResolveLaterSatisfiedLevelWins(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 5_000_000_000, 9)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		basicLevel("basic"),
		gatedLevel("premium", "MintA", 1),
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, "premium", resolved.LevelName)
	assert.Equal(t, 5.0, resolved.TokenBalances["MintA:mainnet"])
}

func TestResolveFallsBackToEarlierLevel(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	// Wallet holds nothing; only the ungated level qualifies
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 0, 9)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		gatedLevel("premium", "MintA", 1),
		basicLevel("basic"),
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, "basic", resolved.LevelName)
}

func TestResolveReturnsNoneWhenNothingSatisfied(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 500, 2) // 5.0 human units

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		gatedLevel("premium", "MintA", 10),
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, "none", resolved.LevelName)
	// Observed balances are reported even for levels that did not qualify
	assert.Equal(t, 5.0, resolved.TokenBalances["MintA:mainnet"])
}

func TestResolveSkipsUnconnectedNetwork(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 100, 0)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		gatedLevel("mainnet-tier", "MintA", 1),
		{
			LevelName: "testnet-tier",
			Network:   models.NetworkTestnet,
			TokenRequirements: []models.TokenRequirement{
				{TokenMintAddress: "MintB", MinAmount: 0},
			},
		},
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	// The testnet level is skipped without disqualifying the mainnet one
	assert.Equal(t, "mainnet-tier", resolved.LevelName)
	_, observed := resolved.TokenBalances["MintB:testnet"]
	assert.False(t, observed)
}

func TestResolveLedgerErrorDegradesToZeroBalance(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 0, 6)
	ledger.setBalanceError(models.NetworkMainnet, "MintA", testOwner, fmt.Errorf("token account not found"))

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	t.Run("zero still satisfies a zero minimum", func(t *testing.T) {
		resolved := resolver.Resolve(context.Background(), testOwner, []models.AccessLevel{
			gatedLevel("holder", "MintA", 0),
		})
		assert.Equal(t, "holder", resolved.LevelName)
		assert.Equal(t, 0.0, resolved.TokenBalances["MintA:mainnet"])
	})

	t.Run("zero fails a positive minimum", func(t *testing.T) {
		resolved := resolver.Resolve(context.Background(), testOwner+"b", []models.AccessLevel{
			gatedLevel("holder", "MintA", 0.5),
		})
		assert.Equal(t, "none", resolved.LevelName)
		assert.Equal(t, 0.0, resolved.TokenBalances["MintA:mainnet"])
	})
}

func TestResolveLedgerErrorDoesNotAbortOtherLevels(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalanceError(models.NetworkMainnet, "MintBroken", testOwner, fmt.Errorf("rpc unavailable"))
	ledger.setBalance(models.NetworkMainnet, "MintGood", testOwner, 2_000_000, 6)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		gatedLevel("gold", "MintGood", 1),
		gatedLevel("platinum", "MintBroken", 1),
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, "gold", resolved.LevelName)
	assert.Equal(t, 0.0, resolved.TokenBalances["MintBroken:mainnet"])
	assert.Equal(t, 2.0, resolved.TokenBalances["MintGood:mainnet"])
}

func TestResolveUsesCacheWithinTTL(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 3_000_000_000, 9)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{gatedLevel("premium", "MintA", 1)}

	first := resolver.Resolve(context.Background(), testOwner, levels)
	second := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, ledger.calls(models.NetworkMainnet, "MintA", testOwner))
}

func TestResolveRefetchesAfterTTL(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 1_000_000_000, 9)

	resolver := newTestResolver(ledger, 30*time.Millisecond)
	defer resolver.Stop()

	levels := []models.AccessLevel{gatedLevel("premium", "MintA", 1)}

	resolver.Resolve(context.Background(), testOwner, levels)
	time.Sleep(50 * time.Millisecond)

	// Balance changed on-chain; the stale entry must not mask it
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 9_000_000_000, 9)
	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, 9.0, resolved.TokenBalances["MintA:mainnet"])
	assert.Equal(t, 2, ledger.calls(models.NetworkMainnet, "MintA", testOwner))
}

func TestResolveIsDeterministic(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 7_500_000, 6)
	ledger.setBalance(models.NetworkMainnet, "MintB", testOwner, 10, 0)

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		basicLevel("basic"),
		gatedLevel("silver", "MintA", 5),
		gatedLevel("gold", "MintB", 100),
	}

	first := resolver.Resolve(context.Background(), testOwner, levels)
	for i := 0; i < 5; i++ {
		require.Equal(t, first, resolver.Resolve(context.Background(), testOwner, levels))
	}
	assert.Equal(t, "silver", first.LevelName)
}

func TestResolveAllRequirementsMustHold(t *testing.T) {
	ledger := newFakeLedger(models.NetworkMainnet)
	ledger.setBalance(models.NetworkMainnet, "MintA", testOwner, 10_000_000, 6) // 10
	ledger.setBalance(models.NetworkMainnet, "MintB", testOwner, 1_000_000, 6)  // 1

	resolver := newTestResolver(ledger, time.Hour)
	defer resolver.Stop()

	levels := []models.AccessLevel{
		{
			LevelName: "dual",
			Network:   models.NetworkMainnet,
			TokenRequirements: []models.TokenRequirement{
				{TokenMintAddress: "MintA", MinAmount: 5},
				{TokenMintAddress: "MintB", MinAmount: 5},
			},
		},
	}

	resolved := resolver.Resolve(context.Background(), testOwner, levels)

	assert.Equal(t, "none", resolved.LevelName)
	assert.Equal(t, 10.0, resolved.TokenBalances["MintA:mainnet"])
	assert.Equal(t, 1.0, resolved.TokenBalances["MintB:mainnet"])
}
