package models

import (
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
)

func validMint() string {
	return solana.NewWallet().PublicKey().String()
}

func TestValidateAccessLevelsAcceptsWellFormedList(t *testing.T) {
	levels := []AccessLevel{
		{LevelName: "basic", Network: NetworkTestnet},
		{LevelName: "premium", Network: NetworkMainnet, TokenRequirements: []TokenRequirement{
			{TokenMintAddress: validMint(), MinAmount: 2.5},
			{TokenMintAddress: validMint(), MinAmount: 0},
		}},
	}

	assert.NoError(t, ValidateAccessLevels(levels))
}

func TestValidateAccessLevelsRejectsEmptyList(t *testing.T) {
	assert.Error(t, ValidateAccessLevels(nil))
	assert.Error(t, ValidateAccessLevels([]AccessLevel{}))
}

func TestValidateAccessLevelsRejectsMissingName(t *testing.T) {
	err := ValidateAccessLevels([]AccessLevel{
		{Network: NetworkMainnet},
	})
	assert.ErrorContains(t, err, "levelName")
}

func TestValidateAccessLevelsRejectsUnsupportedNetwork(t *testing.T) {
	err := ValidateAccessLevels([]AccessLevel{
		{LevelName: "basic", Network: "devnet"},
	})
	assert.ErrorContains(t, err, "unsupported network")
}

func TestValidateAccessLevelsRejectsBadMintAddress(t *testing.T) {
	err := ValidateAccessLevels([]AccessLevel{
		{LevelName: "premium", Network: NetworkMainnet, TokenRequirements: []TokenRequirement{
			{TokenMintAddress: "not-a-mint!!!", MinAmount: 1},
		}},
	})
	assert.ErrorContains(t, err, "invalid mint address")
}

func TestValidateAccessLevelsRejectsNegativeMinimum(t *testing.T) {
	err := ValidateAccessLevels([]AccessLevel{
		{LevelName: "premium", Network: NetworkMainnet, TokenRequirements: []TokenRequirement{
			{TokenMintAddress: validMint(), MinAmount: -1},
		}},
	})
	assert.ErrorContains(t, err, "non-negative")
}

func TestNetworkIsSupported(t *testing.T) {
	assert.True(t, NetworkTestnet.IsSupported())
	assert.True(t, NetworkMainnet.IsSupported())
	assert.False(t, Network("devnet").IsSupported())
	assert.False(t, Network("").IsSupported())
}
