package models

import (
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Network identifies a supported Solana cluster
type Network string

const (
	NetworkTestnet Network = "testnet"
	NetworkMainnet Network = "mainnet"
)

// IsSupported reports whether the network is one of the supported clusters
func (n Network) IsSupported() bool {
	return n == NetworkTestnet || n == NetworkMainnet
}

// TokenRequirement gates an access level on a minimum token balance.
// MinAmount is expressed in human units (raw on-chain amount / 10^decimals).
type TokenRequirement struct {
	TokenMintAddress string  `bson:"tokenMintAddress" json:"tokenMintAddress"`
	MinAmount        float64 `bson:"minAmount" json:"minAmount"`
}

// AccessLevel is a named authorization tier gated by zero or more token
// requirements on a single network. An empty requirement list means the level
// is always satisfied. Position in the developer's list defines precedence:
// later entries outrank earlier ones when both are satisfied.
type AccessLevel struct {
	LevelName         string             `bson:"levelName" json:"levelName"`
	Network           Network            `bson:"network" json:"network"`
	TokenRequirements []TokenRequirement `bson:"tokenRequirements" json:"tokenRequirements"`
}

// Developer represents a registered API consumer. The API secret is used only
// as an HMAC key and is never transmitted.
type Developer struct {
	ID           primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email        string             `bson:"email" json:"email"`
	AppName      string             `bson:"appName" json:"appName"`
	APIKey       string             `bson:"apiKey" json:"apiKey"`
	APISecret    string             `bson:"apiSecret" json:"-"`
	AccessLevels []AccessLevel      `bson:"accessLevels" json:"accessLevels"`
	CreatedAt    time.Time          `bson:"created_at,omitempty" json:"created_at,omitempty"`
}

// ValidateAccessLevels checks a caller-supplied access-level list. Request
// bodies may override the developer's configured levels, so the list is
// untrusted input: every level needs a name, a supported network, and
// requirements with a decodable mint address and a non-negative minimum.
func ValidateAccessLevels(levels []AccessLevel) error {
	if len(levels) == 0 {
		return fmt.Errorf("accessLevels must not be empty")
	}

	for i, level := range levels {
		if level.LevelName == "" {
			return fmt.Errorf("accessLevels[%d]: levelName is required", i)
		}
		if !level.Network.IsSupported() {
			return fmt.Errorf("accessLevels[%d]: unsupported network %q", i, level.Network)
		}
		for j, req := range level.TokenRequirements {
			if _, err := solana.PublicKeyFromBase58(req.TokenMintAddress); err != nil {
				return fmt.Errorf("accessLevels[%d].tokenRequirements[%d]: invalid mint address: %w", i, j, err)
			}
			if req.MinAmount < 0 {
				return fmt.Errorf("accessLevels[%d].tokenRequirements[%d]: minAmount must be non-negative", i, j)
			}
		}
	}

	return nil
}
