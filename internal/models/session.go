package models

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// SignatureBytes holds a wallet signature submitted either as a base64 string
// or as a JSON array of byte values; browser wallet adapters produce both.
type SignatureBytes []byte

// UnmarshalJSON accepts both wire encodings of a detached signature
func (s *SignatureBytes) UnmarshalJSON(data []byte) error {
	var asString string
	if err := json.Unmarshal(data, &asString); err == nil {
		decoded, err := base64.StdEncoding.DecodeString(asString)
		if err != nil {
			return fmt.Errorf("signature is not valid base64: %w", err)
		}
		*s = decoded
		return nil
	}

	var asArray []byte
	if err := json.Unmarshal(data, &asArray); err != nil {
		return fmt.Errorf("signature must be a base64 string or byte array")
	}
	*s = asArray
	return nil
}

// MarshalJSON emits the base64 form
func (s SignatureBytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.StdEncoding.EncodeToString(s))
}

// AuthenticateRequest is the body of POST /api/authenticate. AccessLevels
// optionally overrides the developer's configured levels and is validated as
// untrusted input.
type AuthenticateRequest struct {
	PublicKey    string         `json:"publicKey"`
	Signature    SignatureBytes `json:"signature"`
	Message      string         `json:"message"`
	AccessLevels []AccessLevel  `json:"accessLevels,omitempty"`
}

// RefreshRequest is the body of POST /api/refresh
type RefreshRequest struct {
	RefreshToken string        `json:"refreshToken"`
	AccessLevels []AccessLevel `json:"accessLevels,omitempty"`
}

// RevokeRequest is the body of POST /api/revoke
type RevokeRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// SessionResponse is returned by authenticate and refresh
type SessionResponse struct {
	Success               bool               `json:"success"`
	AccessToken           string             `json:"accessToken"`
	RefreshToken          string             `json:"refreshToken"`
	Level                 string             `json:"level"`
	TokenBalances         map[string]float64 `json:"tokenBalances"`
	ExpiresIn             int64              `json:"expiresIn"`
	RefreshTokenExpiresIn int64              `json:"refreshTokenExpiresIn,omitempty"`
	PublicKey             string             `json:"publicKey"`
}

// AccessClaims are embedded in short-lived access tokens
type AccessClaims struct {
	PublicKey     string             `json:"publicKey"`
	Level         string             `json:"level"`
	TokenBalances map[string]float64 `json:"tokenBalances,omitempty"`
	jwt.RegisteredClaims
}

// RefreshClaims are embedded in long-lived refresh tokens. Balances are
// intentionally omitted; they are re-derived at refresh time.
type RefreshClaims struct {
	PublicKey string `json:"publicKey"`
	Level     string `json:"level"`
	TokenType string `json:"tokenType"`
	jwt.RegisteredClaims
}

// ResolvedAccess is the outcome of the access-level resolution algorithm.
// TokenBalances includes every balance observed during evaluation, keyed
// "mint:network", even for levels that were not chosen.
type ResolvedAccess struct {
	LevelName     string             `json:"levelName"`
	TokenBalances map[string]float64 `json:"tokenBalances"`
}

// VerifyResponse is returned by GET /api/verify-token
type VerifyResponse struct {
	Valid   bool          `json:"valid"`
	Decoded *AccessClaims `json:"decoded,omitempty"`
	Error   string        `json:"error,omitempty"`
}
