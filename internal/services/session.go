package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vimoda/web3-oauth-api/internal/config"
	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/pkg/metrics"
)

var (
	ErrRefreshTokenInvalid  = errors.New("invalid or expired refresh token")
	ErrRefreshTokenRevoked  = errors.New("refresh token has been revoked")
	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrAccessTokenExpired   = errors.New("access token expired")
	ErrAccessTokenInvalid   = errors.New("invalid access token")
)

const refreshTokenType = "refresh"

// SessionService mints and validates the signed session tokens that carry a
// wallet's resolved access level. Access tokens are short-lived and embed the
// observed balances; refresh tokens are long-lived and carry only identity,
// because the level is re-resolved from live balances on every refresh.
type SessionService struct {
	secret      []byte
	accessTTL   time.Duration
	refreshTTL  time.Duration
	resolver    ResolverServiceInterface
	revocations RevocationStoreInterface
	metrics     *metrics.Collector
}

// NewSessionService creates a new session issuer
func NewSessionService(cfg *config.JWTConfig, resolver ResolverServiceInterface, revocations RevocationStoreInterface, collector *metrics.Collector) *SessionService {
	return &SessionService{
		secret:      []byte(cfg.Secret),
		accessTTL:   cfg.AccessLifetime,
		refreshTTL:  cfg.RefreshLifetime,
		resolver:    resolver,
		revocations: revocations,
		metrics:     collector,
	}
}

// Issue mints an access/refresh token pair for a wallet at the given level
func (s *SessionService) Issue(publicKey, level string, tokenBalances map[string]float64) (*models.SessionResponse, error) {
	now := time.Now()

	accessClaims := &models.AccessClaims{
		PublicKey:     publicKey,
		Level:         level,
		TokenBalances: tokenBalances,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.accessTTL)),
		},
	}

	accessToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, accessClaims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}

	refreshClaims := &models.RefreshClaims{
		PublicKey: publicKey,
		Level:     level,
		TokenType: refreshTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.refreshTTL)),
		},
	}

	refreshToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, refreshClaims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	s.metrics.RecordTokenIssued()

	return &models.SessionResponse{
		Success:               true,
		AccessToken:           accessToken,
		RefreshToken:          refreshToken,
		Level:                 level,
		TokenBalances:         tokenBalances,
		ExpiresIn:             int64(s.accessTTL.Seconds()),
		RefreshTokenExpiresIn: int64(s.refreshTTL.Seconds()),
		PublicKey:             publicKey,
	}, nil
}

// Refresh validates a refresh token, re-resolves the wallet's access level
// from live balances, and rotates the token pair. Re-resolution is the point:
// holdings may have changed since issuance, so the embedded level is never
// trusted. The spent refresh token is denylisted for its remaining lifetime.
func (s *SessionService) Refresh(ctx context.Context, refreshToken string, levels []models.AccessLevel) (*models.SessionResponse, error) {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return nil, err
	}

	revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, fmt.Errorf("revocation check failed: %w", err)
	}
	if revoked {
		return nil, ErrRefreshTokenRevoked
	}

	resolved := s.resolver.Resolve(ctx, claims.PublicKey, levels)

	response, err := s.Issue(claims.PublicKey, resolved.LevelName, resolved.TokenBalances)
	if err != nil {
		return nil, err
	}

	// Rotate: the old refresh token must not be replayable
	if remaining := time.Until(claims.ExpiresAt.Time); remaining > 0 {
		if err := s.revocations.Revoke(ctx, claims.ID, remaining); err != nil {
			return nil, fmt.Errorf("failed to retire spent refresh token: %w", err)
		}
	}

	s.metrics.RecordTokenRefreshed()

	return response, nil
}

// Revoke denylists a refresh token for the remainder of its lifetime
func (s *SessionService) Revoke(ctx context.Context, refreshToken string) error {
	claims, err := s.parseRefreshToken(refreshToken)
	if err != nil {
		return ErrRefreshTokenNotFound
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining <= 0 {
		return nil
	}

	if err := s.revocations.Revoke(ctx, claims.ID, remaining); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}

	s.metrics.RecordTokenRevoked()
	return nil
}

// Verify validates an access token, failing closed on expiry, signature
// mismatch, or malformed input
func (s *SessionService) Verify(accessToken string) (*models.AccessClaims, error) {
	claims := &models.AccessClaims{}
	token, err := jwt.ParseWithClaims(accessToken, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrAccessTokenExpired
		}
		return nil, ErrAccessTokenInvalid
	}
	if !token.Valid {
		return nil, ErrAccessTokenInvalid
	}

	return claims, nil
}

// parseRefreshToken validates a refresh token's signature, expiry and type
func (s *SessionService) parseRefreshToken(refreshToken string) (*models.RefreshClaims, error) {
	claims := &models.RefreshClaims{}
	token, err := jwt.ParseWithClaims(refreshToken, claims, s.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return nil, ErrRefreshTokenInvalid
	}
	if claims.TokenType != refreshTokenType || claims.ID == "" || claims.ExpiresAt == nil {
		return nil, ErrRefreshTokenInvalid
	}

	return claims, nil
}

func (s *SessionService) keyFunc(token *jwt.Token) (interface{}, error) {
	return s.secret, nil
}
