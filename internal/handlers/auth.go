package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vimoda/web3-oauth-api/internal/middleware"
	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/internal/services"
	"github.com/vimoda/web3-oauth-api/pkg/logger"
)

// AuthHandler handles wallet authentication and session lifecycle requests
type AuthHandler struct {
	wallet   services.WalletVerifierInterface
	resolver services.ResolverServiceInterface
	sessions services.SessionServiceInterface
}

// NewAuthHandler creates a new AuthHandler instance
func NewAuthHandler(wallet services.WalletVerifierInterface, resolver services.ResolverServiceInterface, sessions services.SessionServiceInterface) *AuthHandler {
	return &AuthHandler{
		wallet:   wallet,
		resolver: resolver,
		sessions: sessions,
	}
}

// Authenticate handles POST /api/authenticate. The calling application has
// already been authenticated by the HMAC middleware; this verifies the end
// user's wallet signature, resolves the access level from on-chain balances,
// and issues a session token pair.
func (h *AuthHandler) Authenticate(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	developer, ok := middleware.DeveloperFromContext(c)
	if !ok {
		models.HandleError(c, models.NewAppError(models.ErrorCodeInternalError, "Developer record missing from context"), log)
		return
	}

	var req models.AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		), log)
		return
	}

	if req.PublicKey == "" || len(req.Signature) == 0 || req.Message == "" {
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMissingWalletData,
			"Missing wallet data",
			"publicKey, signature and message are required",
		), log)
		return
	}

	levels, appErr := h.effectiveLevels(req.AccessLevels, developer)
	if appErr != nil {
		models.HandleError(c, appErr, log)
		return
	}

	if err := h.wallet.VerifySignature(req.PublicKey, req.Message, req.Signature); err != nil {
		if errors.Is(err, services.ErrMalformedPublicKey) {
			models.HandleError(c, models.NewAppError(
				models.ErrorCodeMalformedPublicKey,
				"Public key could not be decoded",
			), log)
			return
		}
		models.HandleError(c, models.NewAppError(
			models.ErrorCodeInvalidWalletSignature,
			"Invalid wallet signature",
		), log)
		return
	}

	resolved := h.resolver.Resolve(c.Request.Context(), req.PublicKey, levels)

	if resolved.LevelName == "none" {
		log.Info("Wallet satisfied no access level",
			zap.String("public_key", req.PublicKey),
			zap.String("app_name", developer.AppName),
		)
		models.HandleError(c, models.NewAuthorizationError(resolved.TokenBalances), log)
		return
	}

	response, err := h.sessions.Issue(req.PublicKey, resolved.LevelName, resolved.TokenBalances)
	if err != nil {
		models.HandleError(c, models.NewAppErrorWithCause(
			models.ErrorCodeInternalError,
			"Failed to issue session tokens",
			err,
		), log)
		return
	}

	log.Info("Wallet authenticated",
		zap.String("public_key", req.PublicKey),
		zap.String("level", resolved.LevelName),
		zap.String("app_name", developer.AppName),
	)

	c.JSON(http.StatusOK, response)
}

// Refresh handles POST /api/refresh. The access level is re-resolved from
// live balances rather than trusted from the old token.
func (h *AuthHandler) Refresh(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	developer, ok := middleware.DeveloperFromContext(c)
	if !ok {
		models.HandleError(c, models.NewAppError(models.ErrorCodeInternalError, "Developer record missing from context"), log)
		return
	}

	var req models.RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeMalformedJSON,
			"Invalid JSON format",
			err.Error(),
		), log)
		return
	}

	if req.RefreshToken == "" {
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeInvalidRequest,
			"Missing refresh token",
			"refreshToken is required",
		), log)
		return
	}

	levels, appErr := h.effectiveLevels(req.AccessLevels, developer)
	if appErr != nil {
		models.HandleError(c, appErr, log)
		return
	}

	response, err := h.sessions.Refresh(c.Request.Context(), req.RefreshToken, levels)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrRefreshTokenRevoked):
			models.HandleError(c, models.NewAppError(
				models.ErrorCodeTokenRevoked,
				"Refresh token has been revoked",
			), log)
		case errors.Is(err, services.ErrRefreshTokenInvalid):
			models.HandleError(c, models.NewAppError(
				models.ErrorCodeTokenInvalid,
				"Invalid or expired refresh token",
			), log)
		default:
			models.HandleError(c, models.NewAppErrorWithCause(
				models.ErrorCodeInternalError,
				"Failed to refresh session",
				err,
			), log)
		}
		return
	}

	log.Info("Session refreshed",
		zap.String("public_key", response.PublicKey),
		zap.String("level", response.Level),
	)

	c.JSON(http.StatusOK, response)
}

// Revoke handles POST /api/revoke
func (h *AuthHandler) Revoke(c *gin.Context) {
	log := logger.GetLogger().WithContext(c.Request.Context())

	var req models.RevokeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		models.HandleError(c, models.NewAppErrorWithDetails(
			models.ErrorCodeInvalidRequest,
			"Missing refresh token",
			"refreshToken is required",
		), log)
		return
	}

	if err := h.sessions.Revoke(c.Request.Context(), req.RefreshToken); err != nil {
		if errors.Is(err, services.ErrRefreshTokenNotFound) {
			models.HandleError(c, models.NewAppError(
				models.ErrorCodeTokenNotFound,
				"Refresh token not found",
			), log)
			return
		}
		models.HandleError(c, models.NewAppErrorWithCause(
			models.ErrorCodeInternalError,
			"Failed to revoke refresh token",
			err,
		), log)
		return
	}

	log.Info("Refresh token revoked")

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Refresh token revoked",
	})
}

// VerifyToken handles GET /api/verify-token. It always answers with the
// {valid, ...} shape and fails closed on any token problem.
func (h *AuthHandler) VerifyToken(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
	if token == "" {
		c.JSON(http.StatusUnauthorized, models.VerifyResponse{
			Valid: false,
			Error: "Missing bearer token",
		})
		return
	}

	claims, err := h.sessions.Verify(token)
	if err != nil {
		reason := "Invalid access token"
		if errors.Is(err, services.ErrAccessTokenExpired) {
			reason = "Access token expired"
		}
		c.JSON(http.StatusUnauthorized, models.VerifyResponse{
			Valid: false,
			Error: reason,
		})
		return
	}

	c.JSON(http.StatusOK, models.VerifyResponse{
		Valid:   true,
		Decoded: claims,
	})
}

// effectiveLevels returns the caller-supplied access levels when present,
// validated as untrusted input, otherwise the developer's configured levels
func (h *AuthHandler) effectiveLevels(override []models.AccessLevel, developer *models.Developer) ([]models.AccessLevel, *models.AppError) {
	if len(override) == 0 {
		return developer.AccessLevels, nil
	}

	if err := models.ValidateAccessLevels(override); err != nil {
		return nil, models.NewAppErrorWithDetails(
			models.ErrorCodeInvalidAccessLevels,
			"Invalid accessLevels override",
			err.Error(),
		)
	}

	return override, nil
}
