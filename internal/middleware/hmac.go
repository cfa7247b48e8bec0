package middleware

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vimoda/web3-oauth-api/internal/models"
	"github.com/vimoda/web3-oauth-api/internal/services"
	"github.com/vimoda/web3-oauth-api/pkg/logger"
)

// DeveloperContextKey is the gin context key under which the authenticated
// developer record is stored for downstream handlers
const DeveloperContextKey = "developer"

// HMACAuthMiddleware authenticates the calling application. The caller signs
// the exact request body bytes concatenated with a nonce using its API secret
// (HMAC-SHA256, base64); the signature travels in X-Signature alongside
// X-API-Key and X-Nonce. The body is hashed as received, byte for byte — any
// re-serialization on either side breaks legitimate signatures.
func HMACAuthMiddleware(developers services.DeveloperServiceInterface) gin.HandlerFunc {
	return func(c *gin.Context) {
		log := logger.GetLogger().WithContext(c.Request.Context())

		apiKey := c.GetHeader("X-API-Key")
		nonce := c.GetHeader("X-Nonce")
		signature := c.GetHeader("X-Signature")

		if apiKey == "" || nonce == "" || signature == "" {
			log.Warn("Missing HMAC credentials",
				zap.String("client_ip", c.ClientIP()),
			)
			models.HandleError(c, models.NewAppErrorWithDetails(
				models.ErrorCodeMissingCredentials,
				"Missing credentials",
				"X-API-Key, X-Nonce and X-Signature headers are required",
			), log)
			c.Abort()
			return
		}

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			models.HandleError(c, models.NewAppErrorWithCause(
				models.ErrorCodeInvalidRequest,
				"Failed to read request body",
				err,
			), log)
			c.Abort()
			return
		}
		// Hand the body back for JSON binding in the handlers
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		developer, err := developers.FindByAPIKey(c.Request.Context(), apiKey)
		if err != nil {
			if errors.Is(err, services.ErrUnknownAPIKey) {
				log.Warn("Unknown API key", zap.String("client_ip", c.ClientIP()))
				models.HandleError(c, models.NewAppError(
					models.ErrorCodeUnknownApplication,
					"Invalid API credentials",
				), log)
			} else {
				models.HandleError(c, models.NewAppErrorWithCause(
					models.ErrorCodeDatabaseError,
					"Authentication service unavailable",
					err,
				), log)
			}
			c.Abort()
			return
		}

		mac := hmac.New(sha256.New, []byte(developer.APISecret))
		mac.Write(body)
		mac.Write([]byte(nonce))
		expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))

		// Constant-time comparison to avoid timing side channels
		if !hmac.Equal([]byte(signature), []byte(expected)) {
			log.Warn("HMAC signature mismatch",
				zap.String("app_name", developer.AppName),
				zap.String("client_ip", c.ClientIP()),
			)
			models.HandleError(c, models.NewAppError(
				models.ErrorCodeInvalidSignature,
				"Invalid request signature",
			), log)
			c.Abort()
			return
		}

		c.Set(DeveloperContextKey, developer)

		ctx := logger.ContextWithAppID(c.Request.Context(), developer.APIKey)
		c.Request = c.Request.WithContext(ctx)

		log.Debug("Transport authentication successful",
			zap.String("app_name", developer.AppName),
		)

		c.Next()
	}
}

// DeveloperFromContext retrieves the authenticated developer set by
// HMACAuthMiddleware
func DeveloperFromContext(c *gin.Context) (*models.Developer, bool) {
	value, exists := c.Get(DeveloperContextKey)
	if !exists {
		return nil, false
	}
	developer, ok := value.(*models.Developer)
	return developer, ok
}
