package models

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vimoda/web3-oauth-api/pkg/logger"
)

// ErrorCode represents standardized error codes
type ErrorCode string

const (
	// Transport authentication errors
	ErrorCodeMissingCredentials ErrorCode = "MISSING_CREDENTIALS"
	ErrorCodeUnknownApplication ErrorCode = "UNKNOWN_APPLICATION"
	ErrorCodeInvalidSignature   ErrorCode = "INVALID_SIGNATURE"

	// Wallet authentication errors
	ErrorCodeMalformedPublicKey     ErrorCode = "MALFORMED_PUBLIC_KEY"
	ErrorCodeInvalidWalletSignature ErrorCode = "INVALID_WALLET_SIGNATURE"

	// Validation errors
	ErrorCodeInvalidRequest      ErrorCode = "INVALID_REQUEST"
	ErrorCodeMissingWalletData   ErrorCode = "MISSING_WALLET_DATA"
	ErrorCodeInvalidAccessLevels ErrorCode = "INVALID_ACCESS_LEVELS"
	ErrorCodeMalformedJSON       ErrorCode = "MALFORMED_JSON"

	// Authorization errors
	ErrorCodeNoQualifyingLevel ErrorCode = "NO_QUALIFYING_LEVEL"

	// Session token errors
	ErrorCodeTokenExpired  ErrorCode = "TOKEN_EXPIRED"
	ErrorCodeTokenInvalid  ErrorCode = "TOKEN_INVALID"
	ErrorCodeTokenRevoked  ErrorCode = "TOKEN_REVOKED"
	ErrorCodeTokenNotFound ErrorCode = "TOKEN_NOT_FOUND"

	// Rate limiting errors
	ErrorCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal errors
	ErrorCodeDatabaseError ErrorCode = "DATABASE_ERROR"
	ErrorCodeInternalError ErrorCode = "INTERNAL_ERROR"
)

// HTTPStatusCode returns the appropriate HTTP status code for each error type
func (e ErrorCode) HTTPStatusCode() int {
	switch e {
	case ErrorCodeMissingCredentials, ErrorCodeUnknownApplication, ErrorCodeInvalidSignature,
		ErrorCodeInvalidWalletSignature, ErrorCodeTokenExpired, ErrorCodeTokenInvalid, ErrorCodeTokenRevoked:
		return http.StatusUnauthorized
	case ErrorCodeMalformedPublicKey, ErrorCodeInvalidRequest, ErrorCodeMissingWalletData,
		ErrorCodeInvalidAccessLevels, ErrorCodeMalformedJSON:
		return http.StatusBadRequest
	case ErrorCodeNoQualifyingLevel:
		return http.StatusForbidden
	case ErrorCodeTokenNotFound:
		return http.StatusNotFound
	case ErrorCodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case ErrorCodeDatabaseError, ErrorCodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// ErrorDetail represents detailed error information. TokenBalances is set
// only on authorization failures, where observed balances are disclosed for
// client-side transparency.
type ErrorDetail struct {
	Code          ErrorCode          `json:"code"`
	Message       string             `json:"message"`
	Details       string             `json:"details,omitempty"`
	TokenBalances map[string]float64 `json:"tokenBalances,omitempty"`
}

// ErrorResponse represents the standardized error response format
type ErrorResponse struct {
	Error         ErrorDetail `json:"error"`
	Timestamp     time.Time   `json:"timestamp"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// AppError represents an application error with context
type AppError struct {
	Code          ErrorCode
	Message       string
	Details       string
	Cause         error
	TokenBalances map[string]float64
	StatusCode    int
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.Cause
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		StatusCode: code.HTTPStatusCode(),
	}
}

// NewAppErrorWithCause creates a new application error with underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Cause:      cause,
		StatusCode: code.HTTPStatusCode(),
	}
}

// NewAppErrorWithDetails creates a new application error with details
func NewAppErrorWithDetails(code ErrorCode, message, details string) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    details,
		StatusCode: code.HTTPStatusCode(),
	}
}

// NewAuthorizationError creates the 403 error returned when a wallet proves
// key control but satisfies no access level; the balances observed during
// resolution are included in the response.
func NewAuthorizationError(tokenBalances map[string]float64) *AppError {
	return &AppError{
		Code:          ErrorCodeNoQualifyingLevel,
		Message:       "No access level satisfied",
		TokenBalances: tokenBalances,
		StatusCode:    ErrorCodeNoQualifyingLevel.HTTPStatusCode(),
	}
}

// HandleError logs an application error and writes the HTTP response
func HandleError(c *gin.Context, err error, log *logger.Logger) {
	appErr, ok := err.(*AppError)
	if !ok {
		appErr = NewAppErrorWithCause(ErrorCodeInternalError, "Internal server error", err)
	}

	logFields := []zap.Field{
		zap.String("error_code", string(appErr.Code)),
		zap.String("error_message", appErr.Message),
		zap.String("method", c.Request.Method),
		zap.String("path", c.Request.URL.Path),
		zap.String("client_ip", c.ClientIP()),
	}
	if appErr.Cause != nil {
		logFields = append(logFields, zap.Error(appErr.Cause))
	}

	if appErr.StatusCode >= 500 {
		log.Error("Application error", logFields...)
	} else {
		log.Warn("Client error", logFields...)
	}

	c.JSON(appErr.StatusCode, &ErrorResponse{
		Error: ErrorDetail{
			Code:          appErr.Code,
			Message:       appErr.Message,
			Details:       appErr.Details,
			TokenBalances: appErr.TokenBalances,
		},
		Timestamp:     time.Now().UTC(),
		CorrelationID: logger.CorrelationIDFromContext(c.Request.Context()),
	})
}
