package logger

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ContextKey represents keys used in context for logging
type ContextKey string

const (
	// CorrelationIDKey is the key for correlation ID in context
	CorrelationIDKey ContextKey = "correlation_id"
	// RequestIDKey is the key for request ID in context
	RequestIDKey ContextKey = "request_id"
	// AppIDKey is the key for the calling application's ID in context
	AppIDKey ContextKey = "app_id"
)

// Logger wraps zap logger with context-aware helpers
type Logger struct {
	*zap.Logger
}

// Config represents logger configuration
type Config struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
}

var globalLogger *Logger

// Initialize sets up the global logger
func Initialize(config *Config) error {
	var zapConfig zap.Config

	if config.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
		zapConfig.DisableStacktrace = true
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	level, err := zap.ParseAtomicLevel(config.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	zapConfig.Level = level

	if len(config.OutputPaths) > 0 {
		zapConfig.OutputPaths = config.OutputPaths
	}

	zapConfig.InitialFields = map[string]interface{}{
		"service": "web3-oauth-api",
	}

	zapLogger, err := zapConfig.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}

	globalLogger = &Logger{Logger: zapLogger}
	return nil
}

// GetLogger returns the global logger instance
func GetLogger() *Logger {
	if globalLogger == nil {
		// Fallback to development logger if not initialized
		if err := Initialize(&Config{Level: "info", Environment: "development"}); err != nil {
			panic(fmt.Sprintf("failed to initialize fallback logger: %v", err))
		}
	}
	return globalLogger
}

// WithContext creates a logger carrying the request-scoped IDs from ctx
func (l *Logger) WithContext(ctx context.Context) *Logger {
	fields := []zap.Field{}

	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		fields = append(fields, zap.String("correlation_id", correlationID))
	}
	if requestID, ok := ctx.Value(RequestIDKey).(string); ok {
		fields = append(fields, zap.String("request_id", requestID))
	}
	if appID, ok := ctx.Value(AppIDKey).(string); ok {
		fields = append(fields, zap.String("app_id", appID))
	}

	return &Logger{Logger: l.Logger.With(fields...)}
}

// WithFields creates a logger with additional fields
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	zapFields := make([]zap.Field, 0, len(fields))
	for key, value := range fields {
		zapFields = append(zapFields, zap.Any(key, value))
	}
	return &Logger{Logger: l.Logger.With(zapFields...)}
}

// WithError creates a logger with an error field attached
func (l *Logger) WithError(err error) *Logger {
	return &Logger{Logger: l.Logger.With(zap.Error(err))}
}

// ContextWithCorrelationID adds correlation ID to context
func ContextWithCorrelationID(ctx context.Context, correlationID string) context.Context {
	return context.WithValue(ctx, CorrelationIDKey, correlationID)
}

// ContextWithRequestID adds request ID to context
func ContextWithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, requestID)
}

// ContextWithAppID adds the calling application's ID to context
func ContextWithAppID(ctx context.Context, appID string) context.Context {
	return context.WithValue(ctx, AppIDKey, appID)
}

// CorrelationIDFromContext extracts the correlation ID from context
func CorrelationIDFromContext(ctx context.Context) string {
	if correlationID, ok := ctx.Value(CorrelationIDKey).(string); ok {
		return correlationID
	}
	return ""
}

// LoggingMiddleware creates a Gin middleware for structured request logging
// with correlation IDs
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		correlationID := uuid.New().String()
		requestID := uuid.New().String()

		c.Set(string(CorrelationIDKey), correlationID)
		c.Set(string(RequestIDKey), requestID)

		ctx := c.Request.Context()
		ctx = ContextWithCorrelationID(ctx, correlationID)
		ctx = ContextWithRequestID(ctx, requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Header("X-Correlation-ID", correlationID)
		c.Header("X-Request-ID", requestID)

		log := GetLogger().WithContext(ctx)

		log.Info("Request started",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
			zap.String("user_agent", c.Request.UserAgent()),
		)

		c.Next()

		duration := time.Since(start)
		statusCode := c.Writer.Status()

		completionFields := []zap.Field{
			zap.Int("status_code", statusCode),
			zap.Duration("duration", duration),
			zap.Int("response_size", c.Writer.Size()),
		}

		switch {
		case statusCode >= 500:
			log.Error("Request completed", completionFields...)
		case statusCode >= 400:
			log.Warn("Request completed", completionFields...)
		default:
			log.Info("Request completed", completionFields...)
		}

		for _, err := range c.Errors {
			log.Error("Request error", zap.Error(err.Err))
		}
	}
}

// RecoveryMiddleware creates a Gin middleware for panic recovery with logging
func RecoveryMiddleware() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		ctx := c.Request.Context()
		log := GetLogger().WithContext(ctx)

		log.Error("Panic recovered",
			zap.Any("panic", recovered),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("client_ip", c.ClientIP()),
		)

		c.JSON(http.StatusInternalServerError, gin.H{
			"error": gin.H{
				"code":    "INTERNAL_ERROR",
				"message": "Internal server error",
			},
			"timestamp":      time.Now().UTC().Format(time.RFC3339),
			"correlation_id": CorrelationIDFromContext(ctx),
		})
	})
}
