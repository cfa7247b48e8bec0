package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig    `json:"server"`
	MongoDB   MongoDBConfig   `json:"mongodb"`
	RPC       RPCConfig       `json:"rpc"`
	JWT       JWTConfig       `json:"jwt"`
	Redis     RedisConfig     `json:"redis"`
	Cache     CacheConfig     `json:"cache"`
	RateLimit RateLimitConfig `json:"rate_limit"`
	Logging   LoggingConfig   `json:"logging"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string        `json:"port"`
	Host         string        `json:"host"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// MongoDBConfig holds MongoDB connection configuration for the developer store
type MongoDBConfig struct {
	URI                 string        `json:"uri"`
	Database            string        `json:"database"`
	DeveloperCollection string        `json:"developer_collection"`
	ConnectTimeout      time.Duration `json:"connect_timeout"`
	MaxPoolSize         uint64        `json:"max_pool_size"`
}

// RPCConfig holds per-network Solana RPC configuration. A network whose
// endpoint is empty has no ledger connection and access levels on it are
// skipped during resolution.
type RPCConfig struct {
	TestnetEndpoint string        `json:"testnet_endpoint"`
	MainnetEndpoint string        `json:"mainnet_endpoint"`
	Timeout         time.Duration `json:"timeout"`
	MaxRetries      int           `json:"max_retries"`
	RetryDelay      time.Duration `json:"retry_delay"`
}

// JWTConfig holds session token configuration
type JWTConfig struct {
	Secret          string        `json:"-"`
	AccessLifetime  time.Duration `json:"access_lifetime"`
	RefreshLifetime time.Duration `json:"refresh_lifetime"`
}

// RedisConfig holds the optional revocation denylist backend. When URI is
// empty the server falls back to an in-memory denylist.
type RedisConfig struct {
	URI string `json:"uri"`
}

// CacheConfig holds balance cache configuration
type CacheConfig struct {
	TTL             time.Duration `json:"ttl"`
	CleanupInterval time.Duration `json:"cleanup_interval"`
}

// RateLimitConfig holds per-application rate limiting configuration
type RateLimitConfig struct {
	RequestsPerWindow int           `json:"requests_per_window"`
	WindowSize        time.Duration `json:"window_size"`
	CleanupInterval   time.Duration `json:"cleanup_interval"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level       string   `json:"level"`
	Environment string   `json:"environment"`
	OutputPaths []string `json:"output_paths"`
}

// LoadConfig loads configuration from environment variables with defaults
func LoadConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "3000"),
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		MongoDB: MongoDBConfig{
			URI:                 getEnv("MONGO_URI", "mongodb://localhost:27017"),
			Database:            getEnv("MONGO_DATABASE", "web3_oauth"),
			DeveloperCollection: getEnv("MONGO_DEVELOPER_COLLECTION", "developers"),
			ConnectTimeout:      getDurationEnv("MONGO_CONNECT_TIMEOUT", 10*time.Second),
			MaxPoolSize:         getUint64Env("MONGO_MAX_POOL_SIZE", 100),
		},
		RPC: RPCConfig{
			TestnetEndpoint: getEnv("SOLANA_TESTNET_RPC", "https://api.testnet.solana.com"),
			MainnetEndpoint: getEnv("SOLANA_MAINNET_RPC", "https://api.mainnet-beta.solana.com"),
			Timeout:         getDurationEnv("SOLANA_RPC_TIMEOUT", 30*time.Second),
			MaxRetries:      getIntEnv("SOLANA_RPC_MAX_RETRIES", 3),
			RetryDelay:      getDurationEnv("SOLANA_RPC_RETRY_DELAY", 500*time.Millisecond),
		},
		JWT: JWTConfig{
			Secret:          getEnv("JWT_SECRET", "dev-jwt-secret"),
			AccessLifetime:  getDurationEnv("JWT_ACCESS_LIFETIME", 1*time.Hour),
			RefreshLifetime: getDurationEnv("JWT_REFRESH_LIFETIME", 7*24*time.Hour),
		},
		Redis: RedisConfig{
			URI: getEnv("REDIS_URI", ""),
		},
		Cache: CacheConfig{
			TTL:             getDurationEnv("BALANCE_CACHE_TTL", 60*time.Second),
			CleanupInterval: getDurationEnv("BALANCE_CACHE_CLEANUP_INTERVAL", 5*time.Minute),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: getIntEnv("RATE_LIMIT_REQUESTS", 100),
			WindowSize:        getDurationEnv("RATE_LIMIT_WINDOW", 15*time.Minute),
			CleanupInterval:   getDurationEnv("RATE_LIMIT_CLEANUP_INTERVAL", 5*time.Minute),
		},
		Logging: LoggingConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Environment: getEnv("LOG_ENVIRONMENT", "development"),
			OutputPaths: []string{getEnv("LOG_OUTPUT", "stdout")},
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getUint64Env(key string, defaultValue uint64) uint64 {
	if value := os.Getenv(key); value != "" {
		if uint64Value, err := strconv.ParseUint(value, 10, 64); err == nil {
			return uint64Value
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
