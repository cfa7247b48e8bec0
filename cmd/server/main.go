package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vimoda/web3-oauth-api/internal/config"
	"github.com/vimoda/web3-oauth-api/internal/handlers"
	"github.com/vimoda/web3-oauth-api/internal/middleware"
	"github.com/vimoda/web3-oauth-api/internal/services"
	"github.com/vimoda/web3-oauth-api/pkg/cache"
	"github.com/vimoda/web3-oauth-api/pkg/logger"
	"github.com/vimoda/web3-oauth-api/pkg/metrics"
	"github.com/vimoda/web3-oauth-api/pkg/ratelimiter"
)

// Server represents the main application server
type Server struct {
	httpServer     *http.Server
	config         *config.Config
	developers     *services.DeveloperService
	ledger         *services.LedgerService
	balanceCache   *cache.BalanceCache
	resolver       *services.AccessResolver
	sessions       *services.SessionService
	revocations    services.RevocationStoreInterface
	redisStore     *services.RedisRevocationStore
	metrics        *metrics.Collector
	rateLimiter    *ratelimiter.RateLimiter
	router         *handlers.Router
	cleanupStop    chan struct{}
}

func main() {
	cfg := config.LoadConfig()

	loggerConfig := &logger.Config{
		Level:       cfg.Logging.Level,
		Environment: cfg.Logging.Environment,
		OutputPaths: cfg.Logging.OutputPaths,
	}
	if err := logger.Initialize(loggerConfig); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log := logger.GetLogger()

	log.Info("Starting web3-oauth-api server",
		zap.String("host", cfg.Server.Host),
		zap.String("port", cfg.Server.Port),
		zap.String("testnet_rpc", cfg.RPC.TestnetEndpoint),
		zap.String("mainnet_rpc", cfg.RPC.MainnetEndpoint),
		zap.Duration("balance_cache_ttl", cfg.Cache.TTL),
		zap.String("environment", cfg.Logging.Environment),
	)

	server, err := NewServer(cfg)
	if err != nil {
		log.Fatal("Failed to create server", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		log.Fatal("Server failed to start", zap.Error(err))
	}
}

// NewServer creates a new server instance with all dependencies
func NewServer(cfg *config.Config) (*Server, error) {
	log := logger.GetLogger()

	log.Debug("Initializing developer lookup service")
	developers, err := services.NewDeveloperService(&cfg.MongoDB)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize developer service: %w", err)
	}

	log.Debug("Initializing ledger client")
	ledger := services.NewLedgerService(&cfg.RPC)
	for _, network := range ledger.Networks() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := ledger.IsHealthy(ctx, network); err != nil {
			log.Warn("Ledger RPC health check failed",
				zap.String("network", string(network)),
				zap.Error(err),
			)
		}
		cancel()
	}

	collector := metrics.NewCollector()
	balanceCache := cache.New(cfg.Cache.TTL)

	log.Debug("Initializing access-level resolver")
	resolver := services.NewAccessResolver(ledger, balanceCache, cfg.Cache.CleanupInterval, collector)

	log.Debug("Initializing revocation store")
	var revocations services.RevocationStoreInterface
	var redisStore *services.RedisRevocationStore
	if cfg.Redis.URI != "" {
		redisStore, err = services.NewRedisRevocationStore(cfg.Redis.URI)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		revocations = redisStore
	} else {
		log.Warn("No REDIS_URI configured, using in-memory revocation store")
		revocations = services.NewMemoryRevocationStore()
	}

	sessions := services.NewSessionService(&cfg.JWT, resolver, revocations, collector)
	wallet := services.NewWalletVerifier()

	authHandler := handlers.NewAuthHandler(wallet, resolver, sessions)
	healthHandler := handlers.NewHealthHandler(services.NewHealthService(developers, ledger))
	router := handlers.NewRouter(authHandler, healthHandler, developers)

	rateLimiter := ratelimiter.New(cfg.RateLimit.RequestsPerWindow, cfg.RateLimit.WindowSize)

	log.Info("Server components initialized successfully")

	return &Server{
		config:       cfg,
		developers:   developers,
		ledger:       ledger,
		balanceCache: balanceCache,
		resolver:     resolver,
		sessions:     sessions,
		revocations:  revocations,
		redisStore:   redisStore,
		metrics:      collector,
		rateLimiter:  rateLimiter,
		router:       router,
		cleanupStop:  make(chan struct{}),
	}, nil
}

// Start starts the HTTP server with graceful shutdown handling
func (s *Server) Start() error {
	log := logger.GetLogger()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()

	s.setupMiddleware(engine)
	s.router.SetupHealthRoutes(engine)
	s.router.SetupRoutes(engine)
	engine.GET("/metrics", s.metricsHandler)

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Server.Host, s.config.Server.Port),
		Handler:           engine,
		ReadTimeout:       s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	log.Info("HTTP server configured",
		zap.String("address", s.httpServer.Addr),
		zap.Duration("read_timeout", s.config.Server.ReadTimeout),
		zap.Duration("write_timeout", s.config.Server.WriteTimeout),
	)

	s.startCleanupRoutines()

	go func() {
		log.Info("Starting HTTP server", zap.String("address", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	return s.waitForShutdown()
}

// setupMiddleware configures the middleware stack
func (s *Server) setupMiddleware(engine *gin.Engine) {
	engine.Use(logger.RecoveryMiddleware())
	engine.Use(logger.LoggingMiddleware())
	engine.Use(middleware.MetricsMiddleware(s.metrics))
	engine.Use(s.corsMiddleware())
	engine.Use(s.rateLimiter.Middleware())
}

// corsMiddleware adds CORS headers for browser wallet clients
func (s *Server) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Authorization, X-API-Key, X-Nonce, X-Signature")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// metricsHandler exposes pipeline metrics
func (s *Server) metricsHandler(c *gin.Context) {
	snapshot := s.metrics.GetMetrics()
	c.JSON(http.StatusOK, gin.H{
		"service":                 "web3-oauth-api",
		"uptime":                  s.metrics.GetUptime().String(),
		"cache_hit_ratio_percent": s.metrics.GetCacheHitRatio(),
		"balance_cache_size":      s.balanceCache.Size(),
		"decimals_cache_size":     s.balanceCache.DecimalsSize(),
		"metrics":                 snapshot,
	})
}

// startCleanupRoutines starts background cleanup tasks
func (s *Server) startCleanupRoutines() {
	go func() {
		ticker := time.NewTicker(s.config.RateLimit.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.rateLimiter.Cleanup()
			case <-s.cleanupStop:
				return
			}
		}
	}()
}

// waitForShutdown waits for interrupt signal and performs graceful shutdown
func (s *Server) waitForShutdown() error {
	log := logger.GetLogger()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Received shutdown signal", zap.String("signal", sig.String()))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return err
	}

	s.cleanup()

	log.Info("Server gracefully stopped")
	return nil
}

// cleanup releases all service resources
func (s *Server) cleanup() {
	log := logger.GetLogger()

	close(s.cleanupStop)

	s.resolver.Stop()
	s.balanceCache.Stop()

	if s.redisStore != nil {
		if err := s.redisStore.Close(); err != nil {
			log.Error("Error closing revocation store", zap.Error(err))
		}
	}

	if err := s.developers.Close(); err != nil {
		log.Error("Error closing developer service", zap.Error(err))
	}

	if err := log.Sync(); err != nil {
		fmt.Printf("Error syncing logger: %v\n", err)
	}
}
