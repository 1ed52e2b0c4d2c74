// fundpoold serves the contribution pool over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/fundpool/fundpool/internal/handler"
	"github.com/fundpool/fundpool/internal/identity"
	"github.com/fundpool/fundpool/internal/journal"
	"github.com/fundpool/fundpool/internal/ledger"
	"github.com/fundpool/fundpool/internal/oracle"
	"github.com/fundpool/fundpool/internal/treasury"
)

// poolAccount is the pool's own identity with the transferor.
const poolAccount = ledger.Identity("fundpool:pool")

func main() {
	logger, _ := zap.NewProduction()
	defer logger.Sync() //nolint:errcheck

	if err := run(logger); err != nil {
		logger.Fatal("fundpoold exited with error", zap.Error(err))
	}
}

func run(logger *zap.Logger) error {
	// ── Configuration ────────────────────────────────────────────────────────
	viper.SetConfigName("fundpool")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.base_url", "")
	viper.SetDefault("server.cors_origins", []string{"http://localhost:3000"})
	viper.SetDefault("server.rate_limit_rps", 20)
	viper.SetDefault("auth.secret", "")
	viper.SetDefault("auth.token_ttl_seconds", 3600)
	viper.SetDefault("pool.owner", "fundpool:owner")
	viper.SetDefault("pool.minimum_usd", "5")
	viper.SetDefault("pool.seed_accounts", []string{})
	viper.SetDefault("pool.seed_amount", "10")
	viper.SetDefault("oracle.mode", "static")
	viper.SetDefault("oracle.static_price", "2000")
	viper.SetDefault("oracle.decimals", 8)
	viper.SetDefault("oracle.version", 1)
	viper.SetDefault("oracle.url", "")
	viper.SetDefault("oracle.max_stale", "1m")
	viper.SetDefault("database.url", "")

	if err := viper.ReadInConfig(); err != nil {
		var cfgNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgNotFound) {
			return fmt.Errorf("read config: %w", err)
		}
		logger.Warn("no config file found, using defaults and env vars")
	}

	secret := viper.GetString("auth.secret")
	if secret == "" {
		return errors.New("auth.secret must be set (AUTH_SECRET)")
	}

	// ── Price feed ───────────────────────────────────────────────────────────
	decimals := uint8(viper.GetUint("oracle.decimals"))
	var feed oracle.PriceFeed
	switch mode := viper.GetString("oracle.mode"); mode {
	case "static":
		price, err := oracle.ParseDecimal(viper.GetString("oracle.static_price"), decimals)
		if err != nil {
			return fmt.Errorf("parse oracle.static_price: %w", err)
		}
		feed = oracle.NewStaticFeed(price, decimals, viper.GetUint64("oracle.version"))
		logger.Info("price feed: static",
			zap.String("price", price.String()),
			zap.Uint8("decimals", decimals),
		)
	case "http":
		url := viper.GetString("oracle.url")
		if url == "" {
			return errors.New("oracle.url must be set when oracle.mode is http")
		}
		maxStale, err := time.ParseDuration(viper.GetString("oracle.max_stale"))
		if err != nil {
			return fmt.Errorf("parse oracle.max_stale: %w", err)
		}
		feed = oracle.NewHTTPFeed(url, decimals, maxStale, logger)
		logger.Info("price feed: http", zap.String("url", url))
	default:
		return fmt.Errorf("unknown oracle.mode %q", mode)
	}
	rates := oracle.NewAdapter(feed, logger)

	// ── Treasury and pool ────────────────────────────────────────────────────
	book := treasury.NewAccountBook(logger)
	seedAmount, err := oracle.ParseDecimal(viper.GetString("pool.seed_amount"), 18)
	if err != nil {
		return fmt.Errorf("parse pool.seed_amount: %w", err)
	}
	for _, id := range viper.GetStringSlice("pool.seed_accounts") {
		if err := book.Credit(ledger.Identity(id), seedAmount); err != nil {
			return fmt.Errorf("seed account %s: %w", id, err)
		}
		logger.Info("seeded account", zap.String("identity", id), zap.String("amount", seedAmount.String()))
	}

	owner := ledger.Identity(viper.GetString("pool.owner"))
	pool := ledger.New(owner, poolAccount, rates, book, logger)

	minimum, err := oracle.ParseDecimal(viper.GetString("pool.minimum_usd"), 18)
	if err != nil {
		return fmt.Errorf("parse pool.minimum_usd: %w", err)
	}
	pool.SetMinimumUSD(minimum)

	logger.Info("pool ready",
		zap.String("owner", string(owner)),
		zap.String("minimum_usd", minimum.String()),
		zap.Uint64("oracle_schema_version", rates.SchemaVersion()),
	)

	// ── Audit journal ────────────────────────────────────────────────────────
	var auditJournal journal.Journal
	if dbURL := viper.GetString("database.url"); dbURL != "" {
		db, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			return fmt.Errorf("connect to postgres: %w", err)
		}
		defer db.Close()

		if err := db.Ping(context.Background()); err != nil {
			return fmt.Errorf("ping postgres: %w", err)
		}
		auditJournal = journal.NewPostgresJournal(db, logger)
		logger.Info("journal: postgres")
	} else {
		auditJournal = journal.New()
		logger.Info("journal: in-memory (set database.url for a durable audit trail)")
	}
	pool.SetJournal(auditJournal)

	startCtx := context.Background()
	if err := auditJournal.Verify(startCtx); err != nil {
		logger.Warn("journal integrity check FAILED", zap.Error(err))
	} else {
		n, _ := auditJournal.Len(startCtx)
		root, _ := auditJournal.Root(startCtx)
		logger.Info("journal verified", zap.Int("entries", n), zap.String("root", root))
	}

	// ── Tokens ───────────────────────────────────────────────────────────────
	httpPort := viper.GetInt("server.port")
	baseURL := viper.GetString("server.base_url")
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%d", httpPort)
	}
	tokenTTL := time.Duration(viper.GetInt("auth.token_ttl_seconds")) * time.Second
	tokens := identity.NewTokenIssuer([]byte(secret), baseURL, tokenTTL)

	// ── HTTP router ──────────────────────────────────────────────────────────
	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	corsOrigins := viper.GetStringSlice("server.cors_origins")
	router.Use(cors.New(cors.Config{
		AllowOrigins:     corsOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: !containsWildcard(corsOrigins),
		MaxAge:           12 * time.Hour,
	}))

	// Security headers
	router.Use(func(c *gin.Context) {
		c.Header("X-Frame-Options", "DENY")
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	})

	// Request body size limit (64 KB — the API carries no large payloads)
	router.Use(func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, 1<<16)
		c.Next()
	})

	if rps := viper.GetInt("server.rate_limit_rps"); rps > 0 {
		router.Use(handler.RateLimiter(rps, rps*2))
	}

	router.Use(handler.PrometheusMiddleware())
	router.Use(requestLogger(logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", handler.MetricsHandler())

	v1 := router.Group("/api/v1")
	auth := handler.CallerAuth(tokens, logger)
	handler.NewPoolHandler(pool, rates, logger).Register(v1, auth)
	handler.NewJournalHandler(auditJournal, logger).Register(v1)

	handler.SetPoolGauges(pool.Balance(), pool.ContributorCount())

	// ── Serve ────────────────────────────────────────────────────────────────
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", httpPort),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		logger.Info("fundpoold HTTP listening", zap.Int("port", httpPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP listen error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("shutting down fundpoold...")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	if balance := pool.Balance(); balance.Sign() > 0 {
		logger.Info("pool holds funds at shutdown",
			zap.String("balance", balance.String()),
			zap.Int("contributors", pool.ContributorCount()),
		)
	}

	logger.Info("fundpoold stopped")
	return nil
}

// containsWildcard returns true if origins includes "*".
func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if strings.TrimSpace(o) == "*" {
			return true
		}
	}
	return false
}

// requestLogger returns a Gin middleware that logs each request with zap.
func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
