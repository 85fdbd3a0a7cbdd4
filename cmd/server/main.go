package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/bibliotheque/internal/domain"
	"github.com/yourorg/bibliotheque/internal/handler"
	"github.com/yourorg/bibliotheque/internal/infrastructure/logger"
	"github.com/yourorg/bibliotheque/internal/infrastructure/redis"
	"github.com/yourorg/bibliotheque/internal/inmemory"
	"github.com/yourorg/bibliotheque/internal/observability/metrics"
	"github.com/yourorg/bibliotheque/internal/observability/tracing"
	"github.com/yourorg/bibliotheque/internal/repository"
	"github.com/yourorg/bibliotheque/internal/security/ratelimit"
	"github.com/yourorg/bibliotheque/internal/service"
	"github.com/yourorg/bibliotheque/internal/worker"
	"github.com/yourorg/bibliotheque/pkg/config"
	"github.com/yourorg/bibliotheque/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting bibliotheque server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Optional tracing
	shutdownTracing, err := tracing.Init(ctx, log, cfg.OTELEndpoint, "bibliotheque", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize the store
	var store domain.Store
	switch cfg.StoreBackend {
	case "memory":
		memStore, err := inmemory.NewStore()
		if err != nil {
			log.Error("failed to initialize in-memory store", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = memStore
		log.Warn("using in-memory store, data will not survive a restart")
	default:
		db, err := database.Connect(ctx, &database.Config{
			Host:     cfg.Database.Host,
			Port:     cfg.Database.Port,
			User:     cfg.Database.User,
			Password: cfg.Database.Password,
			Database: cfg.Database.Name,
			SSLMode:  cfg.Database.SSLMode,
		}, log)
		if err != nil {
			log.Error("failed to connect to database", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer db.Close()

		if err := database.MigrateUp(db, cfg.MigrationsPath, log); err != nil {
			log.Error("failed to run migrations", slog.String("error", err.Error()))
			os.Exit(1)
		}
		store = repository.NewStore(db, log)
	}

	// 5. Optional Redis for distributed rate limiting
	var redisClient *redis.Client
	var limiter ratelimit.Limiter
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL)
		if err != nil {
			log.Error("failed to connect to Redis", slog.String("error", err.Error()))
			os.Exit(1)
		}
		defer redisClient.Close()
		limiter = ratelimit.NewRedisLimiter(redisClient, cfg.RateLimitPerMinute, log)
	} else {
		localLimiter := ratelimit.NewLocalLimiter(cfg.RateLimitPerMinute)
		defer localLimiter.Stop()
		limiter = localLimiter
	}

	// 6. Initialize services
	loanService := service.NewLoanService(store, log)

	// 7. Initialize handlers
	authorHandler := handler.NewAuthorHandler(store.Authors(), log)
	categoryHandler := handler.NewCategoryHandler(store.Categories(), log)
	bookHandler := handler.NewBookHandler(store.Books(), store.Authors(), store.Categories(), log)
	userHandler := handler.NewUserHandler(store.Users(), log)
	loanHandler := handler.NewLoanHandler(loanService, log)

	var healthRedis handler.Pinger
	if redisClient != nil {
		healthRedis = redisClient
	}
	healthHandler := handler.NewHealthHandler(store, healthRedis, log)

	// 8. Setup HTTP routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/auteurs", authorHandler.List)
	mux.HandleFunc("GET /api/auteurs/{id}", authorHandler.Show)
	mux.HandleFunc("POST /api/auteurs", authorHandler.Create)
	mux.HandleFunc("PUT /api/auteurs/{id}", authorHandler.Update)
	mux.HandleFunc("DELETE /api/auteurs/{id}", authorHandler.Delete)

	mux.HandleFunc("GET /api/categories", categoryHandler.List)
	mux.HandleFunc("GET /api/categories/{id}", categoryHandler.Show)
	mux.HandleFunc("POST /api/categories", categoryHandler.Create)
	mux.HandleFunc("PUT /api/categories/{id}", categoryHandler.Update)
	mux.HandleFunc("DELETE /api/categories/{id}", categoryHandler.Delete)

	mux.HandleFunc("GET /api/livres", bookHandler.List)
	mux.HandleFunc("GET /api/livres/{id}", bookHandler.Show)
	mux.HandleFunc("POST /api/livres", bookHandler.Create)
	mux.HandleFunc("PUT /api/livres/{id}", bookHandler.Update)
	mux.HandleFunc("DELETE /api/livres/{id}", bookHandler.Delete)

	mux.HandleFunc("GET /api/utilisateurs", userHandler.List)
	mux.HandleFunc("GET /api/utilisateurs/{id}", userHandler.Show)
	mux.HandleFunc("POST /api/utilisateurs", userHandler.Create)
	mux.HandleFunc("PUT /api/utilisateurs/{id}", userHandler.Update)
	mux.HandleFunc("DELETE /api/utilisateurs/{id}", userHandler.Delete)

	mux.HandleFunc("POST /api/emprunts", loanHandler.Borrow)
	mux.HandleFunc("GET /api/emprunts", loanHandler.List)
	mux.HandleFunc("PATCH /api/emprunts/{id}/rendre", loanHandler.Return)

	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: request ID -> CORS -> rate limit -> metrics -> tracing -> mux
	rootHandler := withRequestID(
		withCORS(cfg.CORSAllowedOrigins,
			ratelimit.Middleware(limiter, log)(
				metrics.HTTPMetricsMiddleware(
					otelhttp.NewHandler(mux, "bibliotheque"),
				),
			),
		),
		log,
	)

	// 9. Start overdue scanner in background
	scanner := worker.NewOverdueScanner(
		store.Loans(),
		log,
		time.Duration(cfg.OverdueScanMinutes)*time.Minute,
		time.Duration(cfg.OverdueAfterDays)*24*time.Hour,
	)
	go scanner.Start(ctx)

	// 10. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("store", cfg.StoreBackend),
		slog.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	<-sigChan
	log.Info("shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop the overdue scanner
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}

type requestIDKey struct{}

// withRequestID attaches a request ID to the context and response headers for traceability
func withRequestID(next http.Handler, log *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		w.Header().Set("X-Request-ID", reqID)

		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		start := time.Now()

		next.ServeHTTP(w, r.WithContext(ctx))

		log.Info("request completed",
			slog.String("request_id", reqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

// withCORS answers preflight requests and sets the allow headers for
// configured origins. Preflights never reach the rate limiter.
func withCORS(allowedOrigins []string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		if originAllowed(allowedOrigins, origin) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
		} else if len(allowedOrigins) > 0 {
			w.Header().Set("Access-Control-Allow-Origin", allowedOrigins[0])
		}
		w.Header().Set("Vary", "Origin")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Accept")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func originAllowed(allowed []string, origin string) bool {
	if origin == "" {
		return false
	}
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}
