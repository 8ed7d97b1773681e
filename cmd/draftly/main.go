package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/draftly-app/draftly/internal/config"
	"github.com/draftly-app/draftly/internal/gateway"
	"github.com/draftly-app/draftly/internal/guard"
	"github.com/draftly-app/draftly/internal/guard/policy"
	"github.com/draftly-app/draftly/internal/prompt"
	"github.com/draftly-app/draftly/internal/ratelimit"
	"github.com/draftly-app/draftly/internal/telemetry"
	"github.com/draftly-app/draftly/internal/upstream"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

var version = "dev"

func main() {
	configPath := flag.String("config", "configs/draftly.yaml", "path to configuration file")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Load configuration (read once; only prompt overrides hot-reload)
	loader := config.NewLoader(*configPath, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	cfg := loader.Config()

	logger = buildLogger(cfg.Telemetry)
	slog.SetDefault(logger)

	if cfg.Upstream.APIKey == "" {
		logger.Error("OPENROUTER_API_KEY is missing, set it in the environment")
		os.Exit(1)
	}

	if cfg.Prompts.Watch {
		if err := loader.Watch(); err != nil {
			logger.Warn("failed to start prompt overrides watcher", "error", err)
		}
	}

	metrics := telemetry.NewMetrics()

	// Admission control backend
	var limiter ratelimit.Limiter
	switch cfg.RateLimit.Backend {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (rate limiting fails open)", "error", err)
		} else {
			logger.Info("redis connected")
		}
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	default:
		limiter = ratelimit.NewMemoryLimiter(cfg.RateLimit.Window, cfg.RateLimit.MaxRequests)
	}

	// Optional content policy
	var evaluator *policy.Evaluator
	if cfg.Policy.Enabled {
		evaluator = policy.NewEvaluator(func() config.PolicyConfig {
			return cfg.Policy
		})
		if err := evaluator.Load(); err != nil {
			logger.Error("failed to load content policy", "error", err)
			os.Exit(1)
		}
	}

	builder := prompt.NewBuilder(loader.Overrides)
	loader.OnReload(func() {
		logger.Info("prompt overrides reloaded")
	})

	client := upstream.NewClient(cfg.Upstream, metrics)
	handler := gateway.NewHandler(guard.NewSanitizer(cfg.Guard.MaxLength), evaluator, builder, client, metrics)

	// Router setup
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestIDMiddleware)

	r.Get("/health", handler.Health)

	r.Group(func(r chi.Router) {
		r.Use(ratelimit.Middleware(limiter, cfg.RateLimit.MaxRequests, metrics))
		r.Post("/generate", handler.Generate)
	})

	if cfg.Server.ServeStatic() {
		serveSPA(r, cfg.Server.StaticDir)
	}

	// Metrics listener
	if cfg.Telemetry.MetricsPort > 0 {
		go func() {
			addr := fmt.Sprintf(":%d", cfg.Telemetry.MetricsPort)
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			if err := http.ListenAndServe(addr, mux); err != nil {
				logger.Error("metrics listener failed", "error", err)
			}
		}()
	}

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	errCh := make(chan error, 1)
	go func() {
		logger.Info("draftly starting",
			"addr", addr,
			"version", version,
			"environment", cfg.Server.Environment,
			"rate_limit", cfg.RateLimit.MaxRequests,
			"rate_window", cfg.RateLimit.Window.String(),
			"api_key_present", cfg.Upstream.APIKey != "",
		)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("draftly stopped")
}

func buildLogger(cfg config.TelemetryConfig) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}

// serveSPA serves the built frontend with index.html fallback so client-side
// routes resolve. API routes are registered first and take precedence.
func serveSPA(r chi.Router, dir string) {
	fileServer := http.FileServer(http.Dir(dir))
	index := filepath.Join(dir, "index.html")
	r.Get("/*", func(w http.ResponseWriter, req *http.Request) {
		path := filepath.Join(dir, filepath.Clean(req.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			fileServer.ServeHTTP(w, req)
			return
		}
		http.ServeFile(w, req, index)
	})
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = generateRequestID()
		}
		w.Header().Set("X-Request-ID", reqID)
		ctx := context.WithValue(r.Context(), requestIDKey, reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type contextKey string

const requestIDKey contextKey = "request_id"

func generateRequestID() string {
	now := time.Now()
	b := make([]byte, 8)
	rand.Read(b)
	return fmt.Sprintf("req_%d_%s", now.UnixMilli(), hex.EncodeToString(b))
}
