package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/grpcx"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/auth-service/internal/handlers"
	"github.com/md-rashed-zaman/apptbook/services/auth-service/internal/storage"
)

func main() {
	_ = config.LoadDotEnv(".env")

	service := config.String("SERVICE_NAME", "auth-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8081")
	if err != nil {
		logger.Error("invalid port", "err", err)
		os.Exit(1)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		logger.Error("missing config", "err", err)
		os.Exit(1)
	}

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	users, pool, err := openUsers(ctx, logger)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	var checks []runtime.ReadyCheck
	if pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	authHandler := handlers.NewAuthHandler(users, jwtSecret, config.Duration("JWT_TTL", 24*time.Hour), logger)

	r := chi.NewRouter()
	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(checks...))
	r.Group(func(r chi.Router) {
		r.Use(httpx.RateLimit(httpx.NewMemoryLimiter(config.Int("AUTH_RATE_LIMIT_PER_MINUTE", 30), time.Minute), logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
		authHandler.Routes(r, auth.RequireBearer(jwtSecret))
	})

	handler := httpx.Chain(r,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
		}),
		httpx.WithBodyLimit(16<<10),
		httpx.WithTimeout(config.Duration("HTTP_HANDLER_TIMEOUT", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "auth")

	if grpcPort := config.String("GRPC_PORT", ""); grpcPort != "" {
		lis, err := net.Listen("tcp", ":"+grpcPort)
		if err != nil {
			logger.Error("grpc listen failed", "err", err)
			os.Exit(1)
		}
		grpcSrv := grpcx.NewServer(logger)
		grpcSrv.SetServing(service, true)
		go grpcSrv.Run(ctx, lis)
	}

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, logger, srv, 10*time.Second)
}

func openUsers(ctx context.Context, logger *slog.Logger) (handlers.UserStore, *db.Pool, error) {
	switch driver := strings.ToLower(config.String("STORAGE_DRIVER", "postgres")); driver {
	case "memory":
		logger.Warn("using in-memory user store; data is lost on restart")
		return storage.NewMemoryUserRepository(), nil, nil
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, nil, err
		}
		pool, err := db.Open(ctx, dbURL)
		if err != nil {
			return nil, nil, fmt.Errorf("db connection failed: %w", err)
		}
		return storage.NewUserRepository(pool), pool, nil
	default:
		return nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}
