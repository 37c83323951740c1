package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
)

func main() {
	_ = config.LoadDotEnv(".env")

	service := config.String("SERVICE_NAME", "gateway-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8080")
	if err != nil {
		logger.Error("invalid port", "err", err)
		os.Exit(1)
	}
	jwtSecret, err := config.RequiredString("JWT_SECRET")
	if err != nil {
		logger.Error("missing config", "err", err)
		os.Exit(1)
	}
	up, err := upstreamsFromEnv()
	if err != nil {
		logger.Error("invalid upstream", "err", err)
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

	r := chi.NewRouter()
	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(
		runtime.ReadyCheck{Name: "auth", Check: upstreamReady(up.Auth)},
		runtime.ReadyCheck{Name: "booking", Check: upstreamReady(up.Booking)},
	))
	r.Group(func(r chi.Router) {
		limit := config.Int("RATE_LIMIT_PER_MINUTE", 300)
		r.Use(httpx.RateLimit(httpx.NewMemoryLimiter(limit, time.Minute), logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
		registerRoutes(r, up, jwtSecret, logger)
	})

	handler := httpx.Chain(r,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(int64(config.Int("HTTP_MAX_BODY_BYTES", 64<<10))),
		httpx.WithTimeout(config.Duration("REQUEST_TIMEOUT", 10*time.Second)),
	)
	handler = otelhttp.NewHandler(handler, "gateway")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, logger, srv, config.Duration("SHUTDOWN_GRACE", 10*time.Second))
}
