package main

import (
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
)

type edgeConfig struct {
	AllowedOrigins []string
	MaxBodyBytes   int64
	Timeout        time.Duration
}

func edgeConfigFromEnv() edgeConfig {
	return edgeConfig{
		AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
		MaxBodyBytes:   int64(config.Int("HTTP_MAX_BODY_BYTES", 64<<10)),
		Timeout:        config.Duration("REQUEST_TIMEOUT", 10*time.Second),
	}
}

// withEdge wraps the router in the shared middleware chain and tracing.
func withEdge(h http.Handler, logger *slog.Logger, cfg edgeConfig) http.Handler {
	h = httpx.Chain(h,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: cfg.AllowedOrigins,
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
			AllowedHeaders: []string{"Authorization", "Content-Type", httpx.RequestIDHeader},
			ExposedHeaders: []string{httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(cfg.MaxBodyBytes),
		httpx.WithTimeout(cfg.Timeout),
	)
	return otelhttp.NewHandler(h, "booking")
}
