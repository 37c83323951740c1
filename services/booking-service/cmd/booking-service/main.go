package main

import (
	"context"
	"net"
	"net/http"
	"os"
	"time"
	_ "time/tzdata"

	"github.com/go-chi/chi/v5"

	"github.com/md-rashed-zaman/apptbook/libs/auth"
	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/grpcx"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/handlers"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
)

func main() {
	_ = config.LoadDotEnv(".env")

	service := config.String("SERVICE_NAME", "booking-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8083")
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

	store, pool, outboxRepo, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("store init failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	brokers := config.String("KAFKA_BROKERS", "")
	if pool != nil {
		publisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
			Brokers:   brokers,
			PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
			BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
		})
		go publisher.Run(ctx)
	}

	limiter, rdb := newLimiter(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	svc := booking.NewService(store, logger, time.Now)
	bookingHandler := handlers.NewBookingHandler(svc, logger)

	checks := []runtime.ReadyCheck{
		{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
		{Name: "redis", Check: httpx.RedisReadyCheck(rdb)},
		{Name: "auth", Check: grpcx.HealthReadyCheck(config.String("AUTH_GRPC_ADDR", ""), "auth-service")},
	}
	if pool != nil {
		checks = append(checks, runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)})
	}

	r := chi.NewRouter()
	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(checks...))
	r.Group(func(r chi.Router) {
		r.Use(httpx.RateLimit(limiter, logger, config.Bool("RATE_LIMIT_FAIL_OPEN", true)))
		bookingHandler.Routes(r, auth.RequireBearer(jwtSecret))
	})

	httpHandler := withEdge(r, logger, edgeConfigFromEnv())

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
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, logger, srv, config.Duration("SHUTDOWN_GRACE", 10*time.Second))
}
