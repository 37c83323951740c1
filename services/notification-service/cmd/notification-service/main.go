package main

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/libs/httpx"
	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/libs/runtime"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/consumer"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/inbox"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/notify"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/storage"
)

func main() {
	_ = config.LoadDotEnv(".env")

	service := config.String("SERVICE_NAME", "notification-service")
	logger := runtime.NewLogger(service)

	port, err := config.Port("PORT", "8085")
	if err != nil {
		logger.Error("invalid port", "err", err)
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

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		logger.Error("missing config", "err", err)
		os.Exit(1)
	}
	pool, err := db.Open(ctx, dbURL)
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	var sender email.Sender = email.NewLogSender(logger)
	if host := config.String("SMTP_HOST", ""); host != "" {
		sender = email.NewSMTPSender(host, config.String("SMTP_PORT", "1025"), config.String("SMTP_FROM", ""))
	}
	notifier := notify.New(sender, storage.NewRepository(pool), logger)

	brokers := config.String("KAFKA_BROKERS", "")
	if len(kafkax.SplitBrokers(brokers)) == 0 {
		logger.Warn("event consumer disabled (no kafka brokers configured)")
	} else {
		eventConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers:      brokers,
			GroupID:      config.String("KAFKA_GROUP_ID", "notification-service"),
			Topics:       config.List("KAFKA_CONSUME_TOPICS", strings.Join(notify.Topics, ",")),
			RetryInitial: config.Duration("CONSUMER_RETRY_INITIAL", time.Second),
			RetryMax:     config.Duration("CONSUMER_RETRY_MAX", time.Minute),
		}, notifier.Handle)
		go eventConsumer.Run(ctx)
	}

	r := chi.NewRouter()
	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	))
	handler := httpx.Chain(r,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
	)
	handler = otelhttp.NewHandler(handler, "notification")

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	runtime.ServeHTTP(ctx, logger, srv, 10*time.Second)
}
