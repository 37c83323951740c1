package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/md-rashed-zaman/apptbook/libs/config"
	"github.com/md-rashed-zaman/apptbook/libs/db"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/booking"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/storage"
)

// openStore picks the appointment store from STORAGE_DRIVER. The returned pool is nil
// for the in-memory driver.
func openStore(ctx context.Context, logger *slog.Logger) (booking.Store, *db.Pool, *outbox.Repository, error) {
	driver := strings.ToLower(config.String("STORAGE_DRIVER", "postgres"))
	switch driver {
	case "memory":
		logger.Warn("using in-memory appointment store; data is lost on restart")
		return storage.NewMemoryStore(), nil, nil, nil
	case "postgres":
		dbURL, err := config.RequiredString("DATABASE_URL")
		if err != nil {
			return nil, nil, nil, err
		}
		pool, err := db.Open(ctx, dbURL, db.PoolConfig{
			MaxConns: int32(config.Int("DB_MAX_CONNS", 10)),
		})
		if err != nil {
			return nil, nil, nil, fmt.Errorf("db connection failed: %w", err)
		}
		outboxRepo := outbox.NewRepository()
		return storage.NewBookingRepository(pool, outboxRepo), pool, outboxRepo, nil
	default:
		return nil, nil, nil, fmt.Errorf("unknown STORAGE_DRIVER %q", driver)
	}
}
