package storage

import (
	"context"

	"github.com/md-rashed-zaman/apptbook/libs/db"
)

const (
	StatusSent    = "sent"
	StatusFailed  = "failed"
	StatusSkipped = "skipped"
)

type Notification struct {
	EventID       string
	EventType     string
	AppointmentID string
	Recipient     string
	Provider      string
	Status        string
	Error         string
}

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, n Notification) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO notifications (event_id, event_type, appointment_id, recipient, provider, status, error)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''))
	`, n.EventID, n.EventType, n.AppointmentID, n.Recipient, n.Provider, n.Status, n.Error)
	return err
}
