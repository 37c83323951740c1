package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/md-rashed-zaman/apptbook/libs/db"
	otelx "github.com/md-rashed-zaman/apptbook/libs/otel"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/outbox"
)

const tracerScope = "booking-service/storage"

const appointmentColumns = `id::text, owner_id, starts_at, name, email, phone, reason, created_at`

// BookingRepository stores appointments in Postgres. The UNIQUE constraint on starts_at
// is what makes concurrent bookings of one slot resolve to a single winner.
type BookingRepository struct {
	pool   *db.Pool
	outbox *outbox.Repository
}

func NewBookingRepository(pool *db.Pool, outboxRepo *outbox.Repository) *BookingRepository {
	return &BookingRepository{pool: pool, outbox: outboxRepo}
}

func (r *BookingRepository) Insert(ctx context.Context, appt *model.Appointment) (id string, err error) {
	ctx, span := otelx.StartSpan(ctx, tracerScope, "appointments.insert",
		attribute.String("appointment.starts_at", appt.StartsAt.UTC().Format(time.RFC3339)))
	defer func() { otelx.EndSpan(span, err) }()

	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO appointments (owner_id, starts_at, name, email, phone, reason, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, now()))
			RETURNING id::text, created_at
		`, appt.OwnerID, appt.StartsAt.UTC(), appt.Name, appt.Email, appt.Phone, appt.Reason, createdAt(appt)).Scan(&appt.ID, &appt.CreatedAt)
		if err != nil {
			if db.HasCode(err, db.CodeUniqueViolation) {
				return model.ErrSlotTaken
			}
			return err
		}

		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentBooked, *appt, appt.CreatedAt)
		if err != nil {
			return fmt.Errorf("build booked event: %w", err)
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if err != nil {
		return "", err
	}
	return appt.ID, nil
}

func (r *BookingRepository) ExistsAt(ctx context.Context, t time.Time) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM appointments WHERE starts_at = $1)`, t.UTC()).Scan(&exists)
	return exists, err
}

func (r *BookingRepository) ListBetween(ctx context.Context, from, to time.Time) (starts []time.Time, err error) {
	ctx, span := otelx.StartSpan(ctx, tracerScope, "appointments.list_between")
	defer func() { otelx.EndSpan(span, err) }()

	rows, err := r.pool.Query(ctx, `
		SELECT starts_at
		FROM appointments
		WHERE starts_at >= $1 AND starts_at < $2
		ORDER BY starts_at
	`, from.UTC(), to.UTC())
	if err != nil {
		return nil, err
	}
	starts, err = pgx.CollectRows(rows, pgx.RowTo[time.Time])
	if err != nil {
		return nil, err
	}
	return starts, nil
}

func (r *BookingRepository) FindOwned(ctx context.Context, ownerID, id string) (model.Appointment, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE id::text = $1 AND owner_id = $2
	`, id, ownerID)
	appt, err := scanAppointment(row)
	if db.IsNoRows(err) {
		return model.Appointment{}, model.ErrNotFound
	}
	return appt, err
}

// DeleteOwned removes the appointment and records a cancelled event stamped at now.
func (r *BookingRepository) DeleteOwned(ctx context.Context, ownerID, id string, now time.Time) (appt model.Appointment, err error) {
	ctx, span := otelx.StartSpan(ctx, tracerScope, "appointments.delete", attribute.String("appointment.id", id))
	defer func() { otelx.EndSpan(span, err) }()

	err = r.pool.InTx(ctx, func(tx pgx.Tx) error {
		row := tx.QueryRow(ctx, `
			DELETE FROM appointments
			WHERE id::text = $1 AND owner_id = $2
			RETURNING `+appointmentColumns, id, ownerID)
		deleted, err := scanAppointment(row)
		if err != nil {
			if db.IsNoRows(err) {
				return model.ErrNotFound
			}
			return err
		}
		appt = deleted

		evt, err := outbox.AppointmentEvent(outbox.TopicAppointmentCancelled, deleted, now)
		if err != nil {
			return fmt.Errorf("build cancelled event: %w", err)
		}
		return r.outbox.Insert(ctx, tx, evt)
	})
	if err != nil {
		return model.Appointment{}, err
	}
	return appt, nil
}

func (r *BookingRepository) ListUpcoming(ctx context.Context, ownerID string, now time.Time, offset, limit int) ([]model.Appointment, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `
		SELECT count(*) FROM appointments WHERE owner_id = $1 AND starts_at >= $2
	`, ownerID, now.UTC()).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx, `
		SELECT `+appointmentColumns+`
		FROM appointments
		WHERE owner_id = $1 AND starts_at >= $2
		ORDER BY starts_at
		OFFSET $3 LIMIT $4
	`, ownerID, now.UTC(), offset, limit)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]model.Appointment, 0, limit)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func scanAppointment(row pgx.Row) (model.Appointment, error) {
	var appt model.Appointment
	err := row.Scan(&appt.ID, &appt.OwnerID, &appt.StartsAt, &appt.Name, &appt.Email, &appt.Phone, &appt.Reason, &appt.CreatedAt)
	if err != nil {
		return model.Appointment{}, err
	}
	appt.StartsAt = appt.StartsAt.UTC()
	appt.CreatedAt = appt.CreatedAt.UTC()
	return appt, nil
}

// createdAt leaves an unset timestamp to the database default.
func createdAt(appt *model.Appointment) *time.Time {
	if appt.CreatedAt.IsZero() {
		return nil
	}
	t := appt.CreatedAt.UTC()
	return &t
}
