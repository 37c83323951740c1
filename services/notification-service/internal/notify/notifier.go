// Package notify turns appointment events into e-mails for the person who booked.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/md-rashed-zaman/apptbook/libs/kafkax"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/email"
	"github.com/md-rashed-zaman/apptbook/services/notification-service/internal/storage"
)

const (
	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"
)

// Topics lists every event the notifier understands.
var Topics = []string{TopicAppointmentBooked, TopicAppointmentCancelled}

type appointmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Reason        string `json:"reason"`
	StartsAt      string `json:"starts_at"`
}

// Log persists the outcome of each notification attempt.
type Log interface {
	Insert(ctx context.Context, n storage.Notification) error
}

type Notifier struct {
	sender email.Sender
	log    Log
	logger *slog.Logger
}

func New(sender email.Sender, log Log, logger *slog.Logger) *Notifier {
	return &Notifier{sender: sender, log: log, logger: logger}
}

// Handle processes one Kafka message. Malformed payloads are logged and dropped; only
// failures to record the outcome are returned so the event is retried.
func (n *Notifier) Handle(ctx context.Context, msg kafka.Message) error {
	meta := kafkax.ExtractEventMeta(msg)

	var p appointmentPayload
	if err := json.Unmarshal(msg.Value, &p); err != nil {
		n.logger.Error("invalid appointment payload", "err", err, "event_id", meta.EventID)
		return nil
	}
	startsAt, err := time.Parse(time.RFC3339, p.StartsAt)
	if err != nil || p.AppointmentID == "" {
		n.logger.Error("missing appointment fields", "event_id", meta.EventID)
		return nil
	}

	subject, body, ok := compose(meta.EventType, p, startsAt)
	if !ok {
		n.logger.Warn("unsupported event type", "event_type", meta.EventType)
		return nil
	}

	record := storage.Notification{
		EventID:       meta.EventID,
		EventType:     meta.EventType,
		AppointmentID: p.AppointmentID,
		Recipient:     p.Email,
		Provider:      n.sender.ProviderID(),
		Status:        storage.StatusSent,
	}
	switch {
	case strings.TrimSpace(p.Email) == "":
		record.Status = storage.StatusSkipped
	default:
		if err := n.sender.Send(ctx, p.Email, subject, body); err != nil {
			record.Status = storage.StatusFailed
			record.Error = err.Error()
			n.logger.Error("email send failed", "err", err, "appointment_id", p.AppointmentID)
		}
	}

	if err := n.log.Insert(ctx, record); err != nil {
		return fmt.Errorf("persist notification: %w", err)
	}
	n.logger.Info("notification processed", "appointment_id", p.AppointmentID, "event_type", meta.EventType, "status", record.Status)
	return nil
}

func compose(eventType string, p appointmentPayload, startsAt time.Time) (subject, body string, ok bool) {
	when := startsAt.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = "there"
	}
	switch eventType {
	case TopicAppointmentBooked:
		subject = "Appointment confirmed for " + when
		body = fmt.Sprintf("Hi %s,\n\nYour 30-minute appointment is booked for %s.", name, when)
		if p.Reason != "" {
			body += "\nReason: " + p.Reason
		}
		return subject, body, true
	case TopicAppointmentCancelled:
		subject = "Appointment cancelled: " + when
		body = fmt.Sprintf("Hi %s,\n\nYour appointment on %s has been cancelled. The slot is open again.", name, when)
		return subject, body, true
	}
	return "", "", false
}
