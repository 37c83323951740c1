package outbox

import (
	"encoding/json"
	"time"

	"github.com/md-rashed-zaman/apptbook/services/booking-service/internal/model"
)

// Topic names equal event types: one topic per event.
const (
	TopicAppointmentBooked    = "booking.appointment.booked.v1"
	TopicAppointmentCancelled = "booking.appointment.cancelled.v1"

	aggregateAppointment = "appointment"
)

// Event is the envelope written to the outbox table.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

// AppointmentPayload is the JSON body of both appointment events.
type AppointmentPayload struct {
	AppointmentID string `json:"appointment_id"`
	OwnerID       string `json:"owner_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
	Phone         string `json:"phone,omitempty"`
	Reason        string `json:"reason,omitempty"`
	StartsAt      string `json:"starts_at"`
	OccurredAt    string `json:"occurred_at"`
}

func AppointmentEvent(eventType string, appt model.Appointment, at time.Time) (Event, error) {
	payload, err := json.Marshal(AppointmentPayload{
		AppointmentID: appt.ID,
		OwnerID:       appt.OwnerID,
		Name:          appt.Name,
		Email:         appt.Email,
		Phone:         appt.Phone,
		Reason:        appt.Reason,
		StartsAt:      appt.StartsAt.UTC().Format(time.RFC3339),
		OccurredAt:    at.UTC().Format(time.RFC3339),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: aggregateAppointment,
		AggregateID:   appt.ID,
		EventType:     eventType,
		Payload:       payload,
	}, nil
}
