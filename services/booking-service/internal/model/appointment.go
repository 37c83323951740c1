package model

import (
	"errors"
	"time"
)

// SlotDuration is the only appointment length the calendar supports.
const SlotDuration = 30 * time.Minute

var (
	// ErrSlotTaken is returned by stores when another appointment already holds the start instant.
	ErrSlotTaken = errors.New("time slot already booked")
	// ErrNotFound is returned when an appointment does not exist or belongs to someone else.
	ErrNotFound = errors.New("appointment not found")
)

// Appointment is a booked, active slot. StartsAt is always stored in UTC.
type Appointment struct {
	ID        string
	OwnerID   string
	StartsAt  time.Time
	Name      string
	Email     string
	Phone     string
	Reason    string
	CreatedAt time.Time
}

// Slot describes one bookable window for display. It is never persisted.
type Slot struct {
	StartsAt  time.Time
	Available bool
}
