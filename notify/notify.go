// Package notify tells drivers and passengers about booking changes.
//
// Delivery is best-effort: callers log a failed Notify and carry on.
package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	BookingConfirmed EventType = "booking.confirmed"
	BookingCancelled EventType = "booking.cancelled"
)

type Event struct {
	Type          EventType `json:"type"`
	BookingID     uuid.UUID `json:"bookingId"`
	TripID        uuid.UUID `json:"tripId"`
	DriverID      string    `json:"driverId"`
	PassengerID   string    `json:"passengerId"`
	Origin        string    `json:"origin"`
	Destination   string    `json:"destination"`
	DepartureTime time.Time `json:"departureTime"`
	SeatsLeft     int       `json:"seatsLeft"`
	OccurredAt    time.Time `json:"occurredAt"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// LogNotifier writes events to the log. It is used when no broker is
// configured.
type LogNotifier struct {
	logger *slog.Logger
}

func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(ctx context.Context, e Event) error {
	n.logger.InfoContext(ctx, "booking notification",
		"type", e.Type,
		"booking_id", e.BookingID,
		"trip_id", e.TripID,
		"driver_id", e.DriverID,
		"passenger_id", e.PassengerID,
		"seats_left", e.SeatsLeft,
	)
	return nil
}
