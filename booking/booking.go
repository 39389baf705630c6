package booking

import (
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCancelled:
		return true
	}
	return false
}

func (s *Status) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	if !Status(v).Valid() {
		return fmt.Errorf("invalid booking status %q", v)
	}
	*s = Status(v)
	return nil
}

type Booking struct {
	ID          uuid.UUID `db:"id" json:"id"`
	TripID      uuid.UUID `db:"trip_id" json:"tripId"`
	PassengerID string    `db:"passenger_id" json:"passengerId"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// Active reports whether the booking still holds a seat.
func (b Booking) Active() bool {
	return b.Status != StatusCancelled
}

// Details is a booking joined with the trip it belongs to, as shown in a
// passenger's booking list.
type Details struct {
	Booking
	DriverID      string    `db:"driver_id" json:"driverId"`
	Origin        string    `db:"origin_address" json:"origin"`
	Destination   string    `db:"destination_address" json:"destination"`
	DepartureTime time.Time `db:"departure_time" json:"departureTime"`
}
