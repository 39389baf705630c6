// Package trip owns driver-offered trips and their seat inventory.
package trip

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
)

// MaxSeats is the largest number of seats a driver may offer on one trip.
const MaxSeats = 8

const maxAddressLength = 200

// Location is a free-form address with optional coordinates in decimal degrees.
type Location struct {
	Address string   `db:"address" json:"address"`
	Lat     *float64 `db:"lat" json:"lat,omitempty"`
	Lng     *float64 `db:"lng" json:"lng,omitempty"`
}

// HasCoordinates reports whether both latitude and longitude are known.
func (l Location) HasCoordinates() bool {
	return l.Lat != nil && l.Lng != nil
}

func (l Location) validate(field string) error {
	if strings.TrimSpace(l.Address) == "" {
		return apperr.Validationf("INVALID_REQUEST", "%s address is required", field)
	}
	if utf8.RuneCountInString(l.Address) > maxAddressLength {
		return apperr.Validationf("INVALID_REQUEST", "%s address cannot exceed %d characters", field, maxAddressLength)
	}
	if (l.Lat == nil) != (l.Lng == nil) {
		return apperr.Validationf("INVALID_REQUEST", "%s latitude and longitude must be given together", field)
	}
	if l.Lat != nil && (*l.Lat < -90 || *l.Lat > 90) {
		return apperr.Validationf("INVALID_REQUEST", "%s latitude must be between -90 and 90", field)
	}
	if l.Lng != nil && (*l.Lng < -180 || *l.Lng > 180) {
		return apperr.Validationf("INVALID_REQUEST", "%s longitude must be between -180 and 180", field)
	}
	return nil
}

// Trip is a ride offered by a driver. AvailableSeats is the only field that
// changes after creation and it is only written through the guarded
// primitives in sql.go.
type Trip struct {
	ID             uuid.UUID `db:"id"`
	DriverID       string    `db:"driver_id"`
	Origin         Location  `db:"origin"`
	Destination    Location  `db:"destination"`
	DepartureTime  time.Time `db:"departure_time"`
	TotalSeats     int       `db:"total_seats"`
	AvailableSeats int       `db:"available_seats"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}

// DepartedAt reports whether the trip has left at the given time.
func (t Trip) DepartedAt(now time.Time) bool {
	return !t.DepartureTime.After(now)
}

// NewTrip holds what a driver supplies when offering a trip.
type NewTrip struct {
	Origin        Location
	Destination   Location
	DepartureTime time.Time
	Seats         int
}

func (n NewTrip) Validate(now time.Time) error {
	if err := n.Origin.validate("origin"); err != nil {
		return err
	}
	if err := n.Destination.validate("destination"); err != nil {
		return err
	}
	if n.Seats < 1 || n.Seats > MaxSeats {
		return apperr.Validationf("INVALID_SEATS", "Available seats must be between 1 and %d", MaxSeats)
	}
	if !n.DepartureTime.After(now) {
		return apperr.Validationf("INVALID_DEPARTURE", "Departure time must be in the future")
	}
	return nil
}

// Filter narrows the public trip listing by address substrings.
type Filter struct {
	Origin      string
	Destination string
}
