package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/internal/database"
	"github.com/semanticallynull/carpool-backend/trip"
)

var (
	ErrNotFound         = apperr.New(apperr.NotFound, "BOOKING_NOT_FOUND", "Booking not found")
	ErrNotAuthorized    = apperr.New(apperr.Authorization, "NOT_AUTHORIZED", "You can only cancel your own bookings")
	ErrAlreadyBooked    = apperr.New(apperr.Conflict, "ALREADY_BOOKED", "You have already booked this trip")
	ErrAlreadyCancelled = apperr.New(apperr.BusinessRule, "ALREADY_CANCELLED", "Booking is already cancelled")
	ErrTripDeparted     = apperr.New(apperr.BusinessRule, "TRIP_DEPARTED", "Cannot book a trip that has already departed")
	ErrOwnTrip          = apperr.New(apperr.BusinessRule, "OWN_TRIP", "You cannot book your own trip")
	ErrNotTripDriver    = apperr.New(apperr.Authorization, "NOT_TRIP_DRIVER", "You can only view bookings for your own trips")
)

type Repository struct {
	db    *sqlx.DB
	trips *trip.Repository
}

func NewRepository(db *sqlx.DB, trips *trip.Repository) *Repository {
	return &Repository{db: db, trips: trips}
}

const columns = `id, trip_id, passenger_id, status, created_at, updated_at`

// GetByID fetches a single booking by its ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Booking, error) {
	var b Booking
	err := r.db.GetContext(ctx, &b, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, ErrNotFound
	}
	if err != nil {
		return Booking{}, fmt.Errorf("get booking: %w", err)
	}
	return b, nil
}

const getByIDQuery = `SELECT ` + columns + ` FROM bookings WHERE id = $1`

// ListByPassenger returns every booking made by passengerID together with
// its trip, newest first.
func (r *Repository) ListByPassenger(ctx context.Context, passengerID string) ([]Details, error) {
	bookings := []Details{}
	err := r.db.SelectContext(ctx, &bookings, listByPassengerQuery, passengerID)
	if err != nil {
		return nil, fmt.Errorf("list passenger bookings: %w", err)
	}
	return bookings, nil
}

const listByPassengerQuery = `
SELECT b.id, b.trip_id, b.passenger_id, b.status, b.created_at, b.updated_at,
       t.driver_id, t.origin_address, t.destination_address, t.departure_time
FROM bookings b JOIN trips t ON t.id = b.trip_id
WHERE b.passenger_id = $1
ORDER BY b.created_at DESC
`

func (r *Repository) ListConfirmedByTrip(ctx context.Context, tripID uuid.UUID) ([]Booking, error) {
	bookings := []Booking{}
	err := r.db.SelectContext(ctx, &bookings, listConfirmedByTripQuery, tripID)
	if err != nil {
		return nil, fmt.Errorf("list trip bookings: %w", err)
	}
	return bookings, nil
}

const listConfirmedByTripQuery = `
SELECT ` + columns + ` FROM bookings
WHERE trip_id = $1 AND status = 'CONFIRMED'
ORDER BY created_at ASC
`

// HasActiveBooking reports whether passengerID holds a booking on tripID
// that has not been cancelled.
func (r *Repository) HasActiveBooking(ctx context.Context, tripID uuid.UUID, passengerID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, hasActiveBookingQuery, tripID, passengerID)
	if err != nil {
		return false, fmt.Errorf("check active booking: %w", err)
	}
	return exists, nil
}

const hasActiveBookingQuery = `
SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE trip_id = $1 AND passenger_id = $2 AND status <> 'CANCELLED'
)`

func (r *Repository) HasConfirmedBooking(ctx context.Context, tripID uuid.UUID, passengerID string) (bool, error) {
	var exists bool
	err := r.db.GetContext(ctx, &exists, hasConfirmedBookingQuery, tripID, passengerID)
	if err != nil {
		return false, fmt.Errorf("check confirmed booking: %w", err)
	}
	return exists, nil
}

const hasConfirmedBookingQuery = `
SELECT EXISTS (
    SELECT 1 FROM bookings
    WHERE trip_id = $1 AND passenger_id = $2 AND status = 'CONFIRMED'
)`

// Join claims a seat on tripID and records a confirmed booking for
// passengerID. Both writes happen in one transaction: if the insert fails the
// seat is given back by the rollback. The returned trip reflects the seat
// count after the decrement.
func (r *Repository) Join(ctx context.Context, tripID uuid.UUID, passengerID string) (Booking, trip.Trip, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Booking{}, trip.Trip{}, fmt.Errorf("begin join: %w", err)
	}
	defer tx.Rollback()

	t, err := r.trips.DecrementSeatIfAvailable(ctx, tx, tripID)
	if err != nil {
		return Booking{}, trip.Trip{}, err
	}

	var b Booking
	err = tx.GetContext(ctx, &b, insertQuery, uuid.New(), tripID, passengerID, StatusConfirmed)
	if database.IsUniqueViolation(err) {
		return Booking{}, trip.Trip{}, ErrAlreadyBooked.Wrap(err)
	}
	if err != nil {
		return Booking{}, trip.Trip{}, fmt.Errorf("insert booking: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Booking{}, trip.Trip{}, fmt.Errorf("commit join: %w", err)
	}
	return b, t, nil
}

const insertQuery = `
INSERT INTO bookings (id, trip_id, passenger_id, status)
VALUES ($1, $2, $3, $4)
RETURNING ` + columns

// Cancel flips a booking owned by passengerID to CANCELLED and gives its seat
// back in the same transaction. The status guard makes a second cancel fail
// with ErrAlreadyCancelled without touching the seat count. restored is false
// when the trip had already departed.
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID, passengerID string) (b Booking, restored bool, err error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return Booking{}, false, fmt.Errorf("begin cancel: %w", err)
	}
	defer tx.Rollback()

	err = tx.GetContext(ctx, &b, cancelQuery, id, passengerID)
	if errors.Is(err, sql.ErrNoRows) {
		return Booking{}, false, ErrAlreadyCancelled
	}
	if err != nil {
		return Booking{}, false, fmt.Errorf("cancel booking: %w", err)
	}

	restored, err = r.trips.IncrementSeat(ctx, tx, b.TripID)
	if err != nil {
		return Booking{}, false, err
	}

	if err := tx.Commit(); err != nil {
		return Booking{}, false, fmt.Errorf("commit cancel: %w", err)
	}
	return b, restored, nil
}

const cancelQuery = `
UPDATE bookings
SET status = 'CANCELLED', updated_at = now()
WHERE id = $1 AND passenger_id = $2 AND status <> 'CANCELLED'
RETURNING ` + columns
