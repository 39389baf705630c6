package trip

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
)

var (
	ErrNotFound          = apperr.New(apperr.NotFound, "TRIP_NOT_FOUND", "Trip not found")
	ErrNoSeats           = apperr.New(apperr.BusinessRule, "NO_SEATS", "No available seats on this trip")
	ErrNotOwner          = apperr.New(apperr.Authorization, "NOT_TRIP_OWNER", "You can only manage your own trips")
	ErrHasActiveBookings = apperr.New(apperr.BusinessRule, "TRIP_HAS_BOOKINGS", "Cannot delete trip with active bookings")
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// columns maps the flat location columns onto the nested Location structs.
const columns = `id, driver_id,
	origin_address AS "origin.address", origin_lat AS "origin.lat", origin_lng AS "origin.lng",
	destination_address AS "destination.address", destination_lat AS "destination.lat", destination_lng AS "destination.lng",
	departure_time, total_seats, available_seats, created_at, updated_at`

// Create stores a new trip for driverID with every seat available.
func (r *Repository) Create(ctx context.Context, driverID string, n NewTrip) (Trip, error) {
	var t Trip
	err := r.db.GetContext(ctx, &t, createQuery,
		uuid.New(), driverID,
		n.Origin.Address, n.Origin.Lat, n.Origin.Lng,
		n.Destination.Address, n.Destination.Lat, n.Destination.Lng,
		n.DepartureTime, n.Seats)
	if err != nil {
		return Trip{}, fmt.Errorf("create trip: %w", err)
	}
	return t, nil
}

const createQuery = `
INSERT INTO trips (id, driver_id,
    origin_address, origin_lat, origin_lng,
    destination_address, destination_lat, destination_lng,
    departure_time, total_seats, available_seats)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
RETURNING ` + columns

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Trip, error) {
	var t Trip
	err := r.db.GetContext(ctx, &t, getByIDQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, ErrNotFound
	}
	if err != nil {
		return Trip{}, fmt.Errorf("get trip: %w", err)
	}
	return t, nil
}

const getByIDQuery = `SELECT ` + columns + ` FROM trips WHERE id = $1`

// ListAvailable returns future trips that still have seats, soonest first.
func (r *Repository) ListAvailable(ctx context.Context, f Filter) ([]Trip, error) {
	trips := []Trip{}
	err := r.db.SelectContext(ctx, &trips, listAvailableQuery, containsPattern(f.Origin), containsPattern(f.Destination))
	if err != nil {
		return nil, fmt.Errorf("list trips: %w", err)
	}
	return trips, nil
}

const listAvailableQuery = `
SELECT ` + columns + ` FROM trips
WHERE departure_time > now()
  AND available_seats > 0
  AND origin_address ILIKE $1
  AND destination_address ILIKE $2
ORDER BY departure_time ASC
`

// ListByDriver returns every trip offered by driverID, latest departure first.
func (r *Repository) ListByDriver(ctx context.Context, driverID string) ([]Trip, error) {
	trips := []Trip{}
	err := r.db.SelectContext(ctx, &trips, listByDriverQuery, driverID)
	if err != nil {
		return nil, fmt.Errorf("list driver trips: %w", err)
	}
	return trips, nil
}

const listByDriverQuery = `SELECT ` + columns + ` FROM trips WHERE driver_id = $1 ORDER BY departure_time DESC`

// Delete removes a trip owned by driverID. The trip row is locked first so a
// booking cannot slip in between the active booking count and the delete.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID, driverID string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var owner string
	err = tx.GetContext(ctx, &owner, lockTripQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock trip: %w", err)
	}
	if owner != driverID {
		return ErrNotOwner
	}

	var active int
	if err := tx.GetContext(ctx, &active, countActiveBookingsQuery, id); err != nil {
		return fmt.Errorf("count bookings: %w", err)
	}
	if active > 0 {
		return ErrHasActiveBookings
	}

	if _, err := tx.ExecContext(ctx, deleteQuery, id); err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	return tx.Commit()
}

const lockTripQuery = `SELECT driver_id FROM trips WHERE id = $1 FOR UPDATE`

const countActiveBookingsQuery = `SELECT count(*) FROM bookings WHERE trip_id = $1 AND status = 'CONFIRMED'`

const deleteQuery = `DELETE FROM trips WHERE id = $1`

// DecrementSeatIfAvailable claims one seat in a single guarded update. It
// returns ErrNoSeats when the trip has no seat left, has departed or does not
// exist. q is usually the caller's transaction.
func (r *Repository) DecrementSeatIfAvailable(ctx context.Context, q sqlx.QueryerContext, id uuid.UUID) (Trip, error) {
	var t Trip
	err := sqlx.GetContext(ctx, q, &t, decrementSeatQuery, id)
	if errors.Is(err, sql.ErrNoRows) {
		return Trip{}, ErrNoSeats
	}
	if err != nil {
		return Trip{}, fmt.Errorf("decrement seat: %w", err)
	}
	return t, nil
}

const decrementSeatQuery = `
UPDATE trips
SET available_seats = available_seats - 1, updated_at = now()
WHERE id = $1 AND available_seats > 0 AND departure_time > now()
RETURNING ` + columns

// IncrementSeat gives one seat back. Trips that already departed are left
// alone, as is a trip already at its creation capacity. It reports whether a
// seat was restored.
func (r *Repository) IncrementSeat(ctx context.Context, q sqlx.ExecerContext, id uuid.UUID) (bool, error) {
	res, err := q.ExecContext(ctx, incrementSeatQuery, id)
	if err != nil {
		return false, fmt.Errorf("increment seat: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("increment seat: %w", err)
	}
	return n == 1, nil
}

const incrementSeatQuery = `
UPDATE trips
SET available_seats = available_seats + 1, updated_at = now()
WHERE id = $1 AND departure_time > now() AND available_seats < total_seats
`

// containsPattern builds a case-insensitive substring pattern for ILIKE.
func containsPattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.TrimSpace(s)) + "%"
}
