package review

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/internal/database"
	"github.com/semanticallynull/carpool-backend/trip"
)

var (
	ErrTripNotDeparted = apperr.New(apperr.BusinessRule, "TRIP_NOT_DEPARTED", "You can only review trips that have already departed")
	ErrNotBooked       = apperr.New(apperr.Authorization, "NOT_BOOKED", "You can only review trips you had a confirmed booking on")
	ErrAlreadyReviewed = apperr.New(apperr.Conflict, "ALREADY_REVIEWED", "You have already reviewed this trip")
)

type Repository struct {
	db       *sqlx.DB
	trips    *trip.Repository
	bookings *booking.Repository
	now      func() time.Time
}

func NewRepository(db *sqlx.DB, trips *trip.Repository, bookings *booking.Repository) *Repository {
	return &Repository{db: db, trips: trips, bookings: bookings, now: time.Now}
}

const columns = `id, trip_id, reviewer_id, driver_id, rating, comment, created_at, updated_at`

// Create stores reviewerID's review of the driver of n.TripID. Only
// passengers with a confirmed booking may review, and only once the trip has
// departed.
func (r *Repository) Create(ctx context.Context, reviewerID string, n NewReview) (Review, error) {
	if err := n.Validate(); err != nil {
		return Review{}, err
	}

	t, err := r.trips.GetByID(ctx, n.TripID)
	if err != nil {
		return Review{}, err
	}
	if !t.DepartedAt(r.now()) {
		return Review{}, ErrTripNotDeparted
	}

	booked, err := r.bookings.HasConfirmedBooking(ctx, n.TripID, reviewerID)
	if err != nil {
		return Review{}, err
	}
	if !booked {
		return Review{}, ErrNotBooked
	}

	var comment *string
	if c := strings.TrimSpace(n.Comment); c != "" {
		comment = &c
	}

	var rv Review
	err = r.db.GetContext(ctx, &rv, createQuery, uuid.New(), n.TripID, reviewerID, t.DriverID, n.Rating, comment)
	if database.IsUniqueViolation(err) {
		return Review{}, ErrAlreadyReviewed.Wrap(err)
	}
	if database.IsForeignKeyViolation(err) {
		// the trip was deleted after the checks above
		return Review{}, trip.ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("create review: %w", err)
	}
	return rv, nil
}

const createQuery = `
INSERT INTO reviews (id, trip_id, reviewer_id, driver_id, rating, comment)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING ` + columns

func (r *Repository) ListByDriver(ctx context.Context, driverID string) ([]Review, error) {
	reviews := []Review{}
	if err := r.db.SelectContext(ctx, &reviews, listByDriverQuery, driverID); err != nil {
		return nil, fmt.Errorf("list driver reviews: %w", err)
	}
	return reviews, nil
}

const listByDriverQuery = `SELECT ` + columns + ` FROM reviews WHERE driver_id = $1 ORDER BY created_at DESC`

func (r *Repository) ListByReviewer(ctx context.Context, reviewerID string) ([]Review, error) {
	reviews := []Review{}
	if err := r.db.SelectContext(ctx, &reviews, listByReviewerQuery, reviewerID); err != nil {
		return nil, fmt.Errorf("list reviewer reviews: %w", err)
	}
	return reviews, nil
}

const listByReviewerQuery = `SELECT ` + columns + ` FROM reviews WHERE reviewer_id = $1 ORDER BY created_at DESC`

// DriverRating aggregates a driver's reviews. It is computed on every call.
func (r *Repository) DriverRating(ctx context.Context, driverID string) (Rating, error) {
	var row struct {
		Average float64 `db:"average"`
		Count   int     `db:"count"`
	}
	if err := r.db.GetContext(ctx, &row, driverRatingQuery, driverID); err != nil {
		return Rating{}, fmt.Errorf("driver rating: %w", err)
	}
	return Rating{DriverID: driverID, Average: roundRating(row.Average), Count: row.Count}, nil
}

const driverRatingQuery = `
SELECT COALESCE(AVG(rating), 0)::float8 AS average, COUNT(*) AS count
FROM reviews
WHERE driver_id = $1
`
