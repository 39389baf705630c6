package review

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/trip"
)

var (
	tripColumns = []string{
		"id", "driver_id",
		"origin.address", "origin.lat", "origin.lng",
		"destination.address", "destination.lat", "destination.lng",
		"departure_time", "total_seats", "available_seats", "created_at", "updated_at",
	}
	reviewColumns = []string{"id", "trip_id", "reviewer_id", "driver_id", "rating", "comment", "created_at", "updated_at"}
)

func newMockRepository(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock init error: %v", err)
	}
	db := sqlx.NewDb(mockDB, "sqlmock")
	t.Cleanup(func() { db.Close() })

	trips := trip.NewRepository(db)
	return NewRepository(db, trips, booking.NewRepository(db, trips)), mock
}

func expectTrip(mock sqlmock.Sqlmock, id uuid.UUID, departure time.Time) {
	mock.ExpectQuery(regexp.QuoteMeta("FROM trips WHERE id = $1")).
		WithArgs(id).
		WillReturnRows(sqlmock.NewRows(tripColumns).AddRow(
			id.String(), "driver-1", "Trento", nil, nil, "Rovereto", nil, nil,
			departure, 3, 2, time.Now(), time.Now()))
}

func expectConfirmed(mock sqlmock.Sqlmock, id uuid.UUID, reviewer string, v bool) {
	mock.ExpectQuery(regexp.QuoteMeta("status = 'CONFIRMED'")).
		WithArgs(id, reviewer).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(v))
}

func TestNewReviewValidate(t *testing.T) {
	tests := []struct {
		name string
		in   NewReview
		code string
	}{
		{"ok", NewReview{Rating: 4, Comment: "smooth ride"}, ""},
		{"zero", NewReview{Rating: 0}, "INVALID_RATING"},
		{"six", NewReview{Rating: 6}, "INVALID_RATING"},
		{"long comment", NewReview{Rating: 3, Comment: strings.Repeat("a", 501)}, "INVALID_REQUEST"},
		{"accented comment at limit", NewReview{Rating: 5, Comment: strings.Repeat("è", 500)}, ""},
		{"accented comment over limit", NewReview{Rating: 5, Comment: strings.Repeat("è", 501)}, "INVALID_REQUEST"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ae *apperr.Error
			if !errors.As(err, &ae) || ae.Code != tt.code || ae.Kind != apperr.Validation {
				t.Fatalf("expected %s validation error, got %v", tt.code, err)
			}
		})
	}
}

func TestRoundRating(t *testing.T) {
	for _, tt := range []struct{ in, want float64 }{
		{4.5, 4.5},
		{4.333333, 4.3},
		{4.66, 4.7},
		{0, 0},
	} {
		if got := roundRating(tt.in); got != tt.want {
			t.Errorf("roundRating(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestDriverRating(t *testing.T) {
	t.Run("with reviews", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta("AVG(rating)")).
			WithArgs("driver-1").
			WillReturnRows(sqlmock.NewRows([]string{"average", "count"}).AddRow(4.5, 2))

		got, err := repo.DriverRating(context.Background(), "driver-1")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Average != 4.5 || got.Count != 2 {
			t.Errorf("got %+v, want 4.5 over 2", got)
		}
	})

	t.Run("without reviews", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta("AVG(rating)")).
			WithArgs("driver-2").
			WillReturnRows(sqlmock.NewRows([]string{"average", "count"}).AddRow(0.0, 0))

		got, err := repo.DriverRating(context.Background(), "driver-2")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Average != 0 || got.Count != 0 {
			t.Errorf("got %+v, want zero rating", got)
		}
	})
}

func TestCreate(t *testing.T) {
	tripID := uuid.New()
	past := time.Now().Add(-2 * time.Hour)

	t.Run("confirmed passenger after departure", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		expectTrip(mock, tripID, past)
		expectConfirmed(mock, tripID, "passenger-1", true)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
			WithArgs(sqlmock.AnyArg(), tripID, "passenger-1", "driver-1", 5, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(reviewColumns).AddRow(
				uuid.NewString(), tripID.String(), "passenger-1", "driver-1", 5, "great", time.Now(), time.Now()))

		rv, err := repo.Create(context.Background(), "passenger-1", NewReview{TripID: tripID, Rating: 5, Comment: "great"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if rv.DriverID != "driver-1" || rv.Comment == nil || *rv.Comment != "great" {
			t.Errorf("unexpected review: %+v", rv)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
	})

	t.Run("future trip", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		expectTrip(mock, tripID, time.Now().Add(time.Hour))

		_, err := repo.Create(context.Background(), "passenger-1", NewReview{TripID: tripID, Rating: 5})
		if !errors.Is(err, ErrTripNotDeparted) {
			t.Fatalf("expected ErrTripNotDeparted, got %v", err)
		}
	})

	t.Run("no confirmed booking", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		expectTrip(mock, tripID, past)
		expectConfirmed(mock, tripID, "stranger", false)

		_, err := repo.Create(context.Background(), "stranger", NewReview{TripID: tripID, Rating: 1})
		if !errors.Is(err, ErrNotBooked) {
			t.Fatalf("expected ErrNotBooked, got %v", err)
		}
	})

	t.Run("second review", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		expectTrip(mock, tripID, past)
		expectConfirmed(mock, tripID, "passenger-1", true)
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO reviews")).
			WillReturnError(&pgconn.PgError{Code: "23505"})

		_, err := repo.Create(context.Background(), "passenger-1", NewReview{TripID: tripID, Rating: 4})
		if !errors.Is(err, ErrAlreadyReviewed) {
			t.Fatalf("expected ErrAlreadyReviewed, got %v", err)
		}
		if apperr.KindOf(err) != apperr.Conflict {
			t.Errorf("expected a conflict, got %v", apperr.KindOf(err))
		}
	})

	t.Run("missing trip", func(t *testing.T) {
		repo, mock := newMockRepository(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM trips WHERE id = $1")).
			WithArgs(tripID).
			WillReturnRows(sqlmock.NewRows(tripColumns))

		_, err := repo.Create(context.Background(), "passenger-1", NewReview{TripID: tripID, Rating: 4})
		if !errors.Is(err, trip.ErrNotFound) {
			t.Fatalf("expected trip.ErrNotFound, got %v", err)
		}
	})
}
