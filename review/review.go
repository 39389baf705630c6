// Package review records passenger ratings of drivers and aggregates them.
package review

import (
	"math"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
)

const (
	MinRating        = 1
	MaxRating        = 5
	maxCommentLength = 500
)

type Review struct {
	ID         uuid.UUID `db:"id" json:"id"`
	TripID     uuid.UUID `db:"trip_id" json:"tripId"`
	ReviewerID string    `db:"reviewer_id" json:"reviewerId"`
	DriverID   string    `db:"driver_id" json:"driverId"`
	Rating     int       `db:"rating" json:"rating"`
	Comment    *string   `db:"comment" json:"comment,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt  time.Time `db:"updated_at" json:"updatedAt"`
}

type NewReview struct {
	TripID  uuid.UUID
	Rating  int
	Comment string
}

func (n NewReview) Validate() error {
	if n.Rating < MinRating || n.Rating > MaxRating {
		return apperr.Validationf("INVALID_RATING", "Rating must be an integer between %d and %d", MinRating, MaxRating)
	}
	if utf8.RuneCountInString(n.Comment) > maxCommentLength {
		return apperr.Validationf("INVALID_REQUEST", "Comment cannot exceed %d characters", maxCommentLength)
	}
	return nil
}

// Rating is a driver's average score over all reviews, rounded to one
// decimal place.
type Rating struct {
	DriverID string  `json:"driverId"`
	Average  float64 `json:"averageRating"`
	Count    int     `json:"totalReviews"`
}

func roundRating(avg float64) float64 {
	return math.Round(avg*10) / 10
}
