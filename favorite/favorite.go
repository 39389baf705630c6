// Package favorite stores searches a user runs often so they can be
// re-run against the trip matcher with one request.
package favorite

import (
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
)

const (
	maxLabelLength    = 100
	maxLocationLength = 200
)

var preferredTimePattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

type Favorite struct {
	ID            uuid.UUID `db:"id" json:"id"`
	UserID        string    `db:"user_id" json:"userId"`
	Label         string    `db:"label" json:"label"`
	Origin        string    `db:"origin" json:"origin"`
	Destination   string    `db:"destination" json:"destination"`
	PreferredTime *string   `db:"preferred_time" json:"preferredTime,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time `db:"updated_at" json:"updatedAt"`
}

// DepartureOn combines the calendar date of day with the preferred time of
// day, in day's location. Without a preferred time it returns false.
func (f Favorite) DepartureOn(day time.Time) (time.Time, bool) {
	if f.PreferredTime == nil {
		return time.Time{}, false
	}
	clock, err := time.Parse("15:04", *f.PreferredTime)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := day.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, day.Location()), true
}

type NewFavorite struct {
	Label         string
	Origin        string
	Destination   string
	PreferredTime string
}

func (n NewFavorite) Validate() error {
	if err := required("label", n.Label, maxLabelLength); err != nil {
		return err
	}
	if err := required("origin", n.Origin, maxLocationLength); err != nil {
		return err
	}
	if err := required("destination", n.Destination, maxLocationLength); err != nil {
		return err
	}
	if n.PreferredTime != "" && !preferredTimePattern.MatchString(n.PreferredTime) {
		return apperr.Validationf("INVALID_REQUEST", "Preferred time must be in HH:mm format")
	}
	return nil
}

func required(field, v string, max int) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return apperr.Validationf("INVALID_REQUEST", "%s is required", field)
	}
	if utf8.RuneCountInString(v) > max {
		return apperr.Validationf("INVALID_REQUEST", "%s cannot exceed %d characters", field, max)
	}
	return nil
}
