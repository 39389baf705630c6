package trip

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
)

const (
	// MatchWindow is how far either side of the requested time a trip may depart.
	MatchWindow = 30 * time.Minute
	// MatchRadius is the half-width of the bounding box, in degrees (about 5km).
	MatchRadius = 0.045
)

// Criteria is a passenger's desired journey.
type Criteria struct {
	Origin        Location
	Destination   Location
	DepartureTime time.Time
}

func (c Criteria) Validate() error {
	if c.DepartureTime.IsZero() {
		return apperr.Validationf("INVALID_REQUEST", "departureTime is required")
	}
	if c.Origin.empty() || c.Destination.empty() {
		return apperr.Validationf("INVALID_REQUEST", "Please provide origin, destination, and departureTime")
	}
	return nil
}

// Window returns the inclusive departure range searched for.
func (c Criteria) Window() (time.Time, time.Time) {
	return c.DepartureTime.Add(-MatchWindow), c.DepartureTime.Add(MatchWindow)
}

// Matches reports whether t satisfies every matching rule.
func (c Criteria) Matches(t Trip) bool {
	if t.AvailableSeats <= 0 {
		return false
	}
	from, to := c.Window()
	if t.DepartureTime.Before(from) || t.DepartureTime.After(to) {
		return false
	}
	return c.Origin.matches(t.Origin) && c.Destination.matches(t.Destination)
}

func (l Location) empty() bool {
	return strings.TrimSpace(l.Address) == "" && !l.HasCoordinates()
}

// matches compares a requested location against a trip's. Coordinates win
// when both sides have them; otherwise the requested address must appear in
// the trip's address, ignoring case.
func (l Location) matches(candidate Location) bool {
	if l.empty() {
		return true
	}
	if l.HasCoordinates() && candidate.HasCoordinates() {
		return math.Abs(*l.Lat-*candidate.Lat) <= MatchRadius &&
			math.Abs(*l.Lng-*candidate.Lng) <= MatchRadius
	}
	addr := strings.TrimSpace(l.Address)
	if addr == "" {
		return false
	}
	return strings.Contains(strings.ToLower(candidate.Address), strings.ToLower(addr))
}

// FindMatching narrows by departure window and seats in SQL, then applies the
// location rules to each candidate.
func (r *Repository) FindMatching(ctx context.Context, c Criteria) ([]Trip, error) {
	from, to := c.Window()

	var candidates []Trip
	if err := r.db.SelectContext(ctx, &candidates, findCandidatesQuery, from, to); err != nil {
		return nil, fmt.Errorf("find candidates: %w", err)
	}

	matches := make([]Trip, 0, len(candidates))
	for _, t := range candidates {
		if c.Matches(t) {
			matches = append(matches, t)
		}
	}
	return matches, nil
}

const findCandidatesQuery = `
SELECT ` + columns + ` FROM trips
WHERE departure_time BETWEEN $1 AND $2
  AND available_seats > 0
ORDER BY departure_time ASC
`
