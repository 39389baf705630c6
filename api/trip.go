package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/trip"
)

type tripResponse struct {
	ID             uuid.UUID     `json:"id"`
	DriverID       string        `json:"driverId"`
	Origin         trip.Location `json:"origin"`
	Destination    trip.Location `json:"destination"`
	DepartureTime  time.Time     `json:"departureTime"`
	TotalSeats     int           `json:"totalSeats"`
	AvailableSeats int           `json:"availableSeats"`
	CreatedAt      time.Time     `json:"createdAt"`
}

func toTripResponse(t trip.Trip) tripResponse {
	return tripResponse{
		ID:             t.ID,
		DriverID:       t.DriverID,
		Origin:         t.Origin,
		Destination:    t.Destination,
		DepartureTime:  t.DepartureTime,
		TotalSeats:     t.TotalSeats,
		AvailableSeats: t.AvailableSeats,
		CreatedAt:      t.CreatedAt,
	}
}

func toTripResponses(trips []trip.Trip) []tripResponse {
	out := make([]tripResponse, 0, len(trips))
	for _, t := range trips {
		out = append(out, toTripResponse(t))
	}
	return out
}

type locationRequest struct {
	Address string   `json:"address"`
	Lat     *float64 `json:"lat"`
	Lng     *float64 `json:"lng"`
}

func (l locationRequest) location() trip.Location {
	return trip.Location{Address: l.Address, Lat: l.Lat, Lng: l.Lng}
}

type createTripRequest struct {
	Origin         locationRequest `json:"origin"`
	Destination    locationRequest `json:"destination"`
	DepartureTime  string          `json:"departureTime" binding:"required"`
	AvailableSeats int             `json:"availableSeats"`
}

type searchTripsRequest struct {
	Origin        locationRequest `json:"origin"`
	Destination   locationRequest `json:"destination"`
	DepartureTime string          `json:"departureTime" binding:"required"`
}

func (a *API) listTripsHandler(c *gin.Context) {
	trips, err := a.trips.ListAvailable(c, trip.Filter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	})
	if err != nil {
		a.respondError(c, err, "failed to list trips")
		return
	}
	c.JSON(http.StatusOK, toTripResponses(trips))
}

func (a *API) getTripHandler(c *gin.Context) {
	id, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	t, err := a.trips.GetByID(c, id)
	if err != nil {
		a.respondError(c, err, "failed to get trip")
		return
	}
	c.JSON(http.StatusOK, toTripResponse(t))
}

func (a *API) createTripHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req createTripRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		badRequest(c, "Invalid departureTime format")
		return
	}

	n := trip.NewTrip{
		Origin:        req.Origin.location(),
		Destination:   req.Destination.location(),
		DepartureTime: departure,
		Seats:         req.AvailableSeats,
	}
	if err := n.Validate(a.now()); err != nil {
		a.respondError(c, err, "invalid trip")
		return
	}

	t, err := a.trips.Create(c, id.ID, n)
	if err != nil {
		a.respondError(c, err, "failed to create trip")
		return
	}
	c.JSON(http.StatusCreated, toTripResponse(t))
}

func (a *API) myTripsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	trips, err := a.trips.ListByDriver(c, id.ID)
	if err != nil {
		a.respondError(c, err, "failed to list driver trips")
		return
	}
	c.JSON(http.StatusOK, toTripResponses(trips))
}

func (a *API) deleteTripHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	tripID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := a.trips.Delete(c, tripID, id.ID); err != nil {
		a.respondError(c, err, "failed to delete trip")
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) searchTripsHandler(c *gin.Context) {
	var req searchTripsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	departure, err := time.Parse(time.RFC3339, req.DepartureTime)
	if err != nil {
		badRequest(c, "Invalid departureTime format")
		return
	}

	criteria := trip.Criteria{
		Origin:        req.Origin.location(),
		Destination:   req.Destination.location(),
		DepartureTime: departure,
	}
	if err := criteria.Validate(); err != nil {
		a.respondError(c, err, "invalid search")
		return
	}

	trips, err := a.trips.FindMatching(c, criteria)
	if err != nil {
		a.respondError(c, err, "failed to search trips")
		return
	}
	c.JSON(http.StatusOK, toTripResponses(trips))
}
