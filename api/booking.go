package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/booking"
)

type createBookingRequest struct {
	TripID string `json:"tripId" binding:"required"`
}

func (a *API) createBookingHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		badRequest(c, "Invalid tripId")
		return
	}

	b, err := a.ledger.JoinTrip(c, id.ID, tripID)
	if err != nil {
		a.respondError(c, err, "failed to join trip")
		return
	}
	c.JSON(http.StatusCreated, b)
}

func (a *API) cancelBookingHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	bookingID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	b, err := a.ledger.CancelBooking(c, id.ID, bookingID)
	if err != nil {
		a.respondError(c, err, "failed to cancel booking")
		return
	}
	c.JSON(http.StatusOK, b)
}

func (a *API) myBookingsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	bookings, err := a.ledger.MyBookings(c, id.ID)
	if err != nil {
		a.respondError(c, err, "failed to list bookings")
		return
	}
	c.JSON(http.StatusOK, bookings)
}

func (a *API) tripBookingsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	tripID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	bookings, err := a.ledger.TripBookings(c, id.ID, tripID)
	if err != nil {
		a.respondError(c, err, "failed to list trip bookings")
		return
	}
	if bookings == nil {
		bookings = []booking.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}
