package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/semanticallynull/carpool-backend/review"
)

type createReviewRequest struct {
	TripID  string `json:"tripId" binding:"required"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type driverReviewsResponse struct {
	review.Rating
	Reviews []review.Review `json:"reviews"`
}

func (a *API) createReviewHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	tripID, err := uuid.Parse(req.TripID)
	if err != nil {
		badRequest(c, "Invalid tripId")
		return
	}

	rv, err := a.reviews.Create(c, id.ID, review.NewReview{TripID: tripID, Rating: req.Rating, Comment: req.Comment})
	if err != nil {
		a.respondError(c, err, "failed to create review")
		return
	}
	c.JSON(http.StatusCreated, rv)
}

func (a *API) driverReviewsHandler(c *gin.Context) {
	driverID := c.Param("driverId")

	rating, err := a.reviews.DriverRating(c, driverID)
	if err != nil {
		a.respondError(c, err, "failed to compute driver rating")
		return
	}
	reviews, err := a.reviews.ListByDriver(c, driverID)
	if err != nil {
		a.respondError(c, err, "failed to list driver reviews")
		return
	}
	c.JSON(http.StatusOK, driverReviewsResponse{Rating: rating, Reviews: reviews})
}

func (a *API) myReviewsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	reviews, err := a.reviews.ListByReviewer(c, id.ID)
	if err != nil {
		a.respondError(c, err, "failed to list reviews")
		return
	}
	c.JSON(http.StatusOK, reviews)
}
