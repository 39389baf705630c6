package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/carpool-backend/favorite"
	"github.com/semanticallynull/carpool-backend/trip"
)

type createFavoriteRequest struct {
	Label         string `json:"label" binding:"required"`
	Origin        string `json:"origin" binding:"required"`
	Destination   string `json:"destination" binding:"required"`
	PreferredTime string `json:"preferredTime"`
}

func (a *API) listFavoritesHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	favorites, err := a.favorites.ListByUser(c, id.ID)
	if err != nil {
		a.respondError(c, err, "failed to list favorites")
		return
	}
	c.JSON(http.StatusOK, favorites)
}

func (a *API) createFavoriteHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}

	var req createFavoriteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	f, err := a.favorites.Create(c, id.ID, favorite.NewFavorite{
		Label:         req.Label,
		Origin:        req.Origin,
		Destination:   req.Destination,
		PreferredTime: req.PreferredTime,
	})
	if err != nil {
		a.respondError(c, err, "failed to create favorite")
		return
	}
	c.JSON(http.StatusCreated, f)
}

func (a *API) deleteFavoriteHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	favoriteID, ok := uuidParam(c, "id")
	if !ok {
		return
	}
	if err := a.favorites.Delete(c, favoriteID, id.ID); err != nil {
		a.respondError(c, err, "failed to delete favorite")
		return
	}
	c.Status(http.StatusNoContent)
}

// favoriteTripsHandler runs a saved search. With a preferred time the
// matcher is used for the given date (?date=YYYY-MM-DD, default today);
// without one every upcoming trip on the route is listed.
func (a *API) favoriteTripsHandler(c *gin.Context) {
	id, ok := caller(c)
	if !ok {
		return
	}
	favoriteID, ok := uuidParam(c, "id")
	if !ok {
		return
	}

	f, err := a.favorites.Get(c, favoriteID, id.ID)
	if err != nil {
		a.respondError(c, err, "failed to get favorite")
		return
	}

	day := a.now()
	if s := c.Query("date"); s != "" {
		day, err = time.ParseInLocation(time.DateOnly, s, time.Local)
		if err != nil {
			badRequest(c, "Invalid date format, expected YYYY-MM-DD")
			return
		}
	}

	var trips []trip.Trip
	if departure, ok := f.DepartureOn(day); ok {
		trips, err = a.trips.FindMatching(c, trip.Criteria{
			Origin:        trip.Location{Address: f.Origin},
			Destination:   trip.Location{Address: f.Destination},
			DepartureTime: departure,
		})
	} else {
		trips, err = a.trips.ListAvailable(c, trip.Filter{Origin: f.Origin, Destination: f.Destination})
	}
	if err != nil {
		a.respondError(c, err, "failed to search favorite trips")
		return
	}
	c.JSON(http.StatusOK, toTripResponses(trips))
}
