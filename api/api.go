package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/favorite"
	"github.com/semanticallynull/carpool-backend/internal/middleware"
	"github.com/semanticallynull/carpool-backend/review"
	"github.com/semanticallynull/carpool-backend/trip"
)

type Options struct {
	Trips     *trip.Repository
	Ledger    *booking.Ledger
	Reviews   *review.Repository
	Favorites *favorite.Repository

	Logger   *slog.Logger
	Registry *prometheus.Registry

	// Auth verifies the caller and stores a middleware.Identity.
	Auth gin.HandlersChain

	CORSOrigins     []string
	MetricsUsername string
	MetricsPassword string

	// Development exposes internal error details in responses.
	Development bool
}

type API struct {
	r         *gin.Engine
	trips     *trip.Repository
	ledger    *booking.Ledger
	reviews   *review.Repository
	favorites *favorite.Repository
	dev       bool
	now       func() time.Time
}

func New(opts Options) *API {
	a := &API{
		r:         gin.New(),
		trips:     opts.Trips,
		ledger:    opts.Ledger,
		reviews:   opts.Reviews,
		favorites: opts.Favorites,
		dev:       opts.Development,
		now:       time.Now,
	}
	// Handlers pass *gin.Context as context.Context; request cancellation
	// and the trace span must reach the repositories through it.
	a.r.ContextWithFallback = true

	a.r.Use(
		gin.Recovery(),
		middleware.CORS(opts.CORSOrigins),
		middleware.Tracing(),
		middleware.Logging(opts.Logger),
		middleware.Metrics(opts.Registry),
	)

	a.r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	a.r.GET("/metrics", middleware.MetricsHandler(opts.Registry, opts.MetricsUsername, opts.MetricsPassword)...)

	a.r.GET("/trips", a.listTripsHandler)
	a.r.GET("/trips/:id", a.getTripHandler)
	a.r.POST("/trips/search", a.searchTripsHandler)
	a.r.GET("/reviews/driver/:driverId", a.driverReviewsHandler)

	authed := a.r.Group("", opts.Auth...)
	authed.GET("/bookings/mine", a.myBookingsHandler)
	authed.GET("/reviews/mine", a.myReviewsHandler)
	authed.GET("/favorites", a.listFavoritesHandler)
	authed.POST("/favorites", a.createFavoriteHandler)
	authed.DELETE("/favorites/:id", a.deleteFavoriteHandler)
	authed.GET("/favorites/:id/trips", a.favoriteTripsHandler)

	driver := authed.Group("", middleware.RequireRole(middleware.RoleDriver))
	driver.POST("/trips", a.createTripHandler)
	driver.GET("/trips/mine", a.myTripsHandler)
	driver.DELETE("/trips/:id", a.deleteTripHandler)
	driver.GET("/trips/:id/bookings", a.tripBookingsHandler)

	passenger := authed.Group("", middleware.RequireRole(middleware.RolePassenger))
	passenger.POST("/bookings", a.createBookingHandler)
	passenger.POST("/bookings/:id/cancel", a.cancelBookingHandler)
	passenger.POST("/reviews", a.createReviewHandler)

	return a
}

func (a *API) Router() *gin.Engine {
	return a.r
}
