package acceptance

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/carpool-backend/api"
	"github.com/semanticallynull/carpool-backend/booking"
	"github.com/semanticallynull/carpool-backend/favorite"
	"github.com/semanticallynull/carpool-backend/internal/database"
	"github.com/semanticallynull/carpool-backend/internal/middleware"
	"github.com/semanticallynull/carpool-backend/notify"
	"github.com/semanticallynull/carpool-backend/review"
	"github.com/semanticallynull/carpool-backend/trip"
)

type TestServer struct {
	DB     *sqlx.DB
	Router *gin.Engine
}

// NewTestServer wires the real API against the database in DATABASE_URL.
// The test is skipped when it is not set.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx := context.Background()
	db, err := database.Connect(ctx, dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	if err := database.Migrate(ctx, db); err != nil {
		t.Fatalf("failed to apply schema: %v", err)
	}

	// Clean up test data before each test
	cleanupTestData(t, db)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	trips := trip.NewRepository(db)
	bookings := booking.NewRepository(db, trips)

	a := api.New(api.Options{
		Trips:       trips,
		Ledger:      booking.NewLedger(trips, bookings, notify.NewLogNotifier(logger), logger, reg),
		Reviews:     review.NewRepository(db, trips, bookings),
		Favorites:   favorite.NewRepository(db),
		Logger:      logger,
		Registry:    reg,
		Auth:        gin.HandlersChain{fakeAuthMiddleware()},
		Development: true,
	})

	return &TestServer{DB: db, Router: a.Router()}
}

func (ts *TestServer) Close() {
	ts.DB.Close()
}

func cleanupTestData(t *testing.T, db *sqlx.DB) {
	t.Helper()

	// Delete in order of dependencies
	for _, table := range []string{"reviews", "bookings", "favorite_searches", "trips"} {
		if _, err := db.Exec("DELETE FROM " + table); err != nil {
			t.Logf("warning: failed to clean %s: %v", table, err)
		}
	}
}

// fakeAuthMiddleware takes the caller from the X-User-ID and X-User-Role
// headers instead of a token.
func fakeAuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader("X-User-ID")
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "message": "Authentication required"})
			return
		}
		middleware.SetIdentity(c, middleware.Identity{ID: userID, Role: c.GetHeader("X-User-Role")})
		c.Next()
	}
}

func driver(id string) map[string]string {
	return map[string]string{"X-User-ID": id, "X-User-Role": middleware.RoleDriver}
}

func passenger(id string) map[string]string {
	return map[string]string{"X-User-ID": id, "X-User-Role": middleware.RolePassenger}
}

// Helper methods for making requests
func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodGet, path, nil, headers)
}

func (ts *TestServer) POST(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodPost, path, body, headers)
}

func (ts *TestServer) DELETE(path string, headers map[string]string) *httptest.ResponseRecorder {
	return ts.do(http.MethodDelete, path, nil, headers)
}

func (ts *TestServer) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to unmarshal response %q: %v", w.Body.String(), err)
	}
	return v
}

// CreateTestTrip inserts a trip directly so that tests can place it in the
// past, which the API refuses.
func (ts *TestServer) CreateTestTrip(t *testing.T, driverID string, departure time.Time, seats int) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := ts.DB.Exec(`
		INSERT INTO trips (id, driver_id, origin_address, destination_address, departure_time, total_seats, available_seats)
		VALUES ($1, $2, 'Piazza Duomo, Trento', 'Stazione, Rovereto', $3, $4, $4)
	`, id, driverID, departure, seats)
	if err != nil {
		t.Fatalf("failed to create test trip: %v", err)
	}
	return id
}

// CreateTestBooking inserts a booking directly and takes the seat with it.
func (ts *TestServer) CreateTestBooking(t *testing.T, tripID uuid.UUID, passengerID string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	_, err := ts.DB.Exec(`INSERT INTO bookings (id, trip_id, passenger_id, status) VALUES ($1, $2, $3, 'CONFIRMED')`,
		id, tripID, passengerID)
	if err != nil {
		t.Fatalf("failed to create test booking: %v", err)
	}
	_, err = ts.DB.Exec(`UPDATE trips SET available_seats = available_seats - 1 WHERE id = $1`, tripID)
	if err != nil {
		t.Fatalf("failed to take seat: %v", err)
	}
	return id
}

func (ts *TestServer) SetDeparture(t *testing.T, tripID uuid.UUID, departure time.Time) {
	t.Helper()
	if _, err := ts.DB.Exec(`UPDATE trips SET departure_time = $2 WHERE id = $1`, tripID, departure); err != nil {
		t.Fatalf("failed to move departure: %v", err)
	}
}

func (ts *TestServer) AvailableSeats(t *testing.T, tripID uuid.UUID) int {
	t.Helper()
	var n int
	if err := ts.DB.Get(&n, `SELECT available_seats FROM trips WHERE id = $1`, tripID); err != nil {
		t.Fatalf("failed to read seats: %v", err)
	}
	return n
}

func (ts *TestServer) ActiveBookings(t *testing.T, tripID uuid.UUID) int {
	t.Helper()
	var n int
	if err := ts.DB.Get(&n, `SELECT count(*) FROM bookings WHERE trip_id = $1 AND status <> 'CANCELLED'`, tripID); err != nil {
		t.Fatalf("failed to count bookings: %v", err)
	}
	return n
}
