package booking

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/semanticallynull/carpool-backend/internal/apperr"
	"github.com/semanticallynull/carpool-backend/notify"
	"github.com/semanticallynull/carpool-backend/trip"
)

const notifyTimeout = 5 * time.Second

// Ledger owns the rules for joining and leaving trips. The checks it runs
// before opening a transaction only exist to fail fast with a precise error;
// the guarded updates inside the transaction are what keep seat counts right
// under concurrency.
type Ledger struct {
	trips    *trip.Repository
	bookings *Repository
	notifier notify.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	now      func() time.Time

	operations *prometheus.CounterVec
}

func NewLedger(trips *trip.Repository, bookings *Repository, notifier notify.Notifier, logger *slog.Logger, reg prometheus.Registerer) *Ledger {
	operations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_operations_total",
			Help: "Booking ledger operations by outcome",
		},
		[]string{"operation", "outcome"},
	)
	if reg != nil {
		reg.MustRegister(operations)
	}
	// export the success series at zero before the first booking
	for _, op := range []string{"join", "cancel"} {
		operations.WithLabelValues(op, "ok")
	}
	return &Ledger{
		trips:      trips,
		bookings:   bookings,
		notifier:   notifier,
		logger:     logger,
		tracer:     otel.Tracer("booking"),
		now:        time.Now,
		operations: operations,
	}
}

// JoinTrip books one seat on tripID for passengerID.
func (l *Ledger) JoinTrip(ctx context.Context, passengerID string, tripID uuid.UUID) (b Booking, err error) {
	ctx, span := l.tracer.Start(ctx, "booking.JoinTrip", trace.WithAttributes(
		attribute.String("trip.id", tripID.String()),
	))
	defer func() { l.finish(span, "join", err) }()

	t, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		return Booking{}, err
	}
	switch {
	case t.DepartedAt(l.now()):
		return Booking{}, ErrTripDeparted
	case t.AvailableSeats <= 0:
		return Booking{}, trip.ErrNoSeats
	case t.DriverID == passengerID:
		return Booking{}, ErrOwnTrip
	}

	active, err := l.bookings.HasActiveBooking(ctx, tripID, passengerID)
	if err != nil {
		return Booking{}, err
	}
	if active {
		return Booking{}, ErrAlreadyBooked
	}

	b, t, err = l.bookings.Join(ctx, tripID, passengerID)
	if err != nil {
		return Booking{}, err
	}
	span.SetAttributes(attribute.String("booking.id", b.ID.String()))

	l.notify(ctx, notify.BookingConfirmed, b, t)
	return b, nil
}

// CancelBooking cancels a booking held by passengerID and returns the seat
// to the trip unless it already departed.
func (l *Ledger) CancelBooking(ctx context.Context, passengerID string, bookingID uuid.UUID) (b Booking, err error) {
	ctx, span := l.tracer.Start(ctx, "booking.CancelBooking", trace.WithAttributes(
		attribute.String("booking.id", bookingID.String()),
	))
	defer func() { l.finish(span, "cancel", err) }()

	existing, err := l.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return Booking{}, err
	}
	if existing.PassengerID != passengerID {
		return Booking{}, ErrNotAuthorized
	}
	if existing.Status == StatusCancelled {
		return Booking{}, ErrAlreadyCancelled
	}

	b, restored, err := l.bookings.Cancel(ctx, bookingID, passengerID)
	if err != nil {
		return Booking{}, err
	}
	span.SetAttributes(attribute.Bool("seat.restored", restored))

	t, err := l.trips.GetByID(ctx, b.TripID)
	if err != nil {
		l.logger.WarnContext(ctx, "load trip for cancellation notice", "error", err, "trip_id", b.TripID)
		return b, nil
	}
	l.notify(ctx, notify.BookingCancelled, b, t)
	return b, nil
}

// TripBookings lists the confirmed bookings on a trip. Only the trip's
// driver may see them.
func (l *Ledger) TripBookings(ctx context.Context, driverID string, tripID uuid.UUID) ([]Booking, error) {
	t, err := l.trips.GetByID(ctx, tripID)
	if err != nil {
		return nil, err
	}
	if t.DriverID != driverID {
		return nil, ErrNotTripDriver
	}
	return l.bookings.ListConfirmedByTrip(ctx, tripID)
}

func (l *Ledger) MyBookings(ctx context.Context, passengerID string) ([]Details, error) {
	return l.bookings.ListByPassenger(ctx, passengerID)
}

// notify runs after commit. It detaches from the request so a client that
// hangs up does not cut the notice short.
func (l *Ledger) notify(ctx context.Context, typ notify.EventType, b Booking, t trip.Trip) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	e := notify.Event{
		Type:          typ,
		BookingID:     b.ID,
		TripID:        t.ID,
		DriverID:      t.DriverID,
		PassengerID:   b.PassengerID,
		Origin:        t.Origin.Address,
		Destination:   t.Destination.Address,
		DepartureTime: t.DepartureTime,
		SeatsLeft:     t.AvailableSeats,
		OccurredAt:    l.now(),
	}
	if err := l.notifier.Notify(ctx, e); err != nil {
		l.logger.WarnContext(ctx, "booking notification failed",
			"error", err, "type", typ, "booking_id", b.ID)
	}
}

func (l *Ledger) finish(span trace.Span, operation string, err error) {
	defer span.End()
	l.operations.WithLabelValues(operation, outcome(err)).Inc()
	if err != nil && apperr.KindOf(err) == apperr.Internal {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func outcome(err error) string {
	if err == nil {
		return "ok"
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return ae.Code
	}
	return "error"
}
