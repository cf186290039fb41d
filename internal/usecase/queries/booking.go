package queries

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/queries/booking.go -package=queriesmock

import (
	"context"
	"log/slog"

	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/metrics"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type AvailabilityParams struct {
	ShowID       uuid.UUID
	IncludeSeats bool
}

type BookingQueries interface {
	ListMine(ctx context.Context, ownerID uuid.UUID) ([]*BookingView, error)
	Availability(ctx context.Context, params AvailabilityParams) (*AvailabilityView, error)
}

type bookingQueriesImpl struct {
	catalog shared.Catalog
	ledger  shared.Ledger
	cache   shared.AvailabilityCache
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewBookingQueries(
	catalog shared.Catalog,
	uow shared.UnitOfWork,
	cache shared.AvailabilityCache,
	m *metrics.Metrics,
	logger *slog.Logger,
) BookingQueries {
	return &bookingQueriesImpl{
		catalog: catalog,
		ledger:  uow.Ledger(),
		cache:   cache,
		metrics: m,
		logger:  logger,
	}
}

func (q *bookingQueriesImpl) ListMine(ctx context.Context, ownerID uuid.UUID) ([]*BookingView, error) {
	bookings, err := q.ledger.ListByOwner(ctx, ownerID)
	if err != nil {
		return nil, errs.Wrap(err, "list bookings by owner")
	}

	views := make([]*BookingView, 0, len(bookings))
	for _, b := range bookings {
		views = append(views, NewBookingView(b))
	}
	return views, nil
}

func (q *bookingQueriesImpl) Availability(ctx context.Context, params AvailabilityParams) (*AvailabilityView, error) {
	s, err := q.catalog.GetShow(ctx, params.ShowID)
	if err != nil {
		if errs.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrShowNotFound
		}
		return nil, errs.Wrap(err, "load show")
	}

	view := &AvailabilityView{ShowID: s.ID, Capacity: s.Capacity}

	if params.IncludeSeats {
		seats, err := q.ledger.ListActiveSeats(ctx, s.ID)
		if err != nil {
			return nil, errs.Wrap(err, "list active seats")
		}
		view.Booked = len(seats)
		view.BookedSeats = seats
	} else {
		booked, err := q.bookedCount(ctx, s.ID)
		if err != nil {
			return nil, err
		}
		view.Booked = booked
	}

	view.Available = max(s.Capacity-view.Booked, 0)
	return view, nil
}

// bookedCount reads through the cache. Cache failures degrade to a ledger read.
// The count is stored under the generation seen before the ledger read, so a
// write that commits in between leaves it unreachable.
func (q *bookingQueriesImpl) bookedCount(ctx context.Context, showID uuid.UUID) (int, error) {
	booked, gen, ok, cacheErr := q.cache.GetBooked(ctx, showID)
	if cacheErr != nil {
		q.logger.Warn("availability cache read failed", "show_id", showID, "error", cacheErr.Error())
	}
	if cacheErr == nil && ok {
		q.metrics.CacheLookup(true)
		return booked, nil
	}
	q.metrics.CacheLookup(false)

	booked, err := q.ledger.CountActive(ctx, showID)
	if err != nil {
		return 0, errs.Wrap(err, "count active bookings")
	}

	if cacheErr != nil {
		return booked, nil
	}
	if err := q.cache.SetBooked(ctx, showID, gen, booked); err != nil {
		q.logger.Warn("availability cache write failed", "show_id", showID, "error", err.Error())
	}
	return booked, nil
}
