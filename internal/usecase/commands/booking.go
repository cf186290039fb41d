package commands

//go:generate mockgen -source=booking.go -destination=../../../tests/mock/commands/booking.go -package=commandsmock

import (
	"context"
	"log/slog"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/seat"
	"cinema-booking/internal/domain/show"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/pkg/keylock"
	"cinema-booking/internal/pkg/metrics"
	"cinema-booking/internal/pkg/retry"
	"cinema-booking/internal/usecase/queries"
	"cinema-booking/internal/usecase/shared"

	"github.com/google/uuid"
)

type ReserveParams struct {
	ShowID  uuid.UUID
	Seat    string
	OwnerID uuid.UUID
}

type BookingCommands interface {
	Reserve(ctx context.Context, params ReserveParams) (*queries.BookingView, error)
	Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (booking.CancelOutcome, error)
}

type bookingCommandsImpl struct {
	catalog   shared.Catalog
	uow       shared.UnitOfWork
	validator *seat.Validator
	locks     *keylock.Locker[uuid.UUID]
	cache     shared.AvailabilityCache
	policy    retry.Policy
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

func NewBookingCommands(
	catalog shared.Catalog,
	uow shared.UnitOfWork,
	validator *seat.Validator,
	locks *keylock.Locker[uuid.UUID],
	cache shared.AvailabilityCache,
	policy retry.Policy,
	m *metrics.Metrics,
	logger *slog.Logger,
) BookingCommands {
	return &bookingCommandsImpl{
		catalog:   catalog,
		uow:       uow,
		validator: validator,
		locks:     locks,
		cache:     cache,
		policy:    policy,
		metrics:   m,
		logger:    logger,
	}
}

func (c *bookingCommandsImpl) Reserve(ctx context.Context, params ReserveParams) (*queries.BookingView, error) {
	s, err := c.catalog.GetShow(ctx, params.ShowID)
	if err != nil {
		if errs.Is(err, shared.ErrNotFound) {
			c.metrics.Reservation(metrics.OutcomeRejected)
			return nil, shared.ErrShowNotFound
		}
		c.metrics.Reservation(metrics.OutcomeError)
		return nil, errs.Wrap(err, "load show")
	}

	label, err := c.validator.Validate(params.Seat, s.Capacity)
	if err != nil {
		c.metrics.Reservation(metrics.OutcomeRejected)
		return nil, err
	}

	var created *booking.Booking
	err = retry.Do(ctx, c.policy, isConflict, func(ctx context.Context, attempt int) error {
		if attempt > 1 {
			c.metrics.ReservationRetry()
		}
		b, err := c.allocate(ctx, s, label, params.OwnerID)
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, c.reserveFailure(s.ID, label, err)
	}

	c.invalidate(ctx, s.ID)
	c.metrics.Reservation(metrics.OutcomeBooked)
	c.logger.Info("seat booked",
		"booking_id", created.ID(),
		"show_id", s.ID,
		"seat", label.String(),
		"owner_id", params.OwnerID)

	return queries.NewBookingView(created), nil
}

// allocate is one check-then-commit pass. The in-process lock keeps callers
// of this process off the store while the show row lock and the unique index
// cover everybody else.
func (c *bookingCommandsImpl) allocate(ctx context.Context, s *show.Show, label seat.Label, ownerID uuid.UUID) (*booking.Booking, error) {
	unlock, err := c.locks.Lock(ctx, s.ID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var created *booking.Booking
	err = c.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		if err := tx.LockShow(ctx, s.ID); err != nil {
			return err
		}

		ledger := tx.Ledger()
		taken, err := ledger.ExistsActive(ctx, s.ID, label.String())
		if err != nil {
			return err
		}
		if taken {
			return shared.ErrSeatAlreadyBooked
		}

		active, err := ledger.CountActive(ctx, s.ID)
		if err != nil {
			return err
		}
		if active >= s.Capacity {
			return shared.ErrShowFullyBooked
		}

		b, err := ledger.InsertActive(ctx, s.ID, label.String(), ownerID)
		if err != nil {
			return err
		}
		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (c *bookingCommandsImpl) reserveFailure(showID uuid.UUID, label seat.Label, err error) error {
	switch {
	case errs.Is(err, shared.ErrSeatAlreadyBooked):
		c.metrics.Reservation(metrics.OutcomeSeatTaken)
		return shared.ErrSeatAlreadyBooked
	case errs.Is(err, shared.ErrShowFullyBooked):
		c.metrics.Reservation(metrics.OutcomeFull)
		return shared.ErrShowFullyBooked
	case errs.Is(err, retry.ErrExhausted):
		c.metrics.Reservation(metrics.OutcomeExhausted)
		c.logger.Warn("reservation gave up after repeated conflicts",
			"show_id", showID,
			"seat", label.String(),
			"error", err.Error())
		return errs.Mark(err, shared.ErrConcurrencyExhausted)
	default:
		c.metrics.Reservation(metrics.OutcomeError)
		return errs.Wrap(err, "reserve seat")
	}
}

func (c *bookingCommandsImpl) Cancel(ctx context.Context, bookingID, requesterID uuid.UUID) (booking.CancelOutcome, error) {
	ledger := c.uow.Ledger()

	b, err := ledger.FindByID(ctx, bookingID)
	if err != nil {
		if errs.Is(err, shared.ErrNotFound) {
			c.metrics.Cancellation(metrics.OutcomeNotFound)
			return "", shared.ErrBookingNotFound
		}
		c.metrics.Cancellation(metrics.OutcomeError)
		return "", errs.Wrap(err, "load booking")
	}

	if !b.IsOwnedBy(requesterID) {
		c.metrics.Cancellation(metrics.OutcomeNotOwner)
		return "", shared.ErrNotOwner
	}

	changed, err := ledger.SetCancelled(ctx, bookingID)
	if err != nil {
		c.metrics.Cancellation(metrics.OutcomeError)
		return "", errs.Wrap(err, "cancel booking")
	}
	if !changed {
		c.metrics.Cancellation(metrics.OutcomeAlreadyCancelled)
		return booking.AlreadyCancelled, nil
	}

	c.invalidate(ctx, b.ShowID())
	c.metrics.Cancellation(metrics.OutcomeCancelled)
	c.logger.Info("booking cancelled", "booking_id", bookingID, "show_id", b.ShowID())

	return booking.Cancelled, nil
}

func (c *bookingCommandsImpl) invalidate(ctx context.Context, showID uuid.UUID) {
	if err := c.cache.Invalidate(ctx, showID); err != nil {
		c.logger.Warn("availability cache invalidation failed", "show_id", showID, "error", err.Error())
	}
}

func isConflict(err error) bool {
	return errs.Is(err, shared.ErrConflict)
}
