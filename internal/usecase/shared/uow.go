package shared

//go:generate mockgen -source=uow.go -destination=../../../tests/mock/shared/uow.go -package=sharedmock

import (
	"context"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/show"

	"github.com/google/uuid"
)

type UnitOfWork interface {
	// Within runs fn in a read-committed transaction, retrying on serialization
	// failures and deadlocks.
	Within(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	// Ledger reads and writes outside any explicit transaction.
	Ledger() Ledger
}

type Tx interface {
	Ledger() Ledger
	// LockShow holds the show exclusively until the transaction ends.
	LockShow(ctx context.Context, showID uuid.UUID) error
}

// Ledger is the only writer of booking records. It enforces at most one active
// booking per (show, seat) on its own, independent of callers' checks.
type Ledger interface {
	CountActive(ctx context.Context, showID uuid.UUID) (int, error)
	ExistsActive(ctx context.Context, showID uuid.UUID, seat string) (bool, error)
	// InsertActive fails with an error matching ErrConflict when the seat
	// already has an active booking.
	InsertActive(ctx context.Context, showID uuid.UUID, seat string, ownerID uuid.UUID) (*booking.Booking, error)
	// SetCancelled reports true only to the caller that moved the booking
	// from active to cancelled.
	SetCancelled(ctx context.Context, bookingID uuid.UUID) (bool, error)
	FindByID(ctx context.Context, bookingID uuid.UUID) (*booking.Booking, error)
	// ListByOwner returns newest first.
	ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*booking.Booking, error)
	ListActiveSeats(ctx context.Context, showID uuid.UUID) ([]string, error)
}

type Catalog interface {
	GetShow(ctx context.Context, showID uuid.UUID) (*show.Show, error)
}

// AvailabilityCache holds the active booking count per show, keyed by a
// per-show generation. Invalidate bumps the generation, so a count stored
// under an older generation is never served again.
type AvailabilityCache interface {
	// GetBooked returns the generation even on a miss. Pass it back to
	// SetBooked with the count read from the ledger.
	GetBooked(ctx context.Context, showID uuid.UUID) (booked int, gen int64, ok bool, err error)
	SetBooked(ctx context.Context, showID uuid.UUID, gen int64, booked int) error
	Invalidate(ctx context.Context, showID uuid.UUID) error
}
