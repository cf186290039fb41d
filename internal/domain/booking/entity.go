package booking

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrAlreadyCancelled = errors.New("booking is already cancelled")
	ErrInvalidStatus    = errors.New("invalid booking status")
)

// Booking is one claim on a seat. A cancelled booking stays cancelled; the
// seat is reclaimed by creating a new Booking.
type Booking struct {
	id        uuid.UUID
	showID    uuid.UUID
	seat      string
	ownerID   uuid.UUID
	status    Status
	createdAt time.Time
}

func NewBooking(showID uuid.UUID, seat string, ownerID uuid.UUID, now time.Time) *Booking {
	return &Booking{
		id:        uuid.New(),
		showID:    showID,
		seat:      seat,
		ownerID:   ownerID,
		status:    StatusActive,
		createdAt: now,
	}
}

func ReconstructBooking(
	id, showID uuid.UUID,
	seat string,
	ownerID uuid.UUID,
	status Status,
	createdAt time.Time,
) (*Booking, error) {
	if !status.IsValid() {
		return nil, ErrInvalidStatus
	}
	return &Booking{
		id:        id,
		showID:    showID,
		seat:      seat,
		ownerID:   ownerID,
		status:    status,
		createdAt: createdAt,
	}, nil
}

func (b *Booking) Cancel() error {
	if b.status == StatusCancelled {
		return ErrAlreadyCancelled
	}
	b.status = StatusCancelled
	return nil
}

func (b *Booking) IsActive() bool {
	return b.status == StatusActive
}

func (b *Booking) IsOwnedBy(userID uuid.UUID) bool {
	return b.ownerID == userID
}

func (b *Booking) ID() uuid.UUID        { return b.id }
func (b *Booking) ShowID() uuid.UUID    { return b.showID }
func (b *Booking) Seat() string         { return b.seat }
func (b *Booking) OwnerID() uuid.UUID   { return b.ownerID }
func (b *Booking) Status() Status       { return b.status }
func (b *Booking) CreatedAt() time.Time { return b.createdAt }
