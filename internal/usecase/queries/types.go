package queries

import (
	"time"

	"cinema-booking/internal/domain/booking"

	"github.com/google/uuid"
)

type BookingView struct {
	ID        uuid.UUID `json:"id"`
	ShowID    uuid.UUID `json:"show_id"`
	Seat      string    `json:"seat"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// AvailabilityView summarizes a show. BookedSeats is only filled when
// seat-level detail was requested.
type AvailabilityView struct {
	ShowID      uuid.UUID `json:"show_id"`
	Capacity    int       `json:"capacity"`
	Booked      int       `json:"booked"`
	Available   int       `json:"available"`
	BookedSeats []string  `json:"booked_seats,omitempty"`
}

func NewBookingView(b *booking.Booking) *BookingView {
	return &BookingView{
		ID:        b.ID(),
		ShowID:    b.ShowID(),
		Seat:      b.Seat(),
		Status:    b.Status().String(),
		CreatedAt: b.CreatedAt(),
	}
}
