package response

import (
	"time"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/usecase/queries"
)

type BookingResponse struct {
	ID        string    `json:"id"`
	ShowID    string    `json:"showId"`
	Seat      string    `json:"seat"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

func FromBookingView(v *queries.BookingView) *BookingResponse {
	return &BookingResponse{
		ID:        v.ID.String(),
		ShowID:    v.ShowID.String(),
		Seat:      v.Seat,
		Status:    v.Status,
		CreatedAt: v.CreatedAt,
	}
}

func FromBookingViews(views []*queries.BookingView) []*BookingResponse {
	res := make([]*BookingResponse, len(views))
	for i, v := range views {
		res[i] = FromBookingView(v)
	}
	return res
}

type CancelResponse struct {
	Status string `json:"status"`
}

func FromCancelOutcome(o booking.CancelOutcome) *CancelResponse {
	return &CancelResponse{Status: string(o)}
}

// BookedSeats is present only when seat detail was requested.
type AvailabilityResponse struct {
	ShowID      string   `json:"showId"`
	Capacity    int      `json:"capacity"`
	Booked      int      `json:"booked"`
	Available   int      `json:"available"`
	BookedSeats []string `json:"bookedSeats,omitempty"`
}

func FromAvailabilityView(v *queries.AvailabilityView) *AvailabilityResponse {
	return &AvailabilityResponse{
		ShowID:      v.ShowID.String(),
		Capacity:    v.Capacity,
		Booked:      v.Booked,
		Available:   v.Available,
		BookedSeats: v.BookedSeats,
	}
}
