package request

import (
	"cinema-booking/internal/domain/seat"
	"cinema-booking/internal/usecase/commands"

	"github.com/google/uuid"
)

type CreateBookingRequest struct {
	Seat string `json:"seat" binding:"required"`
}

// SeatTooLong rejects oversized input before it reaches the validator.
func (r *CreateBookingRequest) SeatTooLong() bool {
	return len(r.Seat) > seat.MaxRawLength
}

func (r *CreateBookingRequest) ToParams(showID, ownerID uuid.UUID) commands.ReserveParams {
	return commands.ReserveParams{
		ShowID:  showID,
		Seat:    r.Seat,
		OwnerID: ownerID,
	}
}

type AvailabilityQuery struct {
	Seats bool `form:"seats"`
}
