package shared

import "cinema-booking/internal/pkg/errs"

// Storage level.
var (
	ErrNotFound = errs.New("record not found")
	ErrConflict = errs.New("seat already has an active booking")
)

var (
	ErrShowNotFound         = errs.New("show not found")
	ErrBookingNotFound      = errs.New("booking not found")
	ErrSeatAlreadyBooked    = errs.New("seat is already booked")
	ErrShowFullyBooked      = errs.New("show is fully booked")
	ErrConcurrencyExhausted = errs.New("could not complete booking due to concurrent requests, please retry")
	ErrNotOwner             = errs.New("not allowed to cancel this booking")
)
