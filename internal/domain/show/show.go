package show

import (
	"errors"

	"github.com/google/uuid"
)

var ErrInvalidCapacity = errors.New("show capacity must be positive")

// Show is the slice of catalog data the booking engine needs.
// Capacity does not change once the show exists.
type Show struct {
	ID       uuid.UUID
	Capacity int
}

func New(id uuid.UUID, capacity int) (*Show, error) {
	if capacity <= 0 {
		return nil, ErrInvalidCapacity
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &Show{ID: id, Capacity: capacity}, nil
}
