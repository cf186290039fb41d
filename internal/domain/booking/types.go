package booking

type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
)

func (s Status) String() string {
	return string(s)
}

func (s Status) IsValid() bool {
	switch s {
	case StatusActive, StatusCancelled:
		return true
	default:
		return false
	}
}

// CancelOutcome reports whether a cancel call changed anything.
type CancelOutcome string

const (
	Cancelled        CancelOutcome = "cancelled"
	AlreadyCancelled CancelOutcome = "already_cancelled"
)
