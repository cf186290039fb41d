package seat

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// DefaultPattern accepts an optional row letter followed by 1-4 digits.
	DefaultPattern = `^([A-Z])?(\d{1,4})$`

	// MaxRawLength bounds the seat string accepted from clients.
	MaxRawLength = 10
)

var (
	ErrInvalidFormat    = errors.New("invalid seat format")
	ErrOutOfRange       = errors.New("seat number must be at least 1")
	ErrCapacityExceeded = errors.New("seat number exceeds show capacity")
	ErrInvalidPattern   = errors.New("seat pattern must contain a capture group for the seat number")
)

type CapacityExceededError struct {
	Number   int
	Capacity int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("seat number %d exceeds show capacity of %d", e.Number, e.Capacity)
}

func (e *CapacityExceededError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// Label is a validated, normalized seat identifier.
type Label struct {
	value  string
	number int
}

func (l Label) String() string { return l.value }
func (l Label) Number() int    { return l.number }

type Validator struct {
	pattern *regexp.Regexp
}

// NewValidator compiles pattern. The last capture group must hold the seat
// number.
func NewValidator(pattern string) (*Validator, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("compile seat pattern: %w", err)
	}
	if re.NumSubexp() < 1 {
		return nil, ErrInvalidPattern
	}
	return &Validator{pattern: re}, nil
}

func DefaultValidator() *Validator {
	return &Validator{pattern: regexp.MustCompile(DefaultPattern)}
}

func (v *Validator) Validate(raw string, capacity int) (Label, error) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))

	m := v.pattern.FindStringSubmatch(normalized)
	if m == nil {
		return Label{}, ErrInvalidFormat
	}

	digits := m[len(m)-1]
	number, err := strconv.Atoi(digits)
	if err != nil {
		return Label{}, ErrInvalidFormat
	}
	if number < 1 {
		return Label{}, ErrOutOfRange
	}
	if number > capacity {
		return Label{}, &CapacityExceededError{Number: number, Capacity: capacity}
	}

	return Label{value: normalized, number: number}, nil
}
