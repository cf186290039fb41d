package httperr

import (
	"errors"
	"net/http"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/seat"
	"cinema-booking/internal/pkg/errs"
	"cinema-booking/internal/usecase"
	"cinema-booking/internal/usecase/shared"

	"github.com/gin-gonic/gin"
)

type Response struct {
	Status int `json:"-"`
	Error  struct {
		Message string `json:"message"`
	} `json:"error"`
	Detail any `json:"detail,omitempty"`
}

// preserves original error for future monitoring
func AbortWithError(c *gin.Context, status int, err error, msg string, detail any) {
	if err == nil {
		panic("AbortWithError: err cannot be nil")
	}

	resp := Response{Status: status}
	resp.Error.Message = msg
	resp.Detail = detail

	_ = c.Error(gin.Error{
		Err:  err,
		Type: gin.ErrorTypePublic,
		Meta: resp,
	})
	c.AbortWithStatusJSON(status, resp)
}

type mapping struct {
	target error
	status int
}

// Order matters: the first match wins.
var mappings = []mapping{
	{usecase.ErrAnonymous, http.StatusUnauthorized},
	{shared.ErrNotOwner, http.StatusForbidden},
	{shared.ErrShowNotFound, http.StatusNotFound},
	{shared.ErrBookingNotFound, http.StatusNotFound},
	{seat.ErrInvalidFormat, http.StatusBadRequest},
	{seat.ErrOutOfRange, http.StatusBadRequest},
	{seat.ErrCapacityExceeded, http.StatusBadRequest},
	{shared.ErrSeatAlreadyBooked, http.StatusBadRequest},
	{shared.ErrShowFullyBooked, http.StatusBadRequest},
	{shared.ErrConcurrencyExhausted, http.StatusBadRequest},
	{booking.ErrAlreadyCancelled, http.StatusBadRequest},
}

// Classify returns the HTTP status and client-facing message for a usecase
// error. Unknown errors are reported as 500 without leaking their text.
func Classify(err error) (int, string) {
	var capErr *seat.CapacityExceededError
	if errors.As(err, &capErr) {
		return http.StatusBadRequest, capErr.Error()
	}

	for _, m := range mappings {
		if errs.Is(err, m.target) {
			return m.status, m.target.Error()
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

func AbortWithUsecaseError(c *gin.Context, err error) {
	status, msg := Classify(err)
	AbortWithError(c, status, err, msg, nil)
}
