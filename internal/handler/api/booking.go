package api

import (
	"net/http"

	"cinema-booking/internal/domain/booking"
	"cinema-booking/internal/domain/seat"
	reqdto "cinema-booking/internal/handler/dto/request"
	resdto "cinema-booking/internal/handler/dto/response"
	"cinema-booking/internal/handler/httperr"
	"cinema-booking/internal/handler/middleware"
	"cinema-booking/internal/usecase"
	"cinema-booking/internal/usecase/commands"
	"cinema-booking/internal/usecase/queries"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type BookingHandler struct {
	cmds commands.BookingCommands
	q    queries.BookingQueries
}

func NewBookingHandler(cmds commands.BookingCommands, q queries.BookingQueries) *BookingHandler {
	return &BookingHandler{cmds: cmds, q: q}
}

// @Summary Book a seat
// @Description Reserve one seat for the authenticated user
// @Tags bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Show ID"
// @Param request body reqdto.CreateBookingRequest true "Seat to book"
// @Success 201 {object} resdto.BookingResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/shows/{id}/bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithUsecaseError(c, usecase.ErrAnonymous)
		return
	}
	showID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid show id", nil)
		return
	}
	var req reqdto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid request", nil)
		return
	}
	if req.SeatTooLong() {
		httperr.AbortWithUsecaseError(c, seat.ErrInvalidFormat)
		return
	}

	view, err := h.cmds.Reserve(c.Request.Context(), req.ToParams(showID, userID))
	if err != nil {
		httperr.AbortWithUsecaseError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resdto.FromBookingView(view))
}

// @Summary Cancel a booking
// @Description Cancel one of the caller's bookings. Cancelling twice is rejected.
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Param id path string true "Booking ID"
// @Success 200 {object} resdto.CancelResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 403 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/bookings/{id}/cancel [post]
func (h *BookingHandler) Cancel(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithUsecaseError(c, usecase.ErrAnonymous)
		return
	}
	bookingID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid booking id", nil)
		return
	}

	outcome, err := h.cmds.Cancel(c.Request.Context(), bookingID, userID)
	if err != nil {
		httperr.AbortWithUsecaseError(c, err)
		return
	}
	if outcome == booking.AlreadyCancelled {
		httperr.AbortWithError(c, http.StatusBadRequest, booking.ErrAlreadyCancelled, "already cancelled", nil)
		return
	}
	c.JSON(http.StatusOK, resdto.FromCancelOutcome(outcome))
}

// @Summary My bookings
// @Description List the caller's bookings, newest first
// @Tags bookings
// @Produce json
// @Security BearerAuth
// @Success 200 {array} resdto.BookingResponse
// @Failure 401 {object} httperr.Response
// @Router /api/bookings/me [get]
func (h *BookingHandler) ListMine(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		httperr.AbortWithUsecaseError(c, usecase.ErrAnonymous)
		return
	}

	views, err := h.q.ListMine(c.Request.Context(), userID)
	if err != nil {
		httperr.AbortWithUsecaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromBookingViews(views))
}

// @Summary Show availability
// @Description Capacity and booked count for a show. seats=true adds the booked seat labels.
// @Tags shows
// @Produce json
// @Security BearerAuth
// @Param id path string true "Show ID"
// @Param seats query bool false "Include booked seat labels"
// @Success 200 {object} resdto.AvailabilityResponse
// @Failure 400 {object} httperr.Response
// @Failure 401 {object} httperr.Response
// @Failure 404 {object} httperr.Response
// @Router /api/shows/{id}/availability [get]
func (h *BookingHandler) Availability(c *gin.Context) {
	showID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid show id", nil)
		return
	}
	var query reqdto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		httperr.AbortWithError(c, http.StatusBadRequest, err, "Invalid query", nil)
		return
	}

	view, err := h.q.Availability(c.Request.Context(), queries.AvailabilityParams{
		ShowID:       showID,
		IncludeSeats: query.Seats,
	})
	if err != nil {
		httperr.AbortWithUsecaseError(c, err)
		return
	}
	c.JSON(http.StatusOK, resdto.FromAvailabilityView(view))
}
