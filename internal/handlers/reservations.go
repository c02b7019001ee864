package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bahari-bites/internal/middleware"
	"bahari-bites/internal/models"
	"bahari-bites/internal/mpesa"
	"bahari-bites/internal/services"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

type ReservationHandler struct {
	reservations *services.ReservationService
}

func NewReservationHandler(reservations *services.ReservationService) *ReservationHandler {
	return &ReservationHandler{reservations: reservations}
}

func (h *ReservationHandler) Book(c *gin.Context) {
	var req models.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	reservation, ack, err := h.reservations.Book(c.Request.Context(), middleware.AccountID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidReservationTime),
			errors.Is(err, services.ErrInvalidTableNumber),
			errors.Is(err, utils.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		case errors.Is(err, services.ErrGatewayRejected),
			errors.Is(err, mpesa.ErrGatewayAuth),
			errors.Is(err, mpesa.ErrGatewayRequest):
			c.JSON(http.StatusBadGateway, utils.ErrorResponse("Payment was not accepted", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Booking failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Reservation initiated", gin.H{
		"reservation": reservation,
		"payment":     ack,
	}))
}

func (h *ReservationHandler) Get(c *gin.Context) {
	reservationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid reservation ID", c.Param("id")))
		return
	}

	reservation, err := h.reservations.Get(middleware.AccountID(c), reservationID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Reservation not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve reservation", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Reservation retrieved", reservation))
}

// QR streams the confirmation pass for a paid reservation as PNG.
func (h *ReservationHandler) QR(c *gin.Context) {
	reservationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid reservation ID", c.Param("id")))
		return
	}

	png, err := h.reservations.ConfirmationQR(middleware.AccountID(c), reservationID)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Reservation not found", ""))
		case errors.Is(err, services.ErrReservationNotPaid):
			c.JSON(http.StatusConflict, utils.ErrorResponse("Reservation is not confirmed", ""))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to render QR code", err.Error()))
		}
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}
