package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bahari-bites/internal/models"
	"bahari-bites/internal/services"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

type PaymentHandler struct {
	payments *services.PaymentOrchestrator
	store    storage.Store
}

func NewPaymentHandler(payments *services.PaymentOrchestrator, store storage.Store) *PaymentHandler {
	return &PaymentHandler{payments: payments, store: store}
}

// Callback receives the provider's asynchronous result post. The domain
// reference travels in the query string because the provider echoes back the
// callback URL we registered at initiation.
//
// Duplicates are acknowledged with ResultCode 0 so the provider stops
// retrying; only a malformed payload or a missing reference gets a 400.
// A delivery racing an in-flight reconciliation gets a 503 so the provider
// redelivers after the first attempt settles.
func (h *PaymentHandler) Callback(c *gin.Context) {
	var envelope models.CallbackEnvelope
	if err := c.ShouldBindJSON(&envelope); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid callback payload", err.Error()))
		return
	}

	ref, err := parseDomainRef(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid domain reference", err.Error()))
		return
	}

	if _, err := h.payments.ReconcileCallback(c.Request.Context(), &envelope, ref); err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateCallback):
			c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
		case errors.Is(err, services.ErrCallbackInFlight):
			c.JSON(http.StatusServiceUnavailable, utils.ErrorResponse("Callback is being processed, retry later", err.Error()))
		case errors.Is(err, services.ErrMalformedCallback),
			errors.Is(err, services.ErrMissingDomainReference),
			errors.Is(err, services.ErrInvalidDomainReference):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Callback rejected", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Callback processing failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"ResultCode": 0, "ResultDesc": "Accepted"})
}

// GetTransaction looks up a reconciled transaction by checkout request id.
// Staff only.
func (h *PaymentHandler) GetTransaction(c *gin.Context) {
	checkoutRequestID := c.Param("checkout_request_id")
	if checkoutRequestID == "" {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Checkout request ID is required", ""))
		return
	}

	txn, err := h.store.GetTransactionByCheckoutRequestID(checkoutRequestID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Transaction not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve transaction", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Transaction retrieved", txn))
}

type reversalRequest struct {
	TransactionID string `json:"transaction_id" binding:"required"`
	AmountCents   int64  `json:"amount_cents" binding:"required,gt=0"`
}

// Reverse submits an operator-triggered corrective reversal. Staff only.
func (h *PaymentHandler) Reverse(c *gin.Context) {
	var req reversalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	resp, err := h.payments.Reverse(c.Request.Context(), req.TransactionID, req.AmountCents)
	if err != nil {
		c.JSON(http.StatusBadGateway, utils.ErrorResponse("Reversal failed", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Reversal submitted", resp))
}

func parseDomainRef(c *gin.Context) (models.DomainRef, error) {
	var ref models.DomainRef
	if raw := c.Query("order_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ref, err
		}
		ref.OrderID = id
	}
	if raw := c.Query("reservation_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ref, err
		}
		ref.ReservationID = id
	}
	return ref, nil
}
