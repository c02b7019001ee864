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

type OrderHandler struct {
	orders *services.OrderService
}

func NewOrderHandler(orders *services.OrderService) *OrderHandler {
	return &OrderHandler{orders: orders}
}

func (h *OrderHandler) AddToCart(c *gin.Context) {
	var req models.AddCartLineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	accountID := middleware.AccountID(c)
	if err := h.orders.AddToCart(accountID, req.MenuItemID, req.Quantity); err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Menu item not found", ""))
		case errors.Is(err, services.ErrInvalidQuantity):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to add to cart", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Added to cart", nil))
}

func (h *OrderHandler) RemoveFromCart(c *gin.Context) {
	menuItemID, err := strconv.ParseInt(c.Param("item_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid menu item ID", c.Param("item_id")))
		return
	}

	accountID := middleware.AccountID(c)
	if err := h.orders.RemoveFromCart(accountID, menuItemID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Cart line not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to remove from cart", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Removed from cart", nil))
}

func (h *OrderHandler) ViewCart(c *gin.Context) {
	cart, err := h.orders.ViewCart(middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve cart", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Cart retrieved", cart))
}

// Checkout snapshots the cart into an order and initiates payment. A gateway
// rejection still returns the failed order so the client can show it.
func (h *OrderHandler) Checkout(c *gin.Context) {
	var req models.CheckoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	order, ack, err := h.orders.Checkout(c.Request.Context(), middleware.AccountID(c), &req)
	if err != nil {
		switch {
		case errors.Is(err, utils.ErrInvalidPhone),
			errors.Is(err, services.ErrCartEmpty),
			errors.Is(err, services.ErrAmountTooLarge):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Checkout failed", err.Error()))
		case errors.Is(err, services.ErrCartBusy):
			c.JSON(http.StatusConflict, utils.ErrorResponse("Checkout already in progress", err.Error()))
		case errors.Is(err, services.ErrGatewayRejected),
			errors.Is(err, mpesa.ErrGatewayAuth),
			errors.Is(err, mpesa.ErrGatewayRequest):
			c.JSON(http.StatusBadGateway, utils.ErrorResponse("Payment was not accepted", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Checkout failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Checkout initiated", gin.H{
		"order":   order,
		"payment": ack,
	}))
}

func (h *OrderHandler) Get(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid order ID", c.Param("id")))
		return
	}

	order, err := h.orders.GetOrder(middleware.AccountID(c), orderID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Order not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve order", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Order retrieved", order))
}

func (h *OrderHandler) List(c *gin.Context) {
	orders, err := h.orders.ListOrders(middleware.AccountID(c))
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list orders", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Orders retrieved", orders))
}
