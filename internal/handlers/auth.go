package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"bahari-bites/internal/models"
	"bahari-bites/internal/services"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

type AuthHandler struct {
	accounts *services.AccountService
}

func NewAuthHandler(accounts *services.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	account, err := h.accounts.Register(&req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrDuplicate):
			c.JSON(http.StatusConflict, utils.ErrorResponse("Account already exists", err.Error()))
		case errors.Is(err, services.ErrWeakPassword), errors.Is(err, utils.ErrInvalidPhone):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Registration failed", err.Error()))
		}
		return
	}

	c.JSON(http.StatusCreated, utils.SuccessResponse("Account registered", account))
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	resp, err := h.accounts.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, utils.ErrorResponse("Invalid credentials", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Login failed", err.Error()))
		return
	}

	c.JSON(http.StatusOK, utils.SuccessResponse("Logged in", resp))
}
