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

type MenuHandler struct {
	menu *services.MenuService
}

func NewMenuHandler(menu *services.MenuService) *MenuHandler {
	return &MenuHandler{menu: menu}
}

func (h *MenuHandler) List(c *gin.Context) {
	items, err := h.menu.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to list menu", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Menu retrieved", items))
}

func (h *MenuHandler) Get(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid menu item ID", c.Param("id")))
		return
	}

	item, err := h.menu.Get(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Menu item not found", ""))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to retrieve menu item", err.Error()))
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Menu item retrieved", item))
}

func (h *MenuHandler) Create(c *gin.Context) {
	var req models.MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	item, err := h.menu.Create(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidPrice) {
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
			return
		}
		c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to create menu item", err.Error()))
		return
	}
	c.JSON(http.StatusCreated, utils.SuccessResponse("Menu item created", item))
}

func (h *MenuHandler) Update(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid menu item ID", c.Param("id")))
		return
	}

	var req models.MenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, utils.ErrorResponse("Invalid request payload", err.Error()))
		return
	}

	item, err := h.menu.Update(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c.JSON(http.StatusNotFound, utils.ErrorResponse("Menu item not found", ""))
		case errors.Is(err, services.ErrInvalidPrice):
			c.JSON(http.StatusBadRequest, utils.ErrorResponse("Validation failed", err.Error()))
		default:
			c.JSON(http.StatusInternalServerError, utils.ErrorResponse("Failed to update menu item", err.Error()))
		}
		return
	}
	c.JSON(http.StatusOK, utils.SuccessResponse("Menu item updated", item))
}
