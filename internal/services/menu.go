package services

import (
	"errors"
	"fmt"

	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
)

var ErrInvalidPrice = errors.New("price must be positive")

// MenuService exposes the public menu listing and the staff-only catalogue
// management.
type MenuService struct {
	store storage.Store
	log   *logger.Logger
}

func NewMenuService(store storage.Store, log *logger.Logger) *MenuService {
	return &MenuService{store: store, log: log}
}

func (s *MenuService) List() ([]*models.MenuItem, error) {
	return s.store.ListMenuItems()
}

func (s *MenuService) Get(id int64) (*models.MenuItem, error) {
	return s.store.GetMenuItem(id)
}

func (s *MenuService) Create(req *models.MenuItemRequest) (*models.MenuItem, error) {
	if req.PriceCents <= 0 {
		return nil, ErrInvalidPrice
	}
	item := &models.MenuItem{
		Name:        req.Name,
		Description: req.Description,
		PriceCents:  req.PriceCents,
		Category:    req.Category,
		ImageURL:    req.ImageURL,
		InventoryID: req.InventoryID,
	}
	if err := s.store.CreateMenuItem(item); err != nil {
		return nil, err
	}
	s.log.LogProcess("MENU", fmt.Sprintf("Menu item %d (%s) created", item.ID, item.Name))
	return item, nil
}

func (s *MenuService) Update(id int64, req *models.MenuItemRequest) (*models.MenuItem, error) {
	if req.PriceCents <= 0 {
		return nil, ErrInvalidPrice
	}
	item, err := s.store.GetMenuItem(id)
	if err != nil {
		return nil, err
	}
	item.Name = req.Name
	item.Description = req.Description
	item.PriceCents = req.PriceCents
	item.Category = req.Category
	item.ImageURL = req.ImageURL
	item.InventoryID = req.InventoryID
	if err := s.store.UpdateMenuItem(item); err != nil {
		return nil, err
	}
	s.log.LogProcess("MENU", fmt.Sprintf("Menu item %d (%s) updated", item.ID, item.Name))
	return item, nil
}
