package storage

import (
	"sync"

	"bahari-bites/internal/models"
)

// InMemoryStore keeps everything in maps. Used by tests and mock-mode runs.
type InMemoryStore struct {
	mutex sync.RWMutex

	nextID       int64
	accounts     map[int64]*models.Account
	menuItems    map[int64]*models.MenuItem
	inventory    map[int64]*models.InventoryItem
	cartLines    map[int64][]*models.CartLine // keyed by account id
	orders       map[int64]*models.Order
	reservations map[int64]*models.Reservation
	transactions map[string]*models.PaymentTransaction // keyed by checkout request id
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		accounts:     make(map[int64]*models.Account),
		menuItems:    make(map[int64]*models.MenuItem),
		inventory:    make(map[int64]*models.InventoryItem),
		cartLines:    make(map[int64][]*models.CartLine),
		orders:       make(map[int64]*models.Order),
		reservations: make(map[int64]*models.Reservation),
		transactions: make(map[string]*models.PaymentTransaction),
	}
}

func (s *InMemoryStore) nextSeq() int64 {
	s.nextID++
	return s.nextID
}

func (s *InMemoryStore) CreateAccount(account *models.Account) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, existing := range s.accounts {
		if existing.Email == account.Email || existing.Username == account.Username {
			return ErrDuplicate
		}
		if account.Phone != "" && existing.Phone == account.Phone {
			return ErrDuplicate
		}
	}
	account.ID = s.nextSeq()
	s.accounts[account.ID] = account
	return nil
}

func (s *InMemoryStore) GetAccount(id int64) (*models.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	account, exists := s.accounts[id]
	if !exists {
		return nil, ErrNotFound
	}
	return account, nil
}

func (s *InMemoryStore) GetAccountByCredential(credential string) (*models.Account, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	for _, account := range s.accounts {
		if account.Username == credential || account.Email == credential {
			return account, nil
		}
	}
	return nil, ErrNotFound
}

func (s *InMemoryStore) CreateMenuItem(item *models.MenuItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	item.ID = s.nextSeq()
	s.menuItems[item.ID] = item
	return nil
}

func (s *InMemoryStore) UpdateMenuItem(item *models.MenuItem) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.menuItems[item.ID]; !exists {
		return ErrNotFound
	}
	s.menuItems[item.ID] = item
	return nil
}

func (s *InMemoryStore) GetMenuItem(id int64) (*models.MenuItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	item, exists := s.menuItems[id]
	if !exists {
		return nil, ErrNotFound
	}
	return item, nil
}

func (s *InMemoryStore) ListMenuItems() ([]*models.MenuItem, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	items := make([]*models.MenuItem, 0, len(s.menuItems))
	for _, item := range s.menuItems {
		items = append(items, item)
	}
	return items, nil
}

// SeedInventory registers an inventory row; test helper mirroring what
// migrations seed in a real deployment.
func (s *InMemoryStore) SeedInventory(item *models.InventoryItem) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if item.ID == 0 {
		item.ID = s.nextSeq()
	}
	s.inventory[item.ID] = item
}

func (s *InMemoryStore) GetInventory(id int64) *models.InventoryItem {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.inventory[id]
}

func (s *InMemoryStore) AddCartLine(accountID, menuItemID int64, quantity int) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	for _, line := range s.cartLines[accountID] {
		if line.MenuItemID == menuItemID {
			line.Quantity += quantity
			return nil
		}
	}
	s.cartLines[accountID] = append(s.cartLines[accountID], &models.CartLine{
		ID:         s.nextSeq(),
		AccountID:  accountID,
		MenuItemID: menuItemID,
		Quantity:   quantity,
	})
	return nil
}

func (s *InMemoryStore) RemoveCartLine(accountID, menuItemID int64) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	lines := s.cartLines[accountID]
	for i, line := range lines {
		if line.MenuItemID == menuItemID {
			s.cartLines[accountID] = append(lines[:i], lines[i+1:]...)
			return nil
		}
	}
	return ErrNotFound
}

func (s *InMemoryStore) GetCartLines(accountID int64) ([]*models.CartLine, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var lines []*models.CartLine
	for _, line := range s.cartLines[accountID] {
		copied := *line
		if item, ok := s.menuItems[line.MenuItemID]; ok {
			copied.ItemName = item.Name
			copied.UnitPriceCents = item.PriceCents
		}
		lines = append(lines, &copied)
	}
	return lines, nil
}

func (s *InMemoryStore) CreateOrder(order *models.Order) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order.ID = s.nextSeq()
	for _, line := range order.Lines {
		line.ID = s.nextSeq()
		line.OrderID = order.ID
	}
	s.orders[order.ID] = order
	return nil
}

func (s *InMemoryStore) GetOrder(id int64) (*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	order, exists := s.orders[id]
	if !exists {
		return nil, ErrNotFound
	}
	return order, nil
}

func (s *InMemoryStore) UpdateOrderStatus(id int64, status models.OrderStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	order, exists := s.orders[id]
	if !exists {
		return ErrNotFound
	}
	order.Status = status
	return nil
}

func (s *InMemoryStore) ListOrdersByAccount(accountID int64) ([]*models.Order, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	var orders []*models.Order
	for _, order := range s.orders {
		if order.AccountID == accountID {
			orders = append(orders, order)
		}
	}
	return orders, nil
}

func (s *InMemoryStore) CreateReservation(reservation *models.Reservation) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reservation.ID = s.nextSeq()
	s.reservations[reservation.ID] = reservation
	return nil
}

func (s *InMemoryStore) GetReservation(id int64) (*models.Reservation, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	reservation, exists := s.reservations[id]
	if !exists {
		return nil, ErrNotFound
	}
	return reservation, nil
}

func (s *InMemoryStore) UpdateReservationStatus(id int64, status models.ReservationStatus) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	reservation, exists := s.reservations[id]
	if !exists {
		return ErrNotFound
	}
	reservation.Status = status
	return nil
}

func (s *InMemoryStore) GetTransactionByCheckoutRequestID(checkoutRequestID string) (*models.PaymentTransaction, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	txn, exists := s.transactions[checkoutRequestID]
	if !exists {
		return nil, ErrNotFound
	}
	return txn, nil
}

func (s *InMemoryStore) ReconcilePayment(txn *models.PaymentTransaction) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if _, exists := s.transactions[txn.CheckoutRequestID]; exists {
		return ErrDuplicateTransaction
	}

	// All-or-nothing: resolve the referenced row before retaining anything.
	var (
		order       *models.Order
		reservation *models.Reservation
	)
	switch {
	case txn.OrderID != 0:
		o, exists := s.orders[txn.OrderID]
		if !exists {
			return ErrNotFound
		}
		order = o
	case txn.ReservationID != 0:
		r, exists := s.reservations[txn.ReservationID]
		if !exists {
			return ErrNotFound
		}
		reservation = r
	}

	txn.ID = s.nextSeq()
	s.transactions[txn.CheckoutRequestID] = txn

	success := txn.ResultCode == 0

	switch {
	case order != nil:
		if success {
			order.Status = models.OrderPaid
			delete(s.cartLines, order.AccountID)
			for _, line := range order.Lines {
				item, ok := s.menuItems[line.MenuItemID]
				if !ok || item.InventoryID == 0 {
					continue
				}
				if inv, ok := s.inventory[item.InventoryID]; ok {
					inv.Quantity -= line.Quantity
				}
			}
		} else {
			order.Status = models.OrderFailed
		}
	case reservation != nil:
		if success {
			reservation.Status = models.ReservationConfirmed
		} else {
			reservation.Status = models.ReservationFailed
		}
	}
	return nil
}
