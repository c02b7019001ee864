package storage

import (
	"errors"

	"bahari-bites/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate signals a unique-constraint violation (email, username,
	// phone, or cart line).
	ErrDuplicate = errors.New("record already exists")
	// ErrDuplicateTransaction signals a second reconciliation attempt for a
	// checkout-request-id that already has a persisted transaction.
	ErrDuplicateTransaction = errors.New("transaction already reconciled")
)

type Store interface {
	// Accounts
	CreateAccount(account *models.Account) error
	GetAccount(id int64) (*models.Account, error)
	GetAccountByCredential(credential string) (*models.Account, error)

	// Menu & inventory
	CreateMenuItem(item *models.MenuItem) error
	UpdateMenuItem(item *models.MenuItem) error
	GetMenuItem(id int64) (*models.MenuItem, error)
	ListMenuItems() ([]*models.MenuItem, error)

	// Cart
	AddCartLine(accountID, menuItemID int64, quantity int) error
	RemoveCartLine(accountID, menuItemID int64) error
	GetCartLines(accountID int64) ([]*models.CartLine, error)

	// Orders
	CreateOrder(order *models.Order) error
	GetOrder(id int64) (*models.Order, error)
	UpdateOrderStatus(id int64, status models.OrderStatus) error
	ListOrdersByAccount(accountID int64) ([]*models.Order, error)

	// Reservations
	CreateReservation(reservation *models.Reservation) error
	GetReservation(id int64) (*models.Reservation, error)
	UpdateReservationStatus(id int64, status models.ReservationStatus) error

	// Payment transactions
	GetTransactionByCheckoutRequestID(checkoutRequestID string) (*models.PaymentTransaction, error)
	// ReconcilePayment commits one reconciliation atomically: it inserts the
	// transaction row and, when txn.ResultCode == 0, transitions the referenced
	// order/reservation, purges the owning account's cart lines and decrements
	// inventory, all in a single database transaction. A duplicate
	// checkout-request-id yields ErrDuplicateTransaction with nothing applied.
	ReconcilePayment(txn *models.PaymentTransaction) error
}
