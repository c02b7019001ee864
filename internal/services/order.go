package services

import (
	"context"
	"errors"
	"fmt"

	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

var (
	ErrCartEmpty = errors.New("cart is empty")
	// ErrAmountTooLarge enforces the gateway's per-transaction ceiling before
	// any order state is created.
	ErrAmountTooLarge = errors.New("amount exceeds the payment ceiling")
	// ErrCartBusy means another checkout for the same account holds the cart.
	ErrCartBusy = errors.New("cart is locked by another checkout")
	// ErrGatewayRejected means the gateway refused to dispatch the push
	// prompt. The order is kept in failed state for audit.
	ErrGatewayRejected = errors.New("payment gateway rejected the request")
	ErrInvalidQuantity = errors.New("quantity must be positive")
)

// maxPaymentCents is the provider's per-transaction ceiling of 70,000 whole
// units.
const maxPaymentCents int64 = 70_000_00

// CartLock guards an account's cart against concurrent checkout.
type CartLock interface {
	AcquireCartLock(accountID int64) (bool, error)
	ReleaseCartLock(accountID int64) error
}

// OrderService owns the cart and the order lifecycle. Checkout snapshots the
// cart into an immutable order and hands payment off to the orchestrator; the
// cart itself is only purged when the payment callback confirms.
type OrderService struct {
	store    storage.Store
	payments *PaymentOrchestrator
	locks    CartLock
	log      *logger.Logger
}

func NewOrderService(store storage.Store, payments *PaymentOrchestrator, locks CartLock, log *logger.Logger) *OrderService {
	return &OrderService{
		store:    store,
		payments: payments,
		locks:    locks,
		log:      log,
	}
}

// AddToCart adds quantity of a menu item to the account's cart, merging with
// an existing line for the same item.
func (s *OrderService) AddToCart(accountID, menuItemID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	if _, err := s.store.GetMenuItem(menuItemID); err != nil {
		return err
	}
	return s.store.AddCartLine(accountID, menuItemID, quantity)
}

func (s *OrderService) RemoveFromCart(accountID, menuItemID int64) error {
	return s.store.RemoveCartLine(accountID, menuItemID)
}

// ViewCart returns the account's cart lines with the running total.
func (s *OrderService) ViewCart(accountID int64) (*models.CartResponse, error) {
	lines, err := s.store.GetCartLines(accountID)
	if err != nil {
		return nil, err
	}
	resp := &models.CartResponse{Lines: lines}
	for _, line := range lines {
		resp.TotalCents += line.UnitPriceCents * int64(line.Quantity)
	}
	return resp, nil
}

// Checkout turns the current cart into a pending order and initiates payment
// for its total. Prices are snapshotted into order lines at this moment; a
// later menu price change never alters an existing order.
//
// A gateway rejection leaves the order in failed state with no transaction
// row. The cart survives until a successful callback purges it.
func (s *OrderService) Checkout(ctx context.Context, accountID int64, req *models.CheckoutRequest) (*models.Order, *models.STKPushResponse, error) {
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return nil, nil, err
	}

	acquired, err := s.locks.AcquireCartLock(accountID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to acquire cart lock: %w", err)
	}
	if !acquired {
		return nil, nil, ErrCartBusy
	}
	defer s.locks.ReleaseCartLock(accountID)

	lines, err := s.store.GetCartLines(accountID)
	if err != nil {
		return nil, nil, err
	}
	if len(lines) == 0 {
		return nil, nil, ErrCartEmpty
	}

	var total int64
	orderLines := make([]*models.OrderLine, 0, len(lines))
	for _, line := range lines {
		total += line.UnitPriceCents * int64(line.Quantity)
		orderLines = append(orderLines, &models.OrderLine{
			MenuItemID:     line.MenuItemID,
			ItemName:       line.ItemName,
			UnitPriceCents: line.UnitPriceCents,
			Quantity:       line.Quantity,
		})
	}
	if total > maxPaymentCents {
		return nil, nil, ErrAmountTooLarge
	}

	order := &models.Order{
		AccountID:  accountID,
		Status:     models.OrderPending,
		Phone:      phone,
		TotalCents: total,
		Lines:      orderLines,
	}
	if err := s.store.CreateOrder(order); err != nil {
		return nil, nil, err
	}

	s.log.LogProcess("CHECKOUT", fmt.Sprintf("Order %d created for account %d, total %s",
		order.ID, accountID, utils.FormatCents(total)))

	resp, err := s.payments.Initiate(ctx, &InitiateRequest{
		Phone:       phone,
		AmountCents: total,
		Ref:         models.DomainRef{OrderID: order.ID},
		Simulate:    req.Simulate,
	})
	if err != nil || !resp.Accepted() {
		if updateErr := s.store.UpdateOrderStatus(order.ID, models.OrderFailed); updateErr != nil {
			s.log.Error("ORDER", fmt.Sprintf("Failed to mark order %d failed: %v", order.ID, updateErr))
		}
		order.Status = models.OrderFailed
		if err != nil {
			return order, nil, err
		}
		return order, resp, ErrGatewayRejected
	}

	// A simulated push reconciles synchronously, so the row's status has
	// already moved past pending. Hand back what the store recorded.
	if req.Simulate {
		if settled, readErr := s.store.GetOrder(order.ID); readErr == nil {
			order = settled
		}
	}
	return order, resp, nil
}

// GetOrder fetches an order, enforcing that it belongs to the account.
func (s *OrderService) GetOrder(accountID, orderID int64) (*models.Order, error) {
	order, err := s.store.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if order.AccountID != accountID {
		return nil, storage.ErrNotFound
	}
	return order, nil
}

func (s *OrderService) ListOrders(accountID int64) ([]*models.Order, error) {
	return s.store.ListOrdersByAccount(accountID)
}
