package storage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/models"
)

func seedOrderWithCart(t *testing.T, store *InMemoryStore) (*models.Account, *models.Order) {
	t.Helper()

	account := &models.Account{Username: "amina", Email: "amina@example.com"}
	require.NoError(t, store.CreateAccount(account))

	store.SeedInventory(&models.InventoryItem{ID: 100, ItemName: "tilapia", Quantity: 5})
	item := &models.MenuItem{Name: "Grilled Tilapia", PriceCents: 850_00, InventoryID: 100}
	require.NoError(t, store.CreateMenuItem(item))
	require.NoError(t, store.AddCartLine(account.ID, item.ID, 2))

	order := &models.Order{
		AccountID:  account.ID,
		Status:     models.OrderPending,
		Phone:      "254712345678",
		TotalCents: 1700_00,
		Lines: []*models.OrderLine{
			{MenuItemID: item.ID, ItemName: item.Name, UnitPriceCents: item.PriceCents, Quantity: 2},
		},
	}
	require.NoError(t, store.CreateOrder(order))
	return account, order
}

func reconcileTxn(orderID int64, resultCode int) *models.PaymentTransaction {
	return &models.PaymentTransaction{
		MerchantRequestID: "mr_1",
		CheckoutRequestID: "ws_CO_1",
		ResultCode:        resultCode,
		AmountCents:       1700_00,
		ReceiptNumber:     "SFC7RK61TV",
		TransactionDate:   time.Now(),
		Phone:             "254712345678",
		OrderID:           orderID,
	}
}

func TestReconcilePaymentSuccessSideEffects(t *testing.T) {
	store := NewInMemoryStore()
	account, order := seedOrderWithCart(t, store)

	require.NoError(t, store.ReconcilePayment(reconcileTxn(order.ID, 0)))

	paid, err := store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, paid.Status)

	lines, err := store.GetCartLines(account.ID)
	require.NoError(t, err)
	assert.Empty(t, lines)

	assert.Equal(t, 3, store.GetInventory(100).Quantity)
}

func TestReconcilePaymentDuplicate(t *testing.T) {
	store := NewInMemoryStore()
	_, order := seedOrderWithCart(t, store)

	require.NoError(t, store.ReconcilePayment(reconcileTxn(order.ID, 0)))

	err := store.ReconcilePayment(reconcileTxn(order.ID, 0))
	assert.ErrorIs(t, err, ErrDuplicateTransaction)

	// Side effects applied once.
	assert.Equal(t, 3, store.GetInventory(100).Quantity)
}

func TestReconcilePaymentUnknownOrderRetainsNothing(t *testing.T) {
	store := NewInMemoryStore()

	err := store.ReconcilePayment(reconcileTxn(999, 0))
	require.ErrorIs(t, err, ErrNotFound)

	// The failed attempt must not leave a transaction behind; a retry with
	// the same checkout request id has to be able to start clean.
	_, err = store.GetTransactionByCheckoutRequestID("ws_CO_1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReconcilePaymentFailureKeepsCart(t *testing.T) {
	store := NewInMemoryStore()
	account, order := seedOrderWithCart(t, store)

	require.NoError(t, store.ReconcilePayment(reconcileTxn(order.ID, 1032)))

	failed, err := store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, failed.Status)

	lines, err := store.GetCartLines(account.ID)
	require.NoError(t, err)
	assert.Len(t, lines, 1)
	assert.Equal(t, 5, store.GetInventory(100).Quantity)
}

func TestAddCartLineMergesQuantity(t *testing.T) {
	store := NewInMemoryStore()
	account := &models.Account{Username: "joy", Email: "joy@example.com"}
	require.NoError(t, store.CreateAccount(account))

	item := &models.MenuItem{Name: "Masala Chips", PriceCents: 300_00}
	require.NoError(t, store.CreateMenuItem(item))

	require.NoError(t, store.AddCartLine(account.ID, item.ID, 1))
	require.NoError(t, store.AddCartLine(account.ID, item.ID, 2))

	lines, err := store.GetCartLines(account.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	assert.Equal(t, 3, lines[0].Quantity)
	assert.Equal(t, int64(300_00), lines[0].UnitPriceCents)
}

func TestCreateAccountDuplicates(t *testing.T) {
	store := NewInMemoryStore()

	require.NoError(t, store.CreateAccount(&models.Account{Username: "amina", Email: "amina@example.com"}))
	err := store.CreateAccount(&models.Account{Username: "amina", Email: "other@example.com"})
	assert.ErrorIs(t, err, ErrDuplicate)
}
