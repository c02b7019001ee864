package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/kafka"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
)

// fakeGateway records the last push and returns canned responses.
type fakeGateway struct {
	pushResp *models.STKPushResponse
	pushErr  error

	lastPhone       string
	lastAmountCents int64
	lastReference   string

	reverseResp *models.ReversalResponse
	reverseErr  error
}

func (g *fakeGateway) STKPush(_ context.Context, phone string, amountCents int64, reference string) (*models.STKPushResponse, error) {
	g.lastPhone = phone
	g.lastAmountCents = amountCents
	g.lastReference = reference
	return g.pushResp, g.pushErr
}

func (g *fakeGateway) Reverse(_ context.Context, transactionID string, amountCents int64) (*models.ReversalResponse, error) {
	return g.reverseResp, g.reverseErr
}

// fakeLocks implements both CallbackLock and CartLock in memory.
type fakeLocks struct {
	mu   sync.Mutex
	held map[string]bool

	denyCallback bool
	denyCart     bool
}

func newFakeLocks() *fakeLocks {
	return &fakeLocks{held: make(map[string]bool)}
}

func (l *fakeLocks) AcquireCallbackLock(id string) (bool, error) {
	if l.denyCallback {
		return false, nil
	}
	return l.acquire("callback:" + id), nil
}

func (l *fakeLocks) ReleaseCallbackLock(id string) error {
	l.release("callback:" + id)
	return nil
}

func (l *fakeLocks) AcquireCartLock(accountID int64) (bool, error) {
	if l.denyCart {
		return false, nil
	}
	return l.acquire(fmt.Sprintf("cart:%d", accountID)), nil
}

func (l *fakeLocks) ReleaseCartLock(accountID int64) error {
	l.release(fmt.Sprintf("cart:%d", accountID))
	return nil
}

func (l *fakeLocks) acquire(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return false
	}
	l.held[key] = true
	return true
}

func (l *fakeLocks) release(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.held, key)
}

// recordingNotifier captures every notification instead of sending it.
type recordingNotifier struct {
	mu     sync.Mutex
	sms    []string
	emails []string
}

func (n *recordingNotifier) SendSMS(phone, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sms = append(n.sms, phone+": "+message)
	return nil
}

func (n *recordingNotifier) SendEmail(to, subject, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, to+": "+subject)
	return nil
}

func testLogger() *logger.Logger {
	return logger.NewLogger()
}

type orchestratorFixture struct {
	store    *storage.InMemoryStore
	gateway  *fakeGateway
	notifier *recordingNotifier
	locks    *fakeLocks
	orch     *PaymentOrchestrator
}

func newOrchestratorFixture(t *testing.T) *orchestratorFixture {
	t.Helper()
	log := logger.NewLogger()
	producer, err := kafka.NewProducer(nil, true, log)
	require.NoError(t, err)

	f := &orchestratorFixture{
		store:    storage.NewInMemoryStore(),
		gateway:  &fakeGateway{},
		notifier: &recordingNotifier{},
		locks:    newFakeLocks(),
	}
	f.orch = NewPaymentOrchestrator(f.store, f.gateway, f.notifier, producer, f.locks, log)
	return f
}

// seedPendingOrder creates an account and a pending order ready for payment.
func (f *orchestratorFixture) seedPendingOrder(t *testing.T, totalCents int64) *models.Order {
	t.Helper()
	account := &models.Account{Username: "amina", Email: "amina@example.com"}
	require.NoError(t, f.store.CreateAccount(account))

	order := &models.Order{
		AccountID:  account.ID,
		Status:     models.OrderPending,
		Phone:      "254712345678",
		TotalCents: totalCents,
	}
	require.NoError(t, f.store.CreateOrder(order))
	return order
}

func successCallback(checkoutRequestID string, amountUnits float64) *models.CallbackEnvelope {
	envelope := &models.CallbackEnvelope{}
	envelope.Body.StkCallback = models.StkCallback{
		MerchantRequestID: "mr_test",
		CheckoutRequestID: checkoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: models.CallbackMetadata{
			Item: []models.CallbackItem{
				{Name: "Amount", Value: []byte(fmt.Sprintf("%g", amountUnits))},
				{Name: "MpesaReceiptNumber", Value: []byte(`"SFC7RK61TV"`)},
				{Name: "TransactionDate", Value: []byte("20240615143045")},
				{Name: "PhoneNumber", Value: []byte("254712345678")},
			},
		},
	}
	return envelope
}

func TestSimulatedPaymentConfirmsOrder(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)

	resp, err := f.orch.Initiate(context.Background(), &InitiateRequest{
		Phone:       "254712345678",
		AmountCents: 350_00,
		Ref:         models.DomainRef{OrderID: order.ID},
		Simulate:    true,
	})
	require.NoError(t, err)
	assert.True(t, resp.Accepted())
	assert.NotEmpty(t, resp.CheckoutRequestID)

	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, updated.Status)

	txn, err := f.store.GetTransactionByCheckoutRequestID(resp.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, int64(350_00), txn.AmountCents)
	assert.Equal(t, order.ID, txn.OrderID)
	assert.Zero(t, txn.ReservationID)
	assert.NotEmpty(t, txn.ReceiptNumber)

	assert.Len(t, f.notifier.sms, 1)
	assert.Len(t, f.notifier.emails, 1)
}

func TestReconcileCallbackIsIdempotent(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)
	ref := models.DomainRef{OrderID: order.ID}

	first, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_42", 350), ref)
	require.NoError(t, err)

	second, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_42", 350), ref)
	require.ErrorIs(t, err, ErrDuplicateCallback)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, first.ReceiptNumber, second.ReceiptNumber)

	// Side effects applied exactly once.
	assert.Len(t, f.notifier.sms, 1)
	assert.Len(t, f.notifier.emails, 1)

	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPaid, updated.Status)
}

func TestReconcileCallbackHeldLockWithoutResultAsksForRedelivery(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)
	ref := models.DomainRef{OrderID: order.ID}

	// The first delivery is still mid-commit; nothing recorded yet.
	f.locks.denyCallback = true
	txn, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_43", 350), ref)
	assert.ErrorIs(t, err, ErrCallbackInFlight)
	assert.Nil(t, txn)
	assert.Empty(t, f.notifier.sms)

	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, updated.Status)

	// Once the first delivery commits, a locked-out retry sees its result.
	f.locks.denyCallback = false
	first, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_43", 350), ref)
	require.NoError(t, err)

	f.locks.denyCallback = true
	second, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_43", 350), ref)
	assert.ErrorIs(t, err, ErrDuplicateCallback)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)
}

func TestReconcileCallbackMissingMetadataItem(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)
	ref := models.DomainRef{OrderID: order.ID}

	envelope := successCallback("ws_CO_44", 350)
	items := envelope.Body.StkCallback.CallbackMetadata.Item
	envelope.Body.StkCallback.CallbackMetadata.Item = items[:2] // drop TransactionDate and PhoneNumber

	_, err := f.orch.ReconcileCallback(context.Background(), envelope, ref)
	require.ErrorIs(t, err, ErrMalformedCallback)

	_, err = f.store.GetTransactionByCheckoutRequestID("ws_CO_44")
	assert.ErrorIs(t, err, storage.ErrNotFound)

	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, updated.Status)
}

func TestReconcileCallbackBadTransactionDate(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)

	envelope := successCallback("ws_CO_45", 350)
	for i, item := range envelope.Body.StkCallback.CallbackMetadata.Item {
		if item.Name == "TransactionDate" {
			envelope.Body.StkCallback.CallbackMetadata.Item[i].Value = []byte(`"not-a-date"`)
		}
	}

	_, err := f.orch.ReconcileCallback(context.Background(), envelope, models.DomainRef{OrderID: order.ID})
	require.ErrorIs(t, err, ErrMalformedCallback)
}

func TestReconcileCallbackDomainReference(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_46", 350), models.DomainRef{})
	assert.ErrorIs(t, err, ErrMissingDomainReference)

	_, err = f.orch.ReconcileCallback(context.Background(), successCallback("ws_CO_46", 350),
		models.DomainRef{OrderID: 1, ReservationID: 2})
	assert.ErrorIs(t, err, ErrInvalidDomainReference)
}

func TestReconcileCallbackFailureResultPersistsForAudit(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 350_00)

	envelope := successCallback("ws_CO_47", 350)
	envelope.Body.StkCallback.ResultCode = 1032
	envelope.Body.StkCallback.ResultDesc = "Request cancelled by user"

	txn, err := f.orch.ReconcileCallback(context.Background(), envelope, models.DomainRef{OrderID: order.ID})
	require.NoError(t, err)
	assert.Equal(t, 1032, txn.ResultCode)

	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderFailed, updated.Status)

	// No confirmation for a failed payment.
	assert.Empty(t, f.notifier.sms)
	assert.Empty(t, f.notifier.emails)
}

func TestInitiateValidatesRequest(t *testing.T) {
	f := newOrchestratorFixture(t)

	_, err := f.orch.Initiate(context.Background(), &InitiateRequest{
		Phone:       "254712345678",
		AmountCents: 100_00,
	})
	assert.ErrorIs(t, err, ErrInvalidDomainReference)

	_, err = f.orch.Initiate(context.Background(), &InitiateRequest{
		Phone:       "254712345678",
		AmountCents: -1,
		Ref:         models.DomainRef{OrderID: 1},
	})
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestInitiateLivePathReturnsGatewayAck(t *testing.T) {
	f := newOrchestratorFixture(t)
	order := f.seedPendingOrder(t, 120_00)
	f.gateway.pushResp = &models.STKPushResponse{
		MerchantRequestID: "mr_live",
		CheckoutRequestID: "ws_CO_live",
		ResponseCode:      "0",
	}

	resp, err := f.orch.Initiate(context.Background(), &InitiateRequest{
		Phone:       "254712345678",
		AmountCents: 120_00,
		Ref:         models.DomainRef{OrderID: order.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, "ws_CO_live", resp.CheckoutRequestID)
	assert.Equal(t, int64(120_00), f.gateway.lastAmountCents)
	assert.Equal(t, fmt.Sprintf("order-%d", order.ID), f.gateway.lastReference)

	// Nothing settles until the callback arrives.
	updated, err := f.store.GetOrder(order.ID)
	require.NoError(t, err)
	assert.Equal(t, models.OrderPending, updated.Status)
}

func TestSimulatedPaymentReservation(t *testing.T) {
	f := newOrchestratorFixture(t)
	account := &models.Account{Username: "joy", Email: "joy@example.com"}
	require.NoError(t, f.store.CreateAccount(account))

	reservation := &models.Reservation{
		AccountID:       account.ID,
		ReservationTime: time.Date(2026, 9, 12, 19, 0, 0, 0, time.UTC),
		TableNumber:     4,
		Phone:           "254712345678",
		Status:          models.ReservationPending,
	}
	require.NoError(t, f.store.CreateReservation(reservation))

	resp, err := f.orch.Initiate(context.Background(), &InitiateRequest{
		Phone:       "254712345678",
		AmountCents: 1_00,
		Ref:         models.DomainRef{ReservationID: reservation.ID},
		Simulate:    true,
	})
	require.NoError(t, err)

	updated, err := f.store.GetReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, updated.Status)

	txn, err := f.store.GetTransactionByCheckoutRequestID(resp.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, reservation.ID, txn.ReservationID)
	assert.Zero(t, txn.OrderID)
}
