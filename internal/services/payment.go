package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"bahari-bites/internal/kafka"
	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/notify"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

var (
	// ErrMalformedCallback covers a callback missing any of the four required
	// metadata items or carrying an unparseable transaction date.
	ErrMalformedCallback = errors.New("malformed callback payload")
	// ErrMissingDomainReference means the callback cannot be tied to an order
	// or a reservation.
	ErrMissingDomainReference = errors.New("no order or reservation reference")
	// ErrInvalidDomainReference means a reference names both an order and a
	// reservation, or neither.
	ErrInvalidDomainReference = errors.New("reference must name exactly one of order or reservation")
	// ErrDuplicateCallback is the idempotent short-circuit: this
	// checkout-request-id was already reconciled. Callers still ack the
	// provider with result code 0 so it stops retrying.
	ErrDuplicateCallback = errors.New("duplicate callback delivery")
	// ErrCallbackInFlight means another delivery holds the reconciliation lock
	// and no result has been recorded yet. Callers must answer with a non-2xx
	// status so the provider redelivers once the in-flight attempt settles.
	ErrCallbackInFlight = errors.New("callback reconciliation in progress")
	// ErrInvalidAmount rejects negative payment amounts.
	ErrInvalidAmount = errors.New("amount must not be negative")
)

const mpesaTimestampLayout = "20060102150405"

// Gateway is the slice of the M-Pesa client the orchestrator needs.
type Gateway interface {
	STKPush(ctx context.Context, phone string, amountCents int64, reference string) (*models.STKPushResponse, error)
	Reverse(ctx context.Context, transactionID string, amountCents int64) (*models.ReversalResponse, error)
}

// CallbackLock serializes concurrent reconciliation of one checkout-request-id.
type CallbackLock interface {
	AcquireCallbackLock(checkoutRequestID string) (bool, error)
	ReleaseCallbackLock(checkoutRequestID string) error
}

// PaymentOrchestrator drives the lifecycle of a payment attempt:
// initiation, optional simulated completion, and callback reconciliation.
// One attempt moves Initiated -> AwaitingCallback -> Reconciled; the simulate
// path collapses all three into a single synchronous call by feeding a
// fabricated callback through the same reconciliation routine as the live one.
type PaymentOrchestrator struct {
	store    storage.Store
	gateway  Gateway
	notifier notify.Notifier
	producer *kafka.Producer
	locks    CallbackLock
	log      *logger.Logger

	now func() time.Time
}

func NewPaymentOrchestrator(
	store storage.Store,
	gateway Gateway,
	notifier notify.Notifier,
	producer *kafka.Producer,
	locks CallbackLock,
	log *logger.Logger,
) *PaymentOrchestrator {
	return &PaymentOrchestrator{
		store:    store,
		gateway:  gateway,
		notifier: notifier,
		producer: producer,
		locks:    locks,
		log:      log,
		now:      time.Now,
	}
}

type InitiateRequest struct {
	Phone       string
	AmountCents int64
	Ref         models.DomainRef
	Simulate    bool
}

// Initiate dispatches a push payment. The returned acknowledgement only means
// the push prompt went out (ResponseCode "0"); the money moves, or doesn't,
// when the provider posts the callback. Amount bounds beyond non-negativity
// are business policy and belong to the calling service, not here.
func (o *PaymentOrchestrator) Initiate(ctx context.Context, req *InitiateRequest) (*models.STKPushResponse, error) {
	if !req.Ref.Valid() {
		return nil, ErrInvalidDomainReference
	}
	if req.AmountCents < 0 {
		return nil, ErrInvalidAmount
	}

	reference := o.referenceLabel(req.Ref)

	if req.Simulate {
		return o.simulate(ctx, req, reference)
	}

	o.log.LogPayment("INITIATE", reference, fmt.Sprintf("Initiating push payment of %s to %s",
		utils.FormatCents(req.AmountCents), req.Phone))

	resp, err := o.gateway.STKPush(ctx, req.Phone, req.AmountCents, reference)
	if err != nil {
		o.log.LogPayment("INITIATE_FAILED", reference, err.Error())
		return nil, err
	}
	return resp, nil
}

// simulate fabricates a successful gateway exchange and reconciles it
// synchronously. Exists so the full flow can be exercised end to end without
// a live gateway.
func (o *PaymentOrchestrator) simulate(ctx context.Context, req *InitiateRequest, reference string) (*models.STKPushResponse, error) {
	now := o.now()

	resp := &models.STKPushResponse{
		MerchantRequestID:   utils.GenerateMerchantRequestID(),
		CheckoutRequestID:   utils.GenerateCheckoutRequestID(),
		ResponseCode:        "0",
		ResponseDescription: "Success. Request accepted for processing",
		CustomerMessage:     "Success. Request accepted for processing",
	}

	o.log.LogPayment("SIMULATE", reference, fmt.Sprintf("Fabricating successful callback for checkout request %s", resp.CheckoutRequestID))

	envelope := synthesizeCallback(resp, req.AmountCents, req.Phone, now)
	if _, err := o.ReconcileCallback(ctx, envelope, req.Ref); err != nil {
		return nil, err
	}
	return resp, nil
}

// ReconcileCallback validates the provider's callback, persists exactly one
// PaymentTransaction and applies the success/failure side effects. The whole
// operation is all-or-nothing around the persistence commit: a validation or
// parse failure leaves no partial state.
//
// Callbacks can be delivered more than once; the checkout-request-id is the
// idempotency key. A duplicate returns the previously recorded transaction
// with ErrDuplicateCallback and applies nothing.
func (o *PaymentOrchestrator) ReconcileCallback(ctx context.Context, envelope *models.CallbackEnvelope, ref models.DomainRef) (*models.PaymentTransaction, error) {
	if ref.OrderID == 0 && ref.ReservationID == 0 {
		return nil, ErrMissingDomainReference
	}
	if !ref.Valid() {
		return nil, ErrInvalidDomainReference
	}

	cb := envelope.Body.StkCallback
	if cb.CheckoutRequestID == "" {
		return nil, fmt.Errorf("%w: CheckoutRequestID missing", ErrMalformedCallback)
	}

	details, err := cb.CallbackMetadata.Details()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCallback, err)
	}

	transactionDate, err := time.Parse(mpesaTimestampLayout, details.TransactionDate)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid TransactionDate %q", ErrMalformedCallback, details.TransactionDate)
	}

	// Serialize on the checkout-request-id so concurrent deliveries cannot
	// double-apply side effects; the unique constraint on the transaction row
	// is the backstop.
	acquired, err := o.locks.AcquireCallbackLock(cb.CheckoutRequestID)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire callback lock: %w", err)
	}
	if !acquired {
		if prior, lookupErr := o.store.GetTransactionByCheckoutRequestID(cb.CheckoutRequestID); lookupErr == nil {
			return prior, ErrDuplicateCallback
		}
		// The lock holder has not committed yet, or died before committing.
		// Nothing is recorded, so this delivery must not be acknowledged.
		o.log.LogPayment("IN_FLIGHT", cb.CheckoutRequestID, "Reconciliation lock held and no result recorded, requesting redelivery")
		return nil, ErrCallbackInFlight
	}
	defer o.locks.ReleaseCallbackLock(cb.CheckoutRequestID)

	if prior, err := o.store.GetTransactionByCheckoutRequestID(cb.CheckoutRequestID); err == nil {
		o.log.LogPayment("DUPLICATE", cb.CheckoutRequestID, "Callback already reconciled, returning prior result")
		return prior, ErrDuplicateCallback
	}

	txn := &models.PaymentTransaction{
		MerchantRequestID: cb.MerchantRequestID,
		CheckoutRequestID: cb.CheckoutRequestID,
		ResultCode:        cb.ResultCode,
		ResultDescription: cb.ResultDesc,
		AmountCents:       int64(math.Round(details.Amount * 100)),
		ReceiptNumber:     details.ReceiptNumber,
		TransactionDate:   transactionDate,
		Phone:             details.PhoneNumber,
		OrderID:           ref.OrderID,
		ReservationID:     ref.ReservationID,
		CreatedAt:         o.now(),
	}

	if err := o.store.ReconcilePayment(txn); err != nil {
		if errors.Is(err, storage.ErrDuplicateTransaction) {
			if prior, lookupErr := o.store.GetTransactionByCheckoutRequestID(cb.CheckoutRequestID); lookupErr == nil {
				return prior, ErrDuplicateCallback
			}
			return nil, ErrDuplicateCallback
		}
		o.log.Error("PAYMENT", fmt.Sprintf("Failed to persist reconciliation for %s: %v", cb.CheckoutRequestID, err))
		return nil, fmt.Errorf("failed to persist reconciliation: %w", err)
	}

	if txn.ResultCode == 0 {
		o.log.LogPayment("RECONCILED", cb.CheckoutRequestID, fmt.Sprintf("Payment of %s confirmed, receipt %s",
			utils.FormatCents(txn.AmountCents), txn.ReceiptNumber))
		o.notifySuccess(txn)
		o.publishEvent("payment.success", txn)
	} else {
		o.log.LogPayment("RECONCILED", cb.CheckoutRequestID, fmt.Sprintf("Payment failed with result %d: %s",
			txn.ResultCode, txn.ResultDescription))
		o.publishEvent("payment.failed", txn)
	}

	return txn, nil
}

// Reverse submits an operator-triggered corrective reversal. Never invoked by
// the order/reservation flow.
func (o *PaymentOrchestrator) Reverse(ctx context.Context, transactionID string, amountCents int64) (*models.ReversalResponse, error) {
	if amountCents < 0 {
		return nil, ErrInvalidAmount
	}

	o.log.LogPayment("REVERSE", transactionID, fmt.Sprintf("Operator reversal of %s requested", utils.FormatCents(amountCents)))

	resp, err := o.gateway.Reverse(ctx, transactionID, amountCents)
	if err != nil {
		return nil, err
	}

	o.publishEvent("payment.reversed", &models.PaymentTransaction{
		CheckoutRequestID: transactionID,
		AmountCents:       amountCents,
	})
	return resp, nil
}

// notifySuccess sends the confirmation SMS and email. Failures are logged and
// swallowed; a lost text never unwinds a reconciled payment.
func (o *PaymentOrchestrator) notifySuccess(txn *models.PaymentTransaction) {
	var (
		contactPhone string
		accountID    int64
		subject      string
		body         string
	)

	switch {
	case txn.OrderID != 0:
		order, err := o.store.GetOrder(txn.OrderID)
		if err != nil {
			o.log.Warn("NOTIFY", fmt.Sprintf("Cannot notify, order %d not found: %v", txn.OrderID, err))
			return
		}
		contactPhone = order.Phone
		accountID = order.AccountID
		subject = fmt.Sprintf("Order #%d confirmed", order.ID)
		body = fmt.Sprintf("Your order #%d of KES %s has been paid. M-Pesa receipt %s.",
			order.ID, utils.FormatCents(txn.AmountCents), txn.ReceiptNumber)
	case txn.ReservationID != 0:
		reservation, err := o.store.GetReservation(txn.ReservationID)
		if err != nil {
			o.log.Warn("NOTIFY", fmt.Sprintf("Cannot notify, reservation %d not found: %v", txn.ReservationID, err))
			return
		}
		contactPhone = reservation.Phone
		accountID = reservation.AccountID
		subject = fmt.Sprintf("Reservation #%d confirmed", reservation.ID)
		body = fmt.Sprintf("Table %d is reserved for you on %s. M-Pesa receipt %s.",
			reservation.TableNumber, reservation.ReservationTime.Format("Mon 2 Jan 15:04"), txn.ReceiptNumber)
	default:
		return
	}

	if err := o.notifier.SendSMS(contactPhone, body); err != nil {
		o.log.Error("NOTIFY", fmt.Sprintf("SMS delivery failed for checkout request %s: %v", txn.CheckoutRequestID, err))
	}

	account, err := o.store.GetAccount(accountID)
	if err != nil {
		o.log.Warn("NOTIFY", fmt.Sprintf("Cannot email, account %d not found: %v", accountID, err))
		return
	}
	if err := o.notifier.SendEmail(account.Email, subject, body); err != nil {
		o.log.Error("NOTIFY", fmt.Sprintf("Email delivery failed for checkout request %s: %v", txn.CheckoutRequestID, err))
	}
}

func (o *PaymentOrchestrator) publishEvent(eventType string, txn *models.PaymentTransaction) {
	event := &models.PaymentEvent{
		EventID:       utils.GenerateEventID(),
		Type:          eventType,
		CheckoutReqID: txn.CheckoutRequestID,
		Transaction:   txn,
		Timestamp:     o.now(),
	}
	if err := o.producer.PublishPaymentEvent(event); err != nil {
		o.log.Error("KAFKA", fmt.Sprintf("Failed to publish %s event for checkout request %s: %v",
			eventType, txn.CheckoutRequestID, err))
	}
}

func (o *PaymentOrchestrator) referenceLabel(ref models.DomainRef) string {
	if ref.OrderID != 0 {
		return fmt.Sprintf("order-%d", ref.OrderID)
	}
	return fmt.Sprintf("reservation-%d", ref.ReservationID)
}

// synthesizeCallback builds the callback payload the provider would have sent
// for a successful payment, echoing the amount and phone of the request.
func synthesizeCallback(resp *models.STKPushResponse, amountCents int64, phone string, now time.Time) *models.CallbackEnvelope {
	envelope := &models.CallbackEnvelope{}
	envelope.Body.StkCallback = models.StkCallback{
		MerchantRequestID: resp.MerchantRequestID,
		CheckoutRequestID: resp.CheckoutRequestID,
		ResultCode:        0,
		ResultDesc:        "The service request is processed successfully.",
		CallbackMetadata: models.CallbackMetadata{
			Item: []models.CallbackItem{
				{Name: "Amount", Value: jsonNumber(float64(amountCents) / 100)},
				{Name: "MpesaReceiptNumber", Value: jsonString(utils.GenerateReceiptNumber())},
				{Name: "TransactionDate", Value: jsonString(now.Format(mpesaTimestampLayout))},
				{Name: "PhoneNumber", Value: jsonString(phone)},
			},
		},
	}
	return envelope
}

func jsonString(s string) []byte {
	return []byte(fmt.Sprintf("%q", s))
}

func jsonNumber(f float64) []byte {
	return []byte(fmt.Sprintf("%g", f))
}
