package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	qrcode "github.com/skip2/go-qrcode"

	"bahari-bites/internal/logger"
	"bahari-bites/internal/models"
	"bahari-bites/internal/storage"
	"bahari-bites/internal/utils"
)

var (
	ErrInvalidReservationTime = errors.New("invalid reservation time")
	ErrReservationNotPaid     = errors.New("reservation is not confirmed")
	ErrInvalidTableNumber     = errors.New("table number must be positive")
)

// reservationTimeLayouts are the accepted formats for the requested slot, in
// order of preference.
var reservationTimeLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04",
	"2006-01-02 15:04",
}

// ReservationService books tables. Booking costs a small deposit that varies
// by time of day and is collected through the same payment flow as orders.
type ReservationService struct {
	store    storage.Store
	payments *PaymentOrchestrator
	log      *logger.Logger
}

func NewReservationService(store storage.Store, payments *PaymentOrchestrator, log *logger.Logger) *ReservationService {
	return &ReservationService{
		store:    store,
		payments: payments,
		log:      log,
	}
}

// DepositCents returns the booking deposit for a slot. Mornings carry the
// highest deposit, evenings the lowest; a boundary instant belongs to the
// later bracket.
//
//	[00:00, 12:00) -> 3 units
//	[12:00, 18:00) -> 2 units
//	[18:00, 24:00) -> 1 unit
func DepositCents(slot time.Time) int64 {
	switch hour := slot.Hour(); {
	case hour < 12:
		return 3_00
	case hour < 18:
		return 2_00
	default:
		return 1_00
	}
}

// Book creates a pending reservation for the requested slot and initiates the
// deposit payment. The reservation confirms when the payment callback does.
func (s *ReservationService) Book(ctx context.Context, accountID int64, req *models.ReservationRequest) (*models.Reservation, *models.STKPushResponse, error) {
	slot, err := parseReservationTime(req.ReservationTime)
	if err != nil {
		return nil, nil, err
	}
	if req.TableNumber <= 0 {
		return nil, nil, ErrInvalidTableNumber
	}
	phone, err := utils.NormalizePhone(req.Phone)
	if err != nil {
		return nil, nil, err
	}

	deposit := DepositCents(slot)
	if deposit > maxPaymentCents {
		return nil, nil, ErrAmountTooLarge
	}

	reservation := &models.Reservation{
		AccountID:       accountID,
		ReservationTime: slot,
		TableNumber:     req.TableNumber,
		Phone:           phone,
		Status:          models.ReservationPending,
	}
	if err := s.store.CreateReservation(reservation); err != nil {
		return nil, nil, err
	}

	s.log.LogProcess("RESERVATION", fmt.Sprintf("Reservation %d created for table %d at %s, deposit %s",
		reservation.ID, reservation.TableNumber, slot.Format("2006-01-02 15:04"), utils.FormatCents(deposit)))

	resp, err := s.payments.Initiate(ctx, &InitiateRequest{
		Phone:       phone,
		AmountCents: deposit,
		Ref:         models.DomainRef{ReservationID: reservation.ID},
		Simulate:    req.Simulate,
	})
	if err != nil || !resp.Accepted() {
		if updateErr := s.store.UpdateReservationStatus(reservation.ID, models.ReservationFailed); updateErr != nil {
			s.log.Error("RESERVATION", fmt.Sprintf("Failed to mark reservation %d failed: %v", reservation.ID, updateErr))
		}
		reservation.Status = models.ReservationFailed
		if err != nil {
			return reservation, nil, err
		}
		return reservation, resp, ErrGatewayRejected
	}

	// A simulated deposit reconciles synchronously; return the settled row.
	if req.Simulate {
		if settled, readErr := s.store.GetReservation(reservation.ID); readErr == nil {
			reservation = settled
		}
	}
	return reservation, resp, nil
}

// Get fetches a reservation, enforcing that it belongs to the account.
func (s *ReservationService) Get(accountID, reservationID int64) (*models.Reservation, error) {
	reservation, err := s.store.GetReservation(reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.AccountID != accountID {
		return nil, storage.ErrNotFound
	}
	return reservation, nil
}

// ConfirmationQR renders the door pass for a confirmed reservation as a PNG.
func (s *ReservationService) ConfirmationQR(accountID, reservationID int64) ([]byte, error) {
	reservation, err := s.Get(accountID, reservationID)
	if err != nil {
		return nil, err
	}
	if reservation.Status != models.ReservationConfirmed {
		return nil, ErrReservationNotPaid
	}

	payload := fmt.Sprintf("bahari-bites:reservation:%d:table:%d:%s",
		reservation.ID, reservation.TableNumber, reservation.ReservationTime.Format("200601021504"))
	png, err := qrcode.Encode(payload, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("failed to render QR code: %w", err)
	}
	return png, nil
}

func parseReservationTime(raw string) (time.Time, error) {
	for _, layout := range reservationTimeLayouts {
		if slot, err := time.Parse(layout, raw); err == nil {
			return slot, nil
		}
	}
	return time.Time{}, ErrInvalidReservationTime
}
