package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bahari-bites/internal/models"
)

func TestDepositCentsBrackets(t *testing.T) {
	day := func(hour, minute int) time.Time {
		return time.Date(2026, 9, 12, hour, minute, 0, 0, time.UTC)
	}

	tests := []struct {
		name string
		slot time.Time
		want int64
	}{
		{"early morning", day(7, 30), 3_00},
		{"just before noon", day(11, 59), 3_00},
		{"noon boundary joins afternoon", day(12, 0), 2_00},
		{"afternoon", day(15, 45), 2_00},
		{"just before evening", day(17, 59), 2_00},
		{"evening boundary joins evening", day(18, 0), 1_00},
		{"late evening", day(23, 59), 1_00},
		{"midnight restarts the cycle", day(0, 0), 3_00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DepositCents(tt.slot))
		})
	}
}

func newReservationFixture(t *testing.T) (*orchestratorFixture, *ReservationService, *models.Account) {
	t.Helper()
	base := newOrchestratorFixture(t)
	account := &models.Account{Username: "wanjiru", Email: "wanjiru@example.com"}
	require.NoError(t, base.store.CreateAccount(account))
	return base, NewReservationService(base.store, base.orch, testLogger()), account
}

func TestBookSimulatedConfirmsReservation(t *testing.T) {
	f, reservations, account := newReservationFixture(t)

	reservation, ack, err := reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "2026-09-12T19:30",
		TableNumber:     6,
		Phone:           "0712345678",
		Simulate:        true,
	})
	require.NoError(t, err)
	require.NotNil(t, ack)
	assert.True(t, ack.Accepted())
	assert.Equal(t, models.ReservationConfirmed, reservation.Status)

	confirmed, err := f.store.GetReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationConfirmed, confirmed.Status)

	// Evening slot pays the lowest deposit.
	txn, err := f.store.GetTransactionByCheckoutRequestID(ack.CheckoutRequestID)
	require.NoError(t, err)
	assert.Equal(t, int64(1_00), txn.AmountCents)
}

func TestBookValidations(t *testing.T) {
	_, reservations, account := newReservationFixture(t)

	_, _, err := reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "next thursday",
		TableNumber:     6,
		Phone:           "0712345678",
	})
	assert.ErrorIs(t, err, ErrInvalidReservationTime)

	_, _, err = reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "2026-09-12T19:30",
		TableNumber:     0,
		Phone:           "0712345678",
	})
	assert.ErrorIs(t, err, ErrInvalidTableNumber)
}

func TestBookGatewayErrorMarksReservationFailed(t *testing.T) {
	f, reservations, account := newReservationFixture(t)
	f.gateway.pushResp = &models.STKPushResponse{ResponseCode: "1"}

	reservation, _, err := reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "2026-09-12T09:00",
		TableNumber:     2,
		Phone:           "0712345678",
	})
	require.ErrorIs(t, err, ErrGatewayRejected)
	assert.Equal(t, models.ReservationFailed, reservation.Status)

	failed, err := f.store.GetReservation(reservation.ID)
	require.NoError(t, err)
	assert.Equal(t, models.ReservationFailed, failed.Status)

	// Morning slot would have been charged the highest deposit.
	assert.Equal(t, int64(3_00), f.gateway.lastAmountCents)
}

func TestConfirmationQR(t *testing.T) {
	f, reservations, account := newReservationFixture(t)

	reservation, _, err := reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "2026-09-12T19:30",
		TableNumber:     6,
		Phone:           "0712345678",
		Simulate:        true,
	})
	require.NoError(t, err)

	confirmed, err := f.store.GetReservation(reservation.ID)
	require.NoError(t, err)
	require.Equal(t, models.ReservationConfirmed, confirmed.Status)

	png, err := reservations.ConfirmationQR(account.ID, reservation.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, png)
	// PNG magic bytes.
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, png[:4])
}

func TestConfirmationQRRequiresConfirmedStatus(t *testing.T) {
	f, reservations, account := newReservationFixture(t)
	f.gateway.pushResp = &models.STKPushResponse{ResponseCode: "1"}

	reservation, _, err := reservations.Book(context.Background(), account.ID, &models.ReservationRequest{
		ReservationTime: "2026-09-12T19:30",
		TableNumber:     6,
		Phone:           "0712345678",
	})
	require.ErrorIs(t, err, ErrGatewayRejected)

	_, err = reservations.ConfirmationQR(account.ID, reservation.ID)
	assert.ErrorIs(t, err, ErrReservationNotPaid)
}
