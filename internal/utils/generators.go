package utils

import (
	"crypto/rand"
	"math/big"
	"strings"

	"github.com/google/uuid"
)

// GenerateReceiptNumber fabricates a gateway-style receipt number for
// simulated payments: ten uppercase alphanumerics, e.g. "SFD3DXL5ID".
func GenerateReceiptNumber() string {
	const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	var b strings.Builder
	for i := 0; i < 10; i++ {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		b.WriteByte(alphabet[n.Int64()])
	}
	return b.String()
}

// GenerateMerchantRequestID mints a unique merchant request id for a simulated
// push. Uniqueness matters: the id is the reconciliation idempotency key's
// sibling and must never collide across attempts.
func GenerateMerchantRequestID() string {
	return "mr_" + uuid.NewString()
}

// GenerateCheckoutRequestID mints a unique checkout request id for a simulated
// push, shaped like the gateway's ws_CO_ prefix.
func GenerateCheckoutRequestID() string {
	return "ws_CO_" + uuid.NewString()
}

// GenerateEventID mints the id stamped on every published payment event so
// downstream consumers can deduplicate.
func GenerateEventID() string {
	return uuid.NewString()
}
