package utils

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidPhone = errors.New("invalid phone number")

// NormalizePhone converts a Kenyan mobile number to the 2547XXXXXXXX form the
// gateway requires. Accepts "07...", "+2547...", "2547..." and "7...".
func NormalizePhone(phone string) (string, error) {
	p := strings.TrimSpace(phone)
	p = strings.TrimPrefix(p, "+")
	p = strings.ReplaceAll(p, " ", "")

	switch {
	case strings.HasPrefix(p, "254"):
		// already international form
	case strings.HasPrefix(p, "0"):
		p = "254" + p[1:]
	case strings.HasPrefix(p, "7") || strings.HasPrefix(p, "1"):
		p = "254" + p
	default:
		return "", ErrInvalidPhone
	}

	if len(p) != 12 {
		return "", ErrInvalidPhone
	}
	for _, c := range p {
		if c < '0' || c > '9' {
			return "", ErrInvalidPhone
		}
	}
	return p, nil
}

// FormatCents renders an integer-cents amount as a fixed 2-dp decimal string.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
