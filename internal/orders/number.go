package orders

import (
	"crypto/rand"
	"time"
)

const orderNumberAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// newOrderNumber renders ORD-YYYYMMDD-XXXXXX for the UTC day of at.
func newOrderNumber(at time.Time) (string, error) {
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return "", err
	}
	for i, b := range suffix {
		suffix[i] = orderNumberAlphabet[int(b)%len(orderNumberAlphabet)]
	}
	return "ORD-" + at.UTC().Format("20060102") + "-" + string(suffix), nil
}
