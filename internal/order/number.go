package order

import (
	"crypto/rand"
	"fmt"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewNumber builds the human-readable order number, e.g. ORD-20260831-K3F.
// It doubles as the payment gateway's reconciliation reference. The 3-char
// suffix keeps the historical format; collisions within a day are possible
// and handled by the caller's single retry.
func NewNumber(now time.Time) string {
	var b [3]byte
	if _, err := rand.Read(b[:]); err != nil {
		panic(err) // crypto/rand never fails on supported platforms
	}
	for i := range b {
		b[i] = numberAlphabet[int(b[i])%len(numberAlphabet)]
	}
	return fmt.Sprintf("ORD-%s-%s", now.Format("20060102"), b)
}
