package orders

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"
)

const numberAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// NewOrderNumber builds a human-readable order number of the form
// SL-<base36 timestamp>-<4 random chars>. Collisions are possible in
// theory; the unique index on orders.number is the final authority and
// placement retries on violation.
func NewOrderNumber(now time.Time) string {
	ts := strings.ToUpper(big.NewInt(now.UTC().UnixMilli()).Text(36))

	suffix := make([]byte, 4)
	max := big.NewInt(int64(len(numberAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the OS entropy source is
			// broken; fall back to a time-derived char.
			suffix[i] = numberAlphabet[now.UnixNano()%int64(len(numberAlphabet))]
			continue
		}
		suffix[i] = numberAlphabet[n.Int64()]
	}
	return fmt.Sprintf("SL-%s-%s", ts, string(suffix))
}
