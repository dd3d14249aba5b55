// Package xid mints process-local identifiers, mainly idempotency keys
// for sale commits. Uniqueness only has to hold within one terminal.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>-<unix nanos>-<random hex>". When the random
// source fails, the timestamp alone still keeps keys apart on a single
// register.
func New(prefix string) string {
	nanos := time.Now().UnixNano()
	suffix := make([]byte, 6)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("%s-%d", prefix, nanos)
	}
	return fmt.Sprintf("%s-%d-%s", prefix, nanos, hex.EncodeToString(suffix))
}
