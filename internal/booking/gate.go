package booking

import (
	"crypto/subtle"

	"avatarbook/internal/config"
)

// InternalKeyHeader carries the operator key that unlocks test-mode bookings.
const InternalKeyHeader = "X-Internal-Key"

// TestModeGate decides whether a booking may skip the scheduling window. The
// client flag alone is never enough.
type TestModeGate struct {
	enabled bool
	key     []byte
}

func NewTestModeGate(cfg config.BookingConfig) TestModeGate {
	return TestModeGate{
		enabled: cfg.AllowTestMode,
		key:     []byte(cfg.InternalKey),
	}
}

func (g TestModeGate) Allows(requested bool, presentedKey string) bool {
	if !requested || !g.enabled || len(g.key) == 0 {
		return false
	}
	return subtle.ConstantTimeCompare(g.key, []byte(presentedKey)) == 1
}
