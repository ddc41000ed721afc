package booking

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const deliveryTokenBytes = 32

// NewDeliveryToken returns a URL-safe capability secret.
func NewDeliveryToken() (string, error) {
	buf := make([]byte, deliveryTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
