package stripe

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/webhook"

	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
)

const SignatureHeader = "Stripe-Signature"

// signatureTolerance bounds the age of the signed header timestamp. Event
// freshness is checked separately by the payment receiver.
const signatureTolerance = 5 * time.Minute

type WebhookVerifier struct {
	secret string
}

func NewWebhookVerifier(secret string) *WebhookVerifier {
	return &WebhookVerifier{secret: secret}
}

// Verify authenticates payload against the signature header and decodes it.
// Any failure is an AuthenticationError; nothing is decoded from an
// unauthenticated body.
func (v *WebhookVerifier) Verify(payload []byte, signature string) (*domain.PaymentEvent, error) {
	if v.secret == "" {
		return nil, apperrors.NewAuthenticationError("payment webhook secret not configured")
	}
	if signature == "" {
		return nil, apperrors.NewAuthenticationError("missing payment signature")
	}

	event, err := webhook.ConstructEventWithOptions(payload, signature, v.secret, webhook.ConstructEventOptions{
		Tolerance:                signatureTolerance,
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, apperrors.NewAuthenticationError(fmt.Sprintf("invalid payment signature: %v", err))
	}

	out := &domain.PaymentEvent{
		ID:        event.ID,
		Type:      string(event.Type),
		CreatedAt: time.Unix(event.Created, 0).UTC(),
	}

	if out.Type != domain.PaymentEventCheckoutCompleted {
		return out, nil
	}
	if event.Data == nil {
		return nil, fmt.Errorf("event %s has no data", event.ID)
	}

	var sess stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
		return nil, fmt.Errorf("decoding checkout session: %w", err)
	}

	out.SessionID = sess.ID
	out.AmountTotal = sess.AmountTotal
	out.Currency = string(sess.Currency)
	out.Metadata = sess.Metadata
	if sess.PaymentIntent != nil {
		out.PaymentIntentID = sess.PaymentIntent.ID
	}

	return out, nil
}
