package stripe

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"avatarbook/internal/domain"
)

// CheckoutGateway creates hosted Stripe Checkout sessions.
type CheckoutGateway struct {
	api *client.API
}

// NewCheckoutGateway builds a client for secretKey. backends may be nil to use
// the live Stripe endpoints.
func NewCheckoutGateway(secretKey string, backends *stripe.Backends) *CheckoutGateway {
	return &CheckoutGateway{api: client.New(secretKey, backends)}
}

func (g *CheckoutGateway) CreateSession(ctx context.Context, req domain.CheckoutSessionRequest) (*domain.CheckoutSession, error) {
	metadata := map[string]string{
		domain.MetadataOrderID:     req.OrderID,
		domain.MetadataOrderNumber: req.OrderNumber,
		domain.MetadataOrderType:   string(req.OrderType),
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModePayment)),
		ClientReferenceID: stripe.String(req.OrderID),
		CustomerEmail:     stripe.String(req.CustomerEmail),
		SuccessURL:        stripe.String(req.SuccessURL),
		CancelURL:         stripe.String(req.CancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Quantity: stripe.Int64(1),
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.UnitAmount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(req.ProductName),
						Description: stripe.String(req.Description),
					},
				},
			},
		},
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: metadata,
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}

	sess, err := g.api.CheckoutSessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("creating checkout session: %w", err)
	}

	return &domain.CheckoutSession{ID: sess.ID, URL: sess.URL}, nil
}
