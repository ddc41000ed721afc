package product

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"avatarbook/internal/config"
	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
)

type catalog struct {
	products map[domain.OrderType]domain.Product
}

// NewCatalog converts the configured decimal prices to minor units. Prices
// with more than two decimal places are rejected rather than rounded.
func NewCatalog(cfg config.PricingConfig) (Catalog, error) {
	currency := strings.ToLower(strings.TrimSpace(cfg.Currency))
	if len(currency) != 3 {
		return nil, fmt.Errorf("pricing.currency must be an ISO 4217 code, got %q", cfg.Currency)
	}

	video, err := minorUnits("pricing.videoPrice", cfg.VideoPrice)
	if err != nil {
		return nil, err
	}
	call, err := minorUnits("pricing.callPrice", cfg.CallPrice)
	if err != nil {
		return nil, err
	}

	return &catalog{
		products: map[domain.OrderType]domain.Product{
			domain.OrderTypeVideo: {
				OrderType:   domain.OrderTypeVideo,
				Name:        "Personalized avatar video",
				Description: "A pre-recorded video message made for your child",
				UnitAmount:  video,
				Currency:    currency,
			},
			domain.OrderTypeCall: {
				OrderType:   domain.OrderTypeCall,
				Name:        "Live avatar video call",
				Description: "A scheduled live video call with the avatar",
				UnitAmount:  call,
				Currency:    currency,
			},
		},
	}, nil
}

func (c *catalog) ForOrderType(orderType domain.OrderType) (domain.Product, error) {
	p, ok := c.products[orderType]
	if !ok {
		return domain.Product{}, apperrors.NewNotFoundError(fmt.Sprintf("no product for order type %q", orderType))
	}
	return p, nil
}

func (c *catalog) List() []domain.Product {
	return []domain.Product{c.products[domain.OrderTypeVideo], c.products[domain.OrderTypeCall]}
}

func minorUnits(key, raw string) (int64, error) {
	price, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	if !price.IsPositive() {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	cents := price.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%s has more than two decimal places", key)
	}
	return cents.IntPart(), nil
}

// DisplayPrice renders minor units as a fixed two-decimal amount.
func DisplayPrice(unitAmount int64) string {
	return decimal.New(unitAmount, -2).StringFixed(2)
}
