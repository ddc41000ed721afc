package product

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"avatarbook/internal/config"
	"avatarbook/internal/domain"
	apperrors "avatarbook/internal/errors"
)

func testPricing() config.PricingConfig {
	return config.PricingConfig{Currency: "USD", VideoPrice: "29.00", CallPrice: "49.5"}
}

func TestNewCatalog_ConvertsToMinorUnits(t *testing.T) {
	catalog, err := NewCatalog(testPricing())
	require.NoError(t, err)

	video, err := catalog.ForOrderType(domain.OrderTypeVideo)
	require.NoError(t, err)
	assert.Equal(t, int64(2900), video.UnitAmount)
	assert.Equal(t, "usd", video.Currency)

	call, err := catalog.ForOrderType(domain.OrderTypeCall)
	require.NoError(t, err)
	assert.Equal(t, int64(4950), call.UnitAmount)
}

func TestNewCatalog_RejectsBadPrices(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.PricingConfig
	}{
		{"sub-cent", config.PricingConfig{Currency: "usd", VideoPrice: "29.001", CallPrice: "49.00"}},
		{"negative", config.PricingConfig{Currency: "usd", VideoPrice: "-1", CallPrice: "49.00"}},
		{"zero", config.PricingConfig{Currency: "usd", VideoPrice: "29.00", CallPrice: "0"}},
		{"garbage", config.PricingConfig{Currency: "usd", VideoPrice: "twenty", CallPrice: "49.00"}},
		{"currency", config.PricingConfig{Currency: "dollars", VideoPrice: "29.00", CallPrice: "49.00"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCatalog(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestCatalog_UnknownOrderType(t *testing.T) {
	catalog, err := NewCatalog(testPricing())
	require.NoError(t, err)

	_, err = catalog.ForOrderType("letter")
	_, ok := apperrors.IsNotFoundError(err)
	assert.True(t, ok)
}

func TestDisplayPrice(t *testing.T) {
	assert.Equal(t, "29.00", DisplayPrice(2900))
	assert.Equal(t, "0.05", DisplayPrice(5))
}

func TestHandleListProducts(t *testing.T) {
	_, ctrl, err := NewModule(testPricing(), zap.NewNop())
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	ctrl.HandleListProducts(rec, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	var resp ListProductsResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Len(t, resp.Products, 2)
	assert.Equal(t, "video", resp.Products[0].OrderType)
	assert.Equal(t, "29.00", resp.Products[0].DisplayPrice)
	assert.Equal(t, "49.50", resp.Products[1].DisplayPrice)
}
