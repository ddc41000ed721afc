package checkout

import (
	"go.uber.org/zap"

	"avatarbook/internal/booking"
	"avatarbook/internal/config"
)

func NewModule(booker Booker, orders OrderRepository, gateway Gateway, catalog Catalog, gate booking.TestModeGate, cfg *config.Config, logger *zap.Logger) *Controller {
	uc := NewUseCase(booker, orders, gateway, catalog, cfg.Server.PublicBaseURL, cfg.Stripe.CancelPath, logger)
	return NewController(uc, gate, logger)
}
