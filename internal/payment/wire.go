package payment

import (
	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/config"
	stripeinfra "avatarbook/internal/infrastructure/stripe"
)

func NewModule(orders OrderRepository, locker commons.Locker, notifier Notifier, dispatcher Dispatcher, recorder commons.OutcomeRecorder, cfg *config.Config, logger *zap.Logger) *Controller {
	verifier := stripeinfra.NewWebhookVerifier(cfg.Stripe.WebhookSecret)
	uc := NewUseCase(verifier, orders, locker, notifier, dispatcher, logger)
	return NewController(uc, recorder, logger)
}
