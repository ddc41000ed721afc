package content

import (
	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/config"
)

func NewModule(orders OrderRepository, videoJobs VideoJobRepository, conversations ConversationRepository, notifier Notifier, locker commons.Locker, recorder commons.OutcomeRecorder, cfg *config.Config, logger *zap.Logger) *Controller {
	uc := NewUseCase(cfg.Provider.WebhookSecret, orders, videoJobs, conversations, notifier, locker, logger)
	return NewController(uc, recorder, logger)
}
