package fulfillment

import (
	"go.uber.org/zap"

	"avatarbook/internal/commons"
	"avatarbook/internal/config"
)

func NewModule(
	orders OrderRepository,
	videoJobs VideoJobRepository,
	conversations ConversationRepository,
	provider ContentProvider,
	notifier Notifier,
	cfg *config.Config,
	logger *zap.Logger,
) (*Dispatcher, *Controller) {
	callbackURL := commons.ContentCallbackURL(cfg.Server.PublicBaseURL, cfg.Provider.WebhookSecret)
	dispatcher := NewDispatcher(orders, videoJobs, conversations, provider, notifier, callbackURL, logger)
	return dispatcher, NewController(dispatcher, logger)
}
