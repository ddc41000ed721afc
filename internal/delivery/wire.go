package delivery

import (
	"go.uber.org/zap"

	"avatarbook/internal/config"
)

func NewModule(orders OrderRepository, notifier Notifier, cfg *config.Config, logger *zap.Logger) (*Service, *Controller) {
	svc := NewService(orders, notifier, cfg.Server.PublicBaseURL, logger)
	return svc, NewController(svc, logger)
}
