package booking

import (
	"go.uber.org/zap"

	"avatarbook/internal/config"
)

func NewModule(orders OrderCreator, cfg *config.Config, logger *zap.Logger) (*Service, *Controller, TestModeGate, error) {
	numbers, err := NewOrderNumberGenerator(cfg.Snowflake.Node)
	if err != nil {
		return nil, nil, TestModeGate{}, err
	}

	svc := NewService(orders, numbers, logger)
	return svc, NewController(svc.Window(), logger), NewTestModeGate(cfg.Booking), nil
}
