package product

import (
	"go.uber.org/zap"

	"avatarbook/internal/config"
)

func NewModule(cfg config.PricingConfig, logger *zap.Logger) (Catalog, *Controller, error) {
	catalog, err := NewCatalog(cfg)
	if err != nil {
		return nil, nil, err
	}
	return catalog, NewController(catalog, logger), nil
}
