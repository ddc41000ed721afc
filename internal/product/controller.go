package product

import (
	"net/http"

	"go.uber.org/zap"

	"avatarbook/internal/commons"
)

type Controller struct {
	catalog Catalog
	logger  *zap.Logger
}

func NewController(catalog Catalog, logger *zap.Logger) *Controller {
	return &Controller{
		catalog: catalog,
		logger:  logger,
	}
}

func (c *Controller) HandleListProducts(w http.ResponseWriter, r *http.Request) {
	found := c.catalog.List()

	products := make([]ProductDTO, 0, len(found))
	for _, p := range found {
		products = append(products, ProductDTO{
			OrderType:    string(p.OrderType),
			Name:         p.Name,
			Description:  p.Description,
			UnitAmount:   p.UnitAmount,
			Currency:     p.Currency,
			DisplayPrice: DisplayPrice(p.UnitAmount),
		})
	}

	commons.WriteJSON(w, http.StatusOK, ListProductsResponse{Products: products}, c.logger)
}
