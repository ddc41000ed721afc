package product

import (
	"avatarbook/internal/domain"
)

// Catalog is the server-authoritative price list. Prices never come from the
// client.
type Catalog interface {
	ForOrderType(orderType domain.OrderType) (domain.Product, error)
	List() []domain.Product
}
