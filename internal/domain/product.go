package domain

// Product is one of the two fulfillment products offered for sale. Prices are
// held in minor currency units.
type Product struct {
	OrderType   OrderType
	Name        string
	Description string
	UnitAmount  int64
	Currency    string
}
