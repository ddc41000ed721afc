package product

type ProductDTO struct {
	OrderType    string `json:"orderType"`
	Name         string `json:"name"`
	Description  string `json:"description"`
	UnitAmount   int64  `json:"unitAmount"`
	Currency     string `json:"currency"`
	DisplayPrice string `json:"displayPrice"`
}

type ListProductsResponse struct {
	Products []ProductDTO `json:"products"`
}
