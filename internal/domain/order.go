package domain

// OrderInput is what the client submits. OrderID and CreatedAt are always
// generated server-side, never accepted from the caller.
type OrderInput struct {
	ShipID   string `json:"shipId" validate:"required,min=1"`
	PartID   string `json:"partId" validate:"required,min=1"`
	Quantity int    `json:"quantity" validate:"required,gt=0"`
}

// Order is a persisted spare-part order. The object is fully formed before
// the insert transaction begins.
type Order struct {
	OrderID   string `json:"orderId"`
	ShipID    string `json:"shipId"`
	PartID    string `json:"partId"`
	Quantity  int    `json:"quantity"`
	CreatedAt string `json:"createdAt"`
}
