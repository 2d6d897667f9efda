package domain

import "time"

type OrderStatus string

// Orders are created in the "created" state; further transitions are
// not part of this service.
const OrderStatusCreated OrderStatus = "created"

type Order struct {
	ID         int64       `json:"id"`
	CustomerID int64       `json:"customer_id"`
	Status     OrderStatus `json:"status"`
	CreatedAt  time.Time   `json:"created_at"`
}

// OrderItem captures the unit price at order time; later price updates
// never touch it.
type OrderItem struct {
	OrderID   int64
	ISBN      string
	Qty       int
	UnitPrice float64
}

// OrderLine is an order item joined with its book title, as returned
// by order status lookups.
type OrderLine struct {
	ISBN      string  `json:"isbn"`
	Title     string  `json:"title"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}
