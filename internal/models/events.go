package models

import "time"

// Event types
const (
	EventTypeSaleCommitted = "SALE_COMMITTED"
)

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventID   string    `json:"event_id"`
	EventType string    `json:"event_type"`
	Timestamp time.Time `json:"timestamp"`
}

// SaleCommittedEvent published once a sale is durably stored
type SaleCommittedEvent struct {
	BaseEvent
	SaleID        int64          `json:"sale_id"`
	StaffID       int64          `json:"staff_id"`
	PaymentMethod PaymentMethod  `json:"payment_method"`
	TotalAmount   string         `json:"total_amount"`
	Items         []SaleItemData `json:"items"`
}

// SaleItemData represents item data in events
type SaleItemData struct {
	ProductID int64  `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
}
