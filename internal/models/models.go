package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category groups products on the terminal
type Category struct {
	ID   int64  `db:"id" json:"id"`
	Name string `db:"name" json:"name"`
}

// Product represents a sellable item and its on-hand stock
type Product struct {
	ID            int64           `db:"id" json:"id"`
	Name          string          `db:"name" json:"name"`
	UnitPrice     decimal.Decimal `db:"price" json:"unit_price"`
	Image         string          `db:"image" json:"image,omitempty"`
	StockQuantity int             `db:"stock_qty" json:"stock_quantity"`
	CategoryName  string          `db:"category_name" json:"category_name"`
}

// CartLine is one aggregated product entry of the in-progress order.
// Name and UnitPrice are snapshotted when the product is first added.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Name      string          `json:"name"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}

// LineTotal returns unit price times quantity
func (l CartLine) LineTotal() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Totals holds the computed amounts of a cart
type Totals struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Total    decimal.Decimal `json:"total"`
}

// Sale represents a committed order header
type Sale struct {
	ID            int64           `db:"id" json:"id"`
	SaleDate      time.Time       `db:"sale_date" json:"sale_date"`
	PaymentMethod PaymentMethod   `db:"payment_method" json:"payment_method"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	StaffID       int64           `db:"staff_id" json:"staff_id"`
}

// SaleDetail represents one committed line of a sale
type SaleDetail struct {
	SaleID    int64           `db:"sale_id" json:"sale_id"`
	ProductID int64           `db:"pid" json:"product_id"`
	Quantity  int             `db:"qty" json:"quantity"`
	UnitPrice decimal.Decimal `db:"unit_price" json:"unit_price"`
}

// PaymentMethod is the closed set of tenders the terminal accepts
type PaymentMethod string

// Payment methods
const (
	PaymentCash   PaymentMethod = "CASH"
	PaymentCard   PaymentMethod = "CARD"
	PaymentQRCode PaymentMethod = "QRCODE"
)

// Valid reports whether m is one of the enumerated payment methods
func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentCash, PaymentCard, PaymentQRCode:
		return true
	}
	return false
}

// Label returns the name printed on receipts
func (m PaymentMethod) Label() string {
	switch m {
	case PaymentCash:
		return "Cash"
	case PaymentCard:
		return "Card"
	case PaymentQRCode:
		return "QR Code"
	}
	return string(m)
}
