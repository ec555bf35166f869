package service

import (
	"fmt"
	"strings"

	"pos-terminal/internal/models"
)

const receiptNameWidth = 30

// FormatReceipt renders a committed order as plain text. Output depends only on its inputs.
func FormatReceipt(saleID int64, lines []models.CartLine, totals models.Totals, method models.PaymentMethod) string {
	var b strings.Builder

	b.WriteString("=== ORDER RECEIPT ===\n")
	fmt.Fprintf(&b, "Order #%d\n\n", saleID)
	b.WriteString("Items:\n")
	for _, line := range lines {
		fmt.Fprintf(&b, "%-*s %2d x $%6s\n",
			receiptNameWidth, truncateName(line.Name), line.Quantity, line.UnitPrice.StringFixed(2))
	}

	fmt.Fprintf(&b, "\nSubtotal: $%s\n", totals.Subtotal.StringFixed(2))
	fmt.Fprintf(&b, "Tax (%s%%): $%s\n", TaxRate.Shift(2).String(), totals.Tax.StringFixed(2))
	fmt.Fprintf(&b, "Total: $%s\n\n", totals.Total.StringFixed(2))
	fmt.Fprintf(&b, "Payment Method: %s\n", method.Label())
	b.WriteString("Thank you for your order!")

	return b.String()
}

// truncateName shortens names wider than the receipt column, marking the cut with "..."
func truncateName(name string) string {
	runes := []rune(name)
	if len(runes) <= receiptNameWidth {
		return name
	}
	return string(runes[:receiptNameWidth-3]) + "..."
}
