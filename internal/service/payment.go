package service

import (
	"fmt"
	"strings"
	"time"

	"pos-terminal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

var paymentSynonyms = map[string]models.PaymentMethod{
	"cash":        models.PaymentCash,
	"card":        models.PaymentCard,
	"credit card": models.PaymentCard,
	"debit card":  models.PaymentCard,
	"qr":          models.PaymentQRCode,
	"qr code":     models.PaymentQRCode,
	"qrcode":      models.PaymentQRCode,
}

// NormalizePaymentMethod maps a case-insensitive payment name onto the enumerated methods
func NormalizePaymentMethod(raw string) (models.PaymentMethod, error) {
	key := strings.ToLower(strings.Join(strings.Fields(raw), " "))
	if method, ok := paymentSynonyms[key]; ok {
		return method, nil
	}
	return "", fmt.Errorf("%q: %w", raw, ErrInvalidPaymentMethod)
}

// QRGenerator renders a scannable payment token for an amount
type QRGenerator interface {
	Generate(amount decimal.Decimal) ([]byte, error)
}

// QRCodeGenerator encodes payment requests as PNG QR codes
type QRCodeGenerator struct {
	size int
	now  func() time.Time
}

// NewQRCodeGenerator creates a generator producing size x size images
func NewQRCodeGenerator(size int) *QRCodeGenerator {
	if size <= 0 {
		size = 300
	}
	return &QRCodeGenerator{size: size, now: time.Now}
}

// Generate returns a PNG encoding the amount and the current time
func (g *QRCodeGenerator) Generate(amount decimal.Decimal) ([]byte, error) {
	if !amount.IsPositive() {
		return nil, fmt.Errorf("qr amount must be positive, got %s", amount.StringFixed(2))
	}

	content := fmt.Sprintf("POS Payment\nAmount: $%s\nDate: %s",
		amount.StringFixed(2), g.now().Format(time.RFC1123))

	png, err := qrcode.Encode(content, qrcode.Medium, g.size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode qr code: %w", err)
	}
	return png, nil
}
