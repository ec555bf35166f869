package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"pos-terminal/internal/models"
	"pos-terminal/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const checkoutLockTTL = 30 * time.Second

// CheckoutCache keeps idempotency keys, checkout locks and rendered receipts
type CheckoutCache interface {
	GetIdempotentSale(ctx context.Context, key string) (int64, bool, error)
	SetIdempotentSale(ctx context.Context, key string, saleID int64, ttl time.Duration) error
	AcquireLock(ctx context.Context, lockKey string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, lockKey string) error
	SetReceipt(ctx context.Context, saleID int64, receipt string, ttl time.Duration) error
	GetReceipt(ctx context.Context, saleID int64) (string, bool, error)
}

// SalePublisher announces committed sales
type SalePublisher interface {
	PublishSaleCommitted(ctx context.Context, event *models.SaleCommittedEvent) error
}

// SaleReader reads committed sales back from storage
type SaleReader interface {
	GetSaleByID(ctx context.Context, id int64) (*models.Sale, error)
	GetSaleDetails(ctx context.Context, saleID int64) ([]models.SaleDetail, error)
}

// TerminalOptions tunes cache lifetimes
type TerminalOptions struct {
	IdempotencyTTL time.Duration
	ReceiptTTL     time.Duration
}

// TerminalService drives one terminal: cart edits, payment selection and checkout
type TerminalService struct {
	mu        sync.Mutex
	catalog   *Catalog
	cart      *CartEngine
	committer *Committer
	staff     *StaffProvider
	qr        QRGenerator
	sales     SaleReader
	cache     CheckoutCache
	publisher SalePublisher
	opts      TerminalOptions
	logger    *zap.Logger
}

// NewTerminalService creates a new terminal service
func NewTerminalService(
	catalog *Catalog,
	cart *CartEngine,
	committer *Committer,
	staff *StaffProvider,
	qr QRGenerator,
	sales SaleReader,
	cache CheckoutCache,
	publisher SalePublisher,
	opts TerminalOptions,
) *TerminalService {
	return &TerminalService{
		catalog:   catalog,
		cart:      cart,
		committer: committer,
		staff:     staff,
		qr:        qr,
		sales:     sales,
		cache:     cache,
		publisher: publisher,
		opts:      opts,
		logger:    util.GetLogger(),
	}
}

// CartView is the cart as shown to the cashier
type CartView struct {
	Lines  []models.CartLine `json:"lines"`
	Totals models.Totals     `json:"totals"`
}

// PlaceOrderRequest represents a checkout submission
type PlaceOrderRequest struct {
	PaymentMethod  string `json:"payment_method" binding:"required"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// PlaceOrderResponse represents the outcome of a checkout
type PlaceOrderResponse struct {
	SaleID         int64                `json:"sale_id"`
	PaymentMethod  models.PaymentMethod `json:"payment_method,omitempty"`
	StaffID        int64                `json:"staff_id,omitempty"`
	Totals         *models.Totals       `json:"totals,omitempty"`
	Receipt        string               `json:"receipt"`
	IdempotencyKey string               `json:"idempotency_key"`
	Replayed       bool                 `json:"replayed"`
}

// Categories returns the catalog categories
func (s *TerminalService) Categories() []models.Category {
	return s.catalog.Categories()
}

// Products returns every product with its current available stock
func (s *TerminalService) Products() []models.Product {
	return s.catalog.List()
}

// Product returns one product
func (s *TerminalService) Product(productID int64) (models.Product, error) {
	p, ok := s.catalog.Get(productID)
	if !ok {
		return models.Product{}, fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	return p, nil
}

// Cart returns the current cart and totals
func (s *TerminalService) Cart() CartView {
	lines := s.cart.Snapshot()
	return CartView{Lines: lines, Totals: ComputeTotals(lines)}
}

// AddItem adds quantity units of a product to the cart
func (s *TerminalService) AddItem(ctx context.Context, productID int64, quantity int) (CartView, error) {
	_, span := util.StartSpan(ctx, "TerminalService.AddItem")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cart.AddItem(productID, quantity); err != nil {
		util.FailSpan(span, err)
		s.logger.Info("Add to cart rejected",
			zap.Int64("product_id", productID),
			zap.Int("quantity", quantity),
			zap.Error(err))
		return CartView{}, err
	}

	return s.Cart(), nil
}

// RemoveItem removes a product's line and restocks it
func (s *TerminalService) RemoveItem(ctx context.Context, productID int64) (CartView, error) {
	_, span := util.StartSpan(ctx, "TerminalService.RemoveItem")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.cart.RemoveItem(productID); err != nil {
		util.FailSpan(span, err)
		return CartView{}, err
	}
	return s.Cart(), nil
}

// CancelOrder abandons the cart and restocks every line
func (s *TerminalService) CancelOrder(ctx context.Context) CartView {
	_, span := util.StartSpan(ctx, "TerminalService.CancelOrder")
	defer span.End()

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.cart.Snapshot()
	s.cart.Cancel()
	s.logger.Info("Cart cancelled", zap.Int("lines", len(lines)))

	return s.Cart()
}

// PaymentQR renders a QR payment code for the current cart total
func (s *TerminalService) PaymentQR(ctx context.Context) ([]byte, error) {
	_, span := util.StartSpan(ctx, "TerminalService.PaymentQR")
	defer span.End()

	total := s.Cart().Totals.Total
	png, err := s.qr.Generate(total)
	if err != nil {
		util.QRGenerationFailedTotal.Inc()
		util.FailSpan(span, err)
		s.logger.Warn("QR code generation failed",
			zap.String("amount", total.StringFixed(2)),
			zap.Error(err))
		return nil, err
	}
	return png, nil
}

// PlaceOrder commits the cart as a sale, renders the receipt and resets the cart.
// A repeated idempotency key returns the earlier sale without committing again.
// On commit failure the cart and its reservations are kept for retry or cancel.
func (s *TerminalService) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := util.StartSpan(ctx, "TerminalService.PlaceOrder")
	defer span.End()

	method, err := NormalizePaymentMethod(req.PaymentMethod)
	if err != nil {
		util.SalesFailedTotal.WithLabelValues("invalid_payment_method").Inc()
		return nil, err
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.New().String()
	}

	if resp, ok := s.replay(ctx, req.IdempotencyKey); ok {
		return resp, nil
	}

	lockKey := "checkout:" + req.IdempotencyKey
	locked, err := s.cache.AcquireLock(ctx, lockKey, checkoutLockTTL)
	if err != nil {
		s.logger.Warn("Checkout lock unavailable, continuing without it", zap.Error(err))
	} else if !locked {
		return nil, ErrCheckoutInProgress
	} else {
		defer func() {
			if err := s.cache.ReleaseLock(context.Background(), lockKey); err != nil {
				s.logger.Warn("Failed to release checkout lock", zap.Error(err))
			}
		}()

		// the holder before us may have finished between the first lookup and the lock
		if resp, ok := s.replay(ctx, req.IdempotencyKey); ok {
			return resp, nil
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines := s.cart.Snapshot()
	totals := ComputeTotals(lines)
	staffID := s.staff.StaffID(ctx)

	sale, err := s.committer.Commit(ctx, lines, method, staffID, totals)
	if err != nil {
		util.FailSpan(span, err)
		return nil, err
	}

	receipt := FormatReceipt(sale.ID, lines, totals, method)
	s.cart.Clear()

	s.remember(ctx, req.IdempotencyKey, sale.ID, receipt)
	s.publish(ctx, sale, lines)

	return &PlaceOrderResponse{
		SaleID:         sale.ID,
		PaymentMethod:  method,
		StaffID:        staffID,
		Totals:         &totals,
		Receipt:        receipt,
		IdempotencyKey: req.IdempotencyKey,
	}, nil
}

// replay returns the stored outcome of an idempotency key seen before
func (s *TerminalService) replay(ctx context.Context, key string) (*PlaceOrderResponse, bool) {
	saleID, found, err := s.cache.GetIdempotentSale(ctx, key)
	if err != nil {
		s.logger.Warn("Idempotency lookup failed", zap.String("idempotency_key", key), zap.Error(err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	s.logger.Info("Duplicate checkout detected",
		zap.String("idempotency_key", key),
		zap.Int64("sale_id", saleID))

	receipt, _ := s.GetReceipt(ctx, saleID)
	return &PlaceOrderResponse{
		SaleID:         saleID,
		Receipt:        receipt,
		IdempotencyKey: key,
		Replayed:       true,
	}, true
}

func (s *TerminalService) remember(ctx context.Context, key string, saleID int64, receipt string) {
	if err := s.cache.SetReceipt(ctx, saleID, receipt, s.opts.ReceiptTTL); err != nil {
		s.logger.Warn("Failed to cache receipt", zap.Int64("sale_id", saleID), zap.Error(err))
	}
	if err := s.cache.SetIdempotentSale(ctx, key, saleID, s.opts.IdempotencyTTL); err != nil {
		s.logger.Warn("Failed to store idempotency key", zap.Int64("sale_id", saleID), zap.Error(err))
	}
}

func (s *TerminalService) publish(ctx context.Context, sale *models.Sale, lines []models.CartLine) {
	items := make([]models.SaleItemData, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.SaleItemData{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice.StringFixed(2),
		})
	}

	event := &models.SaleCommittedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeSaleCommitted,
			Timestamp: time.Now(),
		},
		SaleID:        sale.ID,
		StaffID:       sale.StaffID,
		PaymentMethod: sale.PaymentMethod,
		TotalAmount:   sale.TotalAmount.StringFixed(2),
		Items:         items,
	}

	if err := s.publisher.PublishSaleCommitted(ctx, event); err != nil {
		s.logger.Error("Failed to publish SaleCommitted event",
			zap.Int64("sale_id", sale.ID),
			zap.Error(err))
	}
}

// GetSale retrieves a committed sale and its lines
func (s *TerminalService) GetSale(ctx context.Context, saleID int64) (*models.Sale, []models.SaleDetail, error) {
	sale, err := s.sales.GetSaleByID(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	details, err := s.sales.GetSaleDetails(ctx, saleID)
	if err != nil {
		return nil, nil, err
	}

	return sale, details, nil
}

// GetReceipt returns the cached receipt of a sale
func (s *TerminalService) GetReceipt(ctx context.Context, saleID int64) (string, error) {
	receipt, found, err := s.cache.GetReceipt(ctx, saleID)
	if err != nil {
		return "", fmt.Errorf("failed to read receipt: %w", err)
	}
	if !found {
		return "", fmt.Errorf("receipt for sale %d: %w", saleID, ErrNotFound)
	}
	return receipt, nil
}
