package worker

import (
	"context"
	"fmt"
	"time"

	"pos-terminal/internal/broker"
	"pos-terminal/internal/models"
	"pos-terminal/internal/util"

	"go.uber.org/zap"
)

const processedEventTTL = 7 * 24 * time.Hour

// StockMirror is the cache-side copy of stock levels kept for other terminals and dashboards.
// ApplySale marks the event processed together with the deductions, so a failed call
// leaves the event free to be applied on redelivery.
type StockMirror interface {
	ApplySale(ctx context.Context, eventID string, items []models.SaleItemData, ttl time.Duration) (map[int64]int, bool, error)
}

// SaleWorker applies committed sales to the stock mirror and flags low stock
type SaleWorker struct {
	consumer          *broker.Consumer
	eventHandler      *broker.EventHandler
	mirror            StockMirror
	lowStockThreshold int
	logger            *zap.Logger
}

// NewSaleWorker creates a new sale worker
func NewSaleWorker(consumer *broker.Consumer, mirror StockMirror, lowStockThreshold int) *SaleWorker {
	w := &SaleWorker{
		consumer:          consumer,
		eventHandler:      broker.NewEventHandler(),
		mirror:            mirror,
		lowStockThreshold: lowStockThreshold,
		logger:            util.GetLogger(),
	}
	w.eventHandler.OnSaleCommitted(w.HandleSaleCommitted)
	return w
}

// Start starts the worker
func (w *SaleWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting sale worker")
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *SaleWorker) Stop() error {
	w.logger.Info("Stopping sale worker")
	return w.consumer.Close()
}

// HandleSaleCommitted deducts a sale from the mirror once per event id
func (w *SaleWorker) HandleSaleCommitted(ctx context.Context, event *models.SaleCommittedEvent) error {
	ctx, span := util.StartSpan(ctx, "SaleWorker.HandleSaleCommitted")
	defer span.End()

	remaining, applied, err := w.mirror.ApplySale(ctx, event.EventID, event.Items, processedEventTTL)
	if err != nil {
		util.FailSpan(span, err)
		return fmt.Errorf("failed to apply sale %d to stock mirror: %w", event.SaleID, err)
	}
	if !applied {
		w.logger.Info("Duplicate sale event skipped",
			zap.String("event_id", event.EventID),
			zap.Int64("sale_id", event.SaleID))
		return nil
	}

	for productID, left := range remaining {
		if left <= w.lowStockThreshold {
			util.LowStockProducts.Inc()
			w.logger.Warn("Product stock low",
				zap.Int64("product_id", productID),
				zap.Int("available", left),
				zap.Int("threshold", w.lowStockThreshold))
		}
	}

	w.logger.Info("Sale applied to stock mirror",
		zap.Int64("sale_id", event.SaleID),
		zap.Int("items", len(event.Items)))
	return nil
}
