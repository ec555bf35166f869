package service

import (
	"context"
	"time"

	"pos-terminal/internal/models"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// SaleStore opens the transaction a sale is committed in
type SaleStore interface {
	BeginSale(ctx context.Context) (store.SaleWriter, error)
}

// Committer persists a completed cart as one atomic unit:
// sale header, all sale lines and all stock decrements, or nothing.
type Committer struct {
	store  SaleStore
	logger *zap.Logger
}

// NewCommitter creates a new committer
func NewCommitter(store SaleStore) *Committer {
	return &Committer{
		store:  store,
		logger: util.GetLogger(),
	}
}

// Commit writes the sale and returns its generated id. Any failed step rolls the
// transaction back and is reported as a *CommitError. The in-memory cart and
// catalog reservations are left untouched either way.
func (c *Committer) Commit(
	ctx context.Context,
	lines []models.CartLine,
	method models.PaymentMethod,
	staffID int64,
	totals models.Totals,
) (*models.Sale, error) {
	ctx, span := util.StartSpan(ctx, "Committer.Commit")
	defer span.End()

	if len(lines) == 0 {
		util.SalesFailedTotal.WithLabelValues("empty_order").Inc()
		return nil, ErrEmptyOrder
	}
	if !method.Valid() {
		util.SalesFailedTotal.WithLabelValues("invalid_payment_method").Inc()
		return nil, ErrInvalidPaymentMethod
	}

	start := time.Now()
	defer func() {
		util.SaleCommitLatency.Observe(time.Since(start).Seconds())
	}()

	tx, err := c.store.BeginSale(ctx)
	if err != nil {
		return nil, c.fail(span, "begin", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil {
			c.logger.Error("Failed to roll back sale transaction", zap.Error(err))
		}
	}()

	sale := &models.Sale{
		PaymentMethod: method,
		TotalAmount:   totals.Total,
		StaffID:       staffID,
	}
	if err := tx.InsertSale(ctx, sale); err != nil {
		return nil, c.fail(span, "insert_sale", err)
	}

	details := make([]models.SaleDetail, 0, len(lines))
	for _, line := range lines {
		details = append(details, models.SaleDetail{
			SaleID:    sale.ID,
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}

	if err := tx.InsertSaleDetails(ctx, details); err != nil {
		return nil, c.fail(span, "insert_sale_details", err)
	}

	if err := tx.DecrementStock(ctx, details); err != nil {
		return nil, c.fail(span, "update_stock", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, c.fail(span, "commit", err)
	}

	util.SalesCommittedTotal.WithLabelValues(string(method)).Inc()
	util.SaleRevenueTotal.Add(totals.Total.InexactFloat64())

	c.logger.Info("Sale committed",
		zap.Int64("sale_id", sale.ID),
		zap.Int64("staff_id", staffID),
		zap.String("payment_method", string(method)),
		zap.String("total", totals.Total.StringFixed(2)),
		zap.Int("lines", len(details)))

	return sale, nil
}

func (c *Committer) fail(span trace.Span, step string, err error) error {
	commitErr := &CommitError{Step: step, Err: err}
	util.FailSpan(span, commitErr)
	util.SalesFailedTotal.WithLabelValues(step).Inc()

	c.logger.Error("Sale commit rolled back",
		zap.String("step", step),
		zap.Error(err))

	return commitErr
}
