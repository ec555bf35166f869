package service

import (
	"context"
	"errors"
	"testing"

	"pos-terminal/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commitLines() []models.CartLine {
	return []models.CartLine{
		{ProductID: 1, Name: "Burger", UnitPrice: decimal.RequireFromString("10.00"), Quantity: 2},
		{ProductID: 2, Name: "Soda", UnitPrice: decimal.RequireFromString("5.00"), Quantity: 1},
	}
}

func TestCommitWritesSaleDetailsAndStock(t *testing.T) {
	db := newMemStore(map[int64]int{1: 5, 2: 3})
	committer := NewCommitter(db)
	lines := commitLines()

	sale, err := committer.Commit(context.Background(), lines, models.PaymentCash, 7, ComputeTotals(lines))

	require.NoError(t, err)
	assert.Equal(t, int64(1), sale.ID)
	require.Len(t, db.sales, 1)
	assert.Equal(t, models.PaymentCash, db.sales[0].PaymentMethod)
	assert.Equal(t, int64(7), db.sales[0].StaffID)
	assert.Equal(t, "27.50", db.sales[0].TotalAmount.StringFixed(2))

	require.Len(t, db.details, 2)
	assert.Equal(t, models.SaleDetail{
		SaleID:    1,
		ProductID: 1,
		Quantity:  2,
		UnitPrice: decimal.RequireFromString("10.00"),
	}, db.details[0])
	assert.Equal(t, int64(1), db.details[1].SaleID)

	assert.Equal(t, 3, db.stockOf(1))
	assert.Equal(t, 2, db.stockOf(2))
}

func TestCommitEmptyOrderWritesNothing(t *testing.T) {
	db := newMemStore(map[int64]int{1: 5})
	committer := NewCommitter(db)

	_, err := committer.Commit(context.Background(), nil, models.PaymentCash, 1, models.Totals{})

	assert.ErrorIs(t, err, ErrEmptyOrder)
	assert.Equal(t, 0, db.begins)
	assert.Empty(t, db.sales)
}

func TestCommitRejectsInvalidMethod(t *testing.T) {
	db := newMemStore(map[int64]int{1: 5, 2: 3})
	committer := NewCommitter(db)
	lines := commitLines()

	_, err := committer.Commit(context.Background(), lines, models.PaymentMethod("CHEQUE"), 1, ComputeTotals(lines))

	assert.ErrorIs(t, err, ErrInvalidPaymentMethod)
	assert.Equal(t, 0, db.begins)
}

func TestCommitFailureRollsBackEveryStep(t *testing.T) {
	for _, step := range []string{"begin", "insert_sale", "insert_sale_details", "update_stock", "commit"} {
		t.Run(step, func(t *testing.T) {
			db := newMemStore(map[int64]int{1: 5, 2: 3})
			db.failStep = step
			committer := NewCommitter(db)
			lines := commitLines()

			sale, err := committer.Commit(context.Background(), lines, models.PaymentCard, 1, ComputeTotals(lines))

			assert.Nil(t, sale)
			assert.ErrorIs(t, err, ErrStorageFailure)
			assert.ErrorIs(t, err, errInjected)

			var commitErr *CommitError
			require.True(t, errors.As(err, &commitErr))
			assert.Equal(t, step, commitErr.Step)

			assert.Empty(t, db.sales)
			assert.Empty(t, db.details)
			assert.Equal(t, 5, db.stockOf(1))
			assert.Equal(t, 3, db.stockOf(2))
		})
	}
}

func TestCommitInsufficientPersistedStockRollsBack(t *testing.T) {
	db := newMemStore(map[int64]int{1: 1, 2: 3})
	committer := NewCommitter(db)
	lines := commitLines()

	_, err := committer.Commit(context.Background(), lines, models.PaymentCash, 1, ComputeTotals(lines))

	var commitErr *CommitError
	require.True(t, errors.As(err, &commitErr))
	assert.Equal(t, "update_stock", commitErr.Step)
	assert.Empty(t, db.sales)
	assert.Equal(t, 1, db.stockOf(1))
}
