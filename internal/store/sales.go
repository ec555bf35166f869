package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"pos-terminal/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

// SaleWriter performs the writes of one sale inside a single database transaction.
// Nothing is visible to other connections until Commit succeeds.
type SaleWriter interface {
	InsertSale(ctx context.Context, sale *models.Sale) error
	InsertSaleDetails(ctx context.Context, details []models.SaleDetail) error
	DecrementStock(ctx context.Context, details []models.SaleDetail) error
	Commit() error
	Rollback() error
}

type saleTx struct {
	tx *sqlx.Tx
}

// BeginSale starts the transaction a sale is written in
func (s *Store) BeginSale(ctx context.Context) (SaleWriter, error) {
	tx, err := s.db.BeginTxx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &saleTx{tx: tx}, nil
}

// InsertSale inserts the sale header and fills in the generated id and timestamp
func (t *saleTx) InsertSale(ctx context.Context, sale *models.Sale) error {
	query := `
		INSERT INTO sale (sale_date, payment_method, total_amount, staff_id)
		VALUES (CURRENT_TIMESTAMP, $1, $2, $3)
		RETURNING id, sale_date`

	row := t.tx.QueryRowxContext(ctx, query, string(sale.PaymentMethod), sale.TotalAmount, sale.StaffID)
	return row.Scan(&sale.ID, &sale.SaleDate)
}

// InsertSaleDetails inserts all lines with one multi-row statement
func (t *saleTx) InsertSaleDetails(ctx context.Context, details []models.SaleDetail) error {
	if len(details) == 0 {
		return nil
	}

	query := `
		INSERT INTO sale_details (sale_id, pid, qty, unit_price)
		VALUES (:sale_id, :pid, :qty, :unit_price)`

	_, err := t.tx.NamedExecContext(ctx, query, details)
	return err
}

// DecrementStock lowers persisted stock for every product in one statement.
// Lines of the same product are summed first. Rows whose stock would go negative
// are skipped, which surfaces as a row count mismatch.
func (t *saleTx) DecrementStock(ctx context.Context, details []models.SaleDetail) error {
	if len(details) == 0 {
		return nil
	}

	ids, qtys := groupByProduct(details)

	result, err := t.tx.ExecContext(ctx, `
		UPDATE product AS p
		SET stock_qty = p.stock_qty - v.qty
		FROM (SELECT unnest($1::bigint[]) AS id, unnest($2::bigint[]) AS qty) AS v
		WHERE p.id = v.id AND p.stock_qty >= v.qty`,
		pq.Array(ids), pq.Array(qtys))
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected != int64(len(ids)) {
		return fmt.Errorf("stock update matched %d of %d products", affected, len(ids))
	}
	return nil
}

// groupByProduct sums quantities per product, keeping first-seen order
func groupByProduct(details []models.SaleDetail) (ids, qtys []int64) {
	index := make(map[int64]int, len(details))
	for _, d := range details {
		if i, ok := index[d.ProductID]; ok {
			qtys[i] += int64(d.Quantity)
			continue
		}
		index[d.ProductID] = len(ids)
		ids = append(ids, d.ProductID)
		qtys = append(qtys, int64(d.Quantity))
	}
	return ids, qtys
}

func (t *saleTx) Commit() error {
	return t.tx.Commit()
}

func (t *saleTx) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// GetSaleByID retrieves a sale header by ID
func (s *Store) GetSaleByID(ctx context.Context, id int64) (*models.Sale, error) {
	var sale models.Sale
	err := s.db.GetContext(ctx, &sale,
		"SELECT id, sale_date, payment_method, total_amount, staff_id FROM sale WHERE id = $1", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("sale %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &sale, nil
}

// GetSaleDetails retrieves all lines of a sale
func (s *Store) GetSaleDetails(ctx context.Context, saleID int64) ([]models.SaleDetail, error) {
	var details []models.SaleDetail
	err := s.db.SelectContext(ctx, &details,
		"SELECT sale_id, pid, qty, unit_price FROM sale_details WHERE sale_id = $1 ORDER BY pid", saleID)
	return details, err
}
