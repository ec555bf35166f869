package service

import (
	"fmt"
	"sync"

	"pos-terminal/internal/models"
	"pos-terminal/internal/util"

	"github.com/shopspring/decimal"
)

// TaxRate is the fixed sales tax applied to the subtotal
var TaxRate = decimal.RequireFromString("0.10")

// CartEngine holds the in-progress order as aggregated lines in insertion order
type CartEngine struct {
	mu      sync.Mutex
	catalog *Catalog
	lines   []models.CartLine
	index   map[int64]int
}

// NewCartEngine creates an empty cart reserving stock from catalog
func NewCartEngine(catalog *Catalog) *CartEngine {
	return &CartEngine{
		catalog: catalog,
		index:   make(map[int64]int),
	}
}

// AddItem reserves quantity units and adds them to the product's line,
// creating the line with a name/price snapshot on first addition.
// On failure neither cart nor catalog change.
func (e *CartEngine) AddItem(productID int64, quantity int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.catalog.Reserve(productID, quantity); err != nil {
		return err
	}

	if i, ok := e.index[productID]; ok {
		e.lines[i].Quantity += quantity
		util.CartItemsAddedTotal.Add(float64(quantity))
		return nil
	}

	product, ok := e.catalog.Get(productID)
	if !ok {
		// reserve succeeded, so the product cannot have vanished; undo anyway
		_ = e.catalog.Restore(productID, quantity)
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	e.index[productID] = len(e.lines)
	e.lines = append(e.lines, models.CartLine{
		ProductID: product.ID,
		Name:      product.Name,
		UnitPrice: product.UnitPrice,
		Quantity:  quantity,
	})
	util.CartItemsAddedTotal.Add(float64(quantity))
	return nil
}

// RemoveItem drops a product's line and returns its quantity to the catalog
func (e *CartEngine) RemoveItem(productID int64) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	i, ok := e.index[productID]
	if !ok {
		return fmt.Errorf("cart line for product %d: %w", productID, ErrNotFound)
	}

	if err := e.catalog.Restore(productID, e.lines[i].Quantity); err != nil {
		return err
	}

	e.lines = append(e.lines[:i], e.lines[i+1:]...)
	e.reindex()
	return nil
}

// Clear removes all lines. Reserved stock is not returned to the catalog.
func (e *CartEngine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.lines = nil
	e.index = make(map[int64]int)
}

// Cancel returns every line's quantity to the catalog, then clears the cart
func (e *CartEngine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, line := range e.lines {
		_ = e.catalog.Restore(line.ProductID, line.Quantity)
	}
	e.lines = nil
	e.index = make(map[int64]int)
	util.CartCancelledTotal.Inc()
}

// Snapshot returns a copy of the lines in insertion order
func (e *CartEngine) Snapshot() []models.CartLine {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.CartLine, len(e.lines))
	copy(out, e.lines)
	return out
}

// IsEmpty reports whether the cart has no lines
func (e *CartEngine) IsEmpty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.lines) == 0
}

// ComputeTotals returns subtotal, tax and total of the current lines
func (e *CartEngine) ComputeTotals() models.Totals {
	return ComputeTotals(e.Snapshot())
}

// ComputeTotals applies the tax rate to the sum of line totals
func ComputeTotals(lines []models.CartLine) models.Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.LineTotal())
	}
	tax := subtotal.Mul(TaxRate)

	return models.Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Total:    subtotal.Add(tax),
	}
}

func (e *CartEngine) reindex() {
	e.index = make(map[int64]int, len(e.lines))
	for i, line := range e.lines {
		e.index[line.ProductID] = i
	}
}
