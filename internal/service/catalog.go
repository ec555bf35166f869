package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pos-terminal/internal/models"
	"pos-terminal/internal/util"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ProductSource loads the catalog from persistent storage
type ProductSource interface {
	GetCategories(ctx context.Context) ([]models.Category, error)
	GetProducts(ctx context.Context) ([]models.Product, error)
}

// Catalog is the terminal's authoritative in-memory view of products and stock.
// Every stock change goes through Reserve or Restore.
type Catalog struct {
	mu         sync.RWMutex
	source     ProductSource
	products   map[int64]*models.Product
	categories []models.Category
	logger     *zap.Logger
}

// NewCatalog creates an empty catalog backed by source
func NewCatalog(source ProductSource) *Catalog {
	return &Catalog{
		source:   source,
		products: make(map[int64]*models.Product),
		logger:   util.GetLogger(),
	}
}

// Load populates the catalog from storage. When storage is unavailable the built-in
// sample dataset is used instead so the terminal stays operable; no error is returned.
func (c *Catalog) Load(ctx context.Context) {
	ctx, span := util.StartSpan(ctx, "Catalog.Load")
	defer span.End()

	categories, err := c.loadCategories(ctx)
	if err != nil {
		c.logger.Warn("Failed to load categories, using sample categories", zap.Error(err))
		categories = sampleCategories()
	}

	products, err := c.loadProducts(ctx)
	if err != nil {
		c.logger.Warn("Failed to load products, using sample products", zap.Error(err))
		products = sampleProducts()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	c.categories = categories
	c.products = make(map[int64]*models.Product, len(products))
	for i := range products {
		p := products[i]
		if p.StockQuantity < 0 {
			p.StockQuantity = 0
		}
		if p.CategoryName == "" {
			p.CategoryName = "Uncategorized"
		}
		c.products[p.ID] = &p
	}

	c.logger.Info("Catalog loaded",
		zap.Int("products", len(c.products)),
		zap.Int("categories", len(c.categories)))
}

func (c *Catalog) loadCategories(ctx context.Context) ([]models.Category, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no product source configured")
	}
	return c.source.GetCategories(ctx)
}

func (c *Catalog) loadProducts(ctx context.Context) ([]models.Product, error) {
	if c.source == nil {
		return nil, fmt.Errorf("no product source configured")
	}
	return c.source.GetProducts(ctx)
}

// Reserve takes quantity units of a product out of available stock.
// Nothing changes when it fails.
func (c *Catalog) Reserve(productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		util.StockReservationsFailed.WithLabelValues("not_found").Inc()
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}
	if p.StockQuantity < quantity {
		util.StockReservationsFailed.WithLabelValues("out_of_stock").Inc()
		return fmt.Errorf("product %d: available=%d, requested=%d: %w",
			productID, p.StockQuantity, quantity, ErrOutOfStock)
	}

	p.StockQuantity -= quantity
	return nil
}

// Restore puts quantity units of a product back into available stock
func (c *Catalog) Restore(productID int64, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	p, ok := c.products[productID]
	if !ok {
		return fmt.Errorf("product %d: %w", productID, ErrNotFound)
	}

	p.StockQuantity += quantity
	return nil
}

// Get returns a copy of the product, if known
func (c *Catalog) Get(productID int64) (models.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	p, ok := c.products[productID]
	if !ok {
		return models.Product{}, false
	}
	return *p, true
}

// List returns copies of all products ordered by id
func (c *Catalog) List() []models.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Product, 0, len(c.products))
	for _, p := range c.products {
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Categories returns the loaded categories
func (c *Catalog) Categories() []models.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]models.Category, len(c.categories))
	copy(out, c.categories)
	return out
}

func sampleCategories() []models.Category {
	return []models.Category{
		{ID: 1, Name: "Beverages"},
		{ID: 2, Name: "Food"},
		{ID: 3, Name: "Snacks"},
	}
}

func sampleProducts() []models.Product {
	sample := func(id int64, name, price string, stock int, category string) models.Product {
		return models.Product{
			ID:            id,
			Name:          name,
			UnitPrice:     decimal.RequireFromString(price),
			Image:         "no_image.jpg",
			StockQuantity: stock,
			CategoryName:  category,
		}
	}

	return []models.Product{
		sample(1, "Original Count Next Buyer With One New Veg", "23.99", 5, "Food"),
		sample(2, "Fresh Orange Juice With Real Food", "23.99", 10, "Beverages"),
		sample(3, "Hard Sun/Head With Truck Shop", "0.00", 8, "Snacks"),
		sample(4, "Focus Sales With Chicken", "16.00", 7, "Food"),
		sample(5, "Trading Vegetable Sales - Happy Fruit", "1.00", 15, "Food"),
		sample(6, "Orange Juice With Real Food on Sugar", "5.99", 20, "Beverages"),
		sample(7, "Orange Cream Buyer With Fresh Green", "0.00", 5, "Snacks"),
		sample(8, "Apple &Farm", "2.99", 50, "Food"),
	}
}
