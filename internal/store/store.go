package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pos-terminal/internal/models"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("not found")

type Store struct {
	db *sqlx.DB
}

// Open prepares a connection pool without contacting the database.
// An unreachable server surfaces as an error from the first query.
func Open(databaseURL string) (*Store, error) {
	db, err := sqlx.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(5)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Store{db: db}, nil
}

// NewStore opens the database and verifies it answers
func NewStore(databaseURL string) (*Store, error) {
	s, err := Open(databaseURL)
	if err != nil {
		return nil, err
	}

	if err := s.db.Ping(); err != nil {
		s.db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return s, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the connection
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// GetDB returns the underlying database connection
func (s *Store) GetDB() *sqlx.DB {
	return s.db
}

// GetCategories retrieves all categories
func (s *Store) GetCategories(ctx context.Context) ([]models.Category, error) {
	var categories []models.Category
	err := s.db.SelectContext(ctx, &categories, "SELECT id, name FROM category ORDER BY id")
	return categories, err
}

const productColumns = `
	SELECT p.id, p.name, p.price, COALESCE(p.image, '') AS image, p.stock_qty,
	       COALESCE(c.name, 'Uncategorized') AS category_name
	FROM product p LEFT JOIN category c ON p.CatID = c.id`

// GetProducts retrieves all products with their category name
func (s *Store) GetProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	err := s.db.SelectContext(ctx, &products, productColumns+" ORDER BY p.id")
	return products, err
}
