package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pos-terminal/internal/models"
	"pos-terminal/internal/service"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct{}

func (stubSource) GetCategories(context.Context) ([]models.Category, error) {
	return []models.Category{{ID: 1, Name: "Food"}}, nil
}

func (stubSource) GetProducts(context.Context) ([]models.Product, error) {
	return []models.Product{
		{ID: 1, Name: "Burger", UnitPrice: decimal.RequireFromString("10.00"), StockQuantity: 5, CategoryName: "Food"},
		{ID: 2, Name: "Soda", UnitPrice: decimal.RequireFromString("5.00"), StockQuantity: 1, CategoryName: "Food"},
	}, nil
}

// salesDB records committed sales; fail makes every transaction fail at commit
type salesDB struct {
	sales   []models.Sale
	details []models.SaleDetail
	fail    bool
}

func (d *salesDB) BeginSale(context.Context) (store.SaleWriter, error) {
	return &salesTx{db: d}, nil
}

func (d *salesDB) GetSaleByID(_ context.Context, id int64) (*models.Sale, error) {
	for _, s := range d.sales {
		if s.ID == id {
			sale := s
			return &sale, nil
		}
	}
	return nil, fmt.Errorf("sale %d: %w", id, store.ErrNotFound)
}

func (d *salesDB) GetSaleDetails(_ context.Context, saleID int64) ([]models.SaleDetail, error) {
	var out []models.SaleDetail
	for _, det := range d.details {
		if det.SaleID == saleID {
			out = append(out, det)
		}
	}
	return out, nil
}

type salesTx struct {
	db      *salesDB
	sale    models.Sale
	details []models.SaleDetail
}

func (t *salesTx) InsertSale(_ context.Context, sale *models.Sale) error {
	sale.ID = int64(len(t.db.sales) + 1)
	sale.SaleDate = time.Now()
	t.sale = *sale
	return nil
}

func (t *salesTx) InsertSaleDetails(_ context.Context, details []models.SaleDetail) error {
	t.details = details
	return nil
}

func (t *salesTx) DecrementStock(context.Context, []models.SaleDetail) error {
	return nil
}

func (t *salesTx) Commit() error {
	if t.db.fail {
		return errors.New("connection reset")
	}
	t.db.sales = append(t.db.sales, t.sale)
	t.db.details = append(t.db.details, t.details...)
	return nil
}

func (t *salesTx) Rollback() error { return nil }

type mapCache struct {
	keys     map[string]int64
	receipts map[int64]string
}

func (m *mapCache) GetIdempotentSale(_ context.Context, key string) (int64, bool, error) {
	id, ok := m.keys[key]
	return id, ok, nil
}

func (m *mapCache) SetIdempotentSale(_ context.Context, key string, saleID int64, _ time.Duration) error {
	m.keys[key] = saleID
	return nil
}

func (m *mapCache) AcquireLock(context.Context, string, time.Duration) (bool, error) { return true, nil }

func (m *mapCache) ReleaseLock(context.Context, string) error { return nil }

func (m *mapCache) SetReceipt(_ context.Context, saleID int64, receipt string, _ time.Duration) error {
	m.receipts[saleID] = receipt
	return nil
}

func (m *mapCache) GetReceipt(_ context.Context, saleID int64) (string, bool, error) {
	r, ok := m.receipts[saleID]
	return r, ok, nil
}

type nopPublisher struct{}

func (nopPublisher) PublishSaleCommitted(context.Context, *models.SaleCommittedEvent) error {
	return nil
}

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func setupRouter(t *testing.T, checks map[string]Pinger) (*gin.Engine, *salesDB) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	util.SetLogger(zap.NewNop())

	catalog := service.NewCatalog(stubSource{})
	catalog.Load(context.Background())

	db := &salesDB{}
	terminal := service.NewTerminalService(
		catalog,
		service.NewCartEngine(catalog),
		service.NewCommitter(db),
		service.NewStaffProvider(1),
		service.NewQRCodeGenerator(128),
		db,
		&mapCache{keys: map[string]int64{}, receipts: map[int64]string{}},
		nopPublisher{},
		service.TerminalOptions{IdempotencyTTL: time.Hour, ReceiptTTL: time.Hour},
	)

	router := gin.New()
	NewHandler(terminal, checks).SetupRoutes(router, []string{"http://localhost:3000"})
	return router, db
}

func doRequest(router *gin.Engine, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestListProducts(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/products", nil, nil)

	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Products []models.Product `json:"products"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Len(t, body.Products, 2)
	assert.Equal(t, "Burger", body.Products[0].Name)
}

func TestGetProductNotFound(t *testing.T) {
	router, _ := setupRouter(t, nil)

	assert.Equal(t, http.StatusNotFound, doRequest(router, http.MethodGet, "/api/v1/products/99", nil, nil).Code)
	assert.Equal(t, http.StatusBadRequest, doRequest(router, http.MethodGet, "/api/v1/products/abc", nil, nil).Code)
}

func TestAddCartItemStatuses(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 2}, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var view service.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Equal(t, "22", view.Totals.Total.String())

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2, "quantity": 5}, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 0}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 42}, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCheckoutFlow(t *testing.T) {
	router, db := setupRouter(t, nil)

	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1, "quantity": 2}, nil).Code)
	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2}, nil).Code)

	headers := map[string]string{"Idempotency-Key": "abc", staffHeader: "5"}
	w := doRequest(router, http.MethodPost, "/api/v1/checkout", gin.H{"payment_method": "Credit Card"}, headers)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp service.PlaceOrderResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, int64(1), resp.SaleID)
	assert.Equal(t, int64(5), resp.StaffID)
	assert.Equal(t, models.PaymentCard, resp.PaymentMethod)
	assert.Equal(t, "27.5", resp.Totals.Total.String())
	require.Len(t, db.sales, 1)
	assert.Equal(t, int64(5), db.sales[0].StaffID)

	w = doRequest(router, http.MethodPost, "/api/v1/checkout", gin.H{"payment_method": "Credit Card"}, headers)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, db.sales, 1)

	w = doRequest(router, http.MethodGet, "/api/v1/sales/1/receipt", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Order #1\n")
	assert.Contains(t, w.Body.String(), "Payment Method: Card")

	w = doRequest(router, http.MethodGet, "/api/v1/sales/1", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/sales/2", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCheckoutErrors(t *testing.T) {
	router, db := setupRouter(t, nil)

	w := doRequest(router, http.MethodPost, "/api/v1/checkout", gin.H{"payment_method": "cash"}, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1}, nil).Code)

	w = doRequest(router, http.MethodPost, "/api/v1/checkout", gin.H{"payment_method": "bitcoin"}, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	db.fail = true
	w = doRequest(router, http.MethodPost, "/api/v1/checkout", gin.H{"payment_method": "cash"}, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)

	w = doRequest(router, http.MethodGet, "/api/v1/cart", nil, nil)
	var view service.CartView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &view))
	assert.Len(t, view.Lines, 1)
}

func TestInvalidStaffHeader(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/cart", nil, map[string]string{staffHeader: "abc"})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPaymentQR(t *testing.T) {
	router, _ := setupRouter(t, nil)

	w := doRequest(router, http.MethodGet, "/api/v1/checkout/qr", nil, nil)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 1}, nil).Code)

	w = doRequest(router, http.MethodGet, "/api/v1/checkout/qr", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("\x89PNG")))
}

func TestCancelCartRestoresStock(t *testing.T) {
	router, _ := setupRouter(t, nil)

	require.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2}, nil).Code)
	assert.Equal(t, http.StatusConflict,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2}, nil).Code)

	require.Equal(t, http.StatusOK, doRequest(router, http.MethodDelete, "/api/v1/cart", nil, nil).Code)

	assert.Equal(t, http.StatusOK,
		doRequest(router, http.MethodPost, "/api/v1/cart/items", gin.H{"product_id": 2}, nil).Code)
	assert.Equal(t, http.StatusOK,
		doRequest(router, http.MethodDelete, "/api/v1/cart/items/2", nil, nil).Code)
	assert.Equal(t, http.StatusNotFound,
		doRequest(router, http.MethodDelete, "/api/v1/cart/items/2", nil, nil).Code)
}

func TestReadiness(t *testing.T) {
	router, _ := setupRouter(t, map[string]Pinger{"redis": pinger{}})
	assert.Equal(t, http.StatusOK, doRequest(router, http.MethodGet, "/ready", nil, nil).Code)

	router, _ = setupRouter(t, map[string]Pinger{"database": pinger{err: errors.New("down")}})
	assert.Equal(t, http.StatusServiceUnavailable, doRequest(router, http.MethodGet, "/ready", nil, nil).Code)
}
