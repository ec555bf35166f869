package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"pos-terminal/internal/service"
	"pos-terminal/internal/store"
	"pos-terminal/internal/util"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Pinger is a dependency checked by the readiness probe
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler contains HTTP handlers
type Handler struct {
	terminal *service.TerminalService
	checks   map[string]Pinger
	logger   *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(terminal *service.TerminalService, checks map[string]Pinger) *Handler {
	return &Handler{
		terminal: terminal,
		checks:   checks,
		logger:   util.GetLogger(),
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine, allowedOrigins []string) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(requestLogger(h.logger))
	router.Use(cors.New(corsConfig(allowedOrigins)))

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	v1.Use(staffMiddleware())
	{
		v1.GET("/categories", h.listCategories)
		v1.GET("/products", h.listProducts)
		v1.GET("/products/:id", h.getProduct)

		v1.GET("/cart", h.getCart)
		v1.POST("/cart/items", h.addCartItem)
		v1.DELETE("/cart/items/:product_id", h.removeCartItem)
		v1.DELETE("/cart", h.cancelCart)

		v1.GET("/checkout/qr", h.paymentQR)
		v1.POST("/checkout", h.checkout)

		v1.GET("/sales/:id", h.getSale)
		v1.GET("/sales/:id/receipt", h.getReceipt)
	}
}

// healthCheck handles health check requests
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "healthy",
		"time":   time.Now().Unix(),
	})
}

// readinessCheck reports unready when any dependency fails to answer
func (h *Handler) readinessCheck(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
	defer cancel()

	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unavailable",
				"reason": name + " not reachable",
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

func (h *Handler) listCategories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.terminal.Categories()})
}

func (h *Handler) listProducts(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"products": h.terminal.Products()})
}

func (h *Handler) getProduct(c *gin.Context) {
	productID, ok := parseID(c, "id")
	if !ok {
		return
	}

	product, err := h.terminal.Product(productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, product)
}

func (h *Handler) getCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.terminal.Cart())
}

// AddItemRequest is the body of POST /cart/items. Quantity defaults to 1.
type AddItemRequest struct {
	ProductID int64 `json:"product_id" binding:"required"`
	Quantity  *int  `json:"quantity"`
}

func (h *Handler) addCartItem(c *gin.Context) {
	var req AddItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	quantity := 1
	if req.Quantity != nil {
		quantity = *req.Quantity
	}

	view, err := h.terminal.AddItem(c.Request.Context(), req.ProductID, quantity)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) removeCartItem(c *gin.Context) {
	productID, ok := parseID(c, "product_id")
	if !ok {
		return
	}

	view, err := h.terminal.RemoveItem(c.Request.Context(), productID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (h *Handler) cancelCart(c *gin.Context) {
	c.JSON(http.StatusOK, h.terminal.CancelOrder(c.Request.Context()))
}

// paymentQR renders the QR code for the cart total. Failure is a warning, not fatal to the cart.
func (h *Handler) paymentQR(c *gin.Context) {
	png, err := h.terminal.PaymentQR(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":   "Could not generate QR code",
			"details": err.Error(),
		})
		return
	}
	c.Data(http.StatusOK, "image/png", png)
}

// checkout handles order placement
func (h *Handler) checkout(c *gin.Context) {
	var req service.PlaceOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.IdempotencyKey == "" {
		req.IdempotencyKey = c.GetHeader("Idempotency-Key")
	}

	resp, err := h.terminal.PlaceOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	status := http.StatusCreated
	if resp.Replayed {
		status = http.StatusOK
	}
	c.JSON(status, resp)
}

// getSale handles get sale by ID
func (h *Handler) getSale(c *gin.Context) {
	saleID, ok := parseID(c, "id")
	if !ok {
		return
	}

	sale, details, err := h.terminal.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sale":  sale,
		"items": details,
	})
}

func (h *Handler) getReceipt(c *gin.Context) {
	saleID, ok := parseID(c, "id")
	if !ok {
		return
	}

	receipt, err := h.terminal.GetReceipt(c.Request.Context(), saleID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.String(http.StatusOK, receipt)
}

// corsConfig allows every origin when none are configured or "*" is listed
func corsConfig(allowedOrigins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Idempotency-Key", staffHeader},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}

	for _, origin := range allowedOrigins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	if len(allowedOrigins) == 0 {
		cfg.AllowAllOrigins = true
		return cfg
	}

	cfg.AllowOrigins = allowedOrigins
	return cfg
}

func parseID(c *gin.Context, param string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(param), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid " + param,
		})
		return 0, false
	}
	return id, true
}

// writeError maps domain errors onto HTTP statuses
func (h *Handler) writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	message := "Internal error"

	switch {
	case errors.Is(err, service.ErrNotFound), errors.Is(err, store.ErrNotFound):
		status, message = http.StatusNotFound, "Not found"
	case errors.Is(err, service.ErrOutOfStock):
		status, message = http.StatusConflict, "Out of stock"
	case errors.Is(err, service.ErrCheckoutInProgress):
		status, message = http.StatusConflict, "Checkout already in progress"
	case errors.Is(err, service.ErrInvalidQuantity):
		status, message = http.StatusBadRequest, "Invalid quantity"
	case errors.Is(err, service.ErrInvalidPaymentMethod):
		status, message = http.StatusBadRequest, "Invalid payment method"
	case errors.Is(err, service.ErrEmptyOrder):
		status, message = http.StatusUnprocessableEntity, "Cart is empty"
	case errors.Is(err, service.ErrStorageFailure):
		message = "Failed to save sale"
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}

	c.JSON(status, gin.H{
		"error":   message,
		"details": err.Error(),
	})
}
