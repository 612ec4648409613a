package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"autoparts-orders/internal/models"
	"autoparts-orders/internal/service"
	"autoparts-orders/internal/util"
)

// Handler exposes the order pipeline over HTTP.
type Handler struct {
	orchestrator *service.OrderSyncOrchestrator
	modernDB     *sqlx.DB
	legacyDB     *sqlx.DB
	logger       *zap.Logger
}

// NewHandler creates an HTTP handler. The database handles are only used
// by the readiness probe; legacyDB is nil when the service booted without
// a legacy store connection.
func NewHandler(orchestrator *service.OrderSyncOrchestrator, modernDB, legacyDB *sqlx.DB) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		modernDB:     modernDB,
		legacyDB:     legacyDB,
		logger:       util.GetLogger(),
	}
}

// SetupRouter configures all routes and middleware.
func SetupRouter(h *Handler, env string) *gin.Engine {
	if env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(metricsMiddleware())

	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/orders", h.CreateOrder)
		v1.GET("/orders/:id", h.GetOrder)
		v1.POST("/orders/:id/status", h.UpdateStatus)
		v1.POST("/orders/:id/retry-sync", h.RetrySync)
		v1.POST("/quotes/tax", h.QuoteTax)
		v1.POST("/quotes/shipping", h.QuoteShipping)
	}

	return router
}

func metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		util.HTTPRequestsTotal.WithLabelValues(c.Request.Method, path, status).Inc()
		util.HTTPRequestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
	}
}

// CreateOrder handles POST /api/v1/orders. The idempotency key comes from
// the Idempotency-Key header or the request body; header wins.
func (h *Handler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if key := c.GetHeader("Idempotency-Key"); key != "" {
		req.IdempotencyKey = key
	}

	resp, err := h.orchestrator.CreateOrder(c.Request.Context(), &req)
	if err != nil {
		h.writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, resp)
}

// GetOrder handles GET /api/v1/orders/:id
func (h *Handler) GetOrder(c *gin.Context) {
	resp, err := h.orchestrator.GetOrder(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required"`
}

// UpdateStatus handles POST /api/v1/orders/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.Status.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status: " + string(req.Status)})
		return
	}

	result, err := h.orchestrator.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// RetrySync handles POST /api/v1/orders/:id/retry-sync. Operators use it
// to force reconciliation instead of waiting for the worker.
func (h *Handler) RetrySync(c *gin.Context) {
	status, err := h.orchestrator.RetryLegacySync(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"unified_id":          c.Param("id"),
		"legacy_write_status": status,
	})
}

type taxQuoteRequest struct {
	Lines      []models.OrderLineInput `json:"lines" binding:"required,min=1"`
	ShippingHT decimal.Decimal         `json:"shipping_ht"`
	DiscountHT decimal.Decimal         `json:"discount_ht"`
}

// QuoteTax handles POST /api/v1/quotes/tax
func (h *Handler) QuoteTax(c *gin.Context) {
	var req taxQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	summary, err := h.orchestrator.GetTaxSummary(req.Lines, req.ShippingHT, req.DiscountHT)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

type shippingQuoteRequest struct {
	WeightKg      float64             `json:"weight_kg"`
	Destination   models.Destination  `json:"destination"`
	OrderAmountHT decimal.Decimal     `json:"order_amount_ht"`
	ServiceLevel  models.ServiceLevel `json:"service_level,omitempty"`
}

// QuoteShipping handles POST /api/v1/quotes/shipping
func (h *Handler) QuoteShipping(c *gin.Context) {
	var req shippingQuoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quote, err := h.orchestrator.QuoteShipping(c.Request.Context(), req.WeightKg, req.Destination, req.OrderAmountHT, req.ServiceLevel)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// Health handles GET /health
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "autoparts-orders",
	})
}

// Ready handles GET /ready. The modern store is required; a dead legacy
// store only marks the service degraded since creates still succeed.
func (h *Handler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	stores := gin.H{"modern": "ok", "legacy": "ok"}
	httpStatus := http.StatusOK
	overall := "ready"

	if err := h.modernDB.PingContext(ctx); err != nil {
		stores["modern"] = "unavailable"
		overall = "not ready"
		httpStatus = http.StatusServiceUnavailable
	}
	if h.legacyDB == nil {
		stores["legacy"] = "unavailable"
		if overall == "ready" {
			overall = "degraded"
		}
	} else if err := h.legacyDB.PingContext(ctx); err != nil {
		stores["legacy"] = "unavailable"
		if overall == "ready" {
			overall = "degraded"
		}
	}

	c.JSON(httpStatus, gin.H{"status": overall, "stores": stores})
}

func (h *Handler) writeError(c *gin.Context, err error) {
	var (
		validationErr  *models.ValidationError
		transitionErr  *models.InvalidTransitionError
		conflictErr    *models.IdempotencyConflictError
		invariantErr   *models.InvariantViolationError
		unavailableErr *models.StoreUnavailableError
	)

	switch {
	case errors.Is(err, models.ErrOrderNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})

	case errors.As(err, &validationErr):
		c.JSON(http.StatusBadRequest, gin.H{"error": validationErr.Error()})

	case errors.As(err, &transitionErr):
		c.JSON(http.StatusConflict, gin.H{
			"error": transitionErr.Error(),
			"from":  transitionErr.From,
			"to":    transitionErr.To,
		})

	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, gin.H{"error": conflictErr.Error()})

	case errors.As(err, &invariantErr):
		h.logger.Error("Calculation invariant violated", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": invariantErr.Error()})

	case errors.As(err, &unavailableErr):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": unavailableErr.Error()})

	default:
		h.logger.Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
