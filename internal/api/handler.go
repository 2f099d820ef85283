package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"approval-gateway/internal/service"
	"approval-gateway/internal/store"
	"approval-gateway/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "approval-gateway"

// Handler contains HTTP handlers
type Handler struct {
	approval *service.ApprovalService
	store    *store.Store
}

// NewHandler creates a new HTTP handler
func NewHandler(approval *service.ApprovalService, store *store.Store) *Handler {
	return &Handler{
		approval: approval,
		store:    store,
	}
}

// SetupRoutes sets up HTTP routes
func (h *Handler) SetupRoutes(router *gin.Engine) {
	router.Use(gin.Recovery())
	router.Use(prometheusMiddleware())
	router.Use(gin.Logger())

	router.GET("/health", h.healthCheck)
	router.GET("/ready", h.readinessCheck)

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	gateway := router.Group("/api/gateway")
	{
		gateway.POST("/approve-order", h.approveOrder)
		gateway.POST("/manual-approve", h.manualApprove)
		gateway.GET("/pending-orders", h.pendingOrders)
		gateway.GET("/stats", h.stats)
	}
}

// healthCheck probes Order Store connectivity
func (h *Handler) healthCheck(c *gin.Context) {
	if err := h.store.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":    "unhealthy",
			"timestamp": time.Now().Unix(),
			"service":   serviceName,
			"error":     err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   serviceName,
	})
}

// readinessCheck handles readiness check requests
func (h *Handler) readinessCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ready",
		"time":   time.Now().Unix(),
	})
}

// approveOrder runs the approval engine for a submitted order
func (h *Handler) approveOrder(c *gin.Context) {
	var req service.ApproveOrderRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"approved": false,
			"reason":   service.ReasonInvalidData,
			"details":  err.Error(),
		})
		return
	}

	decision, err := h.approval.EvaluateOrder(c.Request.Context(), &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidRequest):
			c.JSON(http.StatusBadRequest, decision)
		case errors.Is(err, service.ErrEvaluationInProgress):
			c.JSON(http.StatusConflict, gin.H{
				"approved": false,
				"orderId":  req.OrderID,
				"reason":   "evaluation already in progress",
			})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{
				"approved": false,
				"orderId":  req.OrderID,
				"reason":   "internal error",
				"error":    err.Error(),
			})
		}
		return
	}

	c.JSON(http.StatusOK, decision)
}

// ManualApproveRequest is the payload of an operator override.
// Approved is a pointer so a missing field is distinguishable from false.
type ManualApproveRequest struct {
	OrderID  string `json:"orderId"`
	Approved *bool  `json:"approved"`
	Reason   string `json:"reason"`
	AdminID  string `json:"adminId"`
}

// manualApprove applies an operator decision to an order
func (h *Handler) manualApprove(c *gin.Context) {
	var req ManualApproveRequest

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "Invalid request body",
			"details": err.Error(),
		})
		return
	}

	if req.OrderID == "" || req.Approved == nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error":   "orderId and approved are required",
		})
		return
	}

	result, err := h.approval.ManualOverride(c.Request.Context(), req.OrderID, *req.Approved, req.Reason, req.AdminID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"orderId": req.OrderID,
			"error":   err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"orderId": result.OrderID,
		"status":  result.Status,
	})
}

// pendingOrders lists the manual review queue
func (h *Handler) pendingOrders(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	result, err := h.approval.ListPendingOrders(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, result)
}

// stats returns aggregate order counts
func (h *Handler) stats(c *gin.Context) {
	stats, err := h.approval.GetStats(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// prometheusMiddleware collects HTTP metrics
func prometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())

		util.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Observe(duration)

		util.HTTPRequestsTotal.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			status,
		).Inc()
	}
}
