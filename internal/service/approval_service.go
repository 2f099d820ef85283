package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"approval-gateway/config"
	"approval-gateway/internal/models"
	"approval-gateway/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Datastore is the slice of the order store the approval engine needs
type Datastore interface {
	CountPriorOrdersByEmail(ctx context.Context, email, excludeOrderID string) (int, error)
	UpdateOrderStatus(ctx context.Context, orderID, status string) error
	UpdateOrderStatusIf(ctx context.Context, orderID, status, expected string) (bool, error)
	ListPendingOrders(ctx context.Context, limit, offset int) ([]models.PendingOrder, error)
	CountOrders(ctx context.Context) (int, error)
	CountOrdersByStatus(ctx context.Context, status string) (int, error)
	CountOrdersByStatusSince(ctx context.Context, since time.Time) (map[string]int, error)
	GetVariantsByIDs(ctx context.Context, ids []string) ([]models.Variant, error)
}

// OrderLocker serializes concurrent evaluations of the same order
type OrderLocker interface {
	AcquireOrderLock(ctx context.Context, orderID string, ttl time.Duration) (bool, error)
	ReleaseOrderLock(ctx context.Context, orderID string) error
}

// DecisionPublisher publishes decision events downstream
type DecisionPublisher interface {
	PublishOrderDecision(ctx context.Context, event *models.OrderDecisionEvent) error
	PublishManualDecision(ctx context.Context, event *models.ManualDecisionEvent) error
}

// Decision reasons returned on the wire
const (
	ReasonInvalidData       = "invalid data"
	ReasonValueExceedsLimit = "order value exceeds limit"
	ReasonInsufficientStock = "insufficient stock"
	ReasonReturningCustomer = "returning customer"
	ReasonLowValue          = "low value"
	ReasonManualReview      = "awaiting manual approval"
)

var (
	// ErrInvalidRequest marks a validation failure (HTTP 400)
	ErrInvalidRequest = errors.New("invalid approval request")
	// ErrEvaluationInProgress means another evaluation holds the order lock
	ErrEvaluationInProgress = errors.New("order evaluation already in progress")
)

const orderLockTTL = 30 * time.Second

// ApprovalService decides whether incoming orders are auto-approved,
// rejected, or queued for manual review.
type ApprovalService struct {
	store  Datastore
	locks  OrderLocker
	events DecisionPublisher
	cfg    config.ApprovalConfig
	logger *zap.Logger
}

// NewApprovalService creates a new approval service. locks and events may be
// nil; the service degrades to conditional status updates and no event
// publishing respectively.
func NewApprovalService(store Datastore, locks OrderLocker, events DecisionPublisher, cfg config.ApprovalConfig) *ApprovalService {
	return &ApprovalService{
		store:  store,
		locks:  locks,
		events: events,
		cfg:    cfg,
		logger: util.GetLogger(),
	}
}

// ApproveOrderRequest is the payload of an approval evaluation
type ApproveOrderRequest struct {
	OrderID      string        `json:"orderId"`
	CustomerData CustomerData  `json:"customerData"`
	Items        []ItemRequest `json:"items"`
	TotalAmount  float64       `json:"totalAmount"`
}

// CustomerData identifies the customer placing the order
type CustomerData struct {
	Email string `json:"email"`
}

// ItemRequest is a single requested line item
type ItemRequest struct {
	VariantID string `json:"variantId"`
	Quantity  int    `json:"quantity"`
}

// InsufficientItem describes a line item that blocked approval
type InsufficientItem struct {
	VariantID string `json:"variantId"`
	Name      string `json:"name"`
	Requested int    `json:"requested"`
	Available int    `json:"available"`
}

// Decision is the outcome of an approval evaluation
type Decision struct {
	Approved             bool               `json:"approved"`
	OrderID              string             `json:"orderId,omitempty"`
	Reason               string             `json:"reason"`
	MaxAllowed           float64            `json:"maxAllowed,omitempty"`
	OutOfStock           []InsufficientItem `json:"outOfStock,omitempty"`
	RequiresManualReview bool               `json:"requiresManualReview,omitempty"`
	Status               string             `json:"status,omitempty"`
}

// EvaluateOrder runs the approval policy for a submitted order: validation,
// value ceiling, stock sufficiency, customer classification, then either
// auto-approval or queueing for manual review. Rejection branches do not
// write a status; only approval and queueing persist.
func (s *ApprovalService) EvaluateOrder(ctx context.Context, req *ApproveOrderRequest) (*Decision, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalService.EvaluateOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.ApprovalDecisionLatency.Observe(time.Since(start).Seconds())
	}()

	if !s.validate(req) {
		util.OrdersInvalidTotal.Inc()
		return &Decision{Approved: false, OrderID: req.OrderID, Reason: ReasonInvalidData}, ErrInvalidRequest
	}

	release, err := s.lockOrder(ctx, req.OrderID)
	if err != nil {
		return nil, err
	}
	defer release()

	if req.TotalAmount > s.cfg.MaxOrderValue {
		util.OrdersRejectedTotal.WithLabelValues("value_limit").Inc()
		s.logger.Info("Order rejected: value exceeds limit",
			zap.String("order_id", req.OrderID),
			zap.Float64("total_amount", req.TotalAmount),
			zap.Float64("max_allowed", s.cfg.MaxOrderValue))
		return &Decision{
			Approved:   false,
			OrderID:    req.OrderID,
			Reason:     ReasonValueExceedsLimit,
			MaxAllowed: s.cfg.MaxOrderValue,
		}, nil
	}

	outOfStock, err := s.checkStock(ctx, req.Items)
	if err != nil {
		util.ApprovalErrorsTotal.WithLabelValues("stock_check").Inc()
		return nil, fmt.Errorf("stock check failed: %w", err)
	}
	if len(outOfStock) > 0 {
		util.OrdersRejectedTotal.WithLabelValues("insufficient_stock").Inc()
		util.StockChecksFailed.Inc()
		s.logger.Info("Order rejected: insufficient stock",
			zap.String("order_id", req.OrderID),
			zap.Int("items", len(outOfStock)))
		return &Decision{
			Approved:   false,
			OrderID:    req.OrderID,
			Reason:     ReasonInsufficientStock,
			OutOfStock: outOfStock,
		}, nil
	}

	email := normalizeEmail(req.CustomerData.Email)
	priorOrders, err := s.store.CountPriorOrdersByEmail(ctx, email, req.OrderID)
	if err != nil {
		util.ApprovalErrorsTotal.WithLabelValues("customer_lookup").Inc()
		return nil, fmt.Errorf("customer lookup failed: %w", err)
	}
	returning := priorOrders > 0

	if returning || req.TotalAmount < s.cfg.LowValueThreshold {
		reason := ReasonLowValue
		label := "low_value"
		if returning {
			reason = ReasonReturningCustomer
			label = "returning_customer"
		}

		if err := s.writeStatus(ctx, req.OrderID, models.OrderStatusApproved); err != nil {
			util.ApprovalErrorsTotal.WithLabelValues("status_write").Inc()
			return nil, err
		}

		util.OrdersAutoApprovedTotal.WithLabelValues(label).Inc()
		s.logger.Info("Order auto-approved",
			zap.String("order_id", req.OrderID),
			zap.String("reason", reason))
		s.publishDecision(ctx, req, models.OrderStatusApproved, reason)

		return &Decision{
			Approved: true,
			OrderID:  req.OrderID,
			Reason:   reason,
			Status:   models.OrderStatusApproved,
		}, nil
	}

	if err := s.writeStatus(ctx, req.OrderID, models.OrderStatusPendingApproval); err != nil {
		util.ApprovalErrorsTotal.WithLabelValues("status_write").Inc()
		return nil, err
	}

	util.OrdersQueuedTotal.Inc()
	s.logger.Info("Order queued for manual review",
		zap.String("order_id", req.OrderID),
		zap.Float64("total_amount", req.TotalAmount))
	s.publishDecision(ctx, req, models.OrderStatusPendingApproval, ReasonManualReview)

	return &Decision{
		Approved:             false,
		OrderID:              req.OrderID,
		Reason:               ReasonManualReview,
		RequiresManualReview: true,
		Status:               models.OrderStatusPendingApproval,
	}, nil
}

// validate performs the fail-fast input check; no side effects
func (s *ApprovalService) validate(req *ApproveOrderRequest) bool {
	if req.OrderID == "" || len(req.Items) == 0 {
		return false
	}
	if strings.TrimSpace(req.CustomerData.Email) == "" {
		return false
	}
	if req.TotalAmount < 0 {
		return false
	}
	for _, item := range req.Items {
		if item.VariantID == "" || item.Quantity <= 0 {
			return false
		}
	}
	return true
}

// lockOrder takes the per-order evaluation lock. Lock infrastructure being
// down degrades to the conditional status update alone; a lock held by
// another evaluation is a conflict.
func (s *ApprovalService) lockOrder(ctx context.Context, orderID string) (func(), error) {
	if s.locks == nil {
		return func() {}, nil
	}

	acquired, err := s.locks.AcquireOrderLock(ctx, orderID, orderLockTTL)
	if err != nil {
		s.logger.Warn("Order lock unavailable, relying on conditional update",
			zap.String("order_id", orderID),
			zap.Error(err))
		return func() {}, nil
	}
	if !acquired {
		return nil, ErrEvaluationInProgress
	}

	return func() {
		if err := s.locks.ReleaseOrderLock(ctx, orderID); err != nil {
			s.logger.Warn("Failed to release order lock",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}, nil
}

// checkStock evaluates every requested item against current variant stock.
// All items are checked; any insufficiency blocks the whole order.
func (s *ApprovalService) checkStock(ctx context.Context, items []ItemRequest) ([]InsufficientItem, error) {
	variantIDs := make([]string, len(items))
	for i, item := range items {
		variantIDs[i] = item.VariantID
	}

	variants, err := s.store.GetVariantsByIDs(ctx, variantIDs)
	if err != nil {
		return nil, err
	}

	variantMap := make(map[string]*models.Variant, len(variants))
	for i := range variants {
		variantMap[variants[i].ID] = &variants[i]
	}

	var insufficient []InsufficientItem
	for _, item := range items {
		variant, ok := variantMap[item.VariantID]
		if !ok {
			return nil, fmt.Errorf("variant not found: %s", item.VariantID)
		}
		if item.Quantity > variant.Stock {
			insufficient = append(insufficient, InsufficientItem{
				VariantID: variant.ID,
				Name:      variant.Name,
				Requested: item.Quantity,
				Available: variant.Stock,
			})
		}
	}

	return insufficient, nil
}

// writeStatus persists a decision via conditional update; the order must
// still be in pending status, otherwise it was already decided elsewhere.
func (s *ApprovalService) writeStatus(ctx context.Context, orderID, status string) error {
	updated, err := s.store.UpdateOrderStatusIf(ctx, orderID, status, models.OrderStatusPending)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if !updated {
		return fmt.Errorf("order %s not found or no longer pending", orderID)
	}
	return nil
}

func (s *ApprovalService) publishDecision(ctx context.Context, req *ApproveOrderRequest, status, reason string) {
	if s.events == nil {
		return
	}

	event := &models.OrderDecisionEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: decisionEventType(status),
			Timestamp: time.Now(),
		},
		OrderID:     req.OrderID,
		Email:       normalizeEmail(req.CustomerData.Email),
		TotalAmount: req.TotalAmount,
		Status:      status,
		Reason:      reason,
	}

	if err := s.events.PublishOrderDecision(ctx, event); err != nil {
		s.logger.Error("Failed to publish order decision event",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
	}
}

func decisionEventType(status string) string {
	switch status {
	case models.OrderStatusApproved:
		return models.EventTypeOrderApproved
	case models.OrderStatusRejected:
		return models.EventTypeOrderRejected
	default:
		return models.EventTypeOrderQueued
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// OverrideResult is the outcome of a manual override
type OverrideResult struct {
	OrderID string `json:"orderId"`
	Status  string `json:"status"`
}

// ManualOverride sets an order's final status from an operator decision.
// The write is unconditional: the override is the authoritative escape
// hatch and may re-decide an order in any status.
func (s *ApprovalService) ManualOverride(ctx context.Context, orderID string, approved bool, reason, operatorID string) (*OverrideResult, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalService.ManualOverride")
	defer span.End()

	status := models.OrderStatusRejected
	if approved {
		status = models.OrderStatusApproved
	}

	if err := s.store.UpdateOrderStatus(ctx, orderID, status); err != nil {
		return nil, fmt.Errorf("failed to update order status: %w", err)
	}

	util.ManualOverridesTotal.WithLabelValues(status).Inc()
	s.logger.Info("Manual override applied",
		zap.String("order_id", orderID),
		zap.String("status", status),
		zap.String("operator_id", operatorID))

	if s.events != nil {
		event := &models.ManualDecisionEvent{
			BaseEvent: models.BaseEvent{
				EventID:   uuid.New().String(),
				EventType: models.EventTypeOrderManualDecision,
				Timestamp: time.Now(),
			},
			OrderID:    orderID,
			Status:     status,
			Reason:     reason,
			OperatorID: operatorID,
		}
		if err := s.events.PublishManualDecision(ctx, event); err != nil {
			s.logger.Error("Failed to publish manual decision event",
				zap.String("order_id", orderID),
				zap.Error(err))
		}
	}

	return &OverrideResult{OrderID: orderID, Status: status}, nil
}
