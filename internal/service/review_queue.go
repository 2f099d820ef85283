package service

import (
	"context"
	"fmt"

	"approval-gateway/internal/models"
	"approval-gateway/internal/util"
)

const defaultPendingListLimit = 20

// PendingOrdersResult is a page of the manual review queue
type PendingOrdersResult struct {
	Orders []models.PendingOrder `json:"orders"`
	Total  int                   `json:"total"`
	Limit  int                   `json:"limit"`
	Offset int                   `json:"offset"`
}

// ListPendingOrders returns orders awaiting manual review, most recent
// first, with line items expanded. The total count is computed over the
// same filter independently of pagination.
func (s *ApprovalService) ListPendingOrders(ctx context.Context, limit, offset int) (*PendingOrdersResult, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalService.ListPendingOrders")
	defer span.End()

	if limit <= 0 {
		limit = defaultPendingListLimit
	}
	if s.cfg.PendingListMaxLimit > 0 && limit > s.cfg.PendingListMaxLimit {
		limit = s.cfg.PendingListMaxLimit
	}
	if offset < 0 {
		offset = 0
	}

	orders, err := s.store.ListPendingOrders(ctx, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending orders: %w", err)
	}

	total, err := s.store.CountOrdersByStatus(ctx, models.OrderStatusPendingApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}

	return &PendingOrdersResult{
		Orders: orders,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}
