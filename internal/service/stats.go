package service

import (
	"context"
	"fmt"
	"time"

	"approval-gateway/internal/models"
	"approval-gateway/internal/util"
)

// Stats aggregates order counts by status, plus a per-status breakdown of
// orders created since local midnight.
type Stats struct {
	Total    int            `json:"total"`
	Pending  int            `json:"pending"`
	Approved int            `json:"approved"`
	Rejected int            `json:"rejected"`
	Today    map[string]int `json:"today"`
}

// GetStats computes fresh aggregate counts on every call; nothing is cached.
// Pending means pending_approval. Statuses with no orders today are absent
// from the Today map.
func (s *ApprovalService) GetStats(ctx context.Context) (*Stats, error) {
	ctx, span := util.StartSpan(ctx, "ApprovalService.GetStats")
	defer span.End()

	total, err := s.store.CountOrders(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count orders: %w", err)
	}

	pending, err := s.store.CountOrdersByStatus(ctx, models.OrderStatusPendingApproval)
	if err != nil {
		return nil, fmt.Errorf("failed to count pending orders: %w", err)
	}

	approved, err := s.store.CountOrdersByStatus(ctx, models.OrderStatusApproved)
	if err != nil {
		return nil, fmt.Errorf("failed to count approved orders: %w", err)
	}

	rejected, err := s.store.CountOrdersByStatus(ctx, models.OrderStatusRejected)
	if err != nil {
		return nil, fmt.Errorf("failed to count rejected orders: %w", err)
	}

	today, err := s.store.CountOrdersByStatusSince(ctx, startOfToday())
	if err != nil {
		return nil, fmt.Errorf("failed to count today's orders: %w", err)
	}

	return &Stats{
		Total:    total,
		Pending:  pending,
		Approved: approved,
		Rejected: rejected,
		Today:    today,
	}, nil
}

// startOfToday returns local midnight of the current day
func startOfToday() time.Time {
	now := time.Now()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
}
