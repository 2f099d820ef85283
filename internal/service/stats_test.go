package service

import (
	"context"
	"testing"
	"time"

	"approval-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetStats(t *testing.T) {
	store := newFakeStore()
	now := time.Now()
	yesterday := startOfToday().Add(-time.Hour)

	store.addOrder("o1", "a@example.com", models.OrderStatusPendingApproval, 300, now)
	store.addOrder("o2", "b@example.com", models.OrderStatusApproved, 80, now)
	store.addOrder("o3", "c@example.com", models.OrderStatusApproved, 50, yesterday)
	store.addOrder("o4", "d@example.com", models.OrderStatusRejected, 900, yesterday)
	store.addOrder("o5", "e@example.com", models.OrderStatusShipped, 120, yesterday)

	svc := NewApprovalService(store, nil, nil, testConfig())

	stats, err := svc.GetStats(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 5, stats.Total)
	assert.Equal(t, 1, stats.Pending)
	assert.Equal(t, 2, stats.Approved)
	assert.Equal(t, 1, stats.Rejected)

	// Only orders created since local midnight are bucketed
	assert.Equal(t, map[string]int{
		models.OrderStatusPendingApproval: 1,
		models.OrderStatusApproved:        1,
	}, stats.Today)

	// Statuses with no orders today are absent, not zero
	_, ok := stats.Today[models.OrderStatusRejected]
	assert.False(t, ok)
}

func TestGetStatsIdempotent(t *testing.T) {
	store := newFakeStore()
	store.addOrder("o1", "a@example.com", models.OrderStatusApproved, 80, time.Now())
	store.addOrder("o2", "b@example.com", models.OrderStatusPendingApproval, 300, time.Now())

	svc := NewApprovalService(store, nil, nil, testConfig())
	ctx := context.Background()

	first, err := svc.GetStats(ctx)
	require.NoError(t, err)

	second, err := svc.GetStats(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}
