package service

import (
	"context"
	"sort"
	"strings"
	"testing"
	"time"

	"approval-gateway/config"
	"approval-gateway/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory Datastore for engine tests
type fakeStore struct {
	orders       map[string]*models.Order
	variants     map[string]models.Variant
	statusWrites int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		orders:   make(map[string]*models.Order),
		variants: make(map[string]models.Variant),
	}
}

func (f *fakeStore) addOrder(id, email, status string, total float64, createdAt time.Time) {
	f.orders[id] = &models.Order{
		ID:          id,
		Email:       email,
		TotalAmount: total,
		Status:      status,
		CreatedAt:   createdAt,
	}
}

func (f *fakeStore) addVariant(id, name string, stock int) {
	f.variants[id] = models.Variant{ID: id, ProductID: "prod-" + id, Name: name, Stock: stock}
}

func (f *fakeStore) CountPriorOrdersByEmail(_ context.Context, email, excludeOrderID string) (int, error) {
	count := 0
	for id, o := range f.orders {
		if id == excludeOrderID {
			continue
		}
		if strings.ToLower(strings.TrimSpace(o.Email)) == email {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) UpdateOrderStatus(_ context.Context, orderID, status string) error {
	if o, ok := f.orders[orderID]; ok {
		o.Status = status
	}
	f.statusWrites++
	return nil
}

func (f *fakeStore) UpdateOrderStatusIf(_ context.Context, orderID, status, expected string) (bool, error) {
	o, ok := f.orders[orderID]
	if !ok || o.Status != expected {
		return false, nil
	}
	o.Status = status
	f.statusWrites++
	return true, nil
}

func (f *fakeStore) ListPendingOrders(_ context.Context, limit, offset int) ([]models.PendingOrder, error) {
	var pending []models.PendingOrder
	for _, o := range f.orders {
		if o.Status == models.OrderStatusPendingApproval {
			pending = append(pending, models.PendingOrder{Order: *o, Items: []models.PendingOrderItem{}})
		}
	}
	sort.Slice(pending, func(i, j int) bool {
		return pending[i].CreatedAt.After(pending[j].CreatedAt)
	})
	if offset >= len(pending) {
		return []models.PendingOrder{}, nil
	}
	end := offset + limit
	if end > len(pending) {
		end = len(pending)
	}
	return pending[offset:end], nil
}

func (f *fakeStore) CountOrders(_ context.Context) (int, error) {
	return len(f.orders), nil
}

func (f *fakeStore) CountOrdersByStatus(_ context.Context, status string) (int, error) {
	count := 0
	for _, o := range f.orders {
		if o.Status == status {
			count++
		}
	}
	return count, nil
}

func (f *fakeStore) CountOrdersByStatusSince(_ context.Context, since time.Time) (map[string]int, error) {
	counts := make(map[string]int)
	for _, o := range f.orders {
		if !o.CreatedAt.Before(since) {
			counts[o.Status]++
		}
	}
	return counts, nil
}

func (f *fakeStore) GetVariantsByIDs(_ context.Context, ids []string) ([]models.Variant, error) {
	var variants []models.Variant
	for _, id := range ids {
		if v, ok := f.variants[id]; ok {
			variants = append(variants, v)
		}
	}
	return variants, nil
}

// fakeLocker simulates the per-order evaluation lock
type fakeLocker struct {
	held map[string]bool
}

func (f *fakeLocker) AcquireOrderLock(_ context.Context, orderID string, _ time.Duration) (bool, error) {
	if f.held[orderID] {
		return false, nil
	}
	return true, nil
}

func (f *fakeLocker) ReleaseOrderLock(_ context.Context, orderID string) error {
	return nil
}

func testConfig() config.ApprovalConfig {
	return config.ApprovalConfig{
		MaxOrderValue:       1000,
		LowValueThreshold:   100,
		PendingListMaxLimit: 200,
	}
}

func validRequest() *ApproveOrderRequest {
	return &ApproveOrderRequest{
		OrderID:      "order-1",
		CustomerData: CustomerData{Email: "buyer@example.com"},
		Items:        []ItemRequest{{VariantID: "var-1", Quantity: 1}},
		TotalAmount:  300,
	}
}

func TestEvaluateOrderValidation(t *testing.T) {
	store := newFakeStore()
	svc := NewApprovalService(store, nil, nil, testConfig())
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*ApproveOrderRequest)
	}{
		{"missing order id", func(r *ApproveOrderRequest) { r.OrderID = "" }},
		{"empty email", func(r *ApproveOrderRequest) { r.CustomerData.Email = "  " }},
		{"empty items", func(r *ApproveOrderRequest) { r.Items = nil }},
		{"zero quantity", func(r *ApproveOrderRequest) { r.Items[0].Quantity = 0 }},
		{"missing variant reference", func(r *ApproveOrderRequest) { r.Items[0].VariantID = "" }},
		{"negative total", func(r *ApproveOrderRequest) { r.TotalAmount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			decision, err := svc.EvaluateOrder(ctx, req)

			assert.ErrorIs(t, err, ErrInvalidRequest)
			require.NotNil(t, decision)
			assert.False(t, decision.Approved)
			assert.Equal(t, ReasonInvalidData, decision.Reason)
			assert.Zero(t, store.statusWrites, "validation failure must not write a status")
		})
	}
}

func TestEvaluateOrderValueCeiling(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "buyer@example.com", models.OrderStatusPending, 1500, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.TotalAmount = 1500

	decision, err := svc.EvaluateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonValueExceedsLimit, decision.Reason)
	assert.Equal(t, float64(1000), decision.MaxAllowed)
	assert.Zero(t, store.statusWrites, "value ceiling rejection must not write a status")
	assert.Equal(t, models.OrderStatusPending, store.orders["order-1"].Status)
}

func TestEvaluateOrderStockBlockingIsAllOrNothing(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "buyer@example.com", models.OrderStatusPending, 300, time.Now())
	store.addVariant("var-1", "Blue / M", 10)
	store.addVariant("var-2", "Red / L", 1)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.Items = []ItemRequest{
		{VariantID: "var-1", Quantity: 2},
		{VariantID: "var-2", Quantity: 5},
	}

	decision, err := svc.EvaluateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.Equal(t, ReasonInsufficientStock, decision.Reason)
	require.Len(t, decision.OutOfStock, 1, "only the understocked item is listed")
	assert.Equal(t, "var-2", decision.OutOfStock[0].VariantID)
	assert.Equal(t, "Red / L", decision.OutOfStock[0].Name)
	assert.Equal(t, 5, decision.OutOfStock[0].Requested)
	assert.Equal(t, 1, decision.OutOfStock[0].Available)
	assert.Zero(t, store.statusWrites, "stock rejection must not write a status")
}

func TestEvaluateOrderReturningCustomer(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-0", "buyer@example.com", models.OrderStatusDelivered, 50, time.Now().Add(-48*time.Hour))
	store.addOrder("order-1", "buyer@example.com", models.OrderStatusPending, 500, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.TotalAmount = 500

	decision, err := svc.EvaluateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, ReasonReturningCustomer, decision.Reason)
	assert.Equal(t, models.OrderStatusApproved, store.orders["order-1"].Status)
}

func TestEvaluateOrderEmailNormalization(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-0", "buyer@example.com", models.OrderStatusDelivered, 50, time.Now().Add(-48*time.Hour))
	store.addOrder("order-1", "buyer@example.com", models.OrderStatusPending, 500, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.CustomerData.Email = "  Buyer@Example.COM "
	req.TotalAmount = 500

	decision, err := svc.EvaluateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, ReasonReturningCustomer, decision.Reason)
}

func TestEvaluateOrderLowValueNewCustomer(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "first@example.com", models.OrderStatusPending, 80, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.CustomerData.Email = "first@example.com"
	req.TotalAmount = 80

	decision, err := svc.EvaluateOrder(context.Background(), req)

	require.NoError(t, err)
	assert.True(t, decision.Approved)
	assert.Equal(t, ReasonLowValue, decision.Reason)
	assert.Equal(t, models.OrderStatusApproved, store.orders["order-1"].Status)
}

func TestEvaluateOrderFallbackToManualReview(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-old", "other@example.com", models.OrderStatusPendingApproval, 400, time.Now().Add(-time.Hour))
	store.addOrder("order-1", "first@example.com", models.OrderStatusPending, 300, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())
	ctx := context.Background()

	req := validRequest()
	req.CustomerData.Email = "first@example.com"
	req.TotalAmount = 300

	decision, err := svc.EvaluateOrder(ctx, req)

	require.NoError(t, err)
	assert.False(t, decision.Approved)
	assert.True(t, decision.RequiresManualReview)
	assert.Equal(t, ReasonManualReview, decision.Reason)
	assert.Equal(t, models.OrderStatusPendingApproval, store.orders["order-1"].Status)

	result, err := svc.ListPendingOrders(ctx, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.Total)
	require.Len(t, result.Orders, 2)
	assert.Equal(t, "order-1", result.Orders[0].ID, "most recent first")
	assert.Equal(t, "order-old", result.Orders[1].ID)
}

func TestEvaluateOrderAlreadyDecided(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "first@example.com", models.OrderStatusApproved, 80, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	svc := NewApprovalService(store, nil, nil, testConfig())

	req := validRequest()
	req.CustomerData.Email = "first@example.com"
	req.TotalAmount = 80

	decision, err := svc.EvaluateOrder(context.Background(), req)

	assert.Error(t, err, "conditional update must refuse an order that is no longer pending")
	assert.Nil(t, decision)
}

func TestEvaluateOrderLockConflict(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "first@example.com", models.OrderStatusPending, 80, time.Now())
	store.addVariant("var-1", "Blue / M", 10)

	locks := &fakeLocker{held: map[string]bool{"order-1": true}}
	svc := NewApprovalService(store, locks, nil, testConfig())

	decision, err := svc.EvaluateOrder(context.Background(), validRequest())

	assert.ErrorIs(t, err, ErrEvaluationInProgress)
	assert.Nil(t, decision)
	assert.Zero(t, store.statusWrites)
}

func TestManualOverrideIsAuthoritative(t *testing.T) {
	store := newFakeStore()
	store.addOrder("order-1", "buyer@example.com", models.OrderStatusPendingApproval, 300, time.Now())

	svc := NewApprovalService(store, nil, nil, testConfig())
	ctx := context.Background()

	result, err := svc.ManualOverride(ctx, "order-1", true, "verified by phone", "admin-7")
	require.NoError(t, err)
	assert.Equal(t, "order-1", result.OrderID)
	assert.Equal(t, models.OrderStatusApproved, result.Status)
	assert.Equal(t, models.OrderStatusApproved, store.orders["order-1"].Status)

	// The override re-decides regardless of current status
	result, err = svc.ManualOverride(ctx, "order-1", false, "chargeback risk", "admin-7")
	require.NoError(t, err)
	assert.Equal(t, models.OrderStatusRejected, result.Status)
	assert.Equal(t, models.OrderStatusRejected, store.orders["order-1"].Status)
}

func TestListPendingOrdersCapsLimit(t *testing.T) {
	store := newFakeStore()
	svc := NewApprovalService(store, nil, nil, testConfig())

	result, err := svc.ListPendingOrders(context.Background(), 5000, -3)
	require.NoError(t, err)
	assert.Equal(t, 200, result.Limit)
	assert.Equal(t, 0, result.Offset)

	result, err = svc.ListPendingOrders(context.Background(), 0, 0)
	require.NoError(t, err)
	assert.Equal(t, defaultPendingListLimit, result.Limit)
}
