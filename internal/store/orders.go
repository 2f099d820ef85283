package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"approval-gateway/internal/models"

	"github.com/jmoiron/sqlx"
)

// GetOrderByID retrieves an order by ID
func (s *Store) GetOrderByID(ctx context.Context, id string) (*models.Order, error) {
	var order models.Order
	err := s.db.GetContext(ctx, &order, "SELECT * FROM orders WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("order not found: %s", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// CountPriorOrdersByEmail counts orders for a customer email, excluding the
// order currently under evaluation (it already exists in pending status).
func (s *Store) CountPriorOrdersByEmail(ctx context.Context, email, excludeOrderID string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE LOWER(TRIM(email)) = $1 AND id <> $2",
		email, excludeOrderID)
	return count, err
}

// UpdateOrderStatus updates order status unconditionally
func (s *Store) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2",
		status, orderID)
	return err
}

// UpdateOrderStatusIf updates order status only if the current status still
// matches the expected one. Returns false when no row was updated, which
// means the order is missing or was already decided by a concurrent request.
func (s *Store) UpdateOrderStatusIf(ctx context.Context, orderID, status, expected string) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		"UPDATE orders SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3",
		status, orderID, expected)
	if err != nil {
		return false, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// ListPendingOrders retrieves orders awaiting manual review, most recent
// first, each expanded with its items, variants and parent products.
func (s *Store) ListPendingOrders(ctx context.Context, limit, offset int) ([]models.PendingOrder, error) {
	var orders []models.Order
	err := s.db.SelectContext(ctx, &orders,
		"SELECT * FROM orders WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		models.OrderStatusPendingApproval, limit, offset)
	if err != nil {
		return nil, err
	}

	pending := make([]models.PendingOrder, len(orders))
	for i := range orders {
		pending[i] = models.PendingOrder{Order: orders[i], Items: []models.PendingOrderItem{}}
	}
	if len(orders) == 0 {
		return pending, nil
	}

	orderIDs := make([]string, len(orders))
	index := make(map[string]int, len(orders))
	for i, o := range orders {
		orderIDs[i] = o.ID
		index[o.ID] = i
	}

	query, args, err := sqlx.In(`
		SELECT oi.order_id, oi.variant_id, oi.quantity,
		       v.name AS variant_name, v.stock,
		       p.id AS product_id, p.name AS product_name
		FROM order_items oi
		JOIN variants v ON v.id = oi.variant_id
		JOIN products p ON p.id = v.product_id
		WHERE oi.order_id IN (?)
		ORDER BY oi.id`, orderIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var items []models.PendingOrderItem
	if err := s.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, err
	}

	for _, item := range items {
		i, ok := index[item.OrderID]
		if !ok {
			continue
		}
		pending[i].Items = append(pending[i].Items, item)
	}

	return pending, nil
}

// CountOrders counts all orders
func (s *Store) CountOrders(ctx context.Context) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM orders")
	return count, err
}

// CountOrdersByStatus counts orders in a given status
func (s *Store) CountOrdersByStatus(ctx context.Context, status string) (int, error) {
	var count int
	err := s.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM orders WHERE status = $1", status)
	return count, err
}

// CountOrdersByStatusSince groups order counts by status for orders created
// at or after the given time. Statuses with no orders are absent from the map.
func (s *Store) CountOrdersByStatusSince(ctx context.Context, since time.Time) (map[string]int, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT status, COUNT(*) FROM orders WHERE created_at >= $1 GROUP BY status", since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		counts[status] = count
	}
	return counts, rows.Err()
}
