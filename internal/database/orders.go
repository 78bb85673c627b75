package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

const createOrder = `
INSERT INTO orders (user_id, total, status, placed_at)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, total, status, placed_at, delivery_time, history_notes, created_at, updated_at
`

type CreateOrderParams struct {
	UserID   uuid.UUID
	Total    pgtype.Numeric
	Status   string
	PlacedAt time.Time
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, createOrder,
		arg.UserID, arg.Total, arg.Status, arg.PlacedAt,
	).Scan(
		&o.ID, &o.UserID, &o.Total, &o.Status, &o.PlacedAt,
		&o.DeliveryTime, &o.HistoryNotes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const createOrderItem = `
INSERT INTO order_items (order_id, product_id, quantity, price_at_moment)
VALUES ($1, $2, $3, $4)
RETURNING id, order_id, product_id, quantity, price_at_moment
`

type CreateOrderItemParams struct {
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      int32
	PriceAtMoment pgtype.Numeric
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	var it OrderItem
	err := q.db.QueryRow(ctx, createOrderItem,
		arg.OrderID, arg.ProductID, arg.Quantity, arg.PriceAtMoment,
	).Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtMoment)
	return it, err
}

const getOrder = `
SELECT id, user_id, total, status, placed_at, delivery_time, history_notes, created_at, updated_at
FROM orders
WHERE id = $1
`

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, getOrder, id).Scan(
		&o.ID, &o.UserID, &o.Total, &o.Status, &o.PlacedAt,
		&o.DeliveryTime, &o.HistoryNotes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

const listOrders = `
SELECT id, user_id, total, status, placed_at, delivery_time, history_notes, created_at, updated_at
FROM orders
ORDER BY placed_at DESC, id DESC
`

func (q *Queries) ListOrders(ctx context.Context) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrders)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrdersByStatuses = `
SELECT id, user_id, total, status, placed_at, delivery_time, history_notes, created_at, updated_at
FROM orders
WHERE status = ANY($1)
ORDER BY placed_at DESC, id DESC
`

// ListOrdersByStatuses returns orders whose status is in the given set,
// newest first. Used for the "in process" and "history" views.
func (q *Queries) ListOrdersByStatuses(ctx context.Context, statuses []string) ([]Order, error) {
	rows, err := q.db.Query(ctx, listOrdersByStatuses, statuses)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

const listOrderItemsByOrder = `
SELECT id, order_id, product_id, quantity, price_at_moment
FROM order_items
WHERE order_id = $1
`

func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.db.Query(ctx, listOrderItemsByOrder, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Quantity, &it.PriceAtMoment); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

const updateOrderStatus = `
UPDATE orders
SET status = $2, delivery_time = $3, history_notes = $4, updated_at = now()
WHERE id = $1 AND status IN ('pending', 'process')
RETURNING id, user_id, total, status, placed_at, delivery_time, history_notes, created_at, updated_at
`

type UpdateOrderStatusParams struct {
	ID           uuid.UUID
	Status       string
	DeliveryTime pgtype.Text
	HistoryNotes pgtype.Text
}

// UpdateOrderStatus moves an order into a terminal state. The WHERE clause
// carries the precondition: orders already completed or cancelled are never
// touched, and the caller sees pgx.ErrNoRows instead.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	var o Order
	err := q.db.QueryRow(ctx, updateOrderStatus,
		arg.ID, arg.Status, arg.DeliveryTime, arg.HistoryNotes,
	).Scan(
		&o.ID, &o.UserID, &o.Total, &o.Status, &o.PlacedAt,
		&o.DeliveryTime, &o.HistoryNotes, &o.CreatedAt, &o.UpdatedAt,
	)
	return o, err
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(
			&o.ID, &o.UserID, &o.Total, &o.Status, &o.PlacedAt,
			&o.DeliveryTime, &o.HistoryNotes, &o.CreatedAt, &o.UpdatedAt,
		); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}
