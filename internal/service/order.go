package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comecon/api/internal/database"
	"github.com/comecon/api/internal/enum"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// Errors returned by the order service.
var (
	ErrEmptyItems       = errors.New("items are required")
	ErrInvalidQuantity  = errors.New("quantity must be > 0")
	ErrInvalidStatus    = errors.New("initial status must be pending or process")
	ErrInvalidUserID    = errors.New("invalid user_id")
	ErrUserNotFound     = errors.New("user not found")
	ErrInvalidProductID = errors.New("invalid product_id")
	ErrProductNotFound  = errors.New("product not found")
)

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods needed to create orders.
// Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetUser(ctx context.Context, id uuid.UUID) (database.User, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
// This allows the service to create store instances from transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for creating an order.
type CreateOrderRequest struct {
	UserID string
	Status string // empty means pending
	Items  []CreateOrderItemRequest
}

// CreateOrderItemRequest is a single item in the order.
type CreateOrderItemRequest struct {
	ProductID string
	Quantity  int32
}

// CreateOrderResult is the created order with its items.
type CreateOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// OrderService handles order business logic.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

// NewOrderService creates a new OrderService.
func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// CreateOrder validates the request and creates the order and its items
// atomically. Each item's price_at_moment snapshots the product's base price
// as read inside the same transaction; the order total is the sum of
// price x quantity over all items.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	status := req.Status
	if status == "" {
		status = enum.OrderStatusPending
	}
	if status != enum.OrderStatusPending && status != enum.OrderStatusProcess {
		return nil, ErrInvalidStatus
	}

	if len(req.Items) == 0 {
		return nil, ErrEmptyItems
	}
	for i, item := range req.Items {
		if item.Quantity <= 0 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}

	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return nil, ErrInvalidUserID
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	store := s.newStore(tx)

	if _, err := store.GetUser(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}

	// Resolve products and snapshot prices inside the transaction.
	type pricedItem struct {
		productID uuid.UUID
		quantity  int32
		price     decimal.Decimal
	}

	total := decimal.Zero
	priced := make([]pricedItem, len(req.Items))
	for i, item := range req.Items {
		productID, err := uuid.Parse(item.ProductID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidProductID)
		}

		product, err := store.GetProduct(ctx, productID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrProductNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get product: %w", i, err)
		}

		price := numericToDecimal(product.Price)
		total = total.Add(price.Mul(decimal.NewFromInt32(item.Quantity)))
		priced[i] = pricedItem{productID: productID, quantity: item.Quantity, price: price}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		UserID:   userID,
		Total:    decimalToNumeric(total),
		Status:   status,
		PlacedAt: time.Now(),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, len(priced))
	for i, p := range priced {
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:       order.ID,
			ProductID:     p.productID,
			Quantity:      p.quantity,
			PriceAtMoment: decimalToNumeric(p.price),
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items[i] = item
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	return &CreateOrderResult{Order: order, Items: items}, nil
}

// --- Numeric helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.String())
	return n
}
