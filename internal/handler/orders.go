package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/comecon/api/internal/database"
	"github.com/comecon/api/internal/enum"
	"github.com/comecon/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
}

// OrderStore defines the database methods needed by order read/update
// handlers. Satisfied by *database.Queries.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context) ([]database.Order, error)
	ListOrdersByStatuses(ctx context.Context, statuses []string) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(svc OrderServicer, store OrderStore) *OrderHandler {
	return &OrderHandler{svc: svc, store: store}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted at /orders.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Patch("/{id}/status", h.UpdateStatus)
}

// --- Request / Response types ---

type createOrderRequest struct {
	UserID string                   `json:"user_id"`
	Status string                   `json:"status"`
	Items  []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int32  `json:"quantity"`
}

type updateOrderStatusRequest struct {
	Status       string `json:"status"`
	DeliveryTime string `json:"delivery_time"`
	HistoryNotes string `json:"history_notes"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	UserID       uuid.UUID           `json:"user_id"`
	Total        string              `json:"total"`
	Status       string              `json:"status"`
	PlacedAt     time.Time           `json:"placed_at"`
	DeliveryTime *string             `json:"delivery_time"`
	HistoryNotes *string             `json:"history_notes"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Items        []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID            uuid.UUID `json:"id"`
	ProductID     uuid.UUID `json:"product_id"`
	Quantity      int32     `json:"quantity"`
	PriceAtMoment string    `json:"price_at_moment"`
}

func toOrderResponse(o database.Order) orderResponse {
	resp := orderResponse{
		ID:        o.ID,
		UserID:    o.UserID,
		Total:     numericToString(o.Total),
		Status:    o.Status,
		PlacedAt:  o.PlacedAt,
		CreatedAt: o.CreatedAt,
		UpdatedAt: o.UpdatedAt,
	}
	if o.DeliveryTime.Valid {
		resp.DeliveryTime = &o.DeliveryTime.String
	}
	if o.HistoryNotes.Valid {
		resp.HistoryNotes = &o.HistoryNotes.String
	}
	return resp
}

func toOrderItemResponse(it database.OrderItem) orderItemResponse {
	return orderItemResponse{
		ID:            it.ID,
		ProductID:     it.ProductID,
		Quantity:      it.Quantity,
		PriceAtMoment: numericToString(it.PriceAtMoment),
	}
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.UserID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "user_id is required"})
		return
	}

	if len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "items are required"})
		return
	}

	svcItems := make([]service.CreateOrderItemRequest, len(req.Items))
	for i, item := range req.Items {
		svcItems[i] = service.CreateOrderItemRequest{
			ProductID: item.ProductID,
			Quantity:  item.Quantity,
		}
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		UserID: req.UserID,
		Status: req.Status,
		Items:  svcItems,
	})
	if err != nil {
		if isValidationError(err) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		log.Printf("ERROR: create order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(result.Order)
	resp.Items = make([]orderItemResponse, len(result.Items))
	for i, it := range result.Items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders. The filter query parameter selects the active
// ("process": pending+process) or terminal ("history": completed+cancelled)
// subset; without it all orders are returned.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		orders []database.Order
		err    error
	)

	switch filter := r.URL.Query().Get("filter"); filter {
	case "":
		orders, err = h.store.ListOrders(r.Context())
	case "process":
		orders, err = h.store.ListOrdersByStatuses(r.Context(), []string{enum.OrderStatusPending, enum.OrderStatusProcess})
	case "history":
		orders, err = h.store.ListOrdersByStatuses(r.Context(), []string{enum.OrderStatusCompleted, enum.OrderStatusCancelled})
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filter, use process or history"})
		return
	}
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /orders/{id}, returning the order with its items.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := toOrderResponse(order)
	resp.Items = make([]orderItemResponse, len(items))
	for i, it := range items {
		resp.Items[i] = toOrderItemResponse(it)
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /orders/{id}/status. Orders only move forward:
// an active order becomes completed or cancelled, never the other way, and the
// transition records a delivery time and a history note. The UPDATE itself
// enforces the precondition, so a concurrent transition loses cleanly.
func (h *OrderHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req updateOrderStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	if !isValidOrderStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid status"})
		return
	}

	if !isTerminalStatus(req.Status) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status must be completed or cancelled"})
		return
	}

	deliveryTime := req.DeliveryTime
	if deliveryTime == "" {
		deliveryTime = time.Now().Format("15:04")
	}

	notes := req.HistoryNotes
	if notes == "" {
		if req.Status == enum.OrderStatusCompleted {
			notes = "Completed by admin"
		} else {
			notes = "Cancelled by admin"
		}
	}

	updated, err := h.store.UpdateOrderStatus(r.Context(), database.UpdateOrderStatusParams{
		ID:           orderID,
		Status:       req.Status,
		DeliveryTime: pgtype.Text{String: deliveryTime, Valid: true},
		HistoryNotes: pgtype.Text{String: notes, Valid: true},
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Nothing updated: the order is missing or already terminal.
			// Fetch to give a precise error.
			current, fetchErr := h.store.GetOrder(r.Context(), orderID)
			if fetchErr != nil {
				if errors.Is(fetchErr, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
					return
				}
				log.Printf("ERROR: get order for status update: %v", fetchErr)
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			writeJSON(w, http.StatusConflict, map[string]string{"error": "order is already " + current.Status})
			return
		}
		log.Printf("ERROR: update order status: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toOrderResponse(updated))
}

// --- Helpers ---

func isValidationError(err error) bool {
	return errors.Is(err, service.ErrEmptyItems) ||
		errors.Is(err, service.ErrInvalidQuantity) ||
		errors.Is(err, service.ErrInvalidStatus) ||
		errors.Is(err, service.ErrInvalidUserID) ||
		errors.Is(err, service.ErrUserNotFound) ||
		errors.Is(err, service.ErrInvalidProductID) ||
		errors.Is(err, service.ErrProductNotFound)
}

func isValidOrderStatus(s string) bool {
	switch s {
	case enum.OrderStatusPending, enum.OrderStatusProcess,
		enum.OrderStatusCompleted, enum.OrderStatusCancelled:
		return true
	}
	return false
}

func isTerminalStatus(s string) bool {
	return s == enum.OrderStatusCompleted || s == enum.OrderStatusCancelled
}
