package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/comecon/api/internal/database"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// defaultPromotionDays is the length of the promotion window seeded when the
// request leaves the end date empty.
const defaultPromotionDays = 15

// PromotionStore defines the database methods needed by promotion handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type PromotionStore interface {
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	GetPromotionByProduct(ctx context.Context, productID uuid.UUID) (database.Promotion, error)
	UpsertPromotion(ctx context.Context, arg database.UpsertPromotionParams) (database.Promotion, error)
	DeletePromotionByProduct(ctx context.Context, productID uuid.UUID) error
}

// PromotionHandler handles the per-product promotion endpoints.
type PromotionHandler struct {
	store PromotionStore
}

// NewPromotionHandler creates a new PromotionHandler.
func NewPromotionHandler(store PromotionStore) *PromotionHandler {
	return &PromotionHandler{store: store}
}

// RegisterRoutes registers promotion endpoints on the given Chi router.
// Expected to be mounted inside a product-scoped subrouter:
// /products/{id}/promotion
func (h *PromotionHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Get)
	r.Put("/", h.Upsert)
	r.Delete("/", h.Delete)
}

// --- Request / Response types ---

type upsertPromotionRequest struct {
	PromotionalPrice string `json:"promotional_price"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	Visible          *bool  `json:"visible"`
}

type promotionResponse struct {
	ID               uuid.UUID `json:"id"`
	ProductID        uuid.UUID `json:"product_id"`
	PromotionalPrice string    `json:"promotional_price"`
	StartDate        string    `json:"start_date"`
	EndDate          string    `json:"end_date"`
	Visible          bool      `json:"visible"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func toPromotionResponse(p database.Promotion) promotionResponse {
	return promotionResponse{
		ID:               p.ID,
		ProductID:        p.ProductID,
		PromotionalPrice: numericToString(p.PromotionalPrice),
		StartDate:        p.StartDate.Time.Format(dateLayout),
		EndDate:          p.EndDate.Time.Format(dateLayout),
		Visible:          p.Visible,
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
}

// --- Handlers ---

// Get returns the product's promotion, or 404 when it has none. Callers use
// the 404 to decide between loading an existing promotion and seeding
// defaults.
func (h *PromotionHandler) Get(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	promo, err := h.store.GetPromotionByProduct(r.Context(), prodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "promotion not found"})
			return
		}
		log.Printf("ERROR: get promotion: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(promo))
}

// Upsert creates or overwrites the product's promotion in a single atomic
// statement, so the product ends up with exactly one promotion row either way.
// The promotional price must undercut the base price; an empty start date
// defaults to today and an empty end date to start + 15 days.
func (h *PromotionHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req upsertPromotionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.PromotionalPrice == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "promotional_price is required"})
		return
	}

	promoPrice, err := decimal.NewFromString(req.PromotionalPrice)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid promotional_price"})
		return
	}
	if !promoPrice.IsPositive() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "promotional_price must be > 0"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), prodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product for promotion: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	if promoPrice.GreaterThanOrEqual(numericToDecimal(product.Price)) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "promotional_price must be below the base price"})
		return
	}

	start := time.Now()
	if req.StartDate != "" {
		start, err = time.Parse(dateLayout, req.StartDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
	}

	end := start.AddDate(0, 0, defaultPromotionDays)
	if req.EndDate != "" {
		end, err = time.Parse(dateLayout, req.EndDate)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
	}

	if end.Before(start) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "end_date must not be before start_date"})
		return
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	var price pgtype.Numeric
	if err := price.Scan(promoPrice.String()); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid promotional_price"})
		return
	}

	promo, err := h.store.UpsertPromotion(r.Context(), database.UpsertPromotionParams{
		ProductID:        prodID,
		PromotionalPrice: price,
		StartDate:        pgtype.Date{Time: start, Valid: true},
		EndDate:          pgtype.Date{Time: end, Valid: true},
		Visible:          visible,
	})
	if err != nil {
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: upsert promotion: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toPromotionResponse(promo))
}

// Delete removes the product's promotion. Idempotent: deleting a promotion
// that does not exist is still a 204 and leaves the table unchanged.
func (h *PromotionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	if err := h.store.DeletePromotionByProduct(r.Context(), prodID); err != nil {
		log.Printf("ERROR: delete promotion: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

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
