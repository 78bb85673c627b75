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
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
)

// defaultImage is assigned when a product is created without an image
// reference, so the catalog always has something to render.
const defaultImage = "logoApp"

// ProductStore defines the database methods needed by product handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ProductStore interface {
	ListProducts(ctx context.Context) ([]database.ListProductsRow, error)
	GetProduct(ctx context.Context, id uuid.UUID) (database.Product, error)
	CreateProduct(ctx context.Context, arg database.CreateProductParams) (database.Product, error)
	UpdateProduct(ctx context.Context, arg database.UpdateProductParams) (database.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error)
}

// ProductHandler handles product CRUD endpoints.
type ProductHandler struct {
	store ProductStore
}

// NewProductHandler creates a new ProductHandler.
func NewProductHandler(store ProductStore) *ProductHandler {
	return &ProductHandler{store: store}
}

// RegisterRoutes registers product CRUD endpoints on the given Chi router.
// Expected to be mounted at /products.
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/", h.Create)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

// --- Request / Response types ---

type createProductRequest struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Visible     *bool  `json:"visible"`
}

type updateProductRequest struct {
	Title       string `json:"title"`
	Subtitle    string `json:"subtitle"`
	Price       string `json:"price"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Visible     *bool  `json:"visible"`
}

type productResponse struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Subtitle    *string   `json:"subtitle"`
	Price       string    `json:"price"`
	Description *string   `json:"description"`
	Image       *string   `json:"image"`
	Visible     bool      `json:"visible"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	// Derived from the visible promotion row; absent when there is none.
	// Price above always stays the base price.
	PromotionalPrice *string `json:"promotional_price,omitempty"`
	PromotionStart   *string `json:"promotion_start,omitempty"`
	PromotionEnd     *string `json:"promotion_end,omitempty"`
}

func toProductResponse(p database.Product) productResponse {
	resp := productResponse{
		ID:        p.ID,
		Title:     p.Title,
		Price:     numericToString(p.Price),
		Visible:   p.Visible,
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	if p.Subtitle.Valid {
		resp.Subtitle = &p.Subtitle.String
	}
	if p.Description.Valid {
		resp.Description = &p.Description.String
	}
	if p.Image.Valid {
		resp.Image = &p.Image.String
	}
	return resp
}

func listRowToResponse(r database.ListProductsRow) productResponse {
	resp := productResponse{
		ID:        r.ID,
		Title:     r.Title,
		Price:     numericToString(r.Price),
		Visible:   r.Visible,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if r.Subtitle.Valid {
		resp.Subtitle = &r.Subtitle.String
	}
	if r.Description.Valid {
		resp.Description = &r.Description.String
	}
	if r.Image.Valid {
		resp.Image = &r.Image.String
	}
	if r.PromotionalPrice.Valid {
		s := numericToString(r.PromotionalPrice)
		resp.PromotionalPrice = &s
	}
	if r.StartDate.Valid {
		s := r.StartDate.Time.Format(dateLayout)
		resp.PromotionStart = &s
	}
	if r.EndDate.Valid {
		s := r.EndDate.Time.Format(dateLayout)
		resp.PromotionEnd = &s
	}
	return resp
}

// --- Handlers ---

// List returns all products newest first, each joined with its visible
// promotion when one exists.
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.ListProducts(r.Context())
	if err != nil {
		log.Printf("ERROR: list products: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]productResponse, len(products))
	for i, p := range products {
		resp[i] = listRowToResponse(p)
	}

	writeJSON(w, http.StatusOK, resp)
}

// Get returns a single product by ID.
func (h *ProductHandler) Get(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	product, err := h.store.GetProduct(r.Context(), prodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: get product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Create adds a new product. Visibility defaults to true unless the request
// explicitly sends visible=false.
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	image := req.Image
	if image == "" {
		image = defaultImage
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	product, err := h.store.CreateProduct(r.Context(), database.CreateProductParams{
		Title:       req.Title,
		Subtitle:    textOrNull(req.Subtitle),
		Price:       price,
		Description: textOrNull(req.Description),
		Image:       textOrNull(image),
		Visible:     visible,
	})
	if err != nil {
		log.Printf("ERROR: create product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product))
}

// Update replaces an existing product. The contract is full-replace: title and
// price are required, optional fields left out of the request clear the stored
// value. There is no silent zeroing of a missing price.
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	var req updateProductRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	if req.Title == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "title is required"})
		return
	}

	if req.Price == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price is required"})
		return
	}

	price, err := parsePrice(req.Price)
	if err != nil {
		if errors.Is(err, errNegativePrice) {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "price must be >= 0"})
		} else {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid price"})
		}
		return
	}

	visible := true
	if req.Visible != nil {
		visible = *req.Visible
	}

	product, err := h.store.UpdateProduct(r.Context(), database.UpdateProductParams{
		ID:          prodID,
		Title:       req.Title,
		Subtitle:    textOrNull(req.Subtitle),
		Price:       price,
		Description: textOrNull(req.Description),
		Image:       textOrNull(req.Image),
		Visible:     visible,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		log.Printf("ERROR: update product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product))
}

// Delete removes a product. Its promotion row goes with it through the schema
// cascade. Products still referenced by order items cannot be deleted.
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
	prodID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid product ID"})
		return
	}

	_, err = h.store.DeleteProduct(r.Context(), prodID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "product not found"})
			return
		}
		if isForeignKeyViolation(err) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": "product is referenced by existing orders"})
			return
		}
		log.Printf("ERROR: delete product: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers shared across handlers ---

const dateLayout = "2006-01-02"

var errNegativePrice = errors.New("negative price")

func parsePrice(s string) (pgtype.Numeric, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return pgtype.Numeric{}, err
	}
	if d.IsNegative() {
		return pgtype.Numeric{}, errNegativePrice
	}
	var n pgtype.Numeric
	if err := n.Scan(d.String()); err != nil {
		return pgtype.Numeric{}, err
	}
	return n, nil
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// numericToString formats money with 2 decimal places for a consistent wire
// representation.
func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: encode response: %v", err)
	}
}
