package database

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const listProducts = `
SELECT p.id, p.title, p.subtitle, p.price, p.description, p.image, p.visible,
       p.created_at, p.updated_at,
       pr.promotional_price, pr.start_date, pr.end_date
FROM products p
LEFT JOIN promotions pr ON pr.product_id = p.id AND pr.visible = TRUE
ORDER BY p.created_at DESC, p.id DESC
`

// ListProductsRow is a product joined with its visible promotion, if any.
// PromotionalPrice is invalid (NULL) when no visible promotion exists.
type ListProductsRow struct {
	ID               uuid.UUID
	Title            string
	Subtitle         pgtype.Text
	Price            pgtype.Numeric
	Description      pgtype.Text
	Image            pgtype.Text
	Visible          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
	PromotionalPrice pgtype.Numeric
	StartDate        pgtype.Date
	EndDate          pgtype.Date
}

// ListProducts returns all products newest first, each joined with its
// visible promotion when one exists.
func (q *Queries) ListProducts(ctx context.Context) ([]ListProductsRow, error) {
	rows, err := q.db.Query(ctx, listProducts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []ListProductsRow
	for rows.Next() {
		var r ListProductsRow
		if err := rows.Scan(
			&r.ID, &r.Title, &r.Subtitle, &r.Price, &r.Description, &r.Image,
			&r.Visible, &r.CreatedAt, &r.UpdatedAt,
			&r.PromotionalPrice, &r.StartDate, &r.EndDate,
		); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}

const getProduct = `
SELECT id, title, subtitle, price, description, image, visible, created_at, updated_at
FROM products
WHERE id = $1
`

func (q *Queries) GetProduct(ctx context.Context, id uuid.UUID) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, getProduct, id).Scan(
		&p.ID, &p.Title, &p.Subtitle, &p.Price, &p.Description, &p.Image,
		&p.Visible, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const createProduct = `
INSERT INTO products (title, subtitle, price, description, image, visible)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id, title, subtitle, price, description, image, visible, created_at, updated_at
`

type CreateProductParams struct {
	Title       string
	Subtitle    pgtype.Text
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	Visible     bool
}

func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, createProduct,
		arg.Title, arg.Subtitle, arg.Price, arg.Description, arg.Image, arg.Visible,
	).Scan(
		&p.ID, &p.Title, &p.Subtitle, &p.Price, &p.Description, &p.Image,
		&p.Visible, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const updateProduct = `
UPDATE products
SET title = $2, subtitle = $3, price = $4, description = $5, image = $6,
    visible = $7, updated_at = now()
WHERE id = $1
RETURNING id, title, subtitle, price, description, image, visible, created_at, updated_at
`

// UpdateProductParams carries every column: the update is a full replace, so
// an invalid (NULL) optional field clears the stored value.
type UpdateProductParams struct {
	ID          uuid.UUID
	Title       string
	Subtitle    pgtype.Text
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	Visible     bool
}

func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	var p Product
	err := q.db.QueryRow(ctx, updateProduct,
		arg.ID, arg.Title, arg.Subtitle, arg.Price, arg.Description, arg.Image, arg.Visible,
	).Scan(
		&p.ID, &p.Title, &p.Subtitle, &p.Price, &p.Description, &p.Image,
		&p.Visible, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const deleteProduct = `
DELETE FROM products
WHERE id = $1
RETURNING id
`

// DeleteProduct removes the product row. The promotions row, if any, goes with
// it through the schema-level cascade. Deleting a product referenced by order
// items fails with a foreign key violation.
func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	var deleted uuid.UUID
	err := q.db.QueryRow(ctx, deleteProduct, id).Scan(&deleted)
	return deleted, err
}
