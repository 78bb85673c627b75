package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const upsertPromotion = `
INSERT INTO promotions (product_id, promotional_price, start_date, end_date, visible)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (product_id) DO UPDATE
SET promotional_price = EXCLUDED.promotional_price,
    start_date = EXCLUDED.start_date,
    end_date = EXCLUDED.end_date,
    visible = EXCLUDED.visible,
    updated_at = now()
RETURNING id, product_id, promotional_price, start_date, end_date, visible, created_at, updated_at
`

type UpsertPromotionParams struct {
	ProductID        uuid.UUID
	PromotionalPrice pgtype.Numeric
	StartDate        pgtype.Date
	EndDate          pgtype.Date
	Visible          bool
}

// UpsertPromotion inserts a promotion for the product or overwrites the
// existing one in a single statement, so a product can never end up with two
// promotion rows and there is no read-then-write race window.
func (q *Queries) UpsertPromotion(ctx context.Context, arg UpsertPromotionParams) (Promotion, error) {
	var p Promotion
	err := q.db.QueryRow(ctx, upsertPromotion,
		arg.ProductID, arg.PromotionalPrice, arg.StartDate, arg.EndDate, arg.Visible,
	).Scan(
		&p.ID, &p.ProductID, &p.PromotionalPrice, &p.StartDate, &p.EndDate,
		&p.Visible, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const getPromotionByProduct = `
SELECT id, product_id, promotional_price, start_date, end_date, visible, created_at, updated_at
FROM promotions
WHERE product_id = $1
`

func (q *Queries) GetPromotionByProduct(ctx context.Context, productID uuid.UUID) (Promotion, error) {
	var p Promotion
	err := q.db.QueryRow(ctx, getPromotionByProduct, productID).Scan(
		&p.ID, &p.ProductID, &p.PromotionalPrice, &p.StartDate, &p.EndDate,
		&p.Visible, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}

const deletePromotionByProduct = `
DELETE FROM promotions
WHERE product_id = $1
`

// DeletePromotionByProduct removes the product's promotion row. Idempotent:
// deleting when no row exists is not an error.
func (q *Queries) DeletePromotionByProduct(ctx context.Context, productID uuid.UUID) error {
	_, err := q.db.Exec(ctx, deletePromotionByProduct, productID)
	return err
}
