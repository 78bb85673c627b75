package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type User struct {
	ID             uuid.UUID
	Email          string
	HashedPassword string
	FullName       string
	Role           string
	Phone          pgtype.Text
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Product.Price is always the non-promotional base price; the promotional
// price lives only on the promotions row and is joined in at read time.
type Product struct {
	ID          uuid.UUID
	Title       string
	Subtitle    pgtype.Text
	Price       pgtype.Numeric
	Description pgtype.Text
	Image       pgtype.Text
	Visible     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Promotion struct {
	ID               uuid.UUID
	ProductID        uuid.UUID
	PromotionalPrice pgtype.Numeric
	StartDate        pgtype.Date
	EndDate          pgtype.Date
	Visible          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

type Order struct {
	ID           uuid.UUID
	UserID       uuid.UUID
	Total        pgtype.Numeric
	Status       string
	PlacedAt     time.Time
	DeliveryTime pgtype.Text
	HistoryNotes pgtype.Text
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem.PriceAtMoment is immutable after creation: it snapshots the
// product's base price at the time the order was placed.
type OrderItem struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	ProductID     uuid.UUID
	Quantity      int32
	PriceAtMoment pgtype.Numeric
}
