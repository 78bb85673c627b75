// Command seed populates an empty database with the initial admin account,
// a demo customer, and the starter product catalog. It is a no-op when any
// user already exists.
package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/comecon/api/internal/config"
	"github.com/comecon/api/internal/database"
	"github.com/comecon/api/internal/enum"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"
)

type seedProduct struct {
	title    string
	subtitle string
	price    string
}

var starterProducts = []seedProduct{
	{title: "Bowl con Frutas", subtitle: "Fresa, kiwi, avena", price: "120.99"},
	{title: "Tostada", subtitle: "Aguacate", price: "150.80"},
	{title: "Panqueques", subtitle: "Avena y Frutas", price: "115.99"},
	{title: "Cafe Panda", subtitle: "Latte", price: "110.00"},
}

func main() {
	email := flag.String("email", envOr("SEED_ADMIN_EMAIL", "admin@comecon.app"), "admin email")
	password := flag.String("password", envOr("SEED_ADMIN_PASSWORD", "admin1234"), "admin password")
	name := flag.String("name", envOr("SEED_ADMIN_NAME", "Administrador"), "admin full name")
	flag.Parse()

	cfg := config.Load()

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("unable to create connection pool: %v", err)
	}
	defer pool.Close()

	queries := database.New(pool)

	count, err := queries.CountUsers(ctx)
	if err != nil {
		log.Fatalf("count users: %v", err)
	}
	if count > 0 {
		log.Println("database already seeded, nothing to do")
		return
	}

	tx, err := pool.Begin(ctx)
	if err != nil {
		log.Fatalf("begin tx: %v", err)
	}
	defer tx.Rollback(ctx)

	store := queries.WithTx(tx)

	adminHash, err := bcrypt.GenerateFromPassword([]byte(*password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash admin password: %v", err)
	}
	admin, err := store.CreateUser(ctx, database.CreateUserParams{
		Email:          *email,
		HashedPassword: string(adminHash),
		FullName:       *name,
		Role:           enum.UserRoleAdmin,
	})
	if err != nil {
		log.Fatalf("create admin: %v", err)
	}
	log.Printf("created admin %s (%s)", admin.Email, admin.ID)

	customerHash, err := bcrypt.GenerateFromPassword([]byte("cliente1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash customer password: %v", err)
	}
	customer, err := store.CreateUser(ctx, database.CreateUserParams{
		Email:          "cliente@comecon.app",
		HashedPassword: string(customerHash),
		FullName:       "Cliente Demo",
		Role:           enum.UserRoleCustomer,
	})
	if err != nil {
		log.Fatalf("create customer: %v", err)
	}
	log.Printf("created customer %s (%s)", customer.Email, customer.ID)

	for _, p := range starterProducts {
		var price pgtype.Numeric
		if err := price.Scan(p.price); err != nil {
			log.Fatalf("parse price for %s: %v", p.title, err)
		}
		product, err := store.CreateProduct(ctx, database.CreateProductParams{
			Title:    p.title,
			Subtitle: pgtype.Text{String: p.subtitle, Valid: true},
			Price:    price,
			Image:    pgtype.Text{String: "logoApp", Valid: true},
			Visible:  true,
		})
		if err != nil {
			log.Fatalf("create product %s: %v", p.title, err)
		}
		log.Printf("created product %s (%s)", product.Title, product.ID)
	}

	if err := tx.Commit(ctx); err != nil {
		log.Fatalf("commit tx: %v", err)
	}
	log.Println("seed complete")
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
