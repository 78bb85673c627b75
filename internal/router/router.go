package router

import (
	"net/http"

	"github.com/comecon/api/internal/database"
	"github.com/comecon/api/internal/handler"
	"github.com/comecon/api/internal/service"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
)

// New builds the HTTP router with all routes registered.
func New(pool *pgxpool.Pool) http.Handler {
	queries := database.New(pool)

	newStore := func(db database.DBTX) service.OrderStore {
		return database.New(db)
	}
	orderService := service.NewOrderService(pool, newStore)

	productHandler := handler.NewProductHandler(queries)
	promotionHandler := handler.NewPromotionHandler(queries)
	orderHandler := handler.NewOrderHandler(orderService, queries)
	userHandler := handler.NewUserHandler(queries)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	r.Route("/products", func(r chi.Router) {
		productHandler.RegisterRoutes(r)
		r.Route("/{id}/promotion", promotionHandler.RegisterRoutes)
	})
	r.Route("/orders", orderHandler.RegisterRoutes)
	r.Route("/users", userHandler.RegisterRoutes)

	return r
}
