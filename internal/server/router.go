package server

import (
	"log/slog"
	"net/http"
	"time"

	"smartline-backend/internal/handler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter wires HTTP routes and middleware.
func NewRouter(
	logger *slog.Logger,
	health handler.HealthHandler,
	clients handler.ClientHandler,
	orders handler.OrderHandler,
	workOrders handler.WorkOrderHandler,
	warehouse handler.WarehouseHandler,
	export handler.ExportHandler,
	finance handler.FinanceHandler,
	employees handler.EmployeeHandler,
	avitoSync handler.AvitoHandler,
	tgSend handler.TelegramHandler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggerMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "X-User-Id", "X-Auth-Token", "X-Session-Id"},
		MaxAge:         86400,
	}))
	r.Use(httprate.LimitByIP(200, 1*time.Minute))

	health.RegisterRoutes(r)
	clients.RegisterRoutes(r)
	orders.RegisterRoutes(r)
	workOrders.RegisterRoutes(r)
	warehouse.RegisterRoutes(r)
	export.RegisterRoutes(r)
	finance.RegisterRoutes(r)
	employees.RegisterRoutes(r)
	avitoSync.RegisterRoutes(r)
	tgSend.RegisterRoutes(r)
	r.Method("GET", "/metrics", promhttp.Handler())

	return r
}
