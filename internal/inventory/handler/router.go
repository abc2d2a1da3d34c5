package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/medflow/drug-warehouse/internal/inventory/service"
	"github.com/medflow/drug-warehouse/pkg/config"
	"github.com/medflow/drug-warehouse/pkg/database"
	"github.com/medflow/drug-warehouse/pkg/httputil"
	"github.com/medflow/drug-warehouse/pkg/i18n"
	"github.com/medflow/drug-warehouse/pkg/logger"
	"github.com/medflow/drug-warehouse/pkg/messaging"
	"github.com/medflow/drug-warehouse/pkg/metrics"
)

// Dependencies are what the router needs. RabbitMQ and Metrics may be nil.
type Dependencies struct {
	Inventory   *service.InventoryService
	Environment *service.EnvironmentService
	DB          *database.DB
	RabbitMQ    *messaging.RabbitMQ
	Metrics     *metrics.Recorder
	CORS        config.CORSConfig
	Logger      *logger.Logger
}

// NewRouter builds the HTTP API
func NewRouter(deps Dependencies) http.Handler {
	drugHandler := NewDrugHandler(deps.Inventory, deps.Logger)
	dashboardHandler := NewDashboardHandler(deps.Inventory, deps.Logger)
	operationHandler := NewOperationHandler(deps.Inventory, deps.Logger)
	environmentHandler := NewEnvironmentHandler(deps.Environment, deps.Logger)

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(deps.Logger, "/health", "/metrics"))
	r.Use(httputil.Recoverer(deps.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: deps.CORS.AllowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Accept-Language", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID", "Content-Language"},
		MaxAge:         300,
	}))
	r.Use(i18n.Middleware)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		dbHealth := deps.DB.Health(r.Context())
		body := map[string]interface{}{
			"status":   "healthy",
			"service":  config.ServiceName,
			"database": dbHealth,
		}
		if deps.RabbitMQ != nil {
			body["rabbitmq"] = deps.RabbitMQ.Health()
		}

		status := http.StatusOK
		if dbHealth["status"] != "up" {
			body["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
		httputil.JSON(w, status, body)
	})
	r.Method(http.MethodGet, "/metrics", deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", dashboardHandler.Get)

		r.Route("/drug", func(r chi.Router) {
			r.Get("/list", drugHandler.List)
			r.Post("/inbound", drugHandler.Inbound)
			r.Post("/outbound", drugHandler.Outbound)
			r.Post("/storage/transfer", drugHandler.Transfer)
			r.Post("/expiry/isolate", drugHandler.Isolate)
			r.Post("/expiry/dispose", drugHandler.Dispose)
			r.Get("/{id}", drugHandler.Get)
		})

		r.Get("/operations", operationHandler.List)
		r.Get("/ledger/reconcile", operationHandler.Reconcile)

		r.Route("/environment", func(r chi.Router) {
			r.Post("/sync", environmentHandler.Sync)
			r.Get("/latest", environmentHandler.Latest)
			r.Get("/readings", environmentHandler.Readings)
		})
	})

	return r
}
