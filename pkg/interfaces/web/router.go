package web

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vsinha/stockroom/pkg/application/services"
	"github.com/vsinha/stockroom/pkg/infrastructure/metrics"
	"github.com/vsinha/stockroom/pkg/interfaces/web/middleware"
	"github.com/vsinha/stockroom/pkg/interfaces/web/response"
	"github.com/vsinha/stockroom/pkg/interfaces/web/websocket"
	"go.uber.org/zap"
)

// Services bundles the application services the API exposes
type Services struct {
	Catalog    *services.CatalogService
	Inventory  *services.InventoryService
	Receiving  *services.ReceivingService
	Production *services.ProductionService
	Sales      *services.SalesService
	Import     *services.ImportService
	Export     *services.ExportService
	Auth       *services.AuthService
}

// RouterConfig wires the optional pieces of the API
type RouterConfig struct {
	Services Services
	Logger   *zap.Logger
	// Metrics enables request metrics and serves them on MetricsPath
	Metrics     *metrics.Metrics
	MetricsPath string
	// Hub enables the /ws/events live feed
	Hub *websocket.Hub
	// MaxUploadBytes caps bulk import files
	MaxUploadBytes int64
}

type handler struct {
	svc       Services
	logger    *zap.Logger
	upgrader  *websocket.Upgrader
	maxUpload int64
}

// NewRouter builds the HTTP API
func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &handler{svc: cfg.Services, logger: logger, maxUpload: cfg.MaxUploadBytes}
	if h.maxUpload <= 0 {
		h.maxUpload = 10 << 20
	}
	if cfg.Hub != nil {
		h.upgrader = websocket.NewUpgrader(cfg.Hub, nil)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger, "/healthz", cfg.MetricsPath))
	if cfg.Metrics != nil {
		r.Use(middleware.Metrics(cfg.Metrics))
	}
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderErrorWithCode(w, http.StatusNotFound, "Resource not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderErrorWithCode(w, http.StatusMethodNotAllowed, "method not allowed", "")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Method(http.MethodGet, path, cfg.Metrics.Handler())
	}
	if h.upgrader != nil {
		r.Get("/ws/events", h.events)
	}

	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", h.register)
		r.Post("/auth/login", h.login)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(h.svc.Auth))

			r.Post("/auth/logout", h.logout)
			r.Get("/auth/me", h.me)

			r.Route("/suppliers", func(r chi.Router) {
				r.Get("/", h.listSuppliers)
				r.Post("/", h.createSupplier)
				r.Get("/{id}", h.getSupplier)
				r.Put("/{id}", h.updateSupplier)
				r.Delete("/{id}", h.deleteSupplier)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.listProducts)
				r.Post("/", h.createProduct)
				r.Get("/{id}", h.getProduct)
				r.Put("/{id}", h.updateProduct)
				r.Delete("/{id}", h.deleteProduct)
				r.Post("/{id}/adjust", h.adjustStock)
				r.Get("/{id}/cost", h.productCost)
				r.Get("/{id}/bom", h.productBOM)
			})

			r.Route("/bom", func(r chi.Router) {
				r.Get("/", h.listBOM)
				r.Post("/", h.addBOMLine)
				r.Put("/{id}", h.updateBOMLine)
				r.Delete("/{id}", h.deleteBOMLine)
			})

			r.Route("/manufacturing", func(r chi.Router) {
				r.Get("/products", h.manufacturable)
				r.Post("/check", h.checkMaterials)
				r.Post("/produce", h.produce)
				r.Get("/activity", h.activity)
				r.Get("/runs", h.listRuns)
				r.Post("/runs", h.planRun)
				r.Get("/runs/{id}", h.getRun)
				r.Post("/runs/{id}/start", h.startRun)
				r.Post("/runs/{id}/finish", h.finishRun)
				r.Post("/runs/{id}/cancel", h.cancelRun)
			})

			r.Route("/receiving", func(r chi.Router) {
				r.Post("/materials", h.createMaterial)
				r.Post("/batches", h.receiveBatch)
				r.Get("/batches", h.listBatches)
				r.Get("/batches/expiring", h.expiringBatches)
			})

			r.Route("/inventory", func(r chi.Router) {
				r.Get("/dashboard", h.dashboard)
				r.Get("/raw-materials", h.rawMaterials)
				r.Get("/raw-materials/{id}/batches", h.batchDetails)
				r.Get("/transactions", h.transactions)
				r.Get("/low-stock", h.lowStock)
			})

			r.Route("/sales", func(r chi.Router) {
				r.Get("/", h.listSales)
				r.Post("/", h.createSale)
				r.Get("/summary", h.salesSummary)
				r.Get("/{id}", h.getSale)
				r.Get("/{id}/invoice", h.invoice)
			})

			r.Post("/import/{kind}", h.importFile)
			r.Get("/templates/{kind}", h.template)
			r.Route("/export", func(r chi.Router) {
				r.Get("/raw-materials.csv", h.exportRawMaterials)
				r.Get("/batches/{id}", h.exportBatches)
				r.Get("/sales.xlsx", h.exportSales)
			})
		})
	})

	return r
}
