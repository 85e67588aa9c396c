package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/opencafe/intake/internal/api/handlers"
	"github.com/opencafe/intake/internal/api/middleware"
	"github.com/opencafe/intake/internal/config"
	"github.com/opencafe/intake/internal/core"
	"github.com/opencafe/intake/internal/db"
	"github.com/opencafe/intake/internal/observability"
)

// Server bundles the HTTP surface with the long-lived components behind it.
type Server struct {
	cfg        *config.Config
	store      *db.Store
	relay      *core.Relay
	dispatcher *core.Dispatcher
	log        *slog.Logger
	httpServer *http.Server
}

func NewServer(ctx context.Context, cfg *config.Config, store *db.Store, log *slog.Logger) (*Server, error) {
	registry := prometheus.NewRegistry()
	metrics := observability.NewMetrics(registry)

	statuses, err := core.NewStatusRegistry(ctx, store)
	if err != nil {
		return nil, fmt.Errorf("failed to load status registry: %w", err)
	}

	relay := core.NewRelay(store, metrics, log, cfg.Broadcast.ViewerBuffer)
	dispatcher := core.NewDispatcher(store, metrics, log, cfg.Printing.JobBuffer)
	service := core.NewService(store, statuses, relay, dispatcher, metrics, log)

	auth, err := middleware.NewAuthMiddleware(store, cfg.Auth.TokenDuration, cfg.Auth.CookieSecure)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	itemHandler := handlers.NewItemHandler(service, log)
	streamHandler := handlers.NewStreamHandler(relay, log)
	printerHandler := handlers.NewPrinterHandler(store, dispatcher, log)
	catalogHandler := handlers.NewCatalogHandler(store, log)
	userHandler := handlers.NewUserHandler(store, log)
	systemHandler := handlers.NewSystemHandler(store, relay, dispatcher, log)

	// Open surface: health, metrics, login, the public status board and the
	// print agent channel. Agents authenticate by nothing more than a name,
	// matching the trust model of a cafe-floor LAN.
	router.GET("/healthz", systemHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	router.POST("/api/auth/login", auth.LoginHandler)
	router.POST("/api/auth/logout", auth.LogoutHandler)
	router.GET("/api/auth/status", auth.StatusHandler)
	router.GET("/api/items/status", streamHandler.StatusGroups)
	router.GET("/api/items/stream", streamHandler.Stream)
	router.GET("/api/printer/stream", printerHandler.Channel)
	router.POST("/api/printer/jobs/:id/complete", printerHandler.CompleteJob)

	protected := router.Group("/api", auth.RequireAuth())
	{
		protected.POST("/items", itemHandler.Register)
		protected.GET("/items", itemHandler.List)
		protected.GET("/items/:code", itemHandler.Get)
		protected.PATCH("/items/:code", itemHandler.Update)
		protected.DELETE("/items/:code", itemHandler.Delete)
		protected.POST("/items/:code/open", itemHandler.Open)
		protected.POST("/items/:code/complete", itemHandler.Complete)
		protected.GET("/items/:code/delivery", itemHandler.GetForDelivery)
		protected.POST("/items/:code/deliver", itemHandler.Deliver)
		protected.POST("/items/:code/materials", itemHandler.AddMaterial)
		protected.PUT("/items/:code/materials/:materialID", itemHandler.SetMaterial)
		protected.DELETE("/items/:code/materials/:materialID", itemHandler.RemoveMaterial)

		protected.GET("/printers", printerHandler.ListPrinters)
		protected.GET("/print-jobs", printerHandler.ListJobs)
		protected.POST("/print-jobs/:id/retry", printerHandler.RetryJob)

		protected.GET("/departments", catalogHandler.ListDepartments)
		protected.GET("/materials", catalogHandler.ListMaterials)
		protected.GET("/statuses", catalogHandler.ListStatuses)
		protected.GET("/customer-types", catalogHandler.ListCustomerTypes)
		protected.GET("/customers", catalogHandler.ListCustomers)
		protected.GET("/windows", catalogHandler.ListWindows)
		protected.GET("/stats", systemHandler.Stats)
	}

	admin := router.Group("/api/admin", auth.RequireAuth(), auth.RequireRole(middleware.RoleAdmin))
	{
		admin.POST("/departments", catalogHandler.CreateDepartment)
		admin.PUT("/departments/:id", catalogHandler.UpdateDepartment)
		admin.DELETE("/departments/:id", catalogHandler.DeleteDepartment)

		admin.POST("/materials", catalogHandler.CreateMaterial)
		admin.PUT("/materials/:id", catalogHandler.UpdateMaterial)
		admin.DELETE("/materials/:id", catalogHandler.DeleteMaterial)

		admin.POST("/windows", catalogHandler.CreateWindow)
		admin.PUT("/windows/:id", catalogHandler.UpdateWindow)
		admin.DELETE("/windows/:id", catalogHandler.DeleteWindow)

		admin.GET("/users", userHandler.List)
		admin.POST("/users", userHandler.Create)
		admin.PUT("/users/:id", userHandler.Update)
		admin.DELETE("/users/:id", userHandler.Delete)
		admin.GET("/user-types", userHandler.ListUserTypes)
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	return &Server{
		cfg:        cfg,
		store:      store,
		relay:      relay,
		dispatcher: dispatcher,
		log:        log,
		httpServer: httpServer,
	}, nil
}

func (s *Server) Run() error {
	s.log.Info("http server listening", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server failed: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func requestLogger(log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		status := c.Writer.Status()
		if status >= 500 {
			log.Error("request failed", "method", c.Request.Method, "path", c.Request.URL.Path, "status", status)
			return
		}
		log.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", status)
	}
}
