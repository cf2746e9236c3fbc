package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Lixing-Zhang/deliverus-backend/internal/cache"
	"github.com/Lixing-Zhang/deliverus-backend/internal/config"
	"github.com/Lixing-Zhang/deliverus-backend/internal/events"
	"github.com/Lixing-Zhang/deliverus-backend/internal/handlers"
	"github.com/Lixing-Zhang/deliverus-backend/internal/metrics"
	"github.com/Lixing-Zhang/deliverus-backend/internal/middleware"
	"github.com/Lixing-Zhang/deliverus-backend/internal/repository"
	"github.com/Lixing-Zhang/deliverus-backend/internal/seed"
	"github.com/Lixing-Zhang/deliverus-backend/internal/service"
	"github.com/Lixing-Zhang/deliverus-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
)

// stores bundles the repositories selected by configuration
type stores struct {
	orders  repository.OrderRepository
	catalog repository.CatalogRepository
	pinger  handlers.Pinger
	close   func()
}

func main() {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	log := logger.New(cfg.LogLevel)
	slog.SetDefault(log)

	log.Info("starting deliverus api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
	)

	ctx := context.Background()

	// Initialize repositories
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("failed to open stores", "error", err)
		os.Exit(1)
	}
	defer st.close()

	catalog := st.catalog
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer client.Close()

		catalog = cache.NewCachedCatalog(catalog, cache.NewRedisCache(client, cfg.Redis.TTL), log)
		log.Info("catalog cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.TTL)
	}

	if len(cfg.Catalog.SeedSources) > 0 {
		log.Info("loading catalog seed data...", "sources", len(cfg.Catalog.SeedSources))
		stats, err := seed.NewLoader(nil).Load(ctx, cfg.Catalog.SeedSources, catalog)
		if err != nil {
			log.Error("failed to load catalog seed data", "error", err)
			os.Exit(1)
		}
		log.Info("catalog seed data loaded",
			"sources", stats.Sources,
			"restaurants", stats.Restaurants,
			"products", stats.Products,
		)
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Kafka.Brokers != "" {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		log.Info("order events enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			log.Error("failed to close event publisher", "error", err)
		}
	}()

	m := metrics.New()

	// Initialize services
	orderService := service.NewOrderService(service.OrderServiceDeps{
		Orders:                st.orders,
		Catalog:               catalog,
		Publisher:             publisher,
		Metrics:               m,
		Logger:                log,
		FreeShippingThreshold: cfg.Order.FreeShippingThreshold,
	})
	catalogService := service.NewCatalogService(catalog)

	// Initialize handlers
	healthHandler := handlers.NewHealthHandler(log, st.pinger)
	orderHandler := handlers.NewOrderHandler(orderService, log)
	catalogHandler := handlers.NewCatalogHandler(catalogService, log)

	// Create router
	r := chi.NewRouter()

	// Apply middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.Logger(log))
	r.Use(middleware.Metrics(m))
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(time.Duration(cfg.Server.RequestTimeout) * time.Second))

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "api_key", "X-User-Id", "X-User-Role"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", healthHandler.ServeHTTP)
	r.Handle("/metrics", m.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Authenticate(cfg.Auth))

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", orderHandler.Index)
			r.Post("/", orderHandler.Create)
			r.Get("/{orderId}", orderHandler.Show)
			r.Put("/{orderId}", orderHandler.Update)
			r.Delete("/{orderId}", orderHandler.Destroy)
			r.Patch("/{orderId}/confirm", orderHandler.Confirm)
			r.Patch("/{orderId}/send", orderHandler.Send)
			r.Patch("/{orderId}/deliver", orderHandler.Deliver)
		})

		r.Route("/restaurants/{restaurantId}", func(r chi.Router) {
			r.Get("/", catalogHandler.GetRestaurant)
			r.Get("/products", catalogHandler.ListRestaurantProducts)
			r.Get("/orders", orderHandler.RestaurantOrders)
		})

		r.Get("/products/{productId}", catalogHandler.GetProduct)
	})

	// Create HTTP server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	serverErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		log.Error("server failed to start", "error", err)
		return
	}

	log.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		return
	}

	log.Info("server stopped gracefully")
}

// openStores picks Postgres when DATABASE_URL is set and the seeded in-memory
// repositories otherwise.
func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.Database.URL == "" {
		log.Info("using in-memory repositories")
		return &stores{
			orders:  repository.NewInMemoryOrderRepository(),
			catalog: repository.NewSeededCatalogRepository(),
			close:   func() {},
		}, nil
	}

	store, err := repository.NewPostgresStore(ctx, cfg.Database.URL)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		store.Close()
		return nil, err
	}
	log.Info("using postgres store", "migrations", cfg.Database.MigrationsDir)

	return &stores{
		orders:  store,
		catalog: store,
		pinger:  store,
		close:   store.Close,
	}, nil
}
