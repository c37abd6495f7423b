package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"product-catalog/internal/catalog"
	cataloghttp "product-catalog/internal/catalog/http"
	"product-catalog/internal/catalog/messaging"
	"product-catalog/internal/catalog/service"
	"product-catalog/internal/catalog/store"
	"product-catalog/internal/catalog/users"
	"product-catalog/internal/config"

	_ "product-catalog/docs"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	metricCreatedTotal  = "catalog_products_created_total"
	metricDeletedTotal  = "catalog_products_deleted_total"
	migrateSourcePrefix = "file://"
	postgresDriverName  = "postgres"
	productsCollection  = "products"
)

// @title        Product Catalog API
// @version      1.0
// @description  Product catalog microservice with interchangeable document and relational backends.
// @host         localhost:8080
// @BasePath     /
func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.LoadCatalog()
	if err != nil {
		logger.Error("load config", "error", err)
		os.Exit(1)
	}

	catalogStore, closeStore, err := buildStore(cfg, logger)
	if err != nil {
		logger.Error("init store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	publisher, closePublisher, err := buildPublisher(cfg, logger)
	if err != nil {
		logger.Error("init publisher", "error", err)
		os.Exit(1)
	}
	defer closePublisher()

	createdCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricCreatedTotal,
		Help: "Total number of products created",
	})
	deletedCounter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: metricDeletedTotal,
		Help: "Total number of products deleted",
	})
	prometheus.MustRegister(createdCounter, deletedCounter)

	usersClient := users.NewClient(cfg.UsersAPIURL, cfg.UsersTimeout)
	svc := service.New(catalogStore, usersClient, publisher, logger, createdCounter, deletedCounter)
	handler := cataloghttp.NewHandler(svc, cfg.ServiceName)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(cataloghttp.RequestIDMiddleware())
	router.Use(cataloghttp.AccessLogMiddleware(logger))
	cataloghttp.RegisterRoutes(router, handler)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("catalog service started",
			"addr", cfg.HTTPAddr,
			"backend", string(cfg.Backend),
			"users_api", cfg.UsersAPIURL,
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		logger.Error("http server failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("catalog service stopped")
}

// buildStore constructs the backend selected by configuration. Both branches
// hand back the same contract, so nothing downstream depends on the choice.
func buildStore(cfg config.Catalog, logger *slog.Logger) (service.Store, func(), error) {
	if cfg.Backend == config.BackendMongo {
		clientOpts := options.Client().ApplyURI(cfg.MongoURI)
		client, err := mongo.Connect(context.Background(), clientOpts)
		if err != nil {
			return nil, nil, err
		}

		pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
		defer cancel()
		if err := client.Ping(pingCtx, nil); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, nil, err
		}

		closer := func() {
			if err := client.Disconnect(context.Background()); err != nil {
				logger.Error("disconnect mongo", "error", err)
			}
		}
		return store.NewMongo(client, cfg.MongoDatabase, productsCollection), closer, nil
	}

	if err := runMigrations(cfg.DatabaseURL, cfg.MigrationsPath); err != nil {
		return nil, nil, err
	}

	db, err := sql.Open(postgresDriverName, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}

	db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)

	pingCtx, cancel := context.WithTimeout(context.Background(), cfg.DBPingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, nil, err
	}

	closer := func() {
		if err := db.Close(); err != nil {
			logger.Error("close database", "error", err)
		}
	}
	return store.NewPostgres(db), closer, nil
}

// buildPublisher connects to RabbitMQ when configured and falls back to a
// no-op publisher otherwise.
func buildPublisher(cfg config.Catalog, logger *slog.Logger) (service.Publisher, func(), error) {
	if cfg.RabbitMQURL == "" {
		logger.Info("no RABBITMQ_URL set, change events disabled")
		return messaging.Noop{}, func() {}, nil
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		return nil, nil, err
	}

	publisher, err := messaging.NewRabbitPublisher(conn, catalog.EventsQueue)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}

	closer := func() {
		_ = publisher.Close()
		_ = conn.Close()
	}
	return publisher, closer, nil
}

func runMigrations(databaseURL, migrationsPath string) error {
	m, err := migrate.New(migrateSourcePrefix+migrationsPath, databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}

	return nil
}
