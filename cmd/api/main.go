package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gofiber/contrib/otelfiber"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	_ "github.com/joho/godotenv/autoload"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"leasedesk/internal/config"
	"leasedesk/internal/database"
	"leasedesk/internal/database/migration"
	"leasedesk/internal/doctype"
	"leasedesk/internal/extract"
	handlers "leasedesk/internal/http/handler"
	"leasedesk/internal/http/middleware"
	"leasedesk/internal/otel"
	"leasedesk/internal/repository/postgres"
	"leasedesk/internal/service"
	"leasedesk/internal/storage"
)

func main() {
	// Load configuration from environment variables (.env auto-loaded if present)
	cfg := config.Load()

	loc := time.UTC
	if tz := os.Getenv("APP_TIMEZONE"); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("invalid APP_TIMEZONE %q: %v", tz, err)
		}
		loc = l
	}

	ctx := context.Background()

	// Initialize OTLP tracing; degrades to noop when the SDK is disabled
	shutdownTracing, err := otel.Init(ctx, loc)
	if err != nil {
		log.Fatalf("failed to initialize tracing: %v", err)
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			log.Printf("tracing shutdown: %v", err)
		}
	}()

	// Initialize PostgreSQL connection (with pooling via database/sql)
	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := migration.EnsureMigrated(ctx, db, loc, cfg.Database.Host); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	// Initialize reusable S3-compatible object storage client (MinIO-supported)
	objStore, err := storage.NewMinIO(cfg.MinIO)
	if err != nil {
		log.Fatalf("failed to initialize object storage: %v", err)
	}

	// Load the document type policy table once at startup
	resolver, err := doctype.Load(cfg.DocTypesPath)
	if err != nil {
		log.Fatalf("failed to load document type config: %v", err)
	}

	// Extraction service client
	extractor := extract.NewClient(cfg.Extractor)

	// Initialize repositories and services
	docRepo := postgres.NewDocumentPostgres(db)
	propRepo := postgres.NewPropertyPostgres(db)
	tenantRepo := postgres.NewTenantPostgres(db)
	contractRepo := postgres.NewContractPostgres(db)
	unitRepo := postgres.NewUnitPostgres(db)
	reminderRepo := postgres.NewReminderPostgres(db)

	docSvc := service.NewDocumentService(objStore, docRepo)
	ingestSvc := service.NewIngestService(objStore, extractor, resolver,
		docRepo, propRepo, tenantRepo, contractRepo, unitRepo)
	catalogSvc := service.NewCatalogService(propRepo, tenantRepo, contractRepo, unitRepo)
	dashSvc := service.NewDashboardService(reminderRepo, contractRepo, nil)

	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler(),
	})

	// Register global middleware
	// RequestID middleware adds/propagates X-Request-ID and stores it in context
	app.Use(middleware.RequestID())
	// JSON Logger middleware for structured request logs
	app.Use(middleware.Logger(loc))
	// Server-side tracing spans per request
	app.Use(otelfiber.Middleware())

	// Request counter + /metrics endpoint
	reg := prometheus.NewRegistry()
	promMw, err := middleware.NewPrometheusMiddleware(reg)
	if err != nil {
		log.Fatalf("failed to register prometheus metrics: %v", err)
	}
	app.Use(promMw.Handler())
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	// Register HTTP routes with injected services
	handlers.RegisterRoutes(app, db, docSvc, ingestSvc, catalogSvc, dashSvc)

	addr := ":" + cfg.Port

	if err := app.Listen(addr); err != nil {
		log.Fatalf("failed to start server: %v", err)
	}
}
