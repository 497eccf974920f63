package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"dataroom/internal/auth"
	"dataroom/internal/config"
	"dataroom/internal/filetypes"
	"dataroom/internal/handler"
	"dataroom/internal/middleware"
	"dataroom/internal/repository/postgres"
	"dataroom/internal/service"
	serviceAuth "dataroom/internal/service/auth"
	"dataroom/internal/storage"

	"github.com/joho/godotenv"
	"github.com/rs/cors"
)

func main() {
	// Load .env file (silently ignore if it doesn't exist - for production)
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// Setup structured logging
	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Info("server starting",
		"environment", cfg.Environment,
		"port", cfg.Port,
		"table_prefix", cfg.TablePrefix,
	)

	// Create JWT verifier for Supabase authentication
	jwtVerifier, err := auth.NewJWTVerifier(cfg.SupabaseJWKSURL, logger)
	if err != nil {
		log.Fatalf("Failed to create JWT verifier: %v", err)
	}
	defer jwtVerifier.Close()

	// Create pgx connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to create connection pool: %v", err)
	}
	defer pool.Close()

	logger.Info("database connected",
		"max_conns", 25,
		"min_conns", 5,
	)

	// Create table names
	tables := postgres.NewTableNames(cfg.TablePrefix)

	// Tables and unique indexes are idempotent, so every boot ensures them
	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to ensure schema: %v", err)
	}

	// Create repositories
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	roomRepo := postgres.NewDataRoomRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	// Blob storage and upload policy
	blobs, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	fileTypes, err := filetypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load file type registry: %v", err)
	}
	logger.Info("file type registry initialized", "allowed", fileTypes.Describe())

	// Create services
	authorizer := serviceAuth.NewOwnerBasedAuthorizer(roomRepo, folderRepo, fileRepo)
	conflicts := service.NewConflictChecker(folderRepo, fileRepo, logger)
	roomService := service.NewDataRoomService(roomRepo, folderRepo, fileRepo, txManager, authorizer, logger)
	folderService := service.NewFolderService(roomRepo, folderRepo, fileRepo, conflicts, blobs, txManager, authorizer, logger)
	fileService := service.NewFileService(folderRepo, fileRepo, conflicts, blobs, fileTypes, authorizer, logger)

	logger.Info("services initialized")

	// Create HTTP router (Go 1.22+ enhanced patterns)
	mux := http.NewServeMux()
	handler.RegisterRoutes(mux, handler.Handlers{
		DataRooms: handler.NewDataRoomHandler(roomService, logger),
		Folders:   handler.NewFolderHandler(folderService, logger),
		Files:     handler.NewFileHandler(fileService, logger),
	})

	// Build middleware chain
	var h http.Handler = mux

	// Apply middleware in reverse order (they wrap each other)
	// Order: CORS → Recovery → Auth → Routes
	authLimiter := middleware.NewFailedAuthLimiter(config.MaxFailedAuthAttempts, config.FailedAuthWindow)
	h = middleware.AuthMiddleware(jwtVerifier, authLimiter)(h)
	h = middleware.Recovery(logger)(h)

	// CORS - Must be before auth to handle OPTIONS pre-flight requests
	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   strings.Split(cfg.CORSOrigins, ","),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Origin", "Content-Type", "Accept", "Authorization"},
		AllowCredentials: true,
	})
	h = corsHandler.Handler(h)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      h,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server
	logger.Info("server listening", "port", cfg.Port)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("Failed to start server: %v", err)
	}
}
