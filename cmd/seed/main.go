package main

import (
	"bytes"
	"context"
	"flag"
	"log"
	"os"

	"dataroom/internal/auth"
	"dataroom/internal/config"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/services"
	"dataroom/internal/filetypes"
	"dataroom/internal/repository/postgres"
	"dataroom/internal/service"
	serviceAuth "dataroom/internal/service/auth"
	"dataroom/internal/storage"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Demo owner provisioned through the Supabase Admin API
const (
	seedEmail    = "demo@dataroom.local"
	seedPassword = "dataroom-demo-password"
	seedName     = "Demo Owner"
)

// A one-page PDF so the demo file can be viewed
var samplePDF = []byte("%PDF-1.4\n1 0 obj<</Type/Catalog/Pages 2 0 R>>endobj\n" +
	"2 0 obj<</Type/Pages/Kids[3 0 R]/Count 1>>endobj\n" +
	"3 0 obj<</Type/Page/Parent 2 0 R/MediaBox[0 0 612 792]>>endobj\n" +
	"trailer<</Root 1 0 R>>\n%%EOF\n")

func main() {
	// Parse command-line flags
	dropTables := flag.Bool("drop-tables", false, "Drop all tables before seeding (fresh start)")
	schemaOnly := flag.Bool("schema-only", false, "Only set up schema, don't seed the demo room")
	clearData := flag.Bool("clear-data", false, "Clear all data rooms, folders and files (keep schema)")
	userID := flag.String("user-id", os.Getenv("SEED_USER_ID"), "Owner user ID (skips the Admin API when set)")
	flag.Parse()

	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg := config.Load()

	// SAFETY: Prevent destructive operations in production
	if cfg.Environment == "prod" && (*dropTables || *clearData) {
		log.Fatalf("BLOCKED: Cannot run destructive operations (--drop-tables or --clear-data) in production environment")
	}

	logger, closeLog, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to set up logging: %v", err)
	}
	defer closeLog()

	logger.Info("seed starting",
		"environment", cfg.Environment,
		"table_prefix", cfg.TablePrefix,
		"drop_tables", *dropTables,
		"schema_only", *schemaOnly,
		"clear_data", *clearData,
	)

	// Create database connection pool
	ctx := context.Background()
	pool, err := postgres.CreateConnectionPool(ctx, cfg.SupabaseDBURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	tables := postgres.NewTableNames(cfg.TablePrefix)

	if *dropTables {
		if err := postgres.DropTables(ctx, pool, tables, logger); err != nil {
			log.Fatalf("Failed to drop tables: %v", err)
		}
	}

	if err := postgres.EnsureSchema(ctx, pool, tables, cfg.TablePrefix); err != nil {
		log.Fatalf("Failed to run schema: %v", err)
	}
	logger.Info("schema ready")

	if *schemaOnly {
		return
	}

	if *clearData {
		if err := clearAllData(ctx, pool, tables); err != nil {
			log.Fatalf("Failed to clear data: %v", err)
		}
		logger.Info("data cleared")
		return
	}

	owner := models.User{ID: *userID, Email: seedEmail, Name: seedName}
	if owner.ID == "" {
		if cfg.SupabaseURL == "" || cfg.SupabaseKey == "" {
			log.Fatalf("SUPABASE_URL and SUPABASE_KEY are required to provision the demo owner (or pass --user-id)")
		}
		admin := auth.NewAdminClient(cfg.SupabaseURL, cfg.SupabaseKey)
		owner.ID, err = admin.EnsureUser(ctx, seedEmail, seedPassword, seedName)
		if err != nil {
			log.Fatalf("Failed to provision demo owner: %v", err)
		}
	}

	// Seed through the services so the same validation and conflict rules apply
	repoConfig := &postgres.RepositoryConfig{
		Pool:   pool,
		Tables: tables,
		Logger: logger,
	}
	roomRepo := postgres.NewDataRoomRepository(repoConfig)
	folderRepo := postgres.NewFolderRepository(repoConfig)
	fileRepo := postgres.NewFileRepository(repoConfig)
	txManager := postgres.NewTransactionManager(pool, logger)

	blobs, err := storage.NewLocalStorage(cfg.StorageDir)
	if err != nil {
		log.Fatalf("Failed to initialize storage: %v", err)
	}
	fileTypes, err := filetypes.NewRegistry()
	if err != nil {
		log.Fatalf("Failed to load file type registry: %v", err)
	}

	authorizer := serviceAuth.NewOwnerBasedAuthorizer(roomRepo, folderRepo, fileRepo)
	conflicts := service.NewConflictChecker(folderRepo, fileRepo, logger)
	roomService := service.NewDataRoomService(roomRepo, folderRepo, fileRepo, txManager, authorizer, logger)
	folderService := service.NewFolderService(roomRepo, folderRepo, fileRepo, conflicts, blobs, txManager, authorizer, logger)
	fileService := service.NewFileService(folderRepo, fileRepo, conflicts, blobs, fileTypes, authorizer, logger)

	if err := seedDemoRoom(ctx, owner, roomService, folderService, fileService); err != nil {
		log.Fatalf("Failed to seed demo room: %v", err)
	}
	logger.Info("seed complete", "owner", owner.ID, "path", "Acme/Reports/2024/Q1.pdf")
}

// seedDemoRoom builds Acme/Reports/2024/Q1.pdf plus a few siblings
func seedDemoRoom(
	ctx context.Context,
	owner models.User,
	rooms services.DataRoomService,
	folders services.FolderService,
	files services.FileService,
) error {
	room, err := rooms.Upsert(ctx, owner, &services.DataRoomRequest{Name: "Acme"})
	if err != nil {
		return err
	}

	mkdir := func(name string, parentID *string) (*models.Folder, error) {
		return folders.CreateFolder(ctx, owner.ID, &services.CreateFolderRequest{
			Name:       name,
			ParentID:   parentID,
			DataRoomID: room.ID,
		})
	}

	reports, err := mkdir("Reports", nil)
	if err != nil {
		return err
	}
	if _, err := mkdir("Legal", nil); err != nil {
		return err
	}
	year, err := mkdir("2024", &reports.ID)
	if err != nil {
		return err
	}
	if _, err := mkdir("2023", &reports.ID); err != nil {
		return err
	}

	_, err = files.UploadFile(ctx, owner.ID, &services.UploadFileRequest{
		DataRoomID: room.ID,
		FolderID:   &year.ID,
		Name:       "Q1.pdf",
		MimeType:   "application/pdf",
		SizeBytes:  int64(len(samplePDF)),
		Content:    bytes.NewReader(samplePDF),
	})
	return err
}

// clearAllData removes every data room; folders and files cascade
func clearAllData(ctx context.Context, pool *pgxpool.Pool, tables *postgres.TableNames) error {
	_, err := pool.Exec(ctx, "DELETE FROM "+tables.DataRooms)
	return err
}
