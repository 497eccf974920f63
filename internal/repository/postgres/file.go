package postgres

import (
	"context"
	"fmt"

	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresFileRepository implements the FileRepository interface
type PostgresFileRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFileRepository creates a new file repository
func NewFileRepository(config *RepositoryConfig) repositories.FileRepository {
	return &PostgresFileRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const fileColumns = `id, name, mime_type, file_size, folder_id, data_room_id, user_id, file_path, created_at, updated_at`

func scanFile(row interface{ Scan(...any) error }) (*models.File, error) {
	var file models.File
	err := row.Scan(
		&file.ID,
		&file.Name,
		&file.MimeType,
		&file.SizeBytes,
		&file.FolderID,
		&file.DataRoomID,
		&file.OwnerID,
		&file.StoragePath,
		&file.CreatedAt,
		&file.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &file, nil
}

// Create creates a new file record
func (r *PostgresFileRepository) Create(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, mime_type, file_size, folder_id, data_room_id, user_id, file_path, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		file.Name,
		file.MimeType,
		file.SizeBytes,
		file.FolderID,
		file.DataRoomID,
		file.OwnerID,
		file.StoragePath,
		file.CreatedAt,
		file.UpdatedAt,
	).Scan(&file.ID, &file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
		}
		if IsPgForeignKeyError(err) {
			return &domain.ValidationError{Message: "folder or data room does not exist"}
		}
		return fmt.Errorf("create file: %w", err)
	}

	return nil
}

// GetByID retrieves a file owned by the user
func (r *PostgresFileRepository) GetByID(ctx context.Context, id, userID string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get file: %w", err)
	}

	return file, nil
}

// UpdateName renames a file
func (r *PostgresFileRepository) UpdateName(ctx context.Context, file *models.File) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = $2
		WHERE id = $3
	`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, file.Name, file.UpdatedAt, file.ID)
	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("file '%s': %w", file.Name, domain.ErrConflict)
		}
		return fmt.Errorf("update file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a file record
func (r *PostgresFileRepository) Delete(ctx context.Context, id string) error {
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1`, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListByFolder lists files directly in a folder (nil = room root)
func (r *PostgresFileRepository) ListByFolder(ctx context.Context, folderID *string, dataRoomID string) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE data_room_id = $1 AND folder_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY lower(name) ASC, id ASC
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, dataRoomID, folderID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// ListByDataRoom lists every file of a data room
func (r *PostgresFileRepository) ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE data_room_id = $1
		ORDER BY lower(name) ASC, id ASC
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, dataRoomID)
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()

	return collectFiles(rows)
}

// ExistsByName returns the file holding name in the scope, or nil
func (r *PostgresFileRepository) ExistsByName(ctx context.Context, dataRoomID string, folderID *string, name string, excludeID *string) (*models.File, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE data_room_id = $1
			AND folder_id IS NOT DISTINCT FROM $2::uuid
			AND lower(name) = lower($3)
			AND ($4::uuid IS NULL OR id <> $4::uuid)
		LIMIT 1
	`, fileColumns, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	file, err := scanFile(executor.QueryRow(ctx, query, dataRoomID, folderID, name, excludeID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check file name: %w", err)
	}

	return file, nil
}

func collectFiles(rows pgx.Rows) ([]models.File, error) {
	files := []models.File{}
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		files = append(files, *file)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate files: %w", err)
	}

	return files, nil
}
