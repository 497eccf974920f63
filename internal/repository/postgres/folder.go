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

// PostgresFolderRepository implements the FolderRepository interface
type PostgresFolderRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewFolderRepository creates a new folder repository
func NewFolderRepository(config *RepositoryConfig) repositories.FolderRepository {
	return &PostgresFolderRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const folderColumns = `id, name, parent_folder_id, data_room_id, user_id, created_at, updated_at`

func scanFolder(row interface{ Scan(...any) error }, extra ...any) (*models.Folder, error) {
	var folder models.Folder
	dest := []any{
		&folder.ID,
		&folder.Name,
		&folder.ParentID,
		&folder.DataRoomID,
		&folder.OwnerID,
		&folder.CreatedAt,
		&folder.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	return &folder, nil
}

// Create creates a new folder
func (r *PostgresFolderRepository) Create(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, parent_folder_id, data_room_id, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		folder.Name,
		folder.ParentID,
		folder.DataRoomID,
		folder.OwnerID,
		folder.CreatedAt,
		folder.UpdatedAt,
	).Scan(&folder.ID, &folder.CreatedAt, &folder.UpdatedAt)

	if err != nil {
		if IsPgDuplicateError(err) {
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		}
		if IsPgForeignKeyError(err) {
			return &domain.ValidationError{Message: "parent folder or data room does not exist"}
		}
		return fmt.Errorf("create folder: %w", err)
	}

	return nil
}

// GetByID retrieves a folder by ID
func (r *PostgresFolderRepository) GetByID(ctx context.Context, id, dataRoomID string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND data_room_id = $2
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id, dataRoomID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// GetByIDOnly retrieves a folder by ID without room scoping
func (r *PostgresFolderRepository) GetByIDOnly(ctx context.Context, id string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, id))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get folder: %w", err)
	}

	return folder, nil
}

// Update updates a folder's name and parent
func (r *PostgresFolderRepository) Update(ctx context.Context, folder *models.Folder) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET parent_folder_id = $1, name = $2, updated_at = $3
		WHERE id = $4 AND data_room_id = $5
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query,
		folder.ParentID,
		folder.Name,
		folder.UpdatedAt,
		folder.ID,
		folder.DataRoomID,
	)

	if err != nil {
		switch {
		case IsPgDuplicateError(err):
			return fmt.Errorf("folder '%s': %w", folder.Name, domain.ErrConflict)
		case IsPgCheckError(err):
			return &domain.ValidationError{Message: "folder cannot be its own parent"}
		case IsPgForeignKeyError(err):
			return &domain.ValidationError{Message: "parent folder does not exist"}
		}
		return fmt.Errorf("update folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}

	return nil
}

// Delete deletes a folder; descendants and their file rows go with it (ON DELETE CASCADE)
func (r *PostgresFolderRepository) Delete(ctx context.Context, id, dataRoomID string) error {
	query := fmt.Sprintf(`
		DELETE FROM %s
		WHERE id = $1 AND data_room_id = $2
	`, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, id, dataRoomID)
	if err != nil {
		return fmt.Errorf("delete folder: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}

	return nil
}

// ListChildren lists immediate child folders with their child and file counts
func (r *PostgresFolderRepository) ListChildren(ctx context.Context, parentID *string, dataRoomID string) ([]models.Folder, error) {
	// $2 IS NULL selects the room root
	query := fmt.Sprintf(`
		SELECT f.id, f.name, f.parent_folder_id, f.data_room_id, f.user_id, f.created_at, f.updated_at,
			(SELECT COUNT(*) FROM %[1]s c WHERE c.parent_folder_id = f.id),
			(SELECT COUNT(*) FROM %[2]s d WHERE d.folder_id = f.id)
		FROM %[1]s f
		WHERE f.data_room_id = $1
			AND f.parent_folder_id IS NOT DISTINCT FROM $2::uuid
		ORDER BY lower(f.name) ASC, f.id ASC
	`, r.tables.Folders, r.tables.Files)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, dataRoomID, parentID)
	if err != nil {
		return nil, fmt.Errorf("list folder children: %w", err)
	}
	defer rows.Close()

	folders := []models.Folder{}
	for rows.Next() {
		count := &models.FolderCount{}
		folder, err := scanFolder(rows, &count.Children, &count.Files)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folder.Count = count
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}

// ListByDataRoom retrieves all folders in a data room (flat list)
func (r *PostgresFolderRepository) ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE data_room_id = $1
		ORDER BY lower(name) ASC, id ASC
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	rows, err := executor.Query(ctx, query, dataRoomID)
	if err != nil {
		return nil, fmt.Errorf("list folders: %w", err)
	}
	defer rows.Close()

	return collectFolders(rows)
}

// ExistsByName returns the folder holding name in the scope, or nil.
// The comparison is case-insensitive, matching the unique indexes.
func (r *PostgresFolderRepository) ExistsByName(ctx context.Context, dataRoomID string, parentID *string, name string, excludeID *string) (*models.Folder, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE data_room_id = $1
			AND parent_folder_id IS NOT DISTINCT FROM $2::uuid
			AND lower(name) = lower($3)
			AND ($4::uuid IS NULL OR id <> $4::uuid)
		LIMIT 1
	`, folderColumns, r.tables.Folders)

	executor := GetExecutor(ctx, r.pool)
	folder, err := scanFolder(executor.QueryRow(ctx, query, dataRoomID, parentID, name, excludeID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("check folder name: %w", err)
	}

	return folder, nil
}

func collectFolders(rows pgx.Rows) ([]models.Folder, error) {
	folders := []models.Folder{}
	for rows.Next() {
		folder, err := scanFolder(rows)
		if err != nil {
			return nil, fmt.Errorf("scan folder: %w", err)
		}
		folders = append(folders, *folder)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate folders: %w", err)
	}

	return folders, nil
}
