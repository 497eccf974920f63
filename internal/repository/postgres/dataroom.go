package postgres

import (
	"context"
	"fmt"

	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresDataRoomRepository implements the DataRoomRepository interface
type PostgresDataRoomRepository struct {
	pool   *pgxpool.Pool
	tables *TableNames
}

// NewDataRoomRepository creates a new data room repository
func NewDataRoomRepository(config *RepositoryConfig) repositories.DataRoomRepository {
	return &PostgresDataRoomRepository{
		pool:   config.Pool,
		tables: config.Tables,
	}
}

const dataRoomColumns = `id, name, description, user_id, created_at, updated_at`

func scanDataRoom(row interface{ Scan(...any) error }) (*models.DataRoom, error) {
	var room models.DataRoom
	err := row.Scan(
		&room.ID,
		&room.Name,
		&room.Description,
		&room.OwnerID,
		&room.CreatedAt,
		&room.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

// Create creates a new data room
func (r *PostgresDataRoomRepository) Create(ctx context.Context, room *models.DataRoom) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (name, description, user_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`, r.tables.DataRooms)

	executor := GetExecutor(ctx, r.pool)
	err := executor.QueryRow(ctx, query,
		room.Name,
		room.Description,
		room.OwnerID,
		room.CreatedAt,
		room.UpdatedAt,
	).Scan(&room.ID, &room.CreatedAt, &room.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create data room: %w", err)
	}

	return nil
}

// GetByID retrieves a data room owned by userID
func (r *PostgresDataRoomRepository) GetByID(ctx context.Context, id, userID string) (*models.DataRoom, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE id = $1 AND user_id = $2
	`, dataRoomColumns, r.tables.DataRooms)

	executor := GetExecutor(ctx, r.pool)
	room, err := scanDataRoom(executor.QueryRow(ctx, query, id, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("data room %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get data room: %w", err)
	}

	return room, nil
}

// GetForUser returns the oldest data room of the user
func (r *PostgresDataRoomRepository) GetForUser(ctx context.Context, userID string) (*models.DataRoom, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM %s
		WHERE user_id = $1
		ORDER BY created_at ASC
		LIMIT 1
	`, dataRoomColumns, r.tables.DataRooms)

	executor := GetExecutor(ctx, r.pool)
	room, err := scanDataRoom(executor.QueryRow(ctx, query, userID))
	if err != nil {
		if IsPgNoRowsError(err) {
			return nil, fmt.Errorf("data room for user %s: %w", userID, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get data room for user: %w", err)
	}

	return room, nil
}

// UpdateName renames a data room
func (r *PostgresDataRoomRepository) UpdateName(ctx context.Context, room *models.DataRoom) error {
	query := fmt.Sprintf(`
		UPDATE %s
		SET name = $1, updated_at = $2
		WHERE id = $3 AND user_id = $4
	`, r.tables.DataRooms)

	executor := GetExecutor(ctx, r.pool)
	result, err := executor.Exec(ctx, query, room.Name, room.UpdatedAt, room.ID, room.OwnerID)
	if err != nil {
		return fmt.Errorf("update data room: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("data room %s: %w", room.ID, domain.ErrNotFound)
	}

	return nil
}

// Counts returns the number of root-level folders and files of a room
func (r *PostgresDataRoomRepository) Counts(ctx context.Context, id string) (*models.RoomCount, error) {
	query := fmt.Sprintf(`
		SELECT
			(SELECT COUNT(*) FROM %s WHERE data_room_id = $1 AND parent_folder_id IS NULL),
			(SELECT COUNT(*) FROM %s WHERE data_room_id = $1 AND folder_id IS NULL)
	`, r.tables.Folders, r.tables.Files)

	var count models.RoomCount
	executor := GetExecutor(ctx, r.pool)
	if err := executor.QueryRow(ctx, query, id).Scan(&count.Folders, &count.Files); err != nil {
		return nil, fmt.Errorf("count data room entries: %w", err)
	}

	return &count, nil
}
