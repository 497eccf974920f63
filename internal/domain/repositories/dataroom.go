package repositories

import (
	"context"

	"dataroom/internal/domain/models"
)

// DataRoomRepository defines data access operations for data rooms
type DataRoomRepository interface {
	Create(ctx context.Context, room *models.DataRoom) error

	// GetByID retrieves a data room owned by userID (ErrNotFound otherwise)
	GetByID(ctx context.Context, id, userID string) (*models.DataRoom, error)

	// GetForUser returns the first data room of the user or ErrNotFound
	GetForUser(ctx context.Context, userID string) (*models.DataRoom, error)

	UpdateName(ctx context.Context, room *models.DataRoom) error

	// Counts returns the number of root-level folders and files
	Counts(ctx context.Context, id string) (*models.RoomCount, error)
}
