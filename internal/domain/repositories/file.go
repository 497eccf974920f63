package repositories

import (
	"context"

	"dataroom/internal/domain/models"
)

// FileRepository defines data access operations for file records
type FileRepository interface {
	Create(ctx context.Context, file *models.File) error

	// GetByID retrieves a file owned by the user
	GetByID(ctx context.Context, id, userID string) (*models.File, error)

	// UpdateName renames a file; unique index violations surface as domain.ErrConflict
	UpdateName(ctx context.Context, file *models.File) error

	Delete(ctx context.Context, id string) error

	// ListByFolder lists files directly in a folder (nil = room root)
	ListByFolder(ctx context.Context, folderID *string, dataRoomID string) ([]models.File, error)

	// ListByDataRoom lists every file of a data room
	ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.File, error)

	// ExistsByName returns the file occupying the name in the scope, or nil
	ExistsByName(ctx context.Context, dataRoomID string, folderID *string, name string, excludeID *string) (*models.File, error)
}
