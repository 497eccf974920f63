package repositories

import (
	"context"

	"dataroom/internal/domain/models"
)

// FolderRepository defines data access operations for folders
type FolderRepository interface {
	// Create inserts a folder; unique index violations surface as domain.ErrConflict
	Create(ctx context.Context, folder *models.Folder) error

	// GetByID retrieves a folder by ID within a data room
	GetByID(ctx context.Context, id, dataRoomID string) (*models.Folder, error)

	// GetByIDOnly retrieves a folder by ID without room scoping (for authorization)
	GetByIDOnly(ctx context.Context, id string) (*models.Folder, error)

	// Update persists name and parent changes
	Update(ctx context.Context, folder *models.Folder) error

	// Delete deletes a single folder row
	Delete(ctx context.Context, id, dataRoomID string) error

	// ListChildren lists immediate child folders with their counts (nil = room root)
	ListChildren(ctx context.Context, parentID *string, dataRoomID string) ([]models.Folder, error)

	// ListByDataRoom retrieves all folders in a data room (flat list, ordered by name)
	ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.Folder, error)

	// ExistsByName reports whether a folder with the name exists in the scope
	ExistsByName(ctx context.Context, dataRoomID string, parentID *string, name string, excludeID *string) (*models.Folder, error)
}
