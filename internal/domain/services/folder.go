package services

import (
	"context"

	"dataroom/internal/domain/models"
	"dataroom/internal/httputil"
)

// FolderService handles folder business logic
type FolderService interface {
	// ListFolders returns every folder of a data room (flat)
	ListFolders(ctx context.Context, userID, dataRoomID string) ([]models.Folder, error)

	// GetContents returns one folder with its children and files
	GetContents(ctx context.Context, userID, folderID string, includeFiles bool) (*models.FolderContents, error)

	// GetTrail returns the ancestor chain of a folder, root first
	GetTrail(ctx context.Context, userID, folderID string) (*models.FolderTrail, error)

	CreateFolder(ctx context.Context, userID string, req *CreateFolderRequest) (*models.Folder, error)

	RenameFolder(ctx context.Context, userID, folderID string, req *RenameRequest) (*models.Folder, error)

	MoveFolder(ctx context.Context, userID, folderID string, req *MoveFolderRequest) (*models.Folder, error)

	// DeleteFolder deletes a folder and everything below it
	DeleteFolder(ctx context.Context, userID, folderID string) error
}

// CreateFolderRequest represents a folder creation request
type CreateFolderRequest struct {
	Name       string  `json:"name"`
	ParentID   *string `json:"parentId,omitempty"` // nil = data room root
	DataRoomID string  `json:"dataRoomId"`
}

// RenameRequest renames a folder or a file
type RenameRequest struct {
	Name string `json:"name"`
}

// MoveFolderRequest moves a folder. NewParentID is tri-state: absent is a
// validation error, null moves to the room root, a value moves under it.
type MoveFolderRequest struct {
	NewParentID httputil.OptionalString `json:"newParentId"`
}
