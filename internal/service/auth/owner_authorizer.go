package auth

import (
	"context"
	"errors"
	"fmt"

	"dataroom/internal/domain"
	"dataroom/internal/domain/repositories"
)

// OwnerBasedAuthorizer implements ResourceAuthorizer using ownership checks.
// A user can access a resource if they own the data room that contains it.
type OwnerBasedAuthorizer struct {
	roomRepo   repositories.DataRoomRepository
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
}

// NewOwnerBasedAuthorizer creates a new ownership-based authorizer
func NewOwnerBasedAuthorizer(
	roomRepo repositories.DataRoomRepository,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
) *OwnerBasedAuthorizer {
	return &OwnerBasedAuthorizer{
		roomRepo:   roomRepo,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
	}
}

// CanAccessDataRoom checks if user owns the data room
func (a *OwnerBasedAuthorizer) CanAccessDataRoom(ctx context.Context, userID, dataRoomID string) error {
	// GetByID filters by owner, so not found means not owned
	_, err := a.roomRepo.GetByID(ctx, dataRoomID, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return &domain.ForbiddenError{Message: fmt.Sprintf("access denied to data room %s", dataRoomID)}
		}
		return fmt.Errorf("check data room access: %w", err)
	}
	return nil
}

// CanAccessFolder checks if user can access a folder (via its data room)
func (a *OwnerBasedAuthorizer) CanAccessFolder(ctx context.Context, userID, folderID string) error {
	folder, err := a.folderRepo.GetByIDOnly(ctx, folderID)
	if err != nil {
		return fmt.Errorf("get folder for auth: %w", err)
	}
	return a.CanAccessDataRoom(ctx, userID, folder.DataRoomID)
}

// CanAccessFile checks if user owns the file
func (a *OwnerBasedAuthorizer) CanAccessFile(ctx context.Context, userID, fileID string) error {
	// GetByID is owner-scoped; a foreign file reads as not found
	if _, err := a.fileRepo.GetByID(ctx, fileID, userID); err != nil {
		return fmt.Errorf("get file for auth: %w", err)
	}
	return nil
}
