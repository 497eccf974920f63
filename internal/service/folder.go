package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/repositories"
	"dataroom/internal/domain/services"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type folderService struct {
	roomRepo   repositories.DataRoomRepository
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	conflicts  services.ConflictChecker
	blobs      services.BlobStore
	txManager  repositories.TransactionManager
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewFolderService creates a new folder service
func NewFolderService(
	roomRepo repositories.DataRoomRepository,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	conflicts services.ConflictChecker,
	blobs services.BlobStore,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.FolderService {
	return &folderService{
		roomRepo:   roomRepo,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		conflicts:  conflicts,
		blobs:      blobs,
		txManager:  txManager,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ListFolders returns every folder of a data room
func (s *folderService) ListFolders(ctx context.Context, userID, dataRoomID string) ([]models.Folder, error) {
	if err := s.authorizer.CanAccessDataRoom(ctx, userID, dataRoomID); err != nil {
		return nil, err
	}
	return s.folderRepo.ListByDataRoom(ctx, dataRoomID)
}

// GetContents returns a folder with its immediate children (with counts) and files
func (s *folderService) GetContents(ctx context.Context, userID, folderID string, includeFiles bool) (*models.FolderContents, error) {
	if err := s.authorizer.CanAccessFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}

	folder, err := s.folderRepo.GetByIDOnly(ctx, folderID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetByID(ctx, folder.DataRoomID, userID)
	if err != nil {
		return nil, err
	}

	children, err := s.folderRepo.ListChildren(ctx, &folder.ID, folder.DataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list child folders: %w", err)
	}

	files := []models.File{}
	if includeFiles {
		files, err = s.fileRepo.ListByFolder(ctx, &folder.ID, folder.DataRoomID)
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
	}

	folder.Count = &models.FolderCount{Children: len(children), Files: len(files)}

	return &models.FolderContents{
		Folder:   *folder,
		DataRoom: models.RoomRef{ID: room.ID, Name: room.Name},
		Children: children,
		Files:    files,
	}, nil
}

// GetTrail returns the ancestors of a folder ordered root first.
// A repeated or missing ancestor stops the walk and marks the trail truncated.
func (s *folderService) GetTrail(ctx context.Context, userID, folderID string) (*models.FolderTrail, error) {
	if err := s.authorizer.CanAccessFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}

	current, err := s.folderRepo.GetByIDOnly(ctx, folderID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomRepo.GetByID(ctx, current.DataRoomID, userID)
	if err != nil {
		return nil, err
	}
	all, err := s.folderRepo.ListByDataRoom(ctx, current.DataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}

	byID := make(map[string]models.Folder, len(all))
	for _, f := range all {
		byID[f.ID] = f
	}

	var trail []models.Breadcrumb
	truncated := false
	visited := map[string]bool{}
	node, ok := *current, true
	for ok {
		if visited[node.ID] || len(trail) >= config.MaxTreeDepth {
			truncated = true
			break
		}
		visited[node.ID] = true
		trail = append(trail, models.Breadcrumb{ID: node.ID, Name: node.Name, ParentID: node.ParentID})

		if node.ParentID == nil {
			break
		}
		node, ok = byID[*node.ParentID]
		if !ok {
			truncated = true
		}
	}

	if truncated {
		s.logger.Warn("folder hierarchy is corrupt",
			"folder_id", folderID,
			"data_room_id", current.DataRoomID,
			"depth", len(trail),
		)
	}

	// Collected leaf first
	for i, j := 0, len(trail)-1; i < j; i, j = i+1, j-1 {
		trail[i], trail[j] = trail[j], trail[i]
	}

	return &models.FolderTrail{
		CurrentFolder: *current,
		DataRoom:      models.RoomRef{ID: room.ID, Name: room.Name},
		Breadcrumb:    trail,
		Truncated:     truncated,
	}, nil
}

// CreateFolder creates a folder under ParentID (nil = room root)
func (s *folderService) CreateFolder(ctx context.Context, userID string, req *services.CreateFolderRequest) (*models.Folder, error) {
	req.ParentID = emptyToNil(req.ParentID)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DataRoomID, validation.Required),
		validation.Field(&req.Name, folderNameRules()...),
	); err != nil {
		return nil, validationErr(err)
	}

	if err := s.authorizer.CanAccessDataRoom(ctx, userID, req.DataRoomID); err != nil {
		return nil, err
	}

	folder := &models.Folder{
		Name:       strings.TrimSpace(req.Name),
		ParentID:   req.ParentID,
		DataRoomID: req.DataRoomID,
		OwnerID:    userID,
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}

	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		if folder.ParentID != nil {
			if _, err := s.folderRepo.GetByID(ctx, *folder.ParentID, folder.DataRoomID); err != nil {
				return fmt.Errorf("parent folder: %w", err)
			}
		}
		if err := s.conflicts.CheckAndFail(ctx, services.ConflictQuery{
			Name:       folder.Name,
			DataRoomID: folder.DataRoomID,
			ParentID:   folder.ParentID,
		}); err != nil {
			return err
		}
		return s.folderRepo.Create(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	folder.Count = &models.FolderCount{}
	s.logger.Info("folder created",
		"id", folder.ID,
		"name", folder.Name,
		"data_room_id", folder.DataRoomID,
		"parent_folder_id", folder.ParentID,
	)

	return folder, nil
}

// RenameFolder renames a folder in place
func (s *folderService) RenameFolder(ctx context.Context, userID, folderID string, req *services.RenameRequest) (*models.Folder, error) {
	if err := validation.ValidateStruct(req, validation.Field(&req.Name, folderNameRules()...)); err != nil {
		return nil, validationErr(err)
	}
	if err := s.authorizer.CanAccessFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		folder, err = s.folderRepo.GetByIDOnly(ctx, folderID)
		if err != nil {
			return err
		}

		folder.Name = strings.TrimSpace(req.Name)
		if err := s.conflicts.CheckAndFail(ctx, services.ConflictQuery{
			Name:            folder.Name,
			DataRoomID:      folder.DataRoomID,
			ParentID:        folder.ParentID,
			ExcludeFolderID: &folder.ID,
		}); err != nil {
			return err
		}

		folder.UpdatedAt = time.Now()
		return s.folderRepo.Update(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder renamed", "id", folder.ID, "name", folder.Name)
	return folder, nil
}

// MoveFolder re-parents a folder, rejecting moves into itself or a descendant
func (s *folderService) MoveFolder(ctx context.Context, userID, folderID string, req *services.MoveFolderRequest) (*models.Folder, error) {
	if !req.NewParentID.Present {
		return nil, &domain.ValidationError{Message: "newParentId is required (null moves to the root)"}
	}
	if err := s.authorizer.CanAccessFolder(ctx, userID, folderID); err != nil {
		return nil, err
	}

	newParentID := emptyToNil(req.NewParentID.Value)

	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		folder, err = s.folderRepo.GetByIDOnly(ctx, folderID)
		if err != nil {
			return err
		}

		if newParentID != nil {
			if _, err := s.folderRepo.GetByID(ctx, *newParentID, folder.DataRoomID); err != nil {
				return fmt.Errorf("parent folder: %w", err)
			}
			if err := s.validateNoCircularReference(ctx, folder.ID, *newParentID, folder.DataRoomID); err != nil {
				return err
			}
		}

		if err := s.conflicts.CheckAndFail(ctx, services.ConflictQuery{
			Name:            folder.Name,
			DataRoomID:      folder.DataRoomID,
			ParentID:        newParentID,
			ExcludeFolderID: &folder.ID,
		}); err != nil {
			return err
		}

		folder.ParentID = newParentID
		folder.UpdatedAt = time.Now()
		return s.folderRepo.Update(ctx, folder)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("folder moved", "id", folder.ID, "parent_folder_id", folder.ParentID)
	return folder, nil
}

// DeleteFolder deletes a folder and everything below it.
// Rows go in one transaction; blobs are removed afterwards and failures are only logged.
func (s *folderService) DeleteFolder(ctx context.Context, userID, folderID string) error {
	if err := s.authorizer.CanAccessFolder(ctx, userID, folderID); err != nil {
		return err
	}

	var blobKeys []string
	var folder *models.Folder
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		folder, err = s.folderRepo.GetByIDOnly(ctx, folderID)
		if err != nil {
			return err
		}

		blobKeys, err = s.collectBlobKeys(ctx, folder)
		if err != nil {
			return err
		}

		return s.folderRepo.Delete(ctx, folder.ID, folder.DataRoomID)
	})
	if err != nil {
		return err
	}

	for _, key := range blobKeys {
		if err := s.blobs.Delete(ctx, key); err != nil {
			s.logger.Warn("failed to delete blob", "key", key, "error", err)
		}
	}

	s.logger.Info("folder deleted",
		"id", folder.ID,
		"name", folder.Name,
		"data_room_id", folder.DataRoomID,
		"files_removed", len(blobKeys),
	)
	return nil
}

// collectBlobKeys returns the storage keys of every file in the folder's subtree
func (s *folderService) collectBlobKeys(ctx context.Context, root *models.Folder) ([]string, error) {
	folders, err := s.folderRepo.ListByDataRoom(ctx, root.DataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list folders: %w", err)
	}
	files, err := s.fileRepo.ListByDataRoom(ctx, root.DataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	children := make(map[string][]string)
	for _, f := range folders {
		if f.ParentID != nil {
			children[*f.ParentID] = append(children[*f.ParentID], f.ID)
		}
	}

	inSubtree := map[string]bool{}
	queue := []string{root.ID}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if inSubtree[id] {
			continue
		}
		inSubtree[id] = true
		queue = append(queue, children[id]...)
	}

	var keys []string
	for _, f := range files {
		if f.FolderID != nil && inSubtree[*f.FolderID] && f.StoragePath != "" {
			keys = append(keys, f.StoragePath)
		}
	}
	return keys, nil
}

// validateNoCircularReference ensures moving a folder won't create a cycle
func (s *folderService) validateNoCircularReference(ctx context.Context, folderID, newParentID, dataRoomID string) error {
	if folderID == newParentID {
		return &domain.ValidationError{Message: "cannot move folder into itself"}
	}

	visited := map[string]bool{}
	currentID := newParentID
	for {
		if visited[currentID] || len(visited) > config.MaxTreeDepth {
			return fmt.Errorf("ancestry of folder %s: %w", newParentID, domain.ErrCorruptHierarchy)
		}
		visited[currentID] = true

		parent, err := s.folderRepo.GetByID(ctx, currentID, dataRoomID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("ancestry of folder %s: %w", newParentID, domain.ErrCorruptHierarchy)
			}
			return err
		}

		if parent.ParentID == nil {
			return nil
		}
		if *parent.ParentID == folderID {
			return &domain.ValidationError{Message: "cannot move folder into its own descendant"}
		}
		currentID = *parent.ParentID
	}
}
