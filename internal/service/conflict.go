package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dataroom/internal/domain"
	"dataroom/internal/domain/repositories"
	"dataroom/internal/domain/services"
)

type conflictChecker struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	logger     *slog.Logger
}

// NewConflictChecker creates the server-side name conflict checker
func NewConflictChecker(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	logger *slog.Logger,
) services.ConflictChecker {
	return &conflictChecker{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		logger:     logger,
	}
}

// CheckNameConflicts reports folder and file conflicts independently
func (c *conflictChecker) CheckNameConflicts(ctx context.Context, q services.ConflictQuery) (*services.ConflictResult, error) {
	name := strings.TrimSpace(q.Name)

	folder, err := c.folderRepo.ExistsByName(ctx, q.DataRoomID, q.ParentID, name, q.ExcludeFolderID)
	if err != nil {
		return nil, err
	}
	file, err := c.fileRepo.ExistsByName(ctx, q.DataRoomID, q.ParentID, name, q.ExcludeFileID)
	if err != nil {
		return nil, err
	}

	return &services.ConflictResult{
		FolderConflict:    folder != nil,
		FileConflict:      file != nil,
		ConflictingFolder: folder,
		ConflictingFile:   file,
	}, nil
}

// CheckAndFail fails when either kind holds the name; a folder is reported first
func (c *conflictChecker) CheckAndFail(ctx context.Context, q services.ConflictQuery) error {
	result, err := c.CheckNameConflicts(ctx, q)
	if err != nil {
		return err
	}

	switch {
	case result.FolderConflict:
		c.logger.Debug("name conflict", "name", q.Name, "kind", "folder", "existing_id", result.ConflictingFolder.ID)
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", result.ConflictingFolder.Name),
			ResourceType: "folder",
			ResourceID:   result.ConflictingFolder.ID,
		}
	case result.FileConflict:
		c.logger.Debug("name conflict", "name", q.Name, "kind", "file", "existing_id", result.ConflictingFile.ID)
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a file named %q already exists in this location", result.ConflictingFile.Name),
			ResourceType: "file",
			ResourceID:   result.ConflictingFile.ID,
		}
	}
	return nil
}
