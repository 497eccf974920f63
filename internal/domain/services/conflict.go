package services

import (
	"context"

	"dataroom/internal/domain/models"
)

// ConflictChecker is the authoritative name conflict check for a scope
type ConflictChecker interface {
	CheckNameConflicts(ctx context.Context, q ConflictQuery) (*ConflictResult, error)

	// CheckAndFail returns a *domain.ConflictError when the name is taken
	// by either kind (folders are reported first)
	CheckAndFail(ctx context.Context, q ConflictQuery) error
}

// ConflictQuery is a candidate name in the (data room, parent folder) scope
type ConflictQuery struct {
	Name            string
	DataRoomID      string
	ParentID        *string
	ExcludeFolderID *string
	ExcludeFileID   *string
}

// ConflictResult reports per-kind conflicts independently
type ConflictResult struct {
	FolderConflict    bool           `json:"folderConflict"`
	FileConflict      bool           `json:"fileConflict"`
	ConflictingFolder *models.Folder `json:"conflictingFolder"`
	ConflictingFile   *models.File   `json:"conflictingFile"`
}
