package services

import (
	"context"
	"io"

	"dataroom/internal/domain/models"
)

// FileService handles file records and their stored bytes
type FileService interface {
	// ListFiles lists files by folder (when folderID is set) or by data room
	ListFiles(ctx context.Context, userID string, dataRoomID, folderID *string) ([]models.File, error)

	UploadFile(ctx context.Context, userID string, req *UploadFileRequest) (*models.File, error)

	RenameFile(ctx context.Context, userID, fileID string, req *RenameRequest) (*models.File, error)

	// OpenFile returns the file record and a reader over its bytes (caller closes)
	OpenFile(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error)

	DeleteFile(ctx context.Context, userID, fileID string) error
}

// UploadFileRequest carries an upload; Content is read once
type UploadFileRequest struct {
	DataRoomID string
	FolderID   *string
	Name       string
	MimeType   string
	SizeBytes  int64
	Content    io.Reader
}
