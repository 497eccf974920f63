package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"dataroom/internal/config"
	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/repositories"
	"dataroom/internal/domain/services"
	"dataroom/internal/filetypes"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type fileService struct {
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	conflicts  services.ConflictChecker
	blobs      services.BlobStore
	types      *filetypes.Registry
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewFileService creates a new file service
func NewFileService(
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	conflicts services.ConflictChecker,
	blobs services.BlobStore,
	types *filetypes.Registry,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.FileService {
	return &fileService{
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		conflicts:  conflicts,
		blobs:      blobs,
		types:      types,
		authorizer: authorizer,
		logger:     logger,
	}
}

// ListFiles lists the files of a folder, or of the whole room when folderID is nil
func (s *fileService) ListFiles(ctx context.Context, userID string, dataRoomID, folderID *string) ([]models.File, error) {
	folderID = emptyToNil(folderID)
	switch {
	case folderID != nil:
		if err := s.authorizer.CanAccessFolder(ctx, userID, *folderID); err != nil {
			return nil, err
		}
		folder, err := s.folderRepo.GetByIDOnly(ctx, *folderID)
		if err != nil {
			return nil, err
		}
		return s.fileRepo.ListByFolder(ctx, folderID, folder.DataRoomID)
	case dataRoomID != nil && *dataRoomID != "":
		if err := s.authorizer.CanAccessDataRoom(ctx, userID, *dataRoomID); err != nil {
			return nil, err
		}
		return s.fileRepo.ListByDataRoom(ctx, *dataRoomID)
	default:
		return nil, &domain.ValidationError{Message: "dataRoomId or folderId is required"}
	}
}

// UploadFile validates type and size, stores the bytes, then records the file.
// The blob is removed again if the record cannot be written.
func (s *fileService) UploadFile(ctx context.Context, userID string, req *services.UploadFileRequest) (*models.File, error) {
	req.FolderID = emptyToNil(req.FolderID)
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req,
		validation.Field(&req.DataRoomID, validation.Required),
		validation.Field(&req.Name, fileNameRules()...),
	); err != nil {
		return nil, validationErr(err)
	}

	fileType, ok := s.types.Lookup(req.MimeType, req.Name)
	if !ok {
		return nil, &domain.ValidationError{
			Message: fmt.Sprintf("invalid file type: only %s files are allowed", s.types.Describe()),
		}
	}
	if req.SizeBytes > config.MaxUploadBytes {
		return nil, tooLarge()
	}

	if err := s.authorizer.CanAccessDataRoom(ctx, userID, req.DataRoomID); err != nil {
		return nil, err
	}
	if req.FolderID != nil {
		if _, err := s.folderRepo.GetByID(ctx, *req.FolderID, req.DataRoomID); err != nil {
			return nil, fmt.Errorf("target folder: %w", err)
		}
	}

	query := services.ConflictQuery{Name: req.Name, DataRoomID: req.DataRoomID, ParentID: req.FolderID}
	if err := s.conflicts.CheckAndFail(ctx, query); err != nil {
		return nil, err
	}

	// One byte past the cap detects bodies that lie about their size
	key, written, err := s.blobs.Put(ctx, io.LimitReader(req.Content, config.MaxUploadBytes+1), req.Name)
	if err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}
	if written > config.MaxUploadBytes {
		s.discardBlob(ctx, key)
		return nil, tooLarge()
	}

	file := &models.File{
		Name:        req.Name,
		MimeType:    fileType.StoredMimeType(req.MimeType),
		SizeBytes:   written,
		FolderID:    req.FolderID,
		DataRoomID:  req.DataRoomID,
		OwnerID:     userID,
		StoragePath: key,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	if err := s.fileRepo.Create(ctx, file); err != nil {
		s.discardBlob(ctx, key)
		return nil, err
	}

	s.logger.Info("file uploaded",
		"id", file.ID,
		"name", file.Name,
		"size", file.SizeBytes,
		"data_room_id", file.DataRoomID,
		"folder_id", file.FolderID,
	)
	return file, nil
}

// RenameFile renames a file in place
func (s *fileService) RenameFile(ctx context.Context, userID, fileID string, req *services.RenameRequest) (*models.File, error) {
	if err := validation.ValidateStruct(req, validation.Field(&req.Name, fileNameRules()...)); err != nil {
		return nil, validationErr(err)
	}

	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return nil, err
	}

	file.Name = strings.TrimSpace(req.Name)
	if err := s.conflicts.CheckAndFail(ctx, services.ConflictQuery{
		Name:          file.Name,
		DataRoomID:    file.DataRoomID,
		ParentID:      file.FolderID,
		ExcludeFileID: &file.ID,
	}); err != nil {
		return nil, err
	}

	file.UpdatedAt = time.Now()
	if err := s.fileRepo.UpdateName(ctx, file); err != nil {
		return nil, err
	}

	s.logger.Info("file renamed", "id", file.ID, "name", file.Name)
	return file, nil
}

// OpenFile returns the file record and its content
func (s *fileService) OpenFile(ctx context.Context, userID, fileID string) (*models.File, io.ReadCloser, error) {
	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return nil, nil, err
	}
	rc, err := s.blobs.Open(ctx, file.StoragePath)
	if err != nil {
		return nil, nil, err
	}
	return file, rc, nil
}

// DeleteFile removes the record first, then the blob in the background
func (s *fileService) DeleteFile(ctx context.Context, userID, fileID string) error {
	file, err := s.fileRepo.GetByID(ctx, fileID, userID)
	if err != nil {
		return err
	}
	if err := s.fileRepo.Delete(ctx, file.ID); err != nil {
		return err
	}

	go s.discardBlob(context.WithoutCancel(ctx), file.StoragePath)

	s.logger.Info("file deleted", "id", file.ID, "name", file.Name)
	return nil
}

func (s *fileService) discardBlob(ctx context.Context, key string) {
	if err := s.blobs.Delete(ctx, key); err != nil {
		s.logger.Warn("failed to delete blob", "key", key, "error", err)
	}
}

func tooLarge() error {
	return &domain.TooLargeError{
		Message: fmt.Sprintf("file too large: maximum size is %.1f MB", float64(config.MaxUploadBytes)/(1024*1024)),
	}
}
