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

type dataRoomService struct {
	roomRepo   repositories.DataRoomRepository
	folderRepo repositories.FolderRepository
	fileRepo   repositories.FileRepository
	txManager  repositories.TransactionManager
	authorizer services.ResourceAuthorizer
	logger     *slog.Logger
}

// NewDataRoomService creates a new data room service
func NewDataRoomService(
	roomRepo repositories.DataRoomRepository,
	folderRepo repositories.FolderRepository,
	fileRepo repositories.FileRepository,
	txManager repositories.TransactionManager,
	authorizer services.ResourceAuthorizer,
	logger *slog.Logger,
) services.DataRoomService {
	return &dataRoomService{
		roomRepo:   roomRepo,
		folderRepo: folderRepo,
		fileRepo:   fileRepo,
		txManager:  txManager,
		authorizer: authorizer,
		logger:     logger,
	}
}

// GetOrCreate returns the user's room, creating "Data Room (<name>)" on first use
func (s *dataRoomService) GetOrCreate(ctx context.Context, user models.User) (*models.DataRoom, error) {
	var room *models.DataRoom
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		room, err = s.roomRepo.GetForUser(ctx, user.ID)
		if err == nil {
			return nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return err
		}

		room = &models.DataRoom{
			Name:      defaultRoomName(user),
			OwnerID:   user.ID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.roomRepo.Create(ctx, room); err != nil {
			return err
		}
		s.logger.Info("data room created", "id", room.ID, "user_id", user.ID, "name", room.Name)
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.withCounts(ctx, room)
}

// Upsert creates the user's room or renames the existing one
func (s *dataRoomService) Upsert(ctx context.Context, user models.User, req *services.DataRoomRequest) (*models.DataRoom, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validation.ValidateStruct(req, validation.Field(&req.Name, dataRoomNameRules()...)); err != nil {
		return nil, validationErr(err)
	}

	var room *models.DataRoom
	err := s.txManager.ExecTx(ctx, func(ctx context.Context) error {
		var err error
		room, err = s.roomRepo.GetForUser(ctx, user.ID)
		switch {
		case err == nil:
			room.Name = req.Name
			room.UpdatedAt = time.Now()
			return s.roomRepo.UpdateName(ctx, room)
		case errors.Is(err, domain.ErrNotFound):
			room = &models.DataRoom{
				Name:      req.Name,
				OwnerID:   user.ID,
				CreatedAt: time.Now(),
				UpdatedAt: time.Now(),
			}
			return s.roomRepo.Create(ctx, room)
		default:
			return err
		}
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("data room saved", "id", room.ID, "name", room.Name)
	return s.withCounts(ctx, room)
}

// GetListing returns a room with its root-level folders and files
func (s *dataRoomService) GetListing(ctx context.Context, userID, dataRoomID string) (*models.RoomListing, error) {
	if err := s.authorizer.CanAccessDataRoom(ctx, userID, dataRoomID); err != nil {
		return nil, err
	}

	room, err := s.roomRepo.GetByID(ctx, dataRoomID, userID)
	if err != nil {
		return nil, err
	}
	folders, err := s.folderRepo.ListChildren(ctx, nil, dataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root folders: %w", err)
	}
	files, err := s.fileRepo.ListByFolder(ctx, nil, dataRoomID)
	if err != nil {
		return nil, fmt.Errorf("failed to list root files: %w", err)
	}

	room.Count = &models.RoomCount{Folders: len(folders), Files: len(files)}
	return &models.RoomListing{DataRoom: *room, Folders: folders, Files: files}, nil
}

func (s *dataRoomService) withCounts(ctx context.Context, room *models.DataRoom) (*models.DataRoom, error) {
	count, err := s.roomRepo.Counts(ctx, room.ID)
	if err != nil {
		return nil, err
	}
	room.Count = count
	return room, nil
}

func defaultRoomName(user models.User) string {
	name := user.Name
	if name == "" {
		name, _, _ = strings.Cut(user.Email, "@")
	}
	if name == "" {
		return "My Data Room"
	}
	// Keep the generated name inside the room name limit
	if r := []rune(name); len(r) > config.MaxDataRoomNameLength-len("Data Room ()") {
		name = string(r[:config.MaxDataRoomNameLength-len("Data Room ()")])
	}
	return fmt.Sprintf("Data Room (%s)", name)
}
