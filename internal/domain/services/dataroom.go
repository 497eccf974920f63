package services

import (
	"context"

	"dataroom/internal/domain/models"
)

// DataRoomService handles the caller's data room
type DataRoomService interface {
	// GetOrCreate returns the caller's data room, creating a default one on first use
	GetOrCreate(ctx context.Context, user models.User) (*models.DataRoom, error)

	// Upsert creates the caller's room or renames the existing one
	Upsert(ctx context.Context, user models.User, req *DataRoomRequest) (*models.DataRoom, error)

	// GetListing returns the root-level folders and files of a room
	GetListing(ctx context.Context, userID, dataRoomID string) (*models.RoomListing, error)
}

// DataRoomRequest names a data room
type DataRoomRequest struct {
	Name string `json:"name"`
}
