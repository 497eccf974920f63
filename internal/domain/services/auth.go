package services

import "context"

// ResourceAuthorizer checks if a user can access resources.
// Current implementation: ownership-based (user owns the data room).
//
// Services call the authorizer before operating on resources, which keeps
// authorization (who can access) apart from identification (which resource).
type ResourceAuthorizer interface {
	// CanAccessDataRoom checks if user can access a data room
	CanAccessDataRoom(ctx context.Context, userID, dataRoomID string) error

	// CanAccessFolder checks if user can access a folder (via its data room)
	CanAccessFolder(ctx context.Context, userID, folderID string) error

	// CanAccessFile checks if user can access a file
	CanAccessFile(ctx context.Context, userID, fileID string) error
}
