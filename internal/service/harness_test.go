package service

import (
	"context"
	"testing"

	"dataroom/internal/domain/models"
	"dataroom/internal/domain/services"
	"dataroom/internal/filetypes"
	"dataroom/internal/service/auth"
)

type harness struct {
	db      *memDB
	blobs   *memBlobs
	room    *models.DataRoom
	rooms   services.DataRoomService
	folders services.FolderService
	files   services.FileService
	checker services.ConflictChecker
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	db := newMemDB()
	blobs := newMemBlobs()
	rooms, folders, files := memRooms{db}, memFolders{db}, memFiles{db}
	authz := auth.NewOwnerBasedAuthorizer(rooms, folders, files)
	checker := NewConflictChecker(folders, files, testLogger())

	types, err := filetypes.NewRegistry()
	if err != nil {
		t.Fatalf("filetypes.NewRegistry() error = %v", err)
	}

	room := &models.DataRoom{Name: "Acme", OwnerID: "user-1"}
	if err := rooms.Create(context.Background(), room); err != nil {
		t.Fatalf("seed room: %v", err)
	}

	return &harness{
		db:      db,
		blobs:   blobs,
		room:    room,
		rooms:   NewDataRoomService(rooms, folders, files, passthroughTx{}, authz, testLogger()),
		folders: NewFolderService(rooms, folders, files, checker, blobs, passthroughTx{}, authz, testLogger()),
		files:   NewFileService(folders, files, checker, blobs, types, authz, testLogger()),
		checker: checker,
	}
}
