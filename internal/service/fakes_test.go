package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/domain/repositories"
)

// memDB is an in-memory stand-in for the postgres repositories
type memDB struct {
	mu      sync.Mutex
	seq     int
	rooms   map[string]*models.DataRoom
	folders map[string]*models.Folder
	files   map[string]*models.File
}

func newMemDB() *memDB {
	return &memDB{
		rooms:   map[string]*models.DataRoom{},
		folders: map[string]*models.Folder{},
		files:   map[string]*models.File{},
	}
}

func (db *memDB) nextID(prefix string) string {
	db.seq++
	return fmt.Sprintf("%s-%d", prefix, db.seq)
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type memRooms struct{ db *memDB }

func (r memRooms) Create(ctx context.Context, room *models.DataRoom) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room.ID = r.db.nextID("room")
	cp := *room
	r.db.rooms[room.ID] = &cp
	return nil
}

func (r memRooms) GetByID(ctx context.Context, id, userID string) (*models.DataRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	room, ok := r.db.rooms[id]
	if !ok || room.OwnerID != userID {
		return nil, fmt.Errorf("data room %s: %w", id, domain.ErrNotFound)
	}
	cp := *room
	return &cp, nil
}

func (r memRooms) GetForUser(ctx context.Context, userID string) (*models.DataRoom, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, room := range r.db.rooms {
		if room.OwnerID == userID {
			cp := *room
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("data room for user %s: %w", userID, domain.ErrNotFound)
}

func (r memRooms) UpdateName(ctx context.Context, room *models.DataRoom) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	existing, ok := r.db.rooms[room.ID]
	if !ok {
		return fmt.Errorf("data room %s: %w", room.ID, domain.ErrNotFound)
	}
	existing.Name = room.Name
	return nil
}

func (r memRooms) Counts(ctx context.Context, id string) (*models.RoomCount, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	count := &models.RoomCount{}
	for _, f := range r.db.folders {
		if f.DataRoomID == id && f.ParentID == nil {
			count.Folders++
		}
	}
	for _, f := range r.db.files {
		if f.DataRoomID == id && f.FolderID == nil {
			count.Files++
		}
	}
	return count, nil
}

type memFolders struct{ db *memDB }

func (r memFolders) Create(ctx context.Context, folder *models.Folder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	folder.ID = r.db.nextID("folder")
	cp := *folder
	r.db.folders[folder.ID] = &cp
	return nil
}

func (r memFolders) GetByID(ctx context.Context, id, dataRoomID string) (*models.Folder, error) {
	f, err := r.GetByIDOnly(ctx, id)
	if err != nil || f.DataRoomID != dataRoomID {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	return f, nil
}

func (r memFolders) GetByIDOnly(ctx context.Context, id string) (*models.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.folders[id]
	if !ok {
		return nil, fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (r memFolders) Update(ctx context.Context, folder *models.Folder) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.folders[folder.ID]; !ok {
		return fmt.Errorf("folder %s: %w", folder.ID, domain.ErrNotFound)
	}
	cp := *folder
	r.db.folders[folder.ID] = &cp
	return nil
}

// Delete cascades like the foreign keys do
func (r memFolders) Delete(ctx context.Context, id, dataRoomID string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.folders[id]; !ok {
		return fmt.Errorf("folder %s: %w", id, domain.ErrNotFound)
	}
	doomed := map[string]bool{id: true}
	for changed := true; changed; {
		changed = false
		for fid, f := range r.db.folders {
			if !doomed[fid] && f.ParentID != nil && doomed[*f.ParentID] {
				doomed[fid] = true
				changed = true
			}
		}
	}
	for fid := range doomed {
		delete(r.db.folders, fid)
	}
	for fid, f := range r.db.files {
		if f.FolderID != nil && doomed[*f.FolderID] {
			delete(r.db.files, fid)
		}
	}
	return nil
}

func (r memFolders) ListChildren(ctx context.Context, parentID *string, dataRoomID string) ([]models.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Folder{}
	for _, f := range r.db.folders {
		if f.DataRoomID == dataRoomID && sameParent(f.ParentID, parentID) {
			cp := *f
			cp.Count = &models.FolderCount{}
			for _, c := range r.db.folders {
				if c.ParentID != nil && *c.ParentID == f.ID {
					cp.Count.Children++
				}
			}
			for _, d := range r.db.files {
				if d.FolderID != nil && *d.FolderID == f.ID {
					cp.Count.Files++
				}
			}
			out = append(out, cp)
		}
	}
	return out, nil
}

func (r memFolders) ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.Folder{}
	for _, f := range r.db.folders {
		if f.DataRoomID == dataRoomID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r memFolders) ExistsByName(ctx context.Context, dataRoomID string, parentID *string, name string, excludeID *string) (*models.Folder, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.folders {
		if excludeID != nil && f.ID == *excludeID {
			continue
		}
		if f.DataRoomID == dataRoomID && sameParent(f.ParentID, parentID) && strings.EqualFold(f.Name, name) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

type memFiles struct{ db *memDB }

func (r memFiles) Create(ctx context.Context, file *models.File) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	file.ID = r.db.nextID("file")
	cp := *file
	r.db.files[file.ID] = &cp
	return nil
}

func (r memFiles) GetByID(ctx context.Context, id, userID string) (*models.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.files[id]
	if !ok || f.OwnerID != userID {
		return nil, fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	cp := *f
	return &cp, nil
}

func (r memFiles) UpdateName(ctx context.Context, file *models.File) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	f, ok := r.db.files[file.ID]
	if !ok {
		return fmt.Errorf("file %s: %w", file.ID, domain.ErrNotFound)
	}
	f.Name = file.Name
	return nil
}

func (r memFiles) Delete(ctx context.Context, id string) error {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	if _, ok := r.db.files[id]; !ok {
		return fmt.Errorf("file %s: %w", id, domain.ErrNotFound)
	}
	delete(r.db.files, id)
	return nil
}

func (r memFiles) ListByFolder(ctx context.Context, folderID *string, dataRoomID string) ([]models.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.File{}
	for _, f := range r.db.files {
		if f.DataRoomID == dataRoomID && sameParent(f.FolderID, folderID) {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r memFiles) ListByDataRoom(ctx context.Context, dataRoomID string) ([]models.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	out := []models.File{}
	for _, f := range r.db.files {
		if f.DataRoomID == dataRoomID {
			out = append(out, *f)
		}
	}
	return out, nil
}

func (r memFiles) ExistsByName(ctx context.Context, dataRoomID string, folderID *string, name string, excludeID *string) (*models.File, error) {
	r.db.mu.Lock()
	defer r.db.mu.Unlock()
	for _, f := range r.db.files {
		if excludeID != nil && f.ID == *excludeID {
			continue
		}
		if f.DataRoomID == dataRoomID && sameParent(f.FolderID, folderID) && strings.EqualFold(f.Name, name) {
			cp := *f
			return &cp, nil
		}
	}
	return nil, nil
}

// passthroughTx runs fn without a real transaction
type passthroughTx struct{}

func (passthroughTx) ExecTx(ctx context.Context, fn repositories.TxFn) error { return fn(ctx) }

// memBlobs is an in-memory BlobStore
type memBlobs struct {
	mu    sync.Mutex
	seq   int
	blobs map[string][]byte
}

func newMemBlobs() *memBlobs { return &memBlobs{blobs: map[string][]byte{}} }

func (b *memBlobs) Put(ctx context.Context, r io.Reader, name string) (string, int64, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", 0, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	key := fmt.Sprintf("blob-%d", b.seq)
	b.blobs[key] = data
	return key, int64(len(data)), nil
}

func (b *memBlobs) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	data, ok := b.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s: %w", key, domain.ErrNotFound)
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (b *memBlobs) Delete(ctx context.Context, key string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.blobs, key)
	return nil
}

func (b *memBlobs) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.blobs)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func strPtr(s string) *string { return &s }

// seedFolder inserts a folder directly, bypassing validation
func seedFolder(t *testing.T, db *memDB, roomID, name string, parentID *string) *models.Folder {
	t.Helper()
	f := &models.Folder{Name: name, ParentID: parentID, DataRoomID: roomID, OwnerID: "user-1"}
	if err := (memFolders{db}).Create(context.Background(), f); err != nil {
		t.Fatalf("seed folder: %v", err)
	}
	return f
}

// seedFile inserts a file record directly
func seedFile(t *testing.T, db *memDB, roomID, name string, folderID *string, blobKey string) *models.File {
	t.Helper()
	f := &models.File{Name: name, FolderID: folderID, DataRoomID: roomID, OwnerID: "user-1", MimeType: "application/pdf", StoragePath: blobKey}
	if err := (memFiles{db}).Create(context.Background(), f); err != nil {
		t.Fatalf("seed file: %v", err)
	}
	return f
}
