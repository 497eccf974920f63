// Package engine applies data room edits optimistically to the client
// cache, sends them to the server, and reconciles or rolls back the cached
// views once the server answers.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"dataroom/internal/cache"
	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/events"
	"dataroom/internal/tree"
)

// API is the part of the data room HTTP API the engine drives.
// *apiclient.Client implements it.
type API interface {
	GetListing(ctx context.Context, roomID string) (*models.RoomListing, error)
	ListFolders(ctx context.Context, roomID string) ([]models.Folder, error)
	ListFiles(ctx context.Context, roomID string) ([]models.File, error)
	GetContents(ctx context.Context, folderID string) (*models.FolderContents, error)

	CreateFolder(ctx context.Context, roomID string, parentID *string, name string) (*models.Folder, error)
	RenameFolder(ctx context.Context, folderID, name string) (*models.Folder, error)
	MoveFolder(ctx context.Context, folderID string, newParentID *string) (*models.Folder, error)
	DeleteFolder(ctx context.Context, folderID string) error

	UploadFile(ctx context.Context, roomID string, folderID *string, name, mimeType string, content io.Reader) (*models.File, error)
	RenameFile(ctx context.Context, fileID, name string) (*models.File, error)
	DeleteFile(ctx context.Context, fileID string) error
}

// Engine owns the cached views of one data room and every edit made to it
type Engine struct {
	api    API
	store  *cache.Store
	bus    *events.Bus
	room   tree.RoomRef
	logger *slog.Logger

	mu      sync.Mutex
	pending map[tree.ID]*reconciliation
	// Temporary IDs of settled creates, mapped to their server IDs
	settled map[tree.ID]tree.ID
	// Last server record of each folder a commit merged, with its commit number
	landed   map[tree.ID]landing
	landings uint64
}

// New creates an engine for room. A nil bus gets a private one.
func New(api API, store *cache.Store, bus *events.Bus, room tree.RoomRef, logger *slog.Logger) *Engine {
	if bus == nil {
		bus = events.NewBus(logger)
	}
	return &Engine{
		api:     api,
		store:   store,
		bus:     bus,
		room:    room,
		logger:  logger.With("data_room", room.ID),
		pending: make(map[tree.ID]*reconciliation),
		settled: make(map[tree.ID]tree.ID),
		landed:  make(map[tree.ID]landing),
	}
}

func (e *Engine) Room() tree.RoomRef { return e.room }

// Events returns the bus every settled mutation is published on
func (e *Engine) Events() *events.Bus { return e.bus }

// Folders returns every folder of the room
func (e *Engine) Folders(ctx context.Context) ([]tree.Folder, error) {
	return cache.LoadAs(ctx, e.store, cache.FoldersKey(e.room.ID), func(ctx context.Context) ([]tree.Folder, error) {
		ms, err := e.api.ListFolders(ctx, e.room.ID)
		if err != nil {
			return nil, err
		}
		return tree.FoldersFromModels(ms), nil
	})
}

// Files returns every file of the room
func (e *Engine) Files(ctx context.Context) ([]tree.File, error) {
	return cache.LoadAs(ctx, e.store, cache.FilesKey(e.room.ID), func(ctx context.Context) ([]tree.File, error) {
		ms, err := e.api.ListFiles(ctx, e.room.ID)
		if err != nil {
			return nil, err
		}
		return tree.FilesFromModels(ms), nil
	})
}

// Listing returns the root level of the room
func (e *Engine) Listing(ctx context.Context) (tree.Listing, error) {
	return cache.LoadAs(ctx, e.store, cache.RootKey(e.room.ID), func(ctx context.Context) (tree.Listing, error) {
		m, err := e.api.GetListing(ctx, e.room.ID)
		if err != nil {
			return tree.Listing{}, err
		}
		return tree.ListingFromModel(m), nil
	})
}

// Contents returns a folder with its children and files. A folder that
// is still being created is answered from the cache.
func (e *Engine) Contents(ctx context.Context, id tree.ID) (tree.Contents, error) {
	key := cache.ContentsKey(e.room.ID, id.Value())
	if id.IsPending() {
		if c, ok := cache.Value[tree.Contents](e.store, key); ok {
			return c, nil
		}
		f, ok := e.lookupFolder(id)
		if !ok {
			return tree.Contents{}, &domain.NotFoundError{Message: "folder not found"}
		}
		c := tree.Contents{Folder: f}
		if all, ok := cache.Value[[]tree.Folder](e.store, cache.FoldersKey(e.room.ID)); ok {
			for _, child := range all {
				if tree.SameID(child.ParentID, &id) {
					c.Children = append(c.Children, child)
				}
			}
		}
		if all, ok := cache.Value[[]tree.File](e.store, cache.FilesKey(e.room.ID)); ok {
			for _, file := range all {
				if tree.SameID(file.FolderID, &id) {
					c.Files = append(c.Files, file)
				}
			}
		}
		return c, nil
	}

	return cache.LoadAs(ctx, e.store, key, func(ctx context.Context) (tree.Contents, error) {
		m, err := e.api.GetContents(ctx, id.Value())
		if err != nil {
			return tree.Contents{}, err
		}
		return tree.ContentsFromModel(m), nil
	})
}

// Resolve maps an encoded folder path to a folder. The empty path is the
// room root and resolves to nil.
func (e *Engine) Resolve(ctx context.Context, path string) (*tree.ID, error) {
	if len(tree.ParsePath(path)) == 0 {
		return nil, nil
	}
	all, err := e.Folders(ctx)
	if err != nil {
		return nil, err
	}
	id, ok := tree.ResolvePathToID(path, all)
	if !ok {
		return nil, &domain.NotFoundError{Message: fmt.Sprintf("no folder at %q", tree.FolderPath(path))}
	}
	return &id, nil
}

// PathOf returns the encoded path of a folder ("" for the root)
func (e *Engine) PathOf(ctx context.Context, id *tree.ID) (string, error) {
	if id == nil {
		return "", nil
	}
	all, err := e.Folders(ctx)
	if err != nil {
		return "", err
	}
	path, diag := tree.BuildPathFromIDWithDiagnostics(id, all)
	e.logDiagnostic(diag)
	return path, nil
}

// Breadcrumbs returns the trail down to current (nil = room root). It never
// fails: without a folder list it degrades to the room and the folder name.
func (e *Engine) Breadcrumbs(ctx context.Context, current *tree.ID) tree.Trail {
	if current == nil {
		return tree.BuildBreadcrumbs(e.room, nil, nil, true)
	}

	all, err := e.Folders(ctx)
	if err != nil {
		e.logger.Warn("folder list unavailable, breadcrumbs degraded", "error", err)
	}
	ref := &tree.FolderRef{ID: *current}
	if f, ok := e.lookupFolder(*current); ok {
		ref.Name = f.Name
	}
	trail := tree.BuildBreadcrumbs(e.room, ref, all, err == nil)
	e.logDiagnostic(trail.Diagnostic)
	return trail
}

// CheckName reports folders and files named name in the scope parent,
// as far as the cache knows them
func (e *Engine) CheckName(name string, parent *tree.ID, kind tree.Kind, exclude *tree.ID) tree.Conflicts {
	folders, files := e.scope(parent)
	return tree.CheckConflicts(name, e.room.ID, parent, kind, exclude, folders, files)
}

func (e *Engine) logDiagnostic(diag *tree.Diagnostic) {
	if diag == nil {
		return
	}
	e.logger.Warn("corrupt folder hierarchy",
		"kind", diag.Kind.String(),
		"folder", diag.FolderID.String(),
	)
}

// lookupFolder finds a folder in any loaded view
func (e *Engine) lookupFolder(id tree.ID) (tree.Folder, bool) {
	if all, ok := cache.Value[[]tree.Folder](e.store, cache.FoldersKey(e.room.ID)); ok {
		if f, ok := tree.Find(all, id); ok {
			return f, true
		}
	}
	for _, k := range e.store.Keys(cache.InRoom(e.room.ID)) {
		v, _ := e.store.Get(k)
		switch v := v.(type) {
		case tree.Listing:
			if f, ok := tree.Find(v.Folders, id); ok {
				return f, true
			}
		case tree.Contents:
			if v.Folder.ID == id {
				return v.Folder, true
			}
			if f, ok := tree.Find(v.Children, id); ok {
				return f, true
			}
		}
	}
	return tree.Folder{}, false
}

// lookupFile finds a file in any loaded view
func (e *Engine) lookupFile(id tree.ID) (tree.File, bool) {
	for _, k := range e.store.Keys(cache.InRoom(e.room.ID)) {
		v, _ := e.store.Get(k)
		var files []tree.File
		switch v := v.(type) {
		case []tree.File:
			files = v
		case tree.Listing:
			files = v.Files
		case tree.Contents:
			files = v.Files
		}
		if f, ok := tree.Find(files, id); ok {
			return f, true
		}
	}
	return tree.File{}, false
}

// scope returns the cached folders and files that may sit under parent.
// The flat lists are preferred; the parent's own view fills in for a
// list that is not loaded.
func (e *Engine) scope(parent *tree.ID) ([]tree.Folder, []tree.File) {
	folders, haveFolders := cache.Value[[]tree.Folder](e.store, cache.FoldersKey(e.room.ID))
	files, haveFiles := cache.Value[[]tree.File](e.store, cache.FilesKey(e.room.ID))
	if haveFolders && haveFiles {
		return folders, files
	}

	v, _ := e.store.Get(e.viewKey(parent))
	switch v := v.(type) {
	case tree.Listing:
		if !haveFolders {
			folders = v.Folders
		}
		if !haveFiles {
			files = v.Files
		}
	case tree.Contents:
		if !haveFolders {
			folders = v.Children
		}
		if !haveFiles {
			files = v.Files
		}
	}
	return folders, files
}

// viewKey is the view listing the direct children of folder (nil = root)
func (e *Engine) viewKey(folder *tree.ID) cache.Key {
	if folder == nil {
		return cache.RootKey(e.room.ID)
	}
	return cache.ContentsKey(e.room.ID, folder.Value())
}

// dependents lists the views showing the children of folder or its counts
func (e *Engine) dependents(folder *tree.ID) []cache.Key {
	keys := []cache.Key{e.viewKey(folder)}
	if folder == nil {
		return keys
	}
	if f, ok := e.lookupFolder(*folder); ok {
		return append(keys, e.viewKey(f.ParentID))
	}
	return append(keys, cache.RootKey(e.room.ID))
}
