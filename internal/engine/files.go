package engine

import (
	"context"
	"io"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"dataroom/internal/cache"
	"dataroom/internal/domain/models"
	"dataroom/internal/events"
	"dataroom/internal/tree"
)

// UploadFile uploads content as name into folder (nil = room root). An
// empty mimeType is guessed from the extension.
func (e *Engine) UploadFile(ctx context.Context, name string, folder *tree.ID, mimeType string, content io.Reader) (tree.File, error) {
	const op = "upload file"
	name = strings.TrimSpace(name)
	folder = e.settledPtr(folder)
	ev := events.Event{Name: name}
	if err := checkName(name, tree.KindFile); err != nil {
		return tree.File{}, e.failed(op, ev, err)
	}
	if err := e.preflight(name, folder, tree.KindFile, nil); err != nil {
		return tree.File{}, e.failed(op, ev, err)
	}
	if mimeType == "" {
		mimeType = mime.TypeByExtension(filepath.Ext(name))
	}

	temp := newTempID()
	ev.TempID = temp.Value()
	rec := e.register(temp)
	now := time.Now().UTC()
	optimistic := tree.File{
		ID:         temp,
		Name:       name,
		MimeType:   mimeType,
		FolderID:   idPtr(folder),
		DataRoomID: e.room.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	txn := e.begin(op, func(w *cache.Writer) {
		w.Touch(cache.FilesKey(e.room.ID), e.viewKey(folder))
		w.Rewrite(cache.InRoom(e.room.ID), e.placeFile(optimistic, temp, true))
	})
	dependents := append([]cache.Key{cache.FilesKey(e.room.ID)}, e.dependents(folder)...)

	folderID, err := e.awaitParent(ctx, folder)
	if err == nil {
		var uploaded *models.File
		uploaded, err = e.api.UploadFile(ctx, e.room.ID, folderID, name, mimeType, content)
		if err == nil {
			canonical := tree.FileFromModel(*uploaded)
			e.commitCreate(txn, temp, canonical.ID, e.placeFile(canonical, temp, false))
			e.forget(temp)
			rec.resolve(canonical.ID.Value())
			e.store.Invalidate(dependents...)
			ev.Kind, ev.ItemID = events.FileUploaded, canonical.ID.Value()
			e.publish(ev)
			return canonical, nil
		}
	}

	e.rollback(op, txn)
	e.scrub(temp, tree.KindFile)
	e.forget(temp)
	rec.fail(err)
	e.store.Invalidate(dependents...)
	return tree.File{}, e.failed(op, ev, err)
}

// RenameFile renames file id
func (e *Engine) RenameFile(ctx context.Context, id tree.ID, name string) (tree.File, error) {
	const op = "rename file"
	name = strings.TrimSpace(name)
	id = e.settledID(id)
	ev := events.Event{Name: name, ItemID: itemID(id), TempID: tempID(id)}
	if err := checkName(name, tree.KindFile); err != nil {
		return tree.File{}, e.failed(op, ev, err)
	}
	current, known := e.lookupFile(id)
	if known {
		if err := e.preflight(name, current.FolderID, tree.KindFile, &id); err != nil {
			return tree.File{}, e.failed(op, ev, err)
		}
	}

	txn := e.begin(op, func(w *cache.Writer) {
		w.Rewrite(cache.InRoom(e.room.ID), e.patchFile(id, func(f tree.File) tree.File {
			return f.Renamed(name)
		}))
	})
	dependents := []cache.Key{cache.FilesKey(e.room.ID)}
	if known {
		dependents = append(dependents, e.viewKey(current.FolderID))
	}

	serverID, err := e.awaitServerID(ctx, id)
	if err == nil {
		var updated *models.File
		updated, err = e.api.RenameFile(ctx, serverID, name)
		if err == nil {
			canonical := tree.FileFromModel(*updated)
			e.commit(txn, e.placeFile(canonical, id, false))
			e.store.Invalidate(dependents...)
			ev.Kind, ev.ItemID = events.FileRenamed, canonical.ID.Value()
			e.publish(ev)
			return canonical, nil
		}
	}

	e.rollback(op, txn)
	e.store.Invalidate(dependents...)
	return tree.File{}, e.failed(op, ev, err)
}

// DeleteFile deletes file id
func (e *Engine) DeleteFile(ctx context.Context, id tree.ID) error {
	const op = "delete file"
	id = e.settledID(id)
	ev := events.Event{ItemID: itemID(id), TempID: tempID(id)}
	current, known := e.lookupFile(id)
	if known {
		ev.Name = current.Name
	}

	txn := e.begin(op, func(w *cache.Writer) {
		w.Rewrite(cache.InRoom(e.room.ID), e.dropItems(nil, map[tree.ID]bool{id: true}))
	})
	dependents := []cache.Key{cache.FilesKey(e.room.ID)}
	if known {
		dependents = append(dependents, e.dependents(current.FolderID)...)
	} else {
		dependents = append(dependents, cache.RootKey(e.room.ID))
	}

	serverID, err := e.awaitServerID(ctx, id)
	if err == nil {
		err = e.api.DeleteFile(ctx, serverID)
	}
	if err != nil {
		e.rollback(op, txn)
		e.store.Invalidate(dependents...)
		return e.failed(op, ev, err)
	}

	e.commit(txn, nil)
	e.store.Invalidate(dependents...)
	ev.Kind, ev.ItemID = events.FileDeleted, serverID
	e.publish(ev)
	return nil
}
