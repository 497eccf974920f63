package engine

import (
	"context"
	"strings"
	"time"

	"dataroom/internal/cache"
	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/events"
	"dataroom/internal/tree"
)

// CreateFolder creates name under parent (nil = room root). The folder
// shows up in the cache under a temporary ID right away and is replaced by
// the server's record once created.
func (e *Engine) CreateFolder(ctx context.Context, name string, parent *tree.ID) (tree.Folder, error) {
	const op = "create folder"
	name = strings.TrimSpace(name)
	parent = e.settledPtr(parent)
	ev := events.Event{Name: name}
	if err := checkName(name, tree.KindFolder); err != nil {
		return tree.Folder{}, e.failed(op, ev, err)
	}
	if err := e.preflight(name, parent, tree.KindFolder, nil); err != nil {
		return tree.Folder{}, e.failed(op, ev, err)
	}

	temp := newTempID()
	ev.TempID = temp.Value()
	rec := e.register(temp)
	now := time.Now().UTC()
	optimistic := tree.Folder{
		ID:         temp,
		Name:       name,
		ParentID:   idPtr(parent),
		DataRoomID: e.room.ID,
		CreatedAt:  now,
		UpdatedAt:  now,
		Count:      &models.FolderCount{},
	}
	txn := e.begin(op, func(w *cache.Writer) {
		w.Touch(cache.FoldersKey(e.room.ID), e.viewKey(parent))
		w.Rewrite(cache.InRoom(e.room.ID), e.placeFolder(optimistic, temp, true))
	})
	dependents := append([]cache.Key{cache.FoldersKey(e.room.ID)}, e.dependents(parent)...)

	parentID, err := e.awaitParent(ctx, parent)
	if err == nil {
		var created *models.Folder
		created, err = e.api.CreateFolder(ctx, e.room.ID, parentID, name)
		if err == nil {
			canonical := tree.FolderFromModel(*created)
			e.commitCreate(txn, temp, canonical.ID, chain(
				e.placeFolder(canonical, temp, false),
				reparent(temp, canonical.ID),
			))
			e.forget(temp)
			rec.resolve(canonical.ID.Value())
			e.store.Invalidate(dependents...)
			ev.Kind, ev.ItemID = events.FolderCreated, canonical.ID.Value()
			e.publish(ev)
			return canonical, nil
		}
	}

	e.rollback(op, txn)
	e.scrub(temp, tree.KindFolder)
	e.forget(temp)
	rec.fail(err)
	e.store.Invalidate(dependents...)
	return tree.Folder{}, e.failed(op, ev, err)
}

// RenameFolder renames folder id. A folder still being created is renamed
// in the cache at once and on the server once it has its real ID.
func (e *Engine) RenameFolder(ctx context.Context, id tree.ID, name string) (tree.Folder, error) {
	const op = "rename folder"
	name = strings.TrimSpace(name)
	id = e.settledID(id)
	ev := events.Event{Name: name, ItemID: itemID(id), TempID: tempID(id)}
	if err := checkName(name, tree.KindFolder); err != nil {
		return tree.Folder{}, e.failed(op, ev, err)
	}
	current, known := e.lookupFolder(id)
	if known {
		if err := e.preflight(name, current.ParentID, tree.KindFolder, &id); err != nil {
			return tree.Folder{}, e.failed(op, ev, err)
		}
	}

	txn := e.begin(op, func(w *cache.Writer) {
		w.Rewrite(cache.InRoom(e.room.ID), e.patchFolder(id, func(f tree.Folder) tree.Folder {
			return f.Renamed(name)
		}))
	})
	dependents := []cache.Key{cache.FoldersKey(e.room.ID), cache.ContentsKey(e.room.ID, id.Value())}
	if known {
		dependents = append(dependents, e.viewKey(current.ParentID))
	}

	serverID, err := e.awaitServerID(ctx, id)
	if err == nil {
		var updated *models.Folder
		updated, err = e.api.RenameFolder(ctx, serverID, name)
		if err == nil {
			canonical := tree.FolderFromModel(*updated)
			e.commitFolder(txn, canonical, e.placeFolder(canonical, id, false))
			e.store.Invalidate(append(dependents, cache.ContentsKey(e.room.ID, serverID))...)
			ev.Kind, ev.ItemID = events.FolderRenamed, canonical.ID.Value()
			e.publish(ev)
			return canonical, nil
		}
	}

	e.rollback(op, txn)
	e.store.Invalidate(dependents...)
	return tree.Folder{}, e.failed(op, ev, err)
}

// MoveFolder moves folder id under newParent (nil = room root)
func (e *Engine) MoveFolder(ctx context.Context, id tree.ID, newParent *tree.ID) (tree.Folder, error) {
	const op = "move folder"
	id, newParent = e.settledID(id), e.settledPtr(newParent)
	ev := events.Event{ItemID: itemID(id), TempID: tempID(id)}
	mark := e.landingMark()

	all, err := e.Folders(ctx)
	if err != nil {
		return tree.Folder{}, e.failed(op, ev, err)
	}
	current, ok := tree.Find(all, id)
	if !ok {
		if current, ok = e.lookupFolder(id); !ok {
			return tree.Folder{}, e.failed(op, ev, &domain.NotFoundError{Message: "folder not found"})
		}
	}
	ev.Name = current.Name
	if newParent != nil && (*newParent == id || tree.IsDescendant(*newParent, id, all)) {
		return tree.Folder{}, e.failed(op, ev, &domain.ValidationError{
			Message: "cannot move a folder into itself or one of its subfolders",
		})
	}
	if err := e.preflight(current.Name, newParent, tree.KindFolder, &id); err != nil {
		return tree.Folder{}, e.failed(op, ev, err)
	}

	moved := current.Reparented(newParent)
	txn := e.begin(op, func(w *cache.Writer) {
		w.Touch(e.viewKey(newParent))
		w.Rewrite(cache.InRoom(e.room.ID), e.moveFolder(moved, mark))
	})
	dependents := []cache.Key{cache.FoldersKey(e.room.ID), cache.ContentsKey(e.room.ID, id.Value())}
	dependents = append(dependents, e.dependents(current.ParentID)...)
	dependents = append(dependents, e.dependents(newParent)...)

	var serverID string
	var parentID *string
	serverID, err = e.awaitServerID(ctx, id)
	if err == nil {
		parentID, err = e.awaitParent(ctx, newParent)
	}
	if err == nil {
		var updated *models.Folder
		updated, err = e.api.MoveFolder(ctx, serverID, parentID)
		if err == nil {
			canonical := tree.FolderFromModel(*updated)
			e.commitFolder(txn, canonical, e.placeFolder(canonical, id, false))
			e.store.Invalidate(dependents...)
			ev.Kind, ev.ItemID = events.FolderMoved, canonical.ID.Value()
			e.publish(ev)
			return canonical, nil
		}
	}

	e.rollback(op, txn)
	e.store.Invalidate(dependents...)
	return tree.Folder{}, e.failed(op, ev, err)
}

// DeleteFolder deletes folder id. The cache drops the folder with every
// descendant folder and file it knows of; the server deletes the rest.
func (e *Engine) DeleteFolder(ctx context.Context, id tree.ID) error {
	const op = "delete folder"
	id = e.settledID(id)
	ev := events.Event{ItemID: itemID(id), TempID: tempID(id)}
	if f, ok := e.lookupFolder(id); ok {
		ev.Name = f.Name
	}

	doomed := map[tree.ID]bool{id: true}
	if all, ok := cache.Value[[]tree.Folder](e.store, cache.FoldersKey(e.room.ID)); ok {
		for _, f := range all {
			if tree.IsDescendant(f.ID, id, all) {
				doomed[f.ID] = true
			}
		}
	}

	txn := e.begin(op, func(w *cache.Writer) {
		w.Rewrite(cache.InRoom(e.room.ID), e.dropItems(doomed, nil))
		for d := range doomed {
			w.Delete(cache.ContentsKey(e.room.ID, d.Value()))
		}
	})

	serverID, err := e.awaitServerID(ctx, id)
	if err == nil {
		err = e.api.DeleteFolder(ctx, serverID)
	}
	if err != nil {
		e.rollback(op, txn)
		e.store.InvalidateWhere(cache.InRoom(e.room.ID))
		return e.failed(op, ev, err)
	}

	e.commit(txn, nil)
	e.store.InvalidateWhere(cache.InRoom(e.room.ID))
	ev.Kind, ev.ItemID = events.FolderDeleted, serverID
	e.publish(ev)
	return nil
}

func itemID(id tree.ID) string {
	sid, _ := id.ServerID()
	return sid
}

func tempID(id tree.ID) string {
	if id.IsPending() {
		return id.Value()
	}
	return ""
}
