package engine

import (
	"fmt"

	"dataroom/internal/cache"
	"dataroom/internal/domain"
	"dataroom/internal/events"
	"dataroom/internal/tree"
)

// Every mutation runs the same steps: validate and pre-check, apply to the
// cache in one transaction, wait for temporary IDs it depends on, call the
// server, then commit the canonical record or roll back, invalidate the
// views depending on the change, and publish the outcome.

// begin opens a transaction and applies fn to the cache atomically
func (e *Engine) begin(op string, fn func(w *cache.Writer)) *cache.Txn {
	txn := e.store.Begin(op)
	txn.Apply(func(w *cache.Writer) error {
		fn(w)
		return nil
	})
	return txn
}

// commit merges the server's result with rw and settles txn
func (e *Engine) commit(txn *cache.Txn, rw rewrite) {
	txn.Commit(func(w *cache.Writer) {
		if rw != nil {
			w.Rewrite(cache.InRoom(e.room.ID), rw)
		}
	})
}

// commitFolder is commit for an edit the server answered with a folder
func (e *Engine) commitFolder(txn *cache.Txn, rec tree.Folder, rw rewrite) {
	txn.Commit(func(w *cache.Writer) {
		e.land(rec)
		w.Rewrite(cache.InRoom(e.room.ID), rw)
	})
}

// commitCreate is commit for a create: temp maps to the server ID in the
// same critical section that merges the record, so no edit sees one
// without the other.
func (e *Engine) commitCreate(txn *cache.Txn, temp, server tree.ID, rw rewrite) {
	txn.Commit(func(w *cache.Writer) {
		e.settle(temp, server)
		w.Rewrite(cache.InRoom(e.room.ID), rw)
	})
}

// rollback restores every view txn still owns
func (e *Engine) rollback(op string, txn *cache.Txn) {
	if skipped := txn.Rollback(); len(skipped) > 0 {
		e.logger.Info("rollback left views rewritten by later edits stale",
			"op", op,
			"views", len(skipped),
		)
	}
}

// scrub removes a failed create's placeholder from every view, and from
// the snapshots of edits still in flight
func (e *Engine) scrub(temp tree.ID, kind tree.Kind) {
	gone := map[tree.ID]bool{temp: true}
	if kind == tree.KindFolder {
		e.store.Rewrite(cache.InRoom(e.room.ID), e.dropItems(gone, nil))
		return
	}
	e.store.Rewrite(cache.InRoom(e.room.ID), e.dropItems(nil, gone))
}

// preflight blocks a name already used in the scope by either kind
func (e *Engine) preflight(name string, parent *tree.ID, kind tree.Kind, exclude *tree.ID) error {
	c := e.CheckName(name, parent, kind, exclude)
	switch {
	case c.FolderConflict:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a folder named %q already exists in this location", c.Folder.Name),
			ResourceType: "folder",
			ResourceID:   c.Folder.ID.Value(),
		}
	case c.FileConflict:
		return &domain.ConflictError{
			Message:      fmt.Sprintf("a file named %q already exists in this location", c.File.Name),
			ResourceType: "file",
			ResourceID:   c.File.ID.Value(),
		}
	}
	return nil
}

func (e *Engine) publish(ev events.Event) {
	ev.DataRoomID = e.room.ID
	e.bus.Publish(ev)
}

// failed reports a settled failure. The cache must already be rolled back.
func (e *Engine) failed(op string, ev events.Event, err error) error {
	cat := domain.Categorize(err)
	e.logger.Warn("mutation failed",
		"op", op,
		"item", ev.ItemID,
		"name", ev.Name,
		"category", string(cat),
		"error", err,
	)
	ev.Kind, ev.Op, ev.Err, ev.Category = events.MutationFailed, op, err, cat
	e.publish(ev)
	return fmt.Errorf("%s %q: %w", op, ev.Name, err)
}

func idPtr(id *tree.ID) *tree.ID {
	if id == nil {
		return nil
	}
	return id.Ptr()
}
