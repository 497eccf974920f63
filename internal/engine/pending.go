package engine

import (
	"context"
	"fmt"

	"dataroom/internal/domain"
	"dataroom/internal/tree"

	"github.com/google/uuid"
)

// reconciliation tracks one optimistic create until the server answers
type reconciliation struct {
	done     chan struct{}
	serverID string
	err      error
}

func (r *reconciliation) resolve(serverID string) {
	r.serverID = serverID
	close(r.done)
}

func (r *reconciliation) fail(err error) {
	r.err = err
	close(r.done)
}

// newTempID mints a placeholder ID: UUIDv7 is time-ordered with a random
// tail, so IDs are unique within the session
func newTempID() tree.ID {
	u, err := uuid.NewV7()
	if err != nil {
		u = uuid.New()
	}
	return tree.Pending(u.String())
}

func (e *Engine) register(temp tree.ID) *reconciliation {
	r := &reconciliation{done: make(chan struct{})}
	e.mu.Lock()
	e.pending[temp] = r
	e.mu.Unlock()
	return r
}

// settle maps temp to the server ID of its created item. Commits call it
// under the store lock, before merging the record, so every rewrite that
// runs from then on treats both IDs as one item.
func (e *Engine) settle(temp, server tree.ID) {
	e.mu.Lock()
	e.settled[temp] = server
	e.mu.Unlock()
}

// forget drops the reconciliation of temp once its create has settled.
// A settled ID stays resolvable through settledID.
func (e *Engine) forget(temp tree.ID) {
	e.mu.Lock()
	delete(e.pending, temp)
	e.mu.Unlock()
}

// settledID returns the server ID of a settled temporary ID, and any
// other ID as is
func (e *Engine) settledID(id tree.ID) tree.ID {
	if !id.IsPending() {
		return id
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if server, ok := e.settled[id]; ok {
		return server
	}
	return id
}

func (e *Engine) settledPtr(id *tree.ID) *tree.ID {
	if id == nil {
		return nil
	}
	return e.settledID(*id).Ptr()
}

type landing struct {
	rec tree.Folder
	seq uint64
}

// land records the server's folder record. Commits call it under the
// store lock, before merging the record.
func (e *Engine) land(rec tree.Folder) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.landings++
	e.landed[rec.ID] = landing{rec: rec, seq: e.landings}
}

// landedSince returns the record of folder id if a commit merged one after
// the mark taken with landingMark
func (e *Engine) landedSince(id tree.ID, mark uint64) (tree.Folder, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.landed[id]
	if !ok || l.seq <= mark {
		return tree.Folder{}, false
	}
	return l.rec, true
}

func (e *Engine) landingMark() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.landings
}

// awaitServerID returns the server ID behind id, waiting for the create
// that minted a temporary ID to settle
func (e *Engine) awaitServerID(ctx context.Context, id tree.ID) (string, error) {
	if sid, ok := e.settledID(id).ServerID(); ok {
		return sid, nil
	}

	e.mu.Lock()
	r := e.pending[id]
	e.mu.Unlock()
	if r == nil {
		// Settled between the two lookups, or never known
		if sid, ok := e.settledID(id).ServerID(); ok {
			return sid, nil
		}
		return "", &domain.NotFoundError{Message: fmt.Sprintf("unknown temporary id %s", id)}
	}

	select {
	case <-r.done:
	case <-ctx.Done():
		return "", ctx.Err()
	}
	if r.err != nil {
		return "", &domain.NotFoundError{Message: fmt.Sprintf("item was never created: %v", r.err)}
	}
	return r.serverID, nil
}

func (e *Engine) awaitParent(ctx context.Context, parent *tree.ID) (*string, error) {
	if parent == nil {
		return nil, nil
	}
	sid, err := e.awaitServerID(ctx, *parent)
	if err != nil {
		return nil, err
	}
	return &sid, nil
}
