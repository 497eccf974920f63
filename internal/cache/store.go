package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/singleflight"
)

// Fetcher loads the server state of one slot
type Fetcher func(ctx context.Context) (any, error)

type slot struct {
	value   any
	present bool
	// Bumped on every write; restored on rollback
	version uint64
	stale   bool
	// Bumped whenever in-flight fetches must be discarded
	gen uint64
	// Number of unsettled transactions touching the slot
	holds   int
	cancels map[uint64]context.CancelFunc
}

// Store is a set of named, versioned view slots. Every write happens
// under one mutex; network I/O never does.
type Store struct {
	mu     sync.Mutex
	slots  map[Key]*slot
	clock  uint64
	nextID uint64
	active map[uint64]*Txn
	group  singleflight.Group
	logger *slog.Logger
}

func NewStore(logger *slog.Logger) *Store {
	return &Store{
		slots:  make(map[Key]*slot),
		active: make(map[uint64]*Txn),
		logger: logger,
	}
}

func (s *Store) slot(key Key) *slot {
	sl, ok := s.slots[key]
	if !ok {
		sl = &slot{cancels: make(map[uint64]context.CancelFunc)}
		s.slots[key] = sl
	}
	return sl
}

func (s *Store) tick() uint64 {
	s.clock++
	return s.clock
}

// Get returns the cached value of a slot
func (s *Store) Get(key Key) (any, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	if !ok || !sl.present {
		return nil, false
	}
	return sl.value, true
}

// Value returns a slot's value as T
func Value[T any](s *Store, key Key) (T, bool) {
	v, ok := s.Get(key)
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// Set stores a value fetched from the server. Held slots are left alone.
func (s *Store) Set(key Key, value any) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl := s.slot(key)
	if sl.holds > 0 {
		return false
	}
	sl.value, sl.present, sl.stale = value, true, false
	sl.version = s.tick()
	return true
}

// Version returns the slot version (0 if never written)
func (s *Store) Version(key Key) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sl, ok := s.slots[key]; ok {
		return sl.version
	}
	return 0
}

// IsStale reports whether the slot must be refetched on next read
func (s *Store) IsStale(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	return ok && sl.stale
}

// IsHeld reports whether an unsettled transaction touches the slot
func (s *Store) IsHeld(key Key) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	sl, ok := s.slots[key]
	return ok && sl.holds > 0
}

// Keys lists present slots matching match, in stable order
func (s *Store) Keys(match func(Key) bool) []Key {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.keysLocked(match)
}

func (s *Store) keysLocked(match func(Key) bool) []Key {
	var keys []Key
	for k, sl := range s.slots {
		if sl.present && (match == nil || match(k)) {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}

// Invalidate marks slots stale. Values stay readable until refetched.
func (s *Store) Invalidate(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		if sl, ok := s.slots[k]; ok && sl.present {
			sl.stale = true
		}
	}
}

// InvalidateWhere marks every present slot matching match stale
func (s *Store) InvalidateWhere(match func(Key) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range s.keysLocked(match) {
		s.slots[k].stale = true
	}
}

// CancelFetches cancels in-flight loads of the given slots. Their callers
// get the cached value if there is one, the cancellation error otherwise.
func (s *Store) CancelFetches(keys ...Key) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, k := range keys {
		s.cancelLocked(s.slot(k))
	}
}

// supersedeLocked keeps in-flight fetches of a slot from storing their
// result. A fetch of a cached slot is cancelled, its callers get the
// cached value. A fetch of an empty slot runs on: its callers have nothing
// else to read, so they get the fetched value, which is not stored.
func (s *Store) supersedeLocked(sl *slot) {
	if !sl.present {
		sl.gen++
		return
	}
	s.cancelLocked(sl)
}

func (s *Store) cancelLocked(sl *slot) {
	sl.gen++
	for id, cancel := range sl.cancels {
		cancel()
		delete(sl.cancels, id)
	}
}

// Load returns the slot value, fetching it when absent or stale.
// Concurrent loads of one slot share a single fetch. A fetch result is
// dropped if the slot was written, cancelled or became held meanwhile;
// the caller then gets the current cached value. Held slots are served
// from cache without fetching. A caller whose ctx ends stops waiting;
// the shared fetch runs on for the others.
func (s *Store) Load(ctx context.Context, key Key, fetch Fetcher) (any, error) {
	s.mu.Lock()
	sl := s.slot(key)
	if sl.present && (!sl.stale || sl.holds > 0) {
		v := sl.value
		s.mu.Unlock()
		return v, nil
	}
	gen := sl.gen
	s.mu.Unlock()

	flight := fmt.Sprintf("%s#%d", key, gen)
	ch := s.group.DoChan(flight, func() (any, error) {
		return s.fetch(context.WithoutCancel(ctx), key, gen, fetch)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(fetchResult).value, nil
	}
}

type fetchResult struct {
	value any
}

func (s *Store) fetch(ctx context.Context, key Key, gen uint64, fetch Fetcher) (fetchResult, error) {
	fctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s.mu.Lock()
	sl := s.slot(key)
	s.nextID++
	callID := s.nextID
	sl.cancels[callID] = cancel
	s.mu.Unlock()

	value, err := fetch(fctx)

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(sl.cancels, callID)

	superseded := sl.gen != gen || sl.holds > 0
	if err != nil {
		if superseded && sl.present && errors.Is(err, context.Canceled) {
			return fetchResult{value: sl.value}, nil
		}
		return fetchResult{}, err
	}
	if superseded {
		s.logger.Debug("discarding superseded fetch", "slot", key.String())
		if sl.present {
			return fetchResult{value: sl.value}, nil
		}
		return fetchResult{value: value}, nil
	}
	sl.value, sl.present, sl.stale = value, true, false
	sl.version = s.tick()
	return fetchResult{value: value}, nil
}

// LoadAs is Load with the value typed as T
func LoadAs[T any](ctx context.Context, s *Store, key Key, fetch func(ctx context.Context) (T, error)) (T, error) {
	v, err := s.Load(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	t, ok := v.(T)
	if !ok {
		var zero T
		return zero, fmt.Errorf("slot %s holds %T", key, v)
	}
	return t, nil
}

// Rewrite applies fn to every slot matching match, and to the snapshots
// that unsettled transactions hold for those slots, so a later rollback
// cannot bring the rewritten records back. Absent slots are visited too:
// a transaction may still hold a present snapshot of them.
func (s *Store) Rewrite(match func(Key) bool, fn func(Key, any) (any, bool)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rewriteWhereLocked(match, fn, nil)
}

// rewriteWhereLocked rewrites every slot matching match. With committing
// set, fn is the merge of that transaction's result.
func (s *Store) rewriteWhereLocked(match func(Key) bool, fn func(Key, any) (any, bool), committing *Txn) {
	for k := range s.slots {
		if match != nil && !match(k) {
			continue
		}
		s.rewriteLocked(k, fn, committing)
	}
}

// rewriteLocked reports whether the live value changed
func (s *Store) rewriteLocked(key Key, fn func(Key, any) (any, bool), committing *Txn) bool {
	if committing != nil {
		if base, snap := s.replayBaseLocked(key, committing); base == nil || !base.tainted[key] {
			return s.mergeLocked(key, fn, committing, snap)
		}
	}
	sl := s.slot(key)
	old := sl.version
	changed := false
	if sl.present {
		if next, ok := fn(key, sl.value); ok {
			sl.value = next
			sl.version = s.tick()
			changed = true
		}
	}

	for _, t := range s.active {
		snap, ok := t.snaps[key]
		if !ok {
			continue
		}
		if snap.present {
			if v, ok := fn(key, snap.value); ok {
				snap.value = v
			}
		}
		// The top writer keeps ownership of the slot
		if changed && t.wrote[key] != 0 && t.wrote[key] == old {
			t.wrote[key] = sl.version
		}
	}
	return changed
}

// replayBaseLocked finds the oldest snapshot of key held by a transaction
// other than t that wrote there. Everything written to key since that
// snapshot was taken is in the log of some active transaction.
func (s *Store) replayBaseLocked(key Key, t *Txn) (*Txn, *snapshot) {
	var base *Txn
	var oldest *snapshot
	for _, o := range s.active {
		if o == t || o.wrote[key] == 0 {
			continue
		}
		if snap := o.snaps[key]; oldest == nil || snap.seq < oldest.seq {
			base, oldest = o, snap
		}
	}
	return base, oldest
}

// mergeLocked merges t's result into one slot and replays over it the
// writes of the other active transactions. With a base snapshot the value
// is rebuilt from it: t's writes made since, then fn, then the other
// writes in log order. Every later snapshot is rebuilt to the state just
// before the writes it preceded, so a rollback still undoes exactly its
// own writes. Without one there is no other writer and fn applies to the
// live value.
func (s *Store) mergeLocked(key Key, fn func(Key, any) (any, bool), t *Txn, base *snapshot) bool {
	sl := s.slot(key)
	var (
		cur  = state{value: sl.value, present: sl.present}
		from uint64
		own  []op
	)
	if base != nil {
		cur, from = state{value: base.value, present: base.present}, base.seq
		own = t.opsFor(key, from)
	}
	steps := append(own, op{txn: t, fn: fn})
	merged := len(steps)
	steps = append(steps, s.replayLocked(key, t, from)...)

	var rebuild []*snapshot
	for _, o := range s.active {
		snap, ok := o.snaps[key]
		if o == t || !ok {
			continue
		}
		if base != nil && snap.seq >= from {
			rebuild = append(rebuild, snap)
			continue
		}
		if snap.present {
			if v, ok := fn(key, snap.value); ok {
				snap.value = v
			}
		}
	}
	sort.Slice(rebuild, func(i, j int) bool { return rebuild[i].seq < rebuild[j].seq })

	changed := false
	var top *Txn
	var replayed []*Txn
	for i, step := range steps {
		if i >= merged {
			for len(rebuild) > 0 && rebuild[0].seq <= step.seq {
				rebuild[0].value, rebuild[0].present = cur.value, cur.present
				rebuild = rebuild[1:]
			}
		}
		next, ok := step.apply(key, cur)
		if !ok {
			continue
		}
		if i >= merged {
			s.adoptLocked(step.txn, key, cur, step.seq)
			top = step.txn
			replayed = append(replayed, step.txn)
		}
		cur, changed = next, true
	}
	for _, snap := range rebuild {
		snap.value, snap.present = cur.value, cur.present
	}
	if !changed {
		return false
	}

	old := sl.version
	sl.value, sl.present = cur.value, cur.present
	sl.version = s.tick()
	if top == nil {
		for _, o := range s.active {
			if o != t && o.wrote[key] != 0 && o.wrote[key] == old {
				o.wrote[key] = sl.version
			}
		}
		return true
	}
	// The last replayed writer owns the slot. Others that only now wrote
	// there get a version the slot never carries: their rollback defers.
	for _, o := range replayed {
		if o != top && o.wrote[key] == 0 {
			o.wrote[key] = s.tick()
		}
	}
	top.wrote[key] = sl.version
	return true
}

func (t *Txn) opsFor(key Key, after uint64) []op {
	var out []op
	for _, o := range t.ops {
		if o.seq > after && o.covers(key) {
			out = append(out, o)
		}
	}
	return out
}

// replayLocked collects, in log order, the writes to key that active
// transactions other than t made after the given clock reading
func (s *Store) replayLocked(key Key, t *Txn, after uint64) []op {
	var out []op
	for _, o := range s.active {
		if o != t {
			out = append(out, o.opsFor(key, after)...)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].seq < out[j].seq })
	return out
}

// adoptLocked gives o a snapshot of a slot its replayed write reached for
// the first time, so its rollback can undo that write
func (s *Store) adoptLocked(o *Txn, key Key, before state, seq uint64) {
	if _, ok := o.snaps[key]; ok {
		return
	}
	sl := s.slot(key)
	o.snaps[key] = &snapshot{value: before.value, present: before.present, version: s.tick(), stale: sl.stale, seq: seq}
	o.order = append(o.order, key)
	sl.holds++
}
