package cache

type snapshot struct {
	value   any
	present bool
	version uint64
	stale   bool
	// Clock reading when taken; orders the snapshot among logged writes
	seq uint64
}

// op is one logged write of a transaction. When another transaction
// commits, the writes of those still in flight are replayed over the
// merged value, so a commit never buries a later optimistic edit.
type op struct {
	txn   *Txn
	seq   uint64
	match func(Key) bool
	fn    func(Key, any) (any, bool)
	del   bool
}

type state struct {
	value   any
	present bool
}

func (o op) covers(k Key) bool {
	return o.match == nil || o.match(k)
}

func (o op) apply(k Key, st state) (state, bool) {
	if o.del {
		return state{}, st.present
	}
	if !st.present {
		return st, false
	}
	next, ok := o.fn(k, st.value)
	if !ok {
		return st, false
	}
	return state{value: next, present: true}, true
}

func keyIs(key Key) func(Key) bool {
	return func(k Key) bool { return k == key }
}

// Txn is the write log of one mutation: the pre-write snapshot of every
// slot it touched and the version it last wrote there. Touched slots are
// held (no refetch lands on them) until the transaction settles.
type Txn struct {
	s     *Store
	id    uint64
	label string
	order []Key
	snaps map[Key]*snapshot
	// Version this transaction last wrote per slot; 0 = touched only
	wrote map[Key]uint64
	// Slots whose snapshot may carry a failed transaction's write
	tainted map[Key]bool
	ops     []op
	settled bool
}

// Begin opens a transaction. It must be settled with Commit or Rollback.
func (s *Store) Begin(label string) *Txn {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	t := &Txn{
		s:       s,
		id:      s.nextID,
		label:   label,
		snaps:   make(map[Key]*snapshot),
		wrote:   make(map[Key]uint64),
		tainted: make(map[Key]bool),
	}
	s.active[t.id] = t
	return t
}

// Touched lists the slots the transaction snapshotted, in first-touch order
func (t *Txn) Touched() []Key {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	return append([]Key(nil), t.order...)
}

// Apply runs fn in one critical section: no other write or fetch result
// can interleave with the writes it makes. If fn fails, its writes are
// rolled back and the transaction is settled.
func (t *Txn) Apply(fn func(w *Writer) error) error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.settled {
		return errSettled
	}
	if err := fn(&Writer{t: t}); err != nil {
		t.rollbackLocked()
		return err
	}
	return nil
}

// Commit merges the server's canonical result (fn may be nil), then marks
// every touched slot stale and releases the holds.
func (t *Txn) Commit(fn func(w *Writer)) {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.settled {
		return
	}
	if fn != nil {
		fn(&Writer{t: t, merge: true})
	}
	for _, k := range t.order {
		if sl := t.s.slots[k]; sl.present {
			sl.stale = true
		}
	}
	t.settleLocked()
}

// Rollback restores every touched slot the transaction still owns, that
// is, whose version is the one this transaction wrote. A slot written
// since by someone else is not restored; it is marked stale instead and
// returned, so the caller can invalidate around it.
func (t *Txn) Rollback() []Key {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	if t.settled {
		return nil
	}
	return t.rollbackLocked()
}

func (t *Txn) rollbackLocked() []Key {
	var skipped []Key
	for i := len(t.order) - 1; i >= 0; i-- {
		k := t.order[i]
		wrote := t.wrote[k]
		if wrote == 0 {
			continue
		}
		sl := t.s.slots[k]
		snap := t.snaps[k]

		if sl.version == wrote && !t.tainted[k] {
			// A commit that marked the slot stale meanwhile still wants a refetch
			sl.value, sl.present, sl.version = snap.value, snap.present, snap.version
			sl.stale = snap.stale || (sl.stale && snap.present)
			continue
		}

		skipped = append(skipped, k)
		if sl.present {
			sl.stale = true
		}
		// Later snapshots of k include this transaction's write
		for _, other := range t.s.active {
			if other != t {
				if _, ok := other.snaps[k]; ok {
					other.tainted[k] = true
				}
			}
		}
		t.s.logger.Debug("rollback skipped, slot changed since",
			"txn", t.label, "slot", k.String())
	}
	t.settleLocked()
	return skipped
}

func (t *Txn) settleLocked() {
	for _, k := range t.order {
		t.s.slots[k].holds--
	}
	t.settled = true
	delete(t.s.active, t.id)
}

// Writer mutates slots on behalf of a transaction while the store lock is
// held. During Apply every first touch snapshots the slot; during Commit
// writes are merges that also rebase other transactions' snapshots.
type Writer struct {
	t     *Txn
	merge bool
}

// Get reads a slot
func (w *Writer) Get(key Key) (any, bool) {
	sl, ok := w.t.s.slots[key]
	if !ok || !sl.present {
		return nil, false
	}
	return sl.value, true
}

// Keys lists present slots matching match
func (w *Writer) Keys(match func(Key) bool) []Key {
	return w.t.s.keysLocked(match)
}

// Touch snapshots and holds slots, present or not, and supersedes their
// in-flight fetches so a fetch started before the write cannot land after it.
func (w *Writer) Touch(keys ...Key) {
	if w.merge {
		return
	}
	for _, k := range keys {
		w.touch(k)
	}
}

func (w *Writer) touch(key Key) *slot {
	s := w.t.s
	sl := s.slot(key)
	if _, ok := w.t.snaps[key]; ok {
		return sl
	}
	w.t.snaps[key] = &snapshot{value: sl.value, present: sl.present, version: sl.version, stale: sl.stale, seq: s.tick()}
	w.t.order = append(w.t.order, key)
	s.supersedeLocked(sl)
	sl.holds++
	return sl
}

// Update rewrites a present slot. fn reports whether it changed anything.
func (w *Writer) Update(key Key, fn func(any) (any, bool)) bool {
	s := w.t.s
	kfn := func(_ Key, v any) (any, bool) { return fn(v) }
	if w.merge {
		return s.rewriteLocked(key, kfn, w.t)
	}
	changed := w.update(key, kfn)
	w.log(keyIs(key), kfn, false)
	return changed
}

func (w *Writer) update(key Key, fn func(Key, any) (any, bool)) bool {
	s := w.t.s
	sl := w.touch(key)
	if !sl.present {
		return false
	}
	next, changed := fn(key, sl.value)
	if !changed {
		return false
	}
	sl.value = next
	sl.version = s.tick()
	w.t.wrote[key] = sl.version
	return true
}

func (w *Writer) log(match func(Key) bool, fn func(Key, any) (any, bool), del bool) {
	w.t.ops = append(w.t.ops, op{txn: w.t, seq: w.t.s.tick(), match: match, fn: fn, del: del})
}

// Rewrite applies fn to every view matching match. During Apply only
// present slots that fn changes are touched; during Commit it is a
// Store.Rewrite, reaching absent slots and other transactions' snapshots.
// fn must be idempotent: commits replay it over merged values, including
// views that gained a matching record after it first ran.
func (w *Writer) Rewrite(match func(Key) bool, fn func(Key, any) (any, bool)) {
	s := w.t.s
	if w.merge {
		s.rewriteWhereLocked(match, fn, w.t)
		return
	}
	for _, k := range s.keysLocked(match) {
		if _, changed := fn(k, s.slots[k].value); !changed {
			continue
		}
		w.update(k, fn)
	}
	w.log(match, fn, false)
}

// Delete drops a slot's value
func (w *Writer) Delete(key Key) {
	s := w.t.s
	var sl *slot
	if w.merge {
		var ok bool
		if sl, ok = s.slots[key]; !ok {
			return
		}
	} else {
		sl = w.touch(key)
		defer w.log(keyIs(key), nil, true)
	}
	if !sl.present {
		return
	}
	sl.value, sl.present, sl.stale = nil, false, false
	sl.version = s.tick()
	if !w.merge {
		w.t.wrote[key] = sl.version
	}
}

// UpdateAs is Writer.Update for a slot holding a T
func UpdateAs[T any](w *Writer, key Key, fn func(T) (T, bool)) bool {
	return w.Update(key, func(v any) (any, bool) {
		t, ok := v.(T)
		if !ok {
			return v, false
		}
		return fn(t)
	})
}
