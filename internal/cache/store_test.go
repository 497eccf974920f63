package cache

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testStore() *Store {
	return NewStore(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

var key = FoldersKey("room-1")

func appendName(name string) func([]string) ([]string, bool) {
	return func(list []string) ([]string, bool) {
		out := append(append([]string(nil), list...), name)
		return out, true
	}
}

func write(t *testing.T, s *Store, label string, k Key, fn func([]string) ([]string, bool)) *Txn {
	t.Helper()
	tx := s.Begin(label)
	err := tx.Apply(func(w *Writer) error {
		UpdateAs(w, k, fn)
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	return tx
}

func mustValue(t *testing.T, s *Store, k Key) []string {
	t.Helper()
	v, ok := Value[[]string](s, k)
	if !ok {
		t.Fatalf("slot %s empty", k)
	}
	return v
}

func TestRollback_RestoresSnapshotExactly(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"Reports"})
	before := s.Version(key)

	tx := write(t, s, "create", key, appendName("New"))
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"Reports", "New"}) {
		t.Fatalf("optimistic value = %v", got)
	}
	if !s.IsHeld(key) {
		t.Error("touched slot should be held")
	}

	if skipped := tx.Rollback(); len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"Reports"}) {
		t.Errorf("after rollback = %v", got)
	}
	if s.Version(key) != before || s.IsStale(key) || s.IsHeld(key) {
		t.Errorf("version=%d (want %d) stale=%v held=%v", s.Version(key), before, s.IsStale(key), s.IsHeld(key))
	}
}

func TestRollback_AbsentSlotStaysAbsent(t *testing.T) {
	s := testStore()
	tx := s.Begin("put")
	tx.Apply(func(w *Writer) error {
		w.Touch(key)
		return nil
	})
	tx.Rollback()
	if _, ok := s.Get(key); ok {
		t.Error("slot should still be absent")
	}
}

func TestRollback_LaterWriteWins(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})

	t1 := write(t, s, "first", key, appendName("B"))
	t2 := write(t, s, "second", key, appendName("C"))

	// t1 fails first: t2 wrote on top, so t1 must not clobber it
	skipped := t1.Rollback()
	if !reflect.DeepEqual(skipped, []Key{key}) {
		t.Fatalf("skipped = %v", skipped)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A", "B", "C"}) {
		t.Errorf("value = %v, want later write kept", got)
	}
	if !s.IsStale(key) {
		t.Error("skipped slot should be stale")
	}

	// t2's snapshot carries t1's failed write, so t2 may not restore it either
	if skipped := t2.Rollback(); len(skipped) != 1 {
		t.Errorf("t2 skipped = %v, want the tainted slot", skipped)
	}
	if s.IsHeld(key) {
		t.Error("holds not released")
	}
}

func TestRollback_NestedInReverseOrder(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})

	t1 := write(t, s, "first", key, appendName("B"))
	t2 := write(t, s, "second", key, appendName("C"))

	t2.Rollback()
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("after t2 rollback = %v", got)
	}
	t1.Rollback()
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("after t1 rollback = %v", got)
	}
	if s.IsStale(key) {
		t.Error("clean restores should not mark the slot stale")
	}
}

func TestCommit_MergeRebasesLaterSnapshots(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})

	t1 := write(t, s, "create", key, appendName("tmp"))
	t2 := write(t, s, "rename", key, appendName("C"))

	replaceTmp := func(list []string) ([]string, bool) {
		out := make([]string, len(list))
		changed := false
		for i, v := range list {
			if v == "tmp" {
				v, changed = "real", true
			}
			out[i] = v
		}
		return out, changed
	}
	t1.Commit(func(w *Writer) { UpdateAs(w, key, replaceTmp) })

	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A", "real", "C"}) {
		t.Fatalf("after commit = %v", got)
	}
	if !s.IsStale(key) {
		t.Error("committed slot should be stale")
	}

	// t2 fails: its snapshot was rebased onto the merged state
	if skipped := t2.Rollback(); len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A", "real"}) {
		t.Errorf("after t2 rollback = %v", got)
	}
}

func TestApply_ErrorRollsBack(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})
	boom := errors.New("precondition")

	tx := s.Begin("bad")
	err := tx.Apply(func(w *Writer) error {
		UpdateAs(w, key, appendName("B"))
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("value = %v", got)
	}
	if err := tx.Apply(func(*Writer) error { return nil }); err == nil {
		t.Error("Apply on a settled transaction should fail")
	}
}

func TestRewrite_ReachesSnapshots(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})

	t1 := write(t, s, "create", key, appendName("tmp"))
	t1.Rollback()
	t2 := write(t, s, "other", key, appendName("tmp2"))

	drop := func(_ Key, v any) (any, bool) {
		list := v.([]string)
		var out []string
		for _, x := range list {
			if x != "tmp2" {
				out = append(out, x)
			}
		}
		return out, len(out) != len(list)
	}
	s.Rewrite(nil, drop)
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A"}) {
		t.Errorf("after rewrite = %v", got)
	}

	// t2 still owns the slot after the rewrite and can restore
	if skipped := t2.Rollback(); len(skipped) != 0 {
		t.Errorf("skipped = %v", skipped)
	}
}

func TestLoad_CachesAndRefetchesWhenStale(t *testing.T) {
	s := testStore()
	var calls atomic.Int32
	fetch := func(ctx context.Context) ([]string, error) {
		n := calls.Add(1)
		if n == 1 {
			return []string{"v1"}, nil
		}
		return []string{"v2"}, nil
	}
	ctx := context.Background()

	got, err := LoadAs(ctx, s, key, fetch)
	if err != nil || !reflect.DeepEqual(got, []string{"v1"}) {
		t.Fatalf("first load = %v, %v", got, err)
	}
	got, _ = LoadAs(ctx, s, key, fetch)
	if calls.Load() != 1 || !reflect.DeepEqual(got, []string{"v1"}) {
		t.Errorf("cached load fetched again (calls=%d)", calls.Load())
	}

	s.Invalidate(key)
	got, _ = LoadAs(ctx, s, key, fetch)
	if calls.Load() != 2 || !reflect.DeepEqual(got, []string{"v2"}) {
		t.Errorf("stale load = %v (calls=%d)", got, calls.Load())
	}
	if s.IsStale(key) {
		t.Error("refetched slot still stale")
	}
}

func TestLoad_ConcurrentCallsShareOneFetch(t *testing.T) {
	s := testStore()
	var calls atomic.Int32
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		calls.Add(1)
		<-release
		return []string{"x"}, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			LoadAs(context.Background(), s, key, fetch)
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("fetch ran %d times, want 1", calls.Load())
	}
}

func TestLoad_SupersededFetchIsDiscarded(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"old"})
	s.Invalidate(key)

	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		close(started)
		<-release
		return []string{"server-before-write"}, nil
	}

	done := make(chan []string)
	go func() {
		v, _ := LoadAs(context.Background(), s, key, fetch)
		done <- v
	}()
	<-started

	tx := write(t, s, "create", key, appendName("optimistic"))
	close(release)
	got := <-done

	want := []string{"old", "optimistic"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Load returned %v, want the optimistic value", got)
	}
	if v := mustValue(t, s, key); !reflect.DeepEqual(v, want) {
		t.Errorf("slot = %v, late fetch overwrote optimistic state", v)
	}
	tx.Commit(nil)
}

func TestLoad_HeldSlotIsNotRefetched(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A"})
	tx := write(t, s, "rename", key, appendName("B"))
	s.Invalidate(key)

	fetched := false
	got, err := LoadAs(context.Background(), s, key, func(ctx context.Context) ([]string, error) {
		fetched = true
		return nil, nil
	})
	if err != nil || fetched {
		t.Errorf("held slot fetched (err=%v)", err)
	}
	if !reflect.DeepEqual(got, []string{"A", "B"}) {
		t.Errorf("got %v", got)
	}
	tx.Commit(nil)
}

func TestLoad_FetchError(t *testing.T) {
	s := testStore()
	boom := errors.New("offline")
	_, err := s.Load(context.Background(), key, func(ctx context.Context) (any, error) { return nil, boom })
	if !errors.Is(err, boom) {
		t.Errorf("err = %v", err)
	}
	if _, ok := s.Get(key); ok {
		t.Error("failed fetch cached a value")
	}
}

func TestCancelFetches_CancelsContext(t *testing.T) {
	s := testStore()
	started := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		_, err := s.Load(context.Background(), key, func(ctx context.Context) (any, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		errc <- err
	}()
	<-started
	s.CancelFetches(key)

	select {
	case err := <-errc:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("fetch was not cancelled")
	}
}

func TestKeysAndInvalidateWhere(t *testing.T) {
	s := testStore()
	s.Set(FoldersKey("r1"), 1)
	s.Set(ContentsKey("r1", "f1"), 2)
	s.Set(ContentsKey("r1", "f2"), 3)
	s.Set(ContentsKey("r2", "f9"), 4)

	if got := s.Keys(OfKind("r1", SlotContents)); len(got) != 2 {
		t.Errorf("contents keys = %v", got)
	}
	s.InvalidateWhere(InRoom("r1"))
	if !s.IsStale(ContentsKey("r1", "f2")) || s.IsStale(ContentsKey("r2", "f9")) {
		t.Error("InvalidateWhere crossed rooms")
	}
}

func TestCommitMerge_RebasesSnapshotOfRemovedRecord(t *testing.T) {
	s := testStore()
	s.Set(key, []string{"A", "old"})

	// rename in flight: old -> new
	rename := write(t, s, "rename", key, func(list []string) ([]string, bool) {
		return []string{"A", "new"}, true
	})
	// delete of the parent in flight drops the record from the live view
	del := write(t, s, "delete", key, func([]string) ([]string, bool) {
		return []string{"A"}, true
	})

	// The rename lands; the live view has nothing to merge into
	rename.Commit(func(w *Writer) {
		w.Rewrite(nil, func(_ Key, v any) (any, bool) {
			list := v.([]string)
			out := append([]string(nil), list...)
			changed := false
			for i, x := range out {
				if x == "new" {
					out[i], changed = "canonical", true
				}
			}
			return out, changed
		})
	})

	if skipped := del.Rollback(); len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"A", "canonical"}) {
		t.Errorf("after failed delete = %v", got)
	}
	if !s.IsStale(key) {
		t.Error("restored slot lost the stale mark set by the commit")
	}
}

type entry struct{ ID, Name, Parent string }

func patchEntry(id string, fn func(entry) entry) func(Key, any) (any, bool) {
	return func(_ Key, v any) (any, bool) {
		list, ok := v.([]entry)
		if !ok {
			return v, false
		}
		out := append([]entry(nil), list...)
		changed := false
		for i, e := range out {
			if e.ID != id {
				continue
			}
			if next := fn(e); next != e {
				out[i], changed = next, true
			}
		}
		return out, changed
	}
}

func rewriteTxn(s *Store, label string, fn func(Key, any) (any, bool)) *Txn {
	tx := s.Begin(label)
	tx.Apply(func(w *Writer) error {
		w.Rewrite(nil, fn)
		return nil
	})
	return tx
}

func TestCommitMerge_KeepsLaterWritesOnTop(t *testing.T) {
	move := patchEntry("2024", func(e entry) entry { e.Parent = ""; return e })
	rename := patchEntry("2024", func(e entry) entry { e.Name = "2023"; return e })
	// The server answers the move before it has seen the rename
	moved := patchEntry("2024", func(entry) entry { return entry{ID: "2024", Name: "2024"} })

	tests := []struct {
		name        string
		renameFirst bool
	}{
		{"move issued first", false},
		{"rename issued first", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testStore()
			s.Set(key, []entry{{ID: "2024", Name: "2024", Parent: "reports"}})

			var mv, rn *Txn
			if tt.renameFirst {
				rn = rewriteTxn(s, "rename", rename)
				mv = rewriteTxn(s, "move", move)
			} else {
				mv = rewriteTxn(s, "move", move)
				rn = rewriteTxn(s, "rename", rename)
			}

			mv.Commit(func(w *Writer) { w.Rewrite(nil, moved) })
			got, _ := Value[[]entry](s, key)
			if want := []entry{{ID: "2024", Name: "2023"}}; !reflect.DeepEqual(got, want) {
				t.Fatalf("after move commit = %+v, want %+v", got, want)
			}
			if !s.IsHeld(key) {
				t.Error("slot released while the rename is in flight")
			}

			// The rename fails: only its own write is undone
			if skipped := rn.Rollback(); len(skipped) != 0 {
				t.Fatalf("skipped = %v", skipped)
			}
			got, _ = Value[[]entry](s, key)
			if want := []entry{{ID: "2024", Name: "2024"}}; !reflect.DeepEqual(got, want) {
				t.Errorf("after rename rollback = %+v, want %+v", got, want)
			}
			if s.IsHeld(key) {
				t.Error("holds not released")
			}
		})
	}
}

func TestCommitMerge_ReplaysWriteThatMissedTheRecord(t *testing.T) {
	s := testStore()
	s.Set(key, []entry{})

	create := s.Begin("create")
	create.Apply(func(w *Writer) error {
		UpdateAs(w, key, func(list []entry) ([]entry, bool) {
			return append(append([]entry(nil), list...), entry{ID: "tmp", Name: "Drafts"}), true
		})
		return nil
	})
	// Issued against the server id, which no view holds yet
	rn := rewriteTxn(s, "rename", patchEntry("real", func(e entry) entry { e.Name = "Final"; return e }))

	create.Commit(func(w *Writer) {
		w.Rewrite(nil, patchEntry("tmp", func(entry) entry { return entry{ID: "real", Name: "Drafts"} }))
	})
	got, _ := Value[[]entry](s, key)
	if want := []entry{{ID: "real", Name: "Final"}}; !reflect.DeepEqual(got, want) {
		t.Fatalf("after create commit = %+v, want %+v", got, want)
	}
	if !s.IsHeld(key) {
		t.Error("rename does not hold the slot it now writes")
	}

	if skipped := rn.Rollback(); len(skipped) != 0 {
		t.Fatalf("skipped = %v", skipped)
	}
	got, _ = Value[[]entry](s, key)
	if want := []entry{{ID: "real", Name: "Drafts"}}; !reflect.DeepEqual(got, want) {
		t.Errorf("after rename rollback = %+v, want %+v", got, want)
	}
	if s.IsHeld(key) {
		t.Error("holds not released")
	}
}

type loadResult struct {
	value []string
	err   error
}

func TestLoad_WriteToEmptySlotLetsFetchFinish(t *testing.T) {
	s := testStore()
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan loadResult, 1)
	go func() {
		v, err := LoadAs(context.Background(), s, key, func(ctx context.Context) ([]string, error) {
			close(started)
			select {
			case <-release:
				return []string{"server"}, nil
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		})
		done <- loadResult{v, err}
	}()
	<-started

	// A mutation touches the view nobody has cached yet
	tx := s.Begin("create")
	tx.Apply(func(w *Writer) error {
		w.Touch(key)
		return nil
	})
	close(release)

	r := <-done
	if r.err != nil {
		t.Fatalf("Load err = %v", r.err)
	}
	if !reflect.DeepEqual(r.value, []string{"server"}) {
		t.Errorf("Load = %v", r.value)
	}
	if _, ok := s.Get(key); ok {
		t.Error("fetch started before the write was stored")
	}
	tx.Commit(nil)
	if s.IsHeld(key) {
		t.Error("holds not released")
	}
}

func TestLoad_CallerCancelLeavesSharedFetch(t *testing.T) {
	s := testStore()
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(ctx context.Context) ([]string, error) {
		close(started)
		select {
		case <-release:
			return []string{"x"}, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	first := make(chan error, 1)
	go func() {
		_, err := LoadAs(ctx, s, key, fetch)
		first <- err
	}()
	<-started
	second := make(chan loadResult, 1)
	go func() {
		v, err := LoadAs(context.Background(), s, key, fetch)
		second <- loadResult{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	select {
	case err := <-first:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("cancelled caller err = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled caller still waiting")
	}

	close(release)
	r := <-second
	if r.err != nil || !reflect.DeepEqual(r.value, []string{"x"}) {
		t.Errorf("other caller = %v, %v", r.value, r.err)
	}
	if got := mustValue(t, s, key); !reflect.DeepEqual(got, []string{"x"}) {
		t.Errorf("slot = %v", got)
	}
}
