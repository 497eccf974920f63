package engine

import (
	"dataroom/internal/cache"
	"dataroom/internal/tree"
)

// A rewrite maps one cached view to its next value and reports a change.
// Every rewrite here is pure: it never modifies the slices it is given.
// Rewrites compare settled IDs, so one written against a temporary ID
// still finds the item after its create lands. They are replayed when
// other mutations commit, so each must be idempotent.
type rewrite = func(cache.Key, any) (any, bool)

// sameAs matches every ID standing for one of ids
func (e *Engine) sameAs(ids ...tree.ID) func(tree.ID) bool {
	return func(id tree.ID) bool {
		id = e.settledID(id)
		for _, want := range ids {
			if id == e.settledID(want) {
				return true
			}
		}
		return false
	}
}

func (e *Engine) sameParent(a, b *tree.ID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return e.settledID(*a) == e.settledID(*b)
}

func matching[T tree.Record](list []T, is func(tree.ID) bool) []tree.ID {
	var ids []tree.ID
	for _, v := range list {
		if is(v.Key()) {
			ids = append(ids, v.Key())
		}
	}
	return ids
}

// placeFolder puts rec (also known as alias) where it belongs: in the
// flat list, in the view of its parent, and as the subject of its own
// contents view. Views of other parents lose it. With insert set a view
// of the right parent that lacks the record gets it appended. A record
// without counts keeps the cached ones.
func (e *Engine) placeFolder(rec tree.Folder, alias tree.ID, insert bool) rewrite {
	return e.positionFolder(rec, alias, insert, func(cur *tree.Folder) tree.Folder {
		out := rec
		if out.Count == nil && cur != nil {
			out.Count = cur.Count
		}
		return out
	})
}

// moveFolder puts folder rec.ID under rec.ParentID and leaves the rest of
// what each view shows of it alone, so a rename made meanwhile survives.
// A view of the new parent that lacks the folder gets rec, or the server's
// record if a commit merged one since mark.
func (e *Engine) moveFolder(rec tree.Folder, mark uint64) rewrite {
	return e.positionFolder(rec, rec.ID, true, func(cur *tree.Folder) tree.Folder {
		if cur != nil {
			return cur.Reparented(rec.ParentID)
		}
		if landed, ok := e.landedSince(e.settledID(rec.ID), mark); ok {
			if landed.Count == nil {
				landed.Count = rec.Count
			}
			return landed.Reparented(rec.ParentID)
		}
		return rec
	})
}

func (e *Engine) positionFolder(rec tree.Folder, alias tree.ID, insert bool, shape func(cur *tree.Folder) tree.Folder) rewrite {
	return func(_ cache.Key, v any) (any, bool) {
		is := e.sameAs(rec.ID, alias)
		parent := e.settledPtr(rec.ParentID)
		place := func(cur *tree.Folder) tree.Folder {
			f := shape(cur)
			f.ID, f.ParentID = e.settledID(f.ID), e.settledPtr(f.ParentID)
			return f
		}
		put := func(list []tree.Folder) ([]tree.Folder, bool) {
			ids := matching(list, is)
			if len(ids) == 0 {
				if !insert {
					return list, false
				}
				return tree.Append(list, place(nil)), true
			}
			cur, _ := tree.Find(list, ids[0])
			return tree.Merge(list, place(&cur), ids...)
		}
		drop := func(list []tree.Folder) ([]tree.Folder, bool) {
			return removeFolders(list, func(f tree.Folder) bool { return is(f.ID) })
		}

		switch v := v.(type) {
		case []tree.Folder:
			return put(v)
		case tree.Listing:
			edit := drop
			if parent == nil {
				edit = put
			}
			next, ok := edit(v.Folders)
			if !ok {
				return v, false
			}
			v.Folders = next
			return v, true
		case tree.Contents:
			changed := false
			if is(v.Folder.ID) {
				v.Folder, changed = place(&v.Folder), true
			}
			edit := drop
			if e.sameParent(parent, &v.Folder.ID) {
				edit = put
			}
			if next, ok := edit(v.Children); ok {
				v.Children, changed = next, true
			}
			return v, changed
		}
		return v, false
	}
}

// placeFile is placeFolder for files
func (e *Engine) placeFile(rec tree.File, alias tree.ID, insert bool) rewrite {
	return func(_ cache.Key, v any) (any, bool) {
		is := e.sameAs(rec.ID, alias)
		placed := rec
		placed.ID, placed.FolderID = e.settledID(rec.ID), e.settledPtr(rec.FolderID)
		put := func(list []tree.File) ([]tree.File, bool) {
			if ids := matching(list, is); len(ids) > 0 {
				return tree.Merge(list, placed, ids...)
			}
			if insert {
				return tree.Append(list, placed), true
			}
			return list, false
		}
		drop := func(list []tree.File) ([]tree.File, bool) {
			return removeFiles(list, func(f tree.File) bool { return is(f.ID) })
		}

		switch v := v.(type) {
		case []tree.File:
			return put(v)
		case tree.Listing:
			edit := drop
			if placed.FolderID == nil {
				edit = put
			}
			next, ok := edit(v.Files)
			if !ok {
				return v, false
			}
			v.Files = next
			return v, true
		case tree.Contents:
			edit := drop
			if e.sameParent(placed.FolderID, &v.Folder.ID) {
				edit = put
			}
			next, ok := edit(v.Files)
			if !ok {
				return v, false
			}
			v.Files = next
			return v, true
		}
		return v, false
	}
}

// patchFolder applies fn to folder id wherever it is shown
func (e *Engine) patchFolder(id tree.ID, fn func(tree.Folder) tree.Folder) rewrite {
	return func(_ cache.Key, v any) (any, bool) {
		is := e.sameAs(id)
		switch v := v.(type) {
		case []tree.Folder:
			return patchWhere(v, is, fn)
		case tree.Listing:
			next, ok := patchWhere(v.Folders, is, fn)
			if !ok {
				return v, false
			}
			v.Folders = next
			return v, true
		case tree.Contents:
			changed := false
			if is(v.Folder.ID) {
				v.Folder, changed = fn(v.Folder), true
			}
			if next, ok := patchWhere(v.Children, is, fn); ok {
				v.Children, changed = next, true
			}
			return v, changed
		}
		return v, false
	}
}

// patchFile applies fn to file id wherever it is shown
func (e *Engine) patchFile(id tree.ID, fn func(tree.File) tree.File) rewrite {
	return func(_ cache.Key, v any) (any, bool) {
		is := e.sameAs(id)
		switch v := v.(type) {
		case []tree.File:
			return patchWhere(v, is, fn)
		case tree.Listing:
			next, ok := patchWhere(v.Files, is, fn)
			if !ok {
				return v, false
			}
			v.Files = next
			return v, true
		case tree.Contents:
			next, ok := patchWhere(v.Files, is, fn)
			if !ok {
				return v, false
			}
			v.Files = next
			return v, true
		}
		return v, false
	}
}

// patchWhere is tree.Patch over every record is matches
func patchWhere[T tree.Record](list []T, is func(tree.ID) bool, fn func(T) T) ([]T, bool) {
	var out []T
	for i, v := range list {
		if !is(v.Key()) {
			continue
		}
		if out == nil {
			out = append([]T(nil), list...)
		}
		out[i] = fn(v)
	}
	if out == nil {
		return list, false
	}
	return out, true
}

// dropItems removes the given folders, and the files they hold, from
// every list. The subject of a contents view is left to the caller.
func (e *Engine) dropItems(folders map[tree.ID]bool, files map[tree.ID]bool) rewrite {
	settle := func(ids map[tree.ID]bool) map[tree.ID]bool {
		out := make(map[tree.ID]bool, len(ids))
		for id := range ids {
			out[e.settledID(id)] = true
		}
		return out
	}

	return func(_ cache.Key, v any) (any, bool) {
		goneFolders, goneFiles := settle(folders), settle(files)
		goneFolder := func(f tree.Folder) bool { return goneFolders[e.settledID(f.ID)] }
		goneFile := func(f tree.File) bool {
			return goneFiles[e.settledID(f.ID)] || (f.FolderID != nil && goneFolders[e.settledID(*f.FolderID)])
		}

		switch v := v.(type) {
		case []tree.Folder:
			return removeFolders(v, goneFolder)
		case []tree.File:
			return removeFiles(v, goneFile)
		case tree.Listing:
			fs, okFolders := removeFolders(v.Folders, goneFolder)
			ds, okFiles := removeFiles(v.Files, goneFile)
			v.Folders, v.Files = fs, ds
			return v, okFolders || okFiles
		case tree.Contents:
			fs, okFolders := removeFolders(v.Children, goneFolder)
			ds, okFiles := removeFiles(v.Files, goneFile)
			v.Children, v.Files = fs, ds
			return v, okFolders || okFiles
		}
		return v, false
	}
}

// reparent rewrites parent pointers from a temporary folder ID to its
// server ID
func reparent(from, to tree.ID) rewrite {
	folders := func(list []tree.Folder) ([]tree.Folder, bool) {
		var out []tree.Folder
		for i, f := range list {
			if f.ParentID == nil || *f.ParentID != from {
				continue
			}
			if out == nil {
				out = append([]tree.Folder(nil), list...)
			}
			out[i] = f.ReplaceParent(from, to)
		}
		if out == nil {
			return list, false
		}
		return out, true
	}
	files := func(list []tree.File) ([]tree.File, bool) {
		var out []tree.File
		for i, f := range list {
			if f.FolderID == nil || *f.FolderID != from {
				continue
			}
			if out == nil {
				out = append([]tree.File(nil), list...)
			}
			out[i] = f.ReplaceParent(from, to)
		}
		if out == nil {
			return list, false
		}
		return out, true
	}

	return func(_ cache.Key, v any) (any, bool) {
		switch v := v.(type) {
		case []tree.Folder:
			return folders(v)
		case []tree.File:
			return files(v)
		case tree.Contents:
			fs, okFolders := folders(v.Children)
			ds, okFiles := files(v.Files)
			v.Children, v.Files = fs, ds
			return v, okFolders || okFiles
		}
		return v, false
	}
}

// chain runs rewrites in order on the same view
func chain(fns ...rewrite) rewrite {
	return func(k cache.Key, v any) (any, bool) {
		changed := false
		for _, fn := range fns {
			next, ok := fn(k, v)
			if ok {
				v, changed = next, true
			}
		}
		return v, changed
	}
}

func removeFolders(list []tree.Folder, gone func(tree.Folder) bool) ([]tree.Folder, bool) {
	var out []tree.Folder
	removed := false
	for _, f := range list {
		if gone(f) {
			removed = true
			continue
		}
		out = append(out, f)
	}
	if !removed {
		return list, false
	}
	return out, true
}

func removeFiles(list []tree.File, gone func(tree.File) bool) ([]tree.File, bool) {
	var out []tree.File
	removed := false
	for _, f := range list {
		if gone(f) {
			removed = true
			continue
		}
		out = append(out, f)
	}
	if !removed {
		return list, false
	}
	return out, true
}
