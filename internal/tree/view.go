package tree

// Record is a folder or file
type Record interface {
	Folder | File
	Key() ID
}

// The helpers below never modify their input slices, so a slice held as
// a snapshot stays intact when a view is rewritten.

// Find returns the record with id
func Find[T Record](list []T, id ID) (T, bool) {
	for _, v := range list {
		if v.Key() == id {
			return v, true
		}
	}
	var zero T
	return zero, false
}

// Append returns a copy of list with v added at the end
func Append[T Record](list []T, v T) []T {
	out := make([]T, 0, len(list)+1)
	out = append(out, list...)
	return append(out, v)
}

// Remove returns a copy of list without id
func Remove[T Record](list []T, id ID) ([]T, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return list, false
	}
	out := make([]T, 0, len(list)-1)
	out = append(out, list[:idx]...)
	return append(out, list[idx+1:]...), true
}

// Patch returns a copy of list with fn applied to the record with id
func Patch[T Record](list []T, id ID, fn func(T) T) ([]T, bool) {
	idx := indexOf(list, id)
	if idx < 0 {
		return list, false
	}
	out := make([]T, len(list))
	copy(out, list)
	out[idx] = fn(out[idx])
	return out, true
}

// Merge puts the canonical record in place of every entry matching its ID
// or one of aliases (typically the temporary ID it replaces). The first
// match keeps its position and later matches are dropped, so a temp record
// and an already-fetched real one collapse into one entry. A list with no
// match is returned unchanged.
func Merge[T Record](list []T, canonical T, aliases ...ID) ([]T, bool) {
	matches := func(id ID) bool {
		if id == canonical.Key() {
			return true
		}
		for _, a := range aliases {
			if id == a {
				return true
			}
		}
		return false
	}

	found := false
	out := make([]T, 0, len(list))
	for _, v := range list {
		if !matches(v.Key()) {
			out = append(out, v)
			continue
		}
		if !found {
			out = append(out, canonical)
			found = true
		}
	}
	if !found {
		return list, false
	}
	return out, true
}

// HasPending reports whether any record still carries a temporary ID
func HasPending[T Record](list []T) bool {
	for _, v := range list {
		if v.Key().IsPending() {
			return true
		}
	}
	return false
}

func indexOf[T Record](list []T, id ID) int {
	for i, v := range list {
		if v.Key() == id {
			return i
		}
	}
	return -1
}

// WithChildren returns a copy of c with its child folders rewritten
func (c Contents) WithChildren(fn func([]Folder) []Folder) Contents {
	c.Children = fn(c.Children)
	return c
}

// WithFiles returns a copy of c with its files rewritten
func (c Contents) WithFiles(fn func([]File) []File) Contents {
	c.Files = fn(c.Files)
	return c
}

// WithFolders returns a copy of l with its root folders rewritten
func (l Listing) WithFolders(fn func([]Folder) []Folder) Listing {
	l.Folders = fn(l.Folders)
	return l
}

// WithFiles returns a copy of l with its root files rewritten
func (l Listing) WithFiles(fn func([]File) []File) Listing {
	l.Files = fn(l.Files)
	return l
}

// Renamed returns a copy of f with a new name
func (f Folder) Renamed(name string) Folder {
	f.Name = name
	return f
}

// Reparented returns a copy of f under parent (nil = root)
func (f Folder) Reparented(parent *ID) Folder {
	if parent != nil {
		parent = parent.Ptr()
	}
	f.ParentID = parent
	return f
}

// Renamed returns a copy of f with a new name
func (f File) Renamed(name string) File {
	f.Name = name
	return f
}

// ReplaceParent rewrites a parent pointer equal to from (used when a
// temporary folder ID is reconciled).
func (f Folder) ReplaceParent(from, to ID) Folder {
	if f.ParentID != nil && *f.ParentID == from {
		f.ParentID = to.Ptr()
	}
	return f
}

// ReplaceParent rewrites a folder pointer equal to from
func (f File) ReplaceParent(from, to ID) File {
	if f.FolderID != nil && *f.FolderID == from {
		f.FolderID = to.Ptr()
	}
	return f
}
