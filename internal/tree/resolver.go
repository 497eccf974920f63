package tree

import (
	"fmt"

	"dataroom/internal/domain"
)

// MaxDepth bounds every ancestor walk, independent of the visited set
const MaxDepth = 100

// DiagnosticKind classifies a defect found while walking parent pointers
type DiagnosticKind int

const (
	// DiagCycle: a folder was reached twice
	DiagCycle DiagnosticKind = iota + 1
	// DiagDanglingParent: a parent ID is not in the folder list
	DiagDanglingParent
	// DiagDepthExceeded: the walk hit MaxDepth
	DiagDepthExceeded
)

func (k DiagnosticKind) String() string {
	switch k {
	case DiagCycle:
		return "cycle"
	case DiagDanglingParent:
		return "dangling parent"
	case DiagDepthExceeded:
		return "depth exceeded"
	default:
		return "unknown"
	}
}

// Diagnostic reports a corrupt hierarchy. It accompanies a partial result
// and is never returned as a failure.
type Diagnostic struct {
	Kind DiagnosticKind
	// Folder at which the walk stopped
	FolderID ID
}

// Err wraps the diagnostic as domain.ErrCorruptHierarchy for logging
func (d *Diagnostic) Err() error {
	if d == nil {
		return nil
	}
	return fmt.Errorf("%s at folder %s: %w", d.Kind, d.FolderID, domain.ErrCorruptHierarchy)
}

// ResolvePathToID returns the folder a path addresses within one data room's
// folder list. The empty path addresses the room root, not a folder, and
// reports false.
//
// Duplicate names at one level are all followed: the next segment is
// matched against the union of their children. The final segment returns
// the first match in list order. The walk is bounded by the path length,
// so cyclic parent data cannot make it loop.
func ResolvePathToID(path string, all []Folder) (ID, bool) {
	names := ParsePath(path)
	if len(names) == 0 {
		return ID{}, false
	}

	level := make([]Folder, 0)
	for _, f := range all {
		if f.ParentID == nil {
			level = append(level, f)
		}
	}

	for i, name := range names {
		last := i == len(names)-1
		matched := make(map[ID]bool)
		for _, f := range level {
			if f.Name != name {
				continue
			}
			if last {
				return f.ID, true
			}
			matched[f.ID] = true
		}
		if len(matched) == 0 {
			return ID{}, false
		}

		level = level[:0:0]
		for _, f := range all {
			if f.ParentID != nil && matched[*f.ParentID] {
				level = append(level, f)
			}
		}
	}
	return ID{}, false
}

// BuildPathFromID returns the encoded path of a folder, or "" when id is nil
// or unknown. A corrupt chain yields the partial path walked so far.
func BuildPathFromID(id *ID, all []Folder) string {
	path, _ := BuildPathFromIDWithDiagnostics(id, all)
	return path
}

// BuildPathFromIDWithDiagnostics is BuildPathFromID plus the defect, if any,
// that cut the walk short.
func BuildPathFromIDWithDiagnostics(id *ID, all []Folder) (string, *Diagnostic) {
	if id == nil {
		return "", nil
	}
	chain, diag := Ancestors(*id, all)
	if len(chain) == 0 {
		return "", diag
	}
	names := make([]string, len(chain))
	for i, f := range chain {
		names[i] = f.Name
	}
	return BuildPath(names), diag
}

// Ancestors returns the chain root→id (id last). An unknown id gives an
// empty chain. A repeated folder, a missing parent or MaxDepth stops the
// walk; the chain gathered so far is returned with a diagnostic.
func Ancestors(id ID, all []Folder) ([]Folder, *Diagnostic) {
	byID := make(map[ID]Folder, len(all))
	for _, f := range all {
		if _, dup := byID[f.ID]; !dup {
			byID[f.ID] = f
		}
	}

	current, ok := byID[id]
	if !ok {
		return nil, nil
	}

	var chain []Folder
	var diag *Diagnostic
	visited := make(map[ID]bool)
	for {
		if visited[current.ID] {
			diag = &Diagnostic{Kind: DiagCycle, FolderID: current.ID}
			break
		}
		if len(chain) >= MaxDepth {
			diag = &Diagnostic{Kind: DiagDepthExceeded, FolderID: current.ID}
			break
		}
		visited[current.ID] = true
		chain = append(chain, current)

		if current.ParentID == nil {
			break
		}
		parent, ok := byID[*current.ParentID]
		if !ok {
			diag = &Diagnostic{Kind: DiagDanglingParent, FolderID: current.ID}
			break
		}
		current = parent
	}

	// Walked child→root
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain, diag
}

// IsDescendant reports whether candidate sits at or below ancestor
func IsDescendant(candidate, ancestor ID, all []Folder) bool {
	chain, _ := Ancestors(candidate, all)
	for _, f := range chain {
		if f.ID == ancestor {
			return true
		}
	}
	return false
}
