package tree

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Kind is the kind of item being named
type Kind int

const (
	KindFolder Kind = iota
	KindFile
)

func (k Kind) String() string {
	if k == KindFile {
		return "file"
	}
	return "folder"
}

// Conflicts reports, independently per kind, whether a name is taken in a scope
type Conflicts struct {
	FolderConflict bool
	FileConflict   bool
	// The occupying records, when found
	Folder *Folder
	File   *File
}

// Any reports a conflict of either kind
func (c Conflicts) Any() bool { return c.FolderConflict || c.FileConflict }

// SameName compares names the way the server's unique indexes do
// (case-insensitive), after Unicode NFC normalization and trimming.
func SameName(a, b string) bool {
	return strings.EqualFold(normalizeName(a), normalizeName(b))
}

func normalizeName(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// CheckConflicts looks for a folder and a file named name in the scope
// (dataRoomID, parent). exclude is the item being renamed or moved and only
// applies to records of the same kind. Whether a cross-kind match blocks the
// operation is up to the caller. The check is advisory: the server stays
// authoritative.
func CheckConflicts(name, dataRoomID string, parent *ID, kind Kind, exclude *ID, folders []Folder, files []File) Conflicts {
	var c Conflicts
	for i := range folders {
		f := folders[i]
		if f.DataRoomID != dataRoomID || !SameID(f.ParentID, parent) || !SameName(f.Name, name) {
			continue
		}
		if kind == KindFolder && exclude != nil && f.ID == *exclude {
			continue
		}
		c.FolderConflict = true
		c.Folder = &f
		break
	}
	for i := range files {
		f := files[i]
		if f.DataRoomID != dataRoomID || !SameID(f.FolderID, parent) || !SameName(f.Name, name) {
			continue
		}
		if kind == KindFile && exclude != nil && f.ID == *exclude {
			continue
		}
		c.FileConflict = true
		c.File = &f
		break
	}
	return c
}
