package tree

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"dataroom/internal/domain"
)

func TestAcmeScenario_Paths(t *testing.T) {
	folders, _ := acme()

	if got := BuildPathFromID(Persisted("2024").Ptr(), folders); got != "Reports/2024" {
		t.Errorf("BuildPathFromID(2024) = %q, want %q", got, "Reports/2024")
	}
	id, ok := ResolvePathToID("Reports/2024", folders)
	if !ok || id != Persisted("2024") {
		t.Errorf("ResolvePathToID(Reports/2024) = %v, %v; want 2024", id, ok)
	}
}

func TestResolvePathToID_NotFound(t *testing.T) {
	folders, _ := acme()

	tests := []struct {
		name string
		path string
	}{
		{"empty is root", ""},
		{"slash is root", "/"},
		{"unknown root", "Finance"},
		{"unknown leaf", "Reports/2025"},
		{"too deep", "Reports/2024/Q1"},
		{"skips a level", "2024"},
		{"case differs", "reports/2024"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if id, ok := ResolvePathToID(tt.path, folders); ok {
				t.Errorf("ResolvePathToID(%q) = %v, want not found", tt.path, id)
			}
		})
	}

	if _, ok := ResolvePathToID("Reports", nil); ok {
		t.Error("resolving against an empty list should fail")
	}
}

func TestResolvePathToID_DuplicateNames(t *testing.T) {
	// Two root folders named "Shared"; only the second has "Q1" below it
	folders := []Folder{
		folder("s1", "Shared", ""),
		folder("s2", "Shared", ""),
		folder("x", "Other", "s1"),
		folder("q1", "Q1", "s2"),
		folder("q1-dup", "Q1", "s2"),
	}

	for i := 0; i < 3; i++ {
		id, ok := ResolvePathToID("Shared/Q1", folders)
		if !ok || id != Persisted("q1") {
			t.Fatalf("ResolvePathToID(Shared/Q1) = %v, %v; want first match q1", id, ok)
		}
	}

	id, ok := ResolvePathToID("Shared", folders)
	if !ok || id != Persisted("s1") {
		t.Errorf("ResolvePathToID(Shared) = %v, want s1 (first in list order)", id)
	}

	id, ok = ResolvePathToID("Shared/Other", folders)
	if !ok || id != Persisted("x") {
		t.Errorf("ResolvePathToID(Shared/Other) = %v, want x", id)
	}
}

func TestResolvePathToID_CycleTerminates(t *testing.T) {
	folders := []Folder{
		folder("a", "A", "b"),
		folder("b", "B", "a"),
		folder("root", "Root", ""),
	}
	if _, ok := ResolvePathToID("A/B/A/B/A", folders); ok {
		t.Error("cycle with no root entry should not resolve")
	}
	if _, ok := ResolvePathToID("Root", folders); !ok {
		t.Error("Root should still resolve")
	}
}

func TestBuildPathFromID_Edges(t *testing.T) {
	folders, _ := acme()

	if got := BuildPathFromID(nil, folders); got != "" {
		t.Errorf("nil id = %q, want root", got)
	}
	if got := BuildPathFromID(Persisted("missing").Ptr(), folders); got != "" {
		t.Errorf("unknown id = %q, want root", got)
	}
	if got := BuildPathFromID(Persisted("reports").Ptr(), folders); got != "Reports" {
		t.Errorf("root folder = %q", got)
	}
}

func TestBuildPathFromID_Cycle(t *testing.T) {
	folders := []Folder{
		folder("a", "A", "b"),
		folder("b", "B", "a"),
	}

	path, diag := BuildPathFromIDWithDiagnostics(Persisted("a").Ptr(), folders)
	if path != "B/A" {
		t.Errorf("path = %q, want %q", path, "B/A")
	}
	if diag == nil || diag.Kind != DiagCycle {
		t.Fatalf("diag = %+v, want cycle", diag)
	}
	if !errors.Is(diag.Err(), domain.ErrCorruptHierarchy) {
		t.Errorf("diag.Err() = %v, want ErrCorruptHierarchy", diag.Err())
	}

	// Self-parent
	self := []Folder{folder("s", "S", "s")}
	if got := BuildPathFromID(Persisted("s").Ptr(), self); got != "S" {
		t.Errorf("self-parent path = %q", got)
	}
}

func TestBuildPathFromID_DanglingAndDepth(t *testing.T) {
	dangling := []Folder{folder("c", "C", "gone")}
	path, diag := BuildPathFromIDWithDiagnostics(Persisted("c").Ptr(), dangling)
	if path != "C" || diag == nil || diag.Kind != DiagDanglingParent {
		t.Errorf("dangling: path=%q diag=%+v", path, diag)
	}

	// A chain deeper than MaxDepth
	var deep []Folder
	for i := 0; i < MaxDepth+20; i++ {
		parent := ""
		if i > 0 {
			parent = fmt.Sprintf("d%d", i-1)
		}
		deep = append(deep, folder(fmt.Sprintf("d%d", i), fmt.Sprintf("n%d", i), parent))
	}
	leaf := Persisted(fmt.Sprintf("d%d", MaxDepth+19))
	chain, diag := Ancestors(leaf, deep)
	if len(chain) != MaxDepth {
		t.Errorf("chain length = %d, want %d", len(chain), MaxDepth)
	}
	if diag == nil || diag.Kind != DiagDepthExceeded {
		t.Errorf("diag = %+v, want depth exceeded", diag)
	}
}

// Every folder of an acyclic tree round-trips through its path
func TestRoundTrip_RandomTrees(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	names := []string{"Reports", "2024", "Legal", "Q1 / Q2", "Café", "100%"}

	for trial := 0; trial < 50; trial++ {
		var folders []Folder
		used := make(map[string]bool) // parent|name, keeps sibling names unique
		for i := 0; i < 40; i++ {
			parent := ""
			if len(folders) > 0 && rng.Intn(4) > 0 {
				parent = folders[rng.Intn(len(folders))].ID.Value()
			}
			name := names[rng.Intn(len(names))]
			if used[parent+"|"+name] {
				name = fmt.Sprintf("%s-%d", name, i)
			}
			used[parent+"|"+name] = true
			folders = append(folders, folder(fmt.Sprintf("f%d", i), name, parent))
		}

		for _, f := range folders {
			path := BuildPathFromID(f.ID.Ptr(), folders)
			got, ok := ResolvePathToID(path, folders)
			if !ok || got != f.ID {
				t.Fatalf("trial %d: %s → %q → %v (ok=%v)", trial, f.ID, path, got, ok)
			}
		}
	}
}

func TestIsDescendant(t *testing.T) {
	folders, _ := acme()
	if !IsDescendant(Persisted("2024"), Persisted("reports"), folders) {
		t.Error("2024 is below Reports")
	}
	if !IsDescendant(Persisted("reports"), Persisted("reports"), folders) {
		t.Error("a folder counts as its own descendant")
	}
	if IsDescendant(Persisted("legal"), Persisted("reports"), folders) {
		t.Error("Legal is not below Reports")
	}
}
