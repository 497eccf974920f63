package tree

// RootPath is the link target of the data room entry
const RootPath = "/"

// FolderRoutePrefix prefixes every folder link
const FolderRoutePrefix = "/folders/"

// Crumb is one breadcrumb entry. ID is nil for the data room entry.
// Path is empty when the entry's location is unknown: the current entry
// of a trail degraded for want of a folder list. That entry is never a
// link, so nothing navigates to the empty path.
type Crumb struct {
	ID      *ID
	Name    string
	Path    string
	Current bool
}

// Navigable reports whether the entry renders as a link
func (c Crumb) Navigable() bool { return !c.Current }

// Trail is an ordered root→leaf breadcrumb. Diagnostic is set when the
// ancestor walk stopped on corrupt data; the crumbs are still usable.
type Trail struct {
	Crumbs     []Crumb
	Diagnostic *Diagnostic
}

// FolderRef is the folder being displayed. Name is used when the folder
// list is unavailable or does not contain the folder.
type FolderRef struct {
	ID   ID
	Name string
}

// FolderPath returns the route for an encoded folder path
func FolderPath(encoded string) string {
	return FolderRoutePrefix + encoded
}

// BuildBreadcrumbs returns the trail from the data room root down to current.
// With current nil the room itself is the current entry. When haveList is
// false, or the folder is missing from the list, the trail degrades to the
// room plus the current folder's name.
func BuildBreadcrumbs(room RoomRef, current *FolderRef, all []Folder, haveList bool) Trail {
	roomCrumb := Crumb{Name: room.Name, Path: RootPath}
	if current == nil {
		roomCrumb.Current = true
		return Trail{Crumbs: []Crumb{roomCrumb}}
	}

	var chain []Folder
	var diag *Diagnostic
	if haveList {
		chain, diag = Ancestors(current.ID, all)
	}

	if len(chain) == 0 {
		if current.Name == "" {
			roomCrumb.Current = true
			return Trail{Crumbs: []Crumb{roomCrumb}}
		}
		return Trail{Crumbs: []Crumb{
			roomCrumb,
			{ID: current.ID.Ptr(), Name: current.Name, Current: true},
		}}
	}

	crumbs := make([]Crumb, 0, len(chain)+1)
	crumbs = append(crumbs, roomCrumb)
	names := make([]string, 0, len(chain))
	for _, f := range chain {
		names = append(names, f.Name)
		crumbs = append(crumbs, Crumb{
			ID:   f.ID.Ptr(),
			Name: f.Name,
			Path: FolderPath(BuildPath(names)),
		})
	}
	crumbs[len(crumbs)-1].Current = true
	return Trail{Crumbs: crumbs, Diagnostic: diag}
}

// Collapse is the overflow layout of a trail: entries [HiddenFrom, HiddenTo)
// sit behind a single disclosure.
type Collapse struct {
	Visible    []int
	HiddenFrom int
	HiddenTo   int
}

// Collapsed reports whether any entry is hidden
func (c Collapse) Collapsed() bool { return c.HiddenTo > c.HiddenFrom }

// CollapseTrail fits rendered entry widths into available width. The first
// and last entries always stay visible. When the trail overflows, a
// contiguous middle run is hidden behind one disclosure of width ellipsis,
// keeping whichever side (entries after the root, or entries before the
// current one) shows more. Ties keep the entries nearest the current one.
func CollapseTrail(widths []int, available, ellipsis int) Collapse {
	n := len(widths)
	total := 0
	for _, w := range widths {
		total += w
	}
	if n <= 2 || total <= available {
		return Collapse{Visible: seq(0, n)}
	}

	budget := available - widths[0] - widths[n-1] - ellipsis

	fromStart, used := 0, 0
	for i := 1; i < n-1 && used+widths[i] <= budget; i++ {
		used += widths[i]
		fromStart++
	}
	fromEnd, used := 0, 0
	for i := n - 2; i > 0 && used+widths[i] <= budget; i-- {
		used += widths[i]
		fromEnd++
	}

	var c Collapse
	if fromStart > fromEnd {
		c.HiddenFrom, c.HiddenTo = 1+fromStart, n-1
	} else {
		c.HiddenFrom, c.HiddenTo = 1, n-1-fromEnd
	}
	c.Visible = append(seq(0, c.HiddenFrom), seq(c.HiddenTo, n)...)
	return c
}

func seq(from, to int) []int {
	out := make([]int, 0, to-from)
	for i := from; i < to; i++ {
		out = append(out, i)
	}
	return out
}
