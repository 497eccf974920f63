package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"dataroom/internal/cache"
	"dataroom/internal/domain"
	"dataroom/internal/domain/models"
	"dataroom/internal/events"
	"dataroom/internal/tree"
)

const roomID = "room-acme"

// fakeServer is an in-memory data room API. Writes can be held at a gate
// and made to fail, so tests can interleave mutations.
type fakeServer struct {
	mu       sync.Mutex
	seq      int
	room     models.DataRoom
	folders  []models.Folder
	files    []models.File
	gates    map[string]chan struct{}
	failures map[string]error
	calls    []string
	targets  map[string][]string
	started  chan string
}

// newFakeServer holds Acme: Reports/2024/Q1.pdf plus a Legal folder
func newFakeServer() *fakeServer {
	return &fakeServer{
		room: models.DataRoom{ID: roomID, Name: "Acme"},
		folders: []models.Folder{
			{ID: "reports", Name: "Reports", DataRoomID: roomID},
			{ID: "2024", Name: "2024", ParentID: strPtr("reports"), DataRoomID: roomID},
			{ID: "legal", Name: "Legal", DataRoomID: roomID},
		},
		files: []models.File{
			{ID: "q1", Name: "Q1.pdf", MimeType: "application/pdf", SizeBytes: 1024, FolderID: strPtr("2024"), DataRoomID: roomID},
		},
		gates:    map[string]chan struct{}{},
		failures: map[string]error{},
		targets:  map[string][]string{},
		started:  make(chan string, 64),
	}
}

func strPtr(s string) *string { return &s }

// gate holds every call of op until the returned func is called
func (s *fakeServer) gate(op string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[op] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

func (s *fakeServer) fail(op string, err error) {
	s.mu.Lock()
	s.failures[op] = err
	s.mu.Unlock()
}

func (s *fakeServer) count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		if c == op {
			n++
		}
	}
	return n
}

func (s *fakeServer) targetsOf(op string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.targets[op]...)
}

func (s *fakeServer) peekID(prefix string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fmt.Sprintf("%s-%d", prefix, s.seq+1)
}

func (s *fakeServer) read(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, op)
	return s.failures[op]
}

// enter records a write, announces it on started and waits at its gate
func (s *fakeServer) enter(ctx context.Context, op, target string) error {
	s.mu.Lock()
	s.calls = append(s.calls, op)
	s.targets[op] = append(s.targets[op], target)
	gate, err := s.gates[op], s.failures[op]
	s.mu.Unlock()

	select {
	case s.started <- op:
	default:
	}
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return &domain.NetworkError{Err: ctx.Err()}
		}
	}
	return err
}

func (s *fakeServer) waitStarted(t *testing.T, op string) {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case got := <-s.started:
			if got == op {
				return
			}
		case <-timeout:
			t.Fatalf("%s never reached the server", op)
		}
	}
}

func (s *fakeServer) countsLocked(id string) *models.FolderCount {
	c := &models.FolderCount{}
	for _, f := range s.folders {
		if f.ParentID != nil && *f.ParentID == id {
			c.Children++
		}
	}
	for _, f := range s.files {
		if f.FolderID != nil && *f.FolderID == id {
			c.Files++
		}
	}
	return c
}

func (s *fakeServer) childrenLocked(parent *string) ([]models.Folder, []models.File) {
	var folders []models.Folder
	var files []models.File
	for _, f := range s.folders {
		if sameParent(f.ParentID, parent) {
			f.Count = s.countsLocked(f.ID)
			folders = append(folders, f)
		}
	}
	for _, f := range s.files {
		if sameParent(f.FolderID, parent) {
			files = append(files, f)
		}
	}
	return folders, files
}

func sameParent(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (s *fakeServer) folderIndexLocked(id string) int {
	for i, f := range s.folders {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *fakeServer) fileIndexLocked(id string) int {
	for i, f := range s.files {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (s *fakeServer) GetListing(ctx context.Context, roomID string) (*models.RoomListing, error) {
	if err := s.read("GetListing"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	folders, files := s.childrenLocked(nil)
	return &models.RoomListing{DataRoom: s.room, Folders: folders, Files: files}, nil
}

func (s *fakeServer) ListFolders(ctx context.Context, roomID string) ([]models.Folder, error) {
	if err := s.read("ListFolders"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Folder(nil), s.folders...), nil
}

func (s *fakeServer) ListFiles(ctx context.Context, roomID string) ([]models.File, error) {
	if err := s.read("ListFiles"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.File(nil), s.files...), nil
}

func (s *fakeServer) GetContents(ctx context.Context, folderID string) (*models.FolderContents, error) {
	if err := s.read("GetContents"); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.folderIndexLocked(folderID)
	if i < 0 {
		return nil, &domain.NotFoundError{Message: "folder not found"}
	}
	folder := s.folders[i]
	folder.Count = s.countsLocked(folderID)
	children, files := s.childrenLocked(&folderID)
	return &models.FolderContents{
		Folder:   folder,
		DataRoom: models.RoomRef{ID: s.room.ID, Name: s.room.Name},
		Children: children,
		Files:    files,
	}, nil
}

func (s *fakeServer) CreateFolder(ctx context.Context, roomID string, parentID *string, name string) (*models.Folder, error) {
	if err := s.enter(ctx, "CreateFolder", name); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f := models.Folder{ID: fmt.Sprintf("folder-%d", s.seq), Name: name, DataRoomID: roomID}
	if parentID != nil {
		f.ParentID = strPtr(*parentID)
	}
	s.folders = append(s.folders, f)
	return &f, nil
}

func (s *fakeServer) RenameFolder(ctx context.Context, folderID, name string) (*models.Folder, error) {
	if err := s.enter(ctx, "RenameFolder", folderID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.folderIndexLocked(folderID)
	if i < 0 {
		return nil, &domain.NotFoundError{Message: "folder not found"}
	}
	s.folders[i].Name = name
	f := s.folders[i]
	return &f, nil
}

func (s *fakeServer) MoveFolder(ctx context.Context, folderID string, newParentID *string) (*models.Folder, error) {
	if err := s.enter(ctx, "MoveFolder", folderID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.folderIndexLocked(folderID)
	if i < 0 {
		return nil, &domain.NotFoundError{Message: "folder not found"}
	}
	s.folders[i].ParentID = nil
	if newParentID != nil {
		s.folders[i].ParentID = strPtr(*newParentID)
	}
	f := s.folders[i]
	return &f, nil
}

func (s *fakeServer) DeleteFolder(ctx context.Context, folderID string) error {
	if err := s.enter(ctx, "DeleteFolder", folderID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.folderIndexLocked(folderID) < 0 {
		return &domain.NotFoundError{Message: "folder not found"}
	}
	doomed := map[string]bool{folderID: true}
	for grew := true; grew; {
		grew = false
		for _, f := range s.folders {
			if f.ParentID != nil && doomed[*f.ParentID] && !doomed[f.ID] {
				doomed[f.ID], grew = true, true
			}
		}
	}
	var folders []models.Folder
	for _, f := range s.folders {
		if !doomed[f.ID] {
			folders = append(folders, f)
		}
	}
	var files []models.File
	for _, f := range s.files {
		if f.FolderID == nil || !doomed[*f.FolderID] {
			files = append(files, f)
		}
	}
	s.folders, s.files = folders, files
	return nil
}

func (s *fakeServer) UploadFile(ctx context.Context, roomID string, folderID *string, name, mimeType string, content io.Reader) (*models.File, error) {
	if err := s.enter(ctx, "UploadFile", name); err != nil {
		return nil, err
	}
	b, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	f := models.File{
		ID:         fmt.Sprintf("file-%d", s.seq),
		Name:       name,
		MimeType:   mimeType,
		SizeBytes:  int64(len(b)),
		DataRoomID: roomID,
	}
	if folderID != nil {
		f.FolderID = strPtr(*folderID)
	}
	s.files = append(s.files, f)
	return &f, nil
}

func (s *fakeServer) RenameFile(ctx context.Context, fileID, name string) (*models.File, error) {
	if err := s.enter(ctx, "RenameFile", fileID); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.fileIndexLocked(fileID)
	if i < 0 {
		return nil, &domain.NotFoundError{Message: "file not found"}
	}
	s.files[i].Name = name
	f := s.files[i]
	return &f, nil
}

func (s *fakeServer) DeleteFile(ctx context.Context, fileID string) error {
	if err := s.enter(ctx, "DeleteFile", fileID); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.fileIndexLocked(fileID)
	if i < 0 {
		return &domain.NotFoundError{Message: "file not found"}
	}
	s.files = append(s.files[:i:i], s.files[i+1:]...)
	return nil
}

// harness

func newTestEngine(t *testing.T, srv *fakeServer) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(srv, cache.NewStore(logger), events.NewBus(logger), tree.RoomRef{ID: roomID, Name: "Acme"}, logger)
}

// preload reads every view a UI showing Acme/Reports/2024 would hold
func preload(t *testing.T, e *Engine) {
	t.Helper()
	ctx := context.Background()
	if _, err := e.Folders(ctx); err != nil {
		t.Fatalf("Folders: %v", err)
	}
	if _, err := e.Files(ctx); err != nil {
		t.Fatalf("Files: %v", err)
	}
	if _, err := e.Listing(ctx); err != nil {
		t.Fatalf("Listing: %v", err)
	}
	for _, id := range []string{"reports", "2024"} {
		if _, err := e.Contents(ctx, tree.Persisted(id)); err != nil {
			t.Fatalf("Contents(%s): %v", id, err)
		}
	}
}

func views(e *Engine) map[cache.Key]any {
	out := make(map[cache.Key]any)
	for _, k := range e.store.Keys(cache.InRoom(e.room.ID)) {
		v, _ := e.store.Get(k)
		out[k] = v
	}
	return out
}

func assertNoPending(t *testing.T, e *Engine) {
	t.Helper()
	for k, v := range views(e) {
		pending := false
		switch v := v.(type) {
		case []tree.Folder:
			pending = tree.HasPending(v)
		case []tree.File:
			pending = tree.HasPending(v)
		case tree.Listing:
			pending = tree.HasPending(v.Folders) || tree.HasPending(v.Files)
		case tree.Contents:
			pending = v.Folder.ID.IsPending() || tree.HasPending(v.Children) || tree.HasPending(v.Files)
		}
		if pending {
			t.Errorf("view %s still holds a temporary id: %+v", k, v)
		}
	}
}

func assertSettled(t *testing.T, e *Engine) {
	t.Helper()
	for _, k := range e.store.Keys(nil) {
		if e.store.IsHeld(k) {
			t.Errorf("view %s still held", k)
		}
	}
}

func cachedFolders(t *testing.T, e *Engine) []tree.Folder {
	t.Helper()
	all, ok := cache.Value[[]tree.Folder](e.store, cache.FoldersKey(roomID))
	if !ok {
		t.Fatal("folder list not cached")
	}
	return all
}

func findByName(all []tree.Folder, name string) []tree.Folder {
	var out []tree.Folder
	for _, f := range all {
		if f.Name == name {
			out = append(out, f)
		}
	}
	return out
}

func eventually(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s", what)
		}
		time.Sleep(time.Millisecond)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func record(e *Engine) *recorder {
	r := &recorder{}
	e.Events().SubscribeAll(func(ev events.Event) {
		r.mu.Lock()
		r.events = append(r.events, ev)
		r.mu.Unlock()
	})
	return r
}

func (r *recorder) last() events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return events.Event{}
	}
	return r.events[len(r.events)-1]
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

type folderResult struct {
	folder tree.Folder
	err    error
}

func goCreate(e *Engine, name string, parent *tree.ID) <-chan folderResult {
	ch := make(chan folderResult, 1)
	go func() {
		f, err := e.CreateFolder(context.Background(), name, parent)
		ch <- folderResult{f, err}
	}()
	return ch
}

func goRename(e *Engine, id tree.ID, name string) <-chan folderResult {
	ch := make(chan folderResult, 1)
	go func() {
		f, err := e.RenameFolder(context.Background(), id, name)
		ch <- folderResult{f, err}
	}()
	return ch
}

func goDelete(e *Engine, id tree.ID) <-chan error {
	ch := make(chan error, 1)
	go func() { ch <- e.DeleteFolder(context.Background(), id) }()
	return ch
}
