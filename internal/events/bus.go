package events

import (
	"log/slog"
	"sort"
	"sync"

	"dataroom/internal/domain"
)

// Kind names an event type
type Kind string

const (
	FolderCreated  Kind = "folder.created"
	FolderRenamed  Kind = "folder.renamed"
	FolderMoved    Kind = "folder.moved"
	FolderDeleted  Kind = "folder.deleted"
	FileUploaded   Kind = "file.uploaded"
	FileRenamed    Kind = "file.renamed"
	FileDeleted    Kind = "file.deleted"
	MutationFailed Kind = "mutation.failed"
)

// Event describes a settled mutation
type Event struct {
	Kind       Kind
	DataRoomID string
	// Server ID of the affected folder or file (empty if never persisted)
	ItemID string
	// Temporary ID used while the mutation was in flight, if any
	TempID string
	Name   string
	// Operation that failed (MutationFailed only)
	Op       string
	Err      error
	Category domain.Category
}

// Message is the user-facing text of a failure
func (e Event) Message() string {
	return e.Category.Message()
}

// Handler receives events synchronously on the publishing goroutine
type Handler func(Event)

// Bus is a publish/subscribe channel keyed by event kind. The mutation
// engine publishes; views subscribe without the engine knowing them.
type Bus struct {
	mu     sync.RWMutex
	subs   map[Kind]map[uint64]Handler
	all    map[uint64]Handler
	next   uint64
	logger *slog.Logger
}

func NewBus(logger *slog.Logger) *Bus {
	return &Bus{
		subs:   make(map[Kind]map[uint64]Handler),
		all:    make(map[uint64]Handler),
		logger: logger,
	}
}

// Subscribe registers h for one kind and returns its unsubscribe func
func (b *Bus) Subscribe(kind Kind, h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	if b.subs[kind] == nil {
		b.subs[kind] = make(map[uint64]Handler)
	}
	b.subs[kind][id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.subs[kind], id)
	}
}

// SubscribeAll registers h for every kind
func (b *Bus) SubscribeAll(h Handler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.next++
	id := b.next
	b.all[id] = h
	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(b.all, id)
	}
}

// Publish delivers e to its subscribers in subscription order. A panicking
// handler is logged and does not stop delivery.
func (b *Bus) Publish(e Event) {
	b.mu.RLock()
	type sub struct {
		id uint64
		h  Handler
	}
	var subs []sub
	for id, h := range b.subs[e.Kind] {
		subs = append(subs, sub{id, h})
	}
	for id, h := range b.all {
		subs = append(subs, sub{id, h})
	}
	b.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].id < subs[j].id })
	for _, s := range subs {
		b.deliver(s.h, e)
	}
}

func (b *Bus) deliver(h Handler, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panicked", "kind", e.Kind, "panic", r)
		}
	}()
	h(e)
}
