package cache

import "fmt"

// SlotKind names one kind of cached view
type SlotKind string

const (
	// All folders of a data room, flat
	SlotFolders SlotKind = "folders"
	// All files of a data room, flat
	SlotFiles SlotKind = "files"
	// One folder with its children and files
	SlotContents SlotKind = "contents"
	// The data room root listing
	SlotRoot SlotKind = "root"
)

// Key addresses a view slot. Folder is only set for SlotContents.
type Key struct {
	Kind   SlotKind
	Room   string
	Folder string
}

func FoldersKey(roomID string) Key { return Key{Kind: SlotFolders, Room: roomID} }

func FilesKey(roomID string) Key { return Key{Kind: SlotFiles, Room: roomID} }

func RootKey(roomID string) Key { return Key{Kind: SlotRoot, Room: roomID} }

func ContentsKey(roomID, folderID string) Key {
	return Key{Kind: SlotContents, Room: roomID, Folder: folderID}
}

func (k Key) String() string {
	if k.Folder != "" {
		return fmt.Sprintf("%s:%s:%s", k.Kind, k.Room, k.Folder)
	}
	return fmt.Sprintf("%s:%s", k.Kind, k.Room)
}

// InRoom matches every slot of a data room
func InRoom(roomID string) func(Key) bool {
	return func(k Key) bool { return k.Room == roomID }
}

// OfKind matches every slot of one kind in a data room
func OfKind(roomID string, kind SlotKind) func(Key) bool {
	return func(k Key) bool { return k.Room == roomID && k.Kind == kind }
}
