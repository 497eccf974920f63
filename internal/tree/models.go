package tree

import (
	"time"

	"dataroom/internal/domain/models"
)

// Folder is the client-side view of a folder record
type Folder struct {
	ID         ID
	Name       string
	ParentID   *ID // nil = root level of the data room
	DataRoomID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	Count      *models.FolderCount
}

// File is the client-side view of a file record
type File struct {
	ID         ID
	Name       string
	MimeType   string
	SizeBytes  int64
	FolderID   *ID // nil = data room root
	DataRoomID string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Key returns the record identity
func (f Folder) Key() ID { return f.ID }

// Key returns the record identity
func (f File) Key() ID { return f.ID }

// RoomRef names a data room
type RoomRef struct {
	ID   string
	Name string
}

// Contents is one folder with its immediate children
type Contents struct {
	Folder   Folder
	Children []Folder
	Files    []File
}

// Listing is the root level of a data room
type Listing struct {
	Room    RoomRef
	Folders []Folder
	Files   []File
}

func FolderFromModel(m models.Folder) Folder {
	return Folder{
		ID:         Persisted(m.ID),
		Name:       m.Name,
		ParentID:   PersistedPtr(m.ParentID),
		DataRoomID: m.DataRoomID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
		Count:      m.Count,
	}
}

func FileFromModel(m models.File) File {
	return File{
		ID:         Persisted(m.ID),
		Name:       m.Name,
		MimeType:   m.MimeType,
		SizeBytes:  m.SizeBytes,
		FolderID:   PersistedPtr(m.FolderID),
		DataRoomID: m.DataRoomID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}

func FoldersFromModels(ms []models.Folder) []Folder {
	out := make([]Folder, 0, len(ms))
	for _, m := range ms {
		out = append(out, FolderFromModel(m))
	}
	return out
}

func FilesFromModels(ms []models.File) []File {
	out := make([]File, 0, len(ms))
	for _, m := range ms {
		out = append(out, FileFromModel(m))
	}
	return out
}

func ContentsFromModel(m *models.FolderContents) Contents {
	return Contents{
		Folder:   FolderFromModel(m.Folder),
		Children: FoldersFromModels(m.Children),
		Files:    FilesFromModels(m.Files),
	}
}

func ListingFromModel(m *models.RoomListing) Listing {
	return Listing{
		Room:    RoomRef{ID: m.ID, Name: m.Name},
		Folders: FoldersFromModels(m.Folders),
		Files:   FilesFromModels(m.Files),
	}
}
