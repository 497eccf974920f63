package models

import (
	"time"
)

type Folder struct {
	ID         string       `json:"id" db:"id"`
	Name       string       `json:"name" db:"name"`
	ParentID   *string      `json:"parentId" db:"parent_folder_id"` // NULL = root level of the data room
	DataRoomID string       `json:"dataRoomId" db:"data_room_id"`
	OwnerID    string       `json:"userId,omitempty" db:"user_id"`
	CreatedAt  time.Time    `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time    `json:"updatedAt" db:"updated_at"`
	Count      *FolderCount `json:"_count,omitempty"` // Only filled by listing queries
}

// FolderCount holds the immediate child counts of a folder
type FolderCount struct {
	Children int `json:"children"`
	Files    int `json:"files"`
}

// FolderContents is one folder with its immediate children and files
type FolderContents struct {
	Folder   Folder   `json:"folder"`
	DataRoom RoomRef  `json:"dataRoom"`
	Children []Folder `json:"children"`
	Files    []File   `json:"files"`
}

// Breadcrumb is one ancestor entry returned by the folder tree endpoint
type Breadcrumb struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	ParentID *string `json:"parentId"`
}

// FolderTrail is the response of GET /folders/{id}/tree
type FolderTrail struct {
	CurrentFolder Folder       `json:"currentFolder"`
	DataRoom      RoomRef      `json:"dataRoom"`
	Breadcrumb    []Breadcrumb `json:"breadcrumb"`
	// Set when the walk stopped on a repeated or missing ancestor
	Truncated bool `json:"truncated,omitempty"`
}
