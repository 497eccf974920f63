package models

import (
	"time"
)

type File struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	MimeType    string    `json:"mimeType" db:"mime_type"`
	SizeBytes   int64     `json:"fileSize" db:"file_size"`
	FolderID    *string   `json:"folderId" db:"folder_id"` // NULL = data room root
	DataRoomID  string    `json:"dataRoomId" db:"data_room_id"`
	OwnerID     string    `json:"userId,omitempty" db:"user_id"`
	StoragePath string    `json:"-" db:"file_path"` // Blob key, never exposed
	CreatedAt   time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time `json:"updatedAt" db:"updated_at"`
}
