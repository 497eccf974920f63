package models

import (
	"time"
)

type DataRoom struct {
	ID          string     `json:"id" db:"id"`
	Name        string     `json:"name" db:"name"`
	Description *string    `json:"description" db:"description"`
	OwnerID     string     `json:"ownerId" db:"user_id"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
	Count       *RoomCount `json:"_count,omitempty"`
}

// RoomCount counts the root-level entries of a data room
type RoomCount struct {
	Folders int `json:"folders"`
	Files   int `json:"files"`
}

// RoomRef is the short form of a data room embedded in other payloads
type RoomRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// RoomListing is the root view of a data room (GET /data-rooms/{id})
type RoomListing struct {
	DataRoom
	Folders []Folder `json:"folders"`
	Files   []File   `json:"files"`
}

// User is the authenticated caller as resolved from the access token
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}
