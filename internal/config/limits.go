package config

import "time"

const (
	// MinDataRoomNameLength is the minimum length for data room names.
	MinDataRoomNameLength = 3

	// MaxDataRoomNameLength is the maximum length for data room names.
	MaxDataRoomNameLength = 100

	// MaxFolderNameLength is the maximum length for folder names.
	MaxFolderNameLength = 100

	// MaxFileNameLength is the maximum length for file names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxFileNameLength = 255

	// MaxUploadBytes caps a single upload at 4.5MB, the largest body the
	// hosting platform accepts in one request.
	MaxUploadBytes = 4.5 * 1024 * 1024

	// MaxTreeDepth bounds every parent-chain walk over folder data.
	MaxTreeDepth = 100
)

const (
	// MaxFailedAuthAttempts is how many bad tokens one client may send
	// within FailedAuthWindow before it is turned away with 429.
	MaxFailedAuthAttempts = 10

	// FailedAuthWindow is the period over which failed attempts refill.
	FailedAuthWindow = 5 * time.Minute
)
