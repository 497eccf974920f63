package handler

import "net/http"

// Handlers groups the HTTP handlers served by cmd/server
type Handlers struct {
	DataRooms *DataRoomHandler
	Folders   *FolderHandler
	Files     *FileHandler
}

// RegisterRoutes registers every API route on mux (Go 1.22+ patterns)
func RegisterRoutes(mux *http.ServeMux, h Handlers) {
	mux.HandleFunc("GET /health", HealthCheck)
	mux.HandleFunc("GET /api/auth/me", CurrentUser)

	// Data room routes
	mux.HandleFunc("GET /api/data-rooms", h.DataRooms.GetDataRoom)
	mux.HandleFunc("POST /api/data-rooms", h.DataRooms.SaveDataRoom)
	mux.HandleFunc("GET /api/data-rooms/{id}", h.DataRooms.GetListing)

	// Folder routes
	mux.HandleFunc("GET /api/folders", h.Folders.ListFolders)
	mux.HandleFunc("POST /api/folders", h.Folders.CreateFolder)
	mux.HandleFunc("GET /api/folders/{id}/contents", h.Folders.GetContents)
	mux.HandleFunc("GET /api/folders/{id}/tree", h.Folders.GetTrail)
	mux.HandleFunc("PATCH /api/folders/{id}/rename", h.Folders.RenameFolder)
	mux.HandleFunc("PATCH /api/folders/{id}/move", h.Folders.MoveFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.Folders.DeleteFolder)

	// File routes
	mux.HandleFunc("GET /api/files", h.Files.ListFiles)
	mux.HandleFunc("POST /api/files/upload", h.Files.UploadFile)
	mux.HandleFunc("PUT /api/files/{id}", h.Files.RenameFile)
	mux.HandleFunc("GET /api/files/{id}/view", h.Files.ViewFile)
	mux.HandleFunc("DELETE /api/files/{id}", h.Files.DeleteFile)
}
