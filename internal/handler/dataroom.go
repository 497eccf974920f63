package handler

import (
	"log/slog"
	"net/http"

	"dataroom/internal/domain/services"
	"dataroom/internal/httputil"
)

// DataRoomHandler handles data room HTTP requests
type DataRoomHandler struct {
	roomService services.DataRoomService
	logger      *slog.Logger
}

// NewDataRoomHandler creates a new data room handler
func NewDataRoomHandler(roomService services.DataRoomService, logger *slog.Logger) *DataRoomHandler {
	return &DataRoomHandler{
		roomService: roomService,
		logger:      logger,
	}
}

// GetDataRoom returns the caller's data room, creating it on first use
// GET /api/data-rooms
func (h *DataRoomHandler) GetDataRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	room, err := h.roomService.GetOrCreate(r.Context(), user)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, room)
}

// SaveDataRoom creates or renames the caller's data room
// POST /api/data-rooms
func (h *DataRoomHandler) SaveDataRoom(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	var req services.DataRoomRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	room, err := h.roomService.Upsert(r.Context(), user, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, room)
}

// GetListing returns the root folders and files of a data room
// GET /api/data-rooms/{id}
func (h *DataRoomHandler) GetListing(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "data room")
	if !ok {
		return
	}

	listing, err := h.roomService.GetListing(r.Context(), user.ID, id)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, listing)
}
