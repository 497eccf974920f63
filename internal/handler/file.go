package handler

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strconv"

	"dataroom/internal/config"
	"dataroom/internal/domain/services"
	"dataroom/internal/httputil"
)

// multipartSlack covers multipart headers and the text fields around the file part
const multipartSlack = 1 << 20

// FileHandler handles file HTTP requests
type FileHandler struct {
	fileService services.FileService
	logger      *slog.Logger
}

// NewFileHandler creates a new file handler
func NewFileHandler(fileService services.FileService, logger *slog.Logger) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		logger:      logger,
	}
}

// ListFiles lists files of a folder or a whole data room
// GET /api/files?dataRoomId=|folderId=
func (h *FileHandler) ListFiles(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	files, err := h.fileService.ListFiles(r.Context(), user.ID,
		httputil.QueryParam(r, "dataRoomId"),
		httputil.QueryParam(r, "folderId"),
	)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, files)
}

// UploadFile stores a multipart upload
// POST /api/files/upload (fields: file, dataRoomId, folderId, name)
func (h *FileHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, config.MaxUploadBytes+multipartSlack)
	if err := r.ParseMultipartForm(config.MaxUploadBytes + multipartSlack); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			httputil.RespondError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}
		httputil.RespondError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	part, header, err := r.FormFile("file")
	if err != nil {
		httputil.RespondError(w, http.StatusBadRequest, "no file provided")
		return
	}
	defer part.Close()

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}

	req := &services.UploadFileRequest{
		DataRoomID: r.FormValue("dataRoomId"),
		FolderID:   optionalForm(r, "folderId"),
		Name:       name,
		MimeType:   header.Header.Get("Content-Type"),
		SizeBytes:  header.Size,
		Content:    part,
	}

	file, err := h.fileService.UploadFile(r.Context(), user.ID, req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusCreated, file)
}

// RenameFile renames a file
// PUT /api/files/{id}
func (h *FileHandler) RenameFile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "file")
	if !ok {
		return
	}

	var req services.RenameRequest
	if err := httputil.ParseJSON(w, r, &req); err != nil {
		httputil.RespondError(w, http.StatusBadRequest, err.Error())
		return
	}

	file, err := h.fileService.RenameFile(r.Context(), user.ID, id, &req)
	if err != nil {
		handleError(w, err)
		return
	}

	httputil.RespondJSON(w, http.StatusOK, file)
}

// ViewFile streams the stored bytes
// GET /api/files/{id}/view
func (h *FileHandler) ViewFile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "file")
	if !ok {
		return
	}

	file, content, err := h.fileService.OpenFile(r.Context(), user.ID, id)
	if err != nil {
		handleError(w, err)
		return
	}
	defer content.Close()

	w.Header().Set("Content-Type", file.MimeType)
	w.Header().Set("Content-Length", strconv.FormatInt(file.SizeBytes, 10))
	w.Header().Set("Content-Disposition", mime.FormatMediaType("inline", map[string]string{"filename": file.Name}))
	w.WriteHeader(http.StatusOK)

	if _, err := io.Copy(w, content); err != nil {
		h.logger.Warn("file stream interrupted", "id", file.ID, "error", err)
	}
}

// DeleteFile deletes a file
// DELETE /api/files/{id}
func (h *FileHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	id, ok := pathID(w, r, "file")
	if !ok {
		return
	}

	if err := h.fileService.DeleteFile(r.Context(), user.ID, id); err != nil {
		handleError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck reports liveness
// GET /health
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func optionalForm(r *http.Request, name string) *string {
	v := r.FormValue(name)
	if v == "" || v == "null" {
		return nil
	}
	return &v
}
