package apiclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"

	"dataroom/internal/domain/models"
)

// GetDataRoom returns the caller's data room, creating it on first use
func (c *Client) GetDataRoom(ctx context.Context) (*models.DataRoom, error) {
	var room models.DataRoom
	if err := c.do(ctx, request{method: http.MethodGet, path: "/data-rooms"}, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Me returns the authenticated caller
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if err := c.do(ctx, request{method: http.MethodGet, path: "/auth/me"}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetListing returns the root level of a data room
func (c *Client) GetListing(ctx context.Context, roomID string) (*models.RoomListing, error) {
	var listing models.RoomListing
	path := "/data-rooms/" + url.PathEscape(roomID)
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &listing); err != nil {
		return nil, err
	}
	return &listing, nil
}

// ListFolders returns every folder of a data room
func (c *Client) ListFolders(ctx context.Context, roomID string) ([]models.Folder, error) {
	var folders []models.Folder
	path := "/folders?dataRoomId=" + url.QueryEscape(roomID)
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &folders); err != nil {
		return nil, err
	}
	return folders, nil
}

// ListFiles returns every file of a data room
func (c *Client) ListFiles(ctx context.Context, roomID string) ([]models.File, error) {
	var files []models.File
	path := "/files?dataRoomId=" + url.QueryEscape(roomID)
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &files); err != nil {
		return nil, err
	}
	return files, nil
}

// GetContents returns a folder with its children and files
func (c *Client) GetContents(ctx context.Context, folderID string) (*models.FolderContents, error) {
	var contents models.FolderContents
	path := "/folders/" + url.PathEscape(folderID) + "/contents"
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &contents); err != nil {
		return nil, err
	}
	return &contents, nil
}

// GetTrail returns the server-built breadcrumb of a folder
func (c *Client) GetTrail(ctx context.Context, folderID string) (*models.FolderTrail, error) {
	var trail models.FolderTrail
	path := "/folders/" + url.PathEscape(folderID) + "/tree"
	if err := c.do(ctx, request{method: http.MethodGet, path: path}, &trail); err != nil {
		return nil, err
	}
	return &trail, nil
}

func (c *Client) CreateFolder(ctx context.Context, roomID string, parentID *string, name string) (*models.Folder, error) {
	req, err := jsonRequest(http.MethodPost, "/folders", map[string]any{
		"name":       name,
		"parentId":   parentID,
		"dataRoomId": roomID,
	})
	if err != nil {
		return nil, err
	}
	var folder models.Folder
	if err := c.do(ctx, req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

func (c *Client) RenameFolder(ctx context.Context, folderID, name string) (*models.Folder, error) {
	req, err := jsonRequest(http.MethodPatch, "/folders/"+url.PathEscape(folderID)+"/rename", map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var folder models.Folder
	if err := c.do(ctx, req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// MoveFolder moves a folder under newParentID; nil moves it to the root
func (c *Client) MoveFolder(ctx context.Context, folderID string, newParentID *string) (*models.Folder, error) {
	req, err := jsonRequest(http.MethodPatch, "/folders/"+url.PathEscape(folderID)+"/move", map[string]any{"newParentId": newParentID})
	if err != nil {
		return nil, err
	}
	var folder models.Folder
	if err := c.do(ctx, req, &folder); err != nil {
		return nil, err
	}
	return &folder, nil
}

// DeleteFolder deletes a folder and everything below it
func (c *Client) DeleteFolder(ctx context.Context, folderID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/folders/" + url.PathEscape(folderID)}, nil)
}

// UploadFile sends a file as multipart form data
func (c *Client) UploadFile(ctx context.Context, roomID string, folderID *string, name, mimeType string, content io.Reader) (*models.File, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	mw.WriteField("dataRoomId", roomID)
	mw.WriteField("name", name)
	if folderID != nil {
		mw.WriteField("folderId", *folderID)
	}

	header := make(textproto.MIMEHeader)
	header["Content-Disposition"] = []string{fmt.Sprintf(`form-data; name="file"; filename=%q`, name)}
	if mimeType != "" {
		header["Content-Type"] = []string{mimeType}
	}
	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("read upload content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("build upload: %w", err)
	}

	req := request{
		method:      http.MethodPost,
		path:        "/files/upload",
		body:        buf.Bytes(),
		contentType: mw.FormDataContentType(),
	}
	var file models.File
	if err := c.do(ctx, req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *Client) RenameFile(ctx context.Context, fileID, name string) (*models.File, error) {
	req, err := jsonRequest(http.MethodPut, "/files/"+url.PathEscape(fileID), map[string]string{"name": name})
	if err != nil {
		return nil, err
	}
	var file models.File
	if err := c.do(ctx, req, &file); err != nil {
		return nil, err
	}
	return &file, nil
}

func (c *Client) DeleteFile(ctx context.Context, fileID string) error {
	return c.do(ctx, request{method: http.MethodDelete, path: "/files/" + url.PathEscape(fileID)}, nil)
}

// OpenFile streams a file's bytes. The caller closes the reader.
func (c *Client) OpenFile(ctx context.Context, fileID string) (io.ReadCloser, string, error) {
	resp, err := c.send(ctx, request{method: http.MethodGet, path: "/files/" + url.PathEscape(fileID) + "/view"})
	if err != nil {
		return nil, "", err
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}
