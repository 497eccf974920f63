package apiclient

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"dataroom/internal/domain"
)

// problem is the RFC 7807 body written by the server
type problem struct {
	Title        string `json:"title"`
	Status       int    `json:"status"`
	Detail       string `json:"detail"`
	ResourceType string `json:"resourceType"`
	ResourceID   string `json:"resourceId"`
}

// StatusError is a non-2xx response with no more specific domain error
type StatusError struct {
	Status  int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// decodeError maps an error response onto the domain error taxonomy
func decodeError(resp *http.Response) error {
	var p problem
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, &p); err != nil || p.Detail == "" {
		p.Detail = http.StatusText(resp.StatusCode)
	}

	switch status := resp.StatusCode; {
	case status == http.StatusBadRequest:
		return &domain.ValidationError{Message: p.Detail}
	case status == http.StatusUnauthorized:
		return &domain.UnauthorizedError{Message: p.Detail}
	case status == http.StatusForbidden:
		return &domain.ForbiddenError{Message: p.Detail}
	case status == http.StatusNotFound:
		return &domain.NotFoundError{Message: p.Detail}
	case status == http.StatusConflict:
		return &domain.ConflictError{Message: p.Detail, ResourceType: p.ResourceType, ResourceID: p.ResourceID}
	case status == http.StatusRequestEntityTooLarge:
		return &domain.TooLargeError{Message: p.Detail}
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return &domain.NetworkError{Err: &StatusError{Status: status, Message: p.Detail}}
	default:
		return &StatusError{Status: status, Message: p.Detail}
	}
}
