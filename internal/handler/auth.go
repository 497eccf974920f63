package handler

import (
	"net/http"

	"dataroom/internal/httputil"
)

// CurrentUser returns the authenticated caller
// GET /api/auth/me
func CurrentUser(w http.ResponseWriter, r *http.Request) {
	user, ok := requireUser(w, r)
	if !ok {
		return
	}
	httputil.RespondJSON(w, http.StatusOK, user)
}
