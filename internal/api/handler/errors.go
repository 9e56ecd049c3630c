package handler

import (
	"errors"
	"net/http"

	"github.com/crawd/crawd-server/internal/api/response"
	"github.com/crawd/crawd-server/internal/store"
)

// respondStoreError maps store failures to API responses. ErrNotFound covers
// both a missing row and a row owned by someone else; callers must not
// distinguish the two.
func respondStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
		return
	}
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Request failed", nil)
}
