package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/bookmark-enricher/internal/domain"
	"github.com/phrazzld/bookmark-enricher/internal/store"
	"github.com/stretchr/testify/assert"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		status  int
		message string
	}{
		{"bookmark not found", store.ErrBookmarkNotFound, http.StatusNotFound, "Bookmark not found"},
		{"wrapped not found", fmt.Errorf("load: %w", store.ErrCategoryNotFound), http.StatusNotFound, "Resource not found"},
		{"invalid id", domain.ErrInvalidID, http.StatusBadRequest, "Invalid ID"},
		{"validation", domain.ErrValidation, http.StatusBadRequest, "Invalid request"},
		{"invalid entity", store.ErrInvalidEntity, http.StatusBadRequest, "Invalid request"},
		{"unknown", errors.New("pq: connection refused"), http.StatusInternalServerError, "An unexpected error occurred"},
		{"nil", nil, http.StatusInternalServerError, "An unexpected error occurred"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.status, MapErrorToStatusCode(tt.err))
			assert.Equal(t, tt.message, GetSafeErrorMessage(tt.err))
		})
	}
}

func TestHandleAPIError_ServerMessageIsGeneric(t *testing.T) {
	t.Parallel()

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	HandleAPIError(w, r, errors.New("secret dsn"), "custom")

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "custom")
	assert.NotContains(t, w.Body.String(), "secret")
}

func TestGetPathUUID(t *testing.T) {
	t.Parallel()

	withParam := func(value string) *http.Request {
		rctx := chi.NewRouteContext()
		rctx.URLParams.Add("bookmarkID", value)
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
	}

	id, err := getPathUUID(withParam("7d444840-9dc0-11d1-b245-5ffdce74fad2"), "bookmarkID")
	assert.NoError(t, err)
	assert.Equal(t, "7d444840-9dc0-11d1-b245-5ffdce74fad2", id.String())

	_, err = getPathUUID(withParam(""), "bookmarkID")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = getPathUUID(withParam("nope"), "bookmarkID")
	assert.ErrorIs(t, err, domain.ErrInvalidID)

	_, err = getPathUUID(withParam("00000000-0000-0000-0000-000000000000"), "bookmarkID")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
