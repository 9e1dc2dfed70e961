package validation

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	got, err := ParseDate("2024-01-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC), got)

	for _, bad := range []string{"", "2024-1-15", "15-01-2024", "2024-02-30", "2024-01-15T00:00:00Z"} {
		_, err := ParseDate(bad)
		assert.Error(t, err, bad)
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		query    string
		page     int
		size     int
		hasError bool
	}{
		{query: "", page: 1, size: DefaultPageSize},
		{query: "page=3&size=10", page: 3, size: 10},
		{query: "page=0", hasError: true},
		{query: "size=101", hasError: true},
		{query: "page=abc", hasError: true},
	}
	for _, tt := range tests {
		r := httptest.NewRequest(http.MethodGet, "/movies?"+tt.query, nil)
		page, size, err := ParsePagination(r)
		if tt.hasError {
			assert.Error(t, err, tt.query)
			continue
		}
		require.NoError(t, err, tt.query)
		assert.Equal(t, tt.page, page)
		assert.Equal(t, tt.size, size)
	}
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, errors.New("nope"), http.StatusBadRequest)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"nope"}`, w.Body.String())
}
