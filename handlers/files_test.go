package handlers

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"sonora/services"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type streamFixture struct {
	router *gin.Engine
	scope  *services.Scope
	dir    string
	song   string
}

func newStreamFixture(t *testing.T) *streamFixture {
	t.Helper()
	dir := t.TempDir()
	song := filepath.Join(dir, "song.mp3")
	require.NoError(t, os.WriteFile(song, []byte("0123456789"), 0644))

	scope := services.NewScope()
	library := services.NewLibraryService(nil, []string{"mp3", "flac"}, 1, zap.NewNop())
	h := NewFileHandler(scope, library, zap.NewNop())

	r := gin.New()
	r.GET("/stream", h.StreamFile)
	return &streamFixture{router: r, scope: scope, dir: dir, song: song}
}

func (f *streamFixture) get(path, rangeHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/stream?path="+url.QueryEscape(path), nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

// TestStreamFileScope tests that only scoped files are served
func TestStreamFileScope(t *testing.T) {
	f := newStreamFixture(t)

	w := f.get(f.song, "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	f.scope.Allow(f.song)
	w = f.get(f.song, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "0123456789", w.Body.String())
	assert.Equal(t, "audio/mpeg", w.Header().Get("Content-Type"))
	assert.Equal(t, "10", w.Header().Get("Content-Length"))
	assert.Equal(t, "bytes", w.Header().Get("Accept-Ranges"))
}

// TestStreamFileRoots tests files under a library root
func TestStreamFileRoots(t *testing.T) {
	f := newStreamFixture(t)
	f.scope.SetRoots([]string{f.dir})

	assert.Equal(t, http.StatusOK, f.get(f.song, "").Code)
	assert.Equal(t, http.StatusNotFound, f.get(filepath.Join(f.dir, "missing.mp3"), "").Code)

	notes := filepath.Join(f.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0644))
	assert.Equal(t, http.StatusForbidden, f.get(notes, "").Code)

	assert.Equal(t, http.StatusBadRequest, f.get("", "").Code)
}

// TestStreamFileRange tests range requests used for seeking
func TestStreamFileRange(t *testing.T) {
	f := newStreamFixture(t)
	f.scope.Allow(f.song)

	tests := []struct {
		name           string
		rangeHeader    string
		expectedStatus int
		expectedBody   string
		expectedRange  string
	}{
		{name: "bounded", rangeHeader: "bytes=2-5", expectedStatus: http.StatusPartialContent, expectedBody: "2345", expectedRange: "bytes 2-5/10"},
		{name: "open ended", rangeHeader: "bytes=7-", expectedStatus: http.StatusPartialContent, expectedBody: "789", expectedRange: "bytes 7-9/10"},
		{name: "suffix", rangeHeader: "bytes=-3", expectedStatus: http.StatusPartialContent, expectedBody: "789", expectedRange: "bytes 7-9/10"},
		{name: "end clamped", rangeHeader: "bytes=8-100", expectedStatus: http.StatusPartialContent, expectedBody: "89", expectedRange: "bytes 8-9/10"},
		{name: "start past end", rangeHeader: "bytes=10-", expectedStatus: http.StatusRequestedRangeNotSatisfiable, expectedRange: "bytes */10"},
		{name: "reversed", rangeHeader: "bytes=5-2", expectedStatus: http.StatusRequestedRangeNotSatisfiable, expectedRange: "bytes */10"},
		{name: "wrong unit", rangeHeader: "items=0-1", expectedStatus: http.StatusRequestedRangeNotSatisfiable, expectedRange: "bytes */10"},
		{name: "multiple ranges", rangeHeader: "bytes=0-1,3-4", expectedStatus: http.StatusRequestedRangeNotSatisfiable, expectedRange: "bytes */10"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.get(f.song, tt.rangeHeader)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Equal(t, tt.expectedRange, w.Header().Get("Content-Range"))
			if tt.expectedBody != "" {
				assert.Equal(t, tt.expectedBody, w.Body.String())
			}
		})
	}
}
