package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRouter(t *testing.T, maxBody int64) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	c, err := LoadConfig("", false)
	require.NoError(t, err)
	c.Server.MaxBodyBytes = maxBody

	r := gin.New()
	RegisterRoutes(r, c)
	return r
}

func post(r http.Handler, path string, body []byte) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "image/png")
	r.ServeHTTP(w, req)
	return w
}

func TestStripHandler(t *testing.T) {
	r := testRouter(t, 1<<20)

	t.Run("strips metadata", func(t *testing.T) {
		w := post(r, "/v1/strip", taggedPNG())
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, "3", w.Header().Get("X-Chunks-Kept"))
		assert.Equal(t, "1", w.Header().Get("X-Chunks-Dropped"))
		assert.Equal(t, cleanPNG(), w.Body.Bytes())
	})

	t.Run("not a PNG", func(t *testing.T) {
		w := post(r, "/v1/strip", []byte("hello world"))
		assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "not a PNG file", resp.Error)
	})

	t.Run("truncated", func(t *testing.T) {
		w := post(r, "/v1/strip", taggedPNG()[:45])
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.NotContains(t, w.Header().Get("Content-Type"), "image/png")
	})

	t.Run("too large", func(t *testing.T) {
		small := testRouter(t, 20)
		w := post(small, "/v1/strip", taggedPNG())
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})
}

func TestInspectHandler(t *testing.T) {
	r := testRouter(t, 1<<20)

	w := post(r, "/v1/inspect", taggedPNG())
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Header struct {
			Width  int `json:"width"`
			Height int `json:"height"`
		} `json:"header"`
		Chunks []struct {
			Type    string `json:"type"`
			Class   string `json:"class"`
			Keyword string `json:"keyword"`
		} `json:"chunks"`
		Metadata int `json:"metadataChunks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Header.Width)
	assert.Equal(t, 1, resp.Metadata)
	require.Len(t, resp.Chunks, 4)
	assert.Equal(t, "tEXt", resp.Chunks[1].Type)
	assert.Equal(t, "metadata", resp.Chunks[1].Class)
	assert.Equal(t, "workflow", resp.Chunks[1].Keyword)

	w = post(r, "/v1/inspect", []byte("GIF89a"))
	assert.Equal(t, http.StatusUnsupportedMediaType, w.Code)
}

func TestWritableDirCheck(t *testing.T) {
	dir := t.TempDir()
	assert.True(t, WritableDirCheck{Dir: dir}.Pass())
	assert.Empty(t, dirEntries(t, dir))
	assert.False(t, WritableDirCheck{Dir: dir + "/does/not/exist"}.Pass())
	assert.Equal(t, "output-dir", WritableDirCheck{}.Name())
}

func TestRoutes_Lenient(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := DefaultConfig()
	c.Lenient = true
	r := gin.New()
	RegisterRoutes(r, c)

	clean := cleanPNG()
	noIEND := clean[:len(clean)-len(iendChunk)]

	w := post(r, "/v1/inspect", noIEND)
	assert.Equal(t, http.StatusOK, w.Code)

	w = post(r, "/v1/strip", noIEND)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, noIEND, w.Body.Bytes())

	strict := testRouter(t, 1<<20)
	w = post(strict, "/v1/inspect", noIEND)
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
}
