package internal

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/rm-hull/png-scrubber/internal/png"
)

type ErrorResponse struct {
	Error string `json:"error"`
}

// RegisterRoutes mounts the scrub API under /v1.
func RegisterRoutes(r gin.IRouter, c Config) {
	opts := c.FilterOptions()
	v1 := r.Group("/v1")
	v1.POST("/strip", stripHandler(c.Server.MaxBodyBytes, opts))
	v1.POST("/inspect", inspectHandler(c.Server.MaxBodyBytes, opts))
}

// stripHandler filters the PNG request body. The response is buffered so
// that a failure part way through never yields a truncated image.
func stripHandler(maxBody int64, opts []png.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

		var buf bytes.Buffer
		stats, err := png.Filter(body, &buf, opts...)
		if err != nil {
			abortWithError(c, err)
			return
		}

		c.Header("X-Chunks-Kept", strconv.Itoa(stats.Kept))
		c.Header("X-Chunks-Dropped", strconv.Itoa(stats.Dropped))
		c.Data(http.StatusOK, "image/png", buf.Bytes())
	}
}

func inspectHandler(maxBody int64, opts []png.Option) gin.HandlerFunc {
	return func(c *gin.Context) {
		body := http.MaxBytesReader(c.Writer, c.Request.Body, maxBody)

		info, err := png.Inspect(body, opts...)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, info)
	}
}

func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "path", c.FullPath(), tint.Err(err))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: err.Error()})
}

func statusFor(err error) int {
	var maxBytesErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, png.ErrNotPNG):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, png.ErrTruncatedChunkHeader),
		errors.Is(err, png.ErrTruncatedChunkData),
		errors.Is(err, png.ErrTruncatedChunkCrc):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// WritableDirCheck is a health check that passes while new files can be
// created in Dir.
type WritableDirCheck struct {
	Dir string
}

func (WritableDirCheck) Name() string {
	return "output-dir"
}

func (h WritableDirCheck) Pass() bool {
	f, err := os.CreateTemp(h.Dir, ".healthz-*")
	if err != nil {
		return false
	}
	_ = f.Close()
	_ = os.Remove(f.Name())
	return true
}
