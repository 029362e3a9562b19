package png

import (
	"errors"
	"fmt"
)

var (
	ErrNotPNG               = errors.New("not a PNG file")
	ErrTruncatedChunkHeader = errors.New("truncated chunk header")
	ErrTruncatedChunkData   = errors.New("truncated chunk data")
	ErrTruncatedChunkCrc    = errors.New("truncated chunk crc")
)

// ChunkError describes a structural failure at a given chunk. Type is empty
// when the header itself could not be read.
type ChunkError struct {
	Type   string
	Offset int64
	Err    error
}

func (e *ChunkError) Error() string {
	if e.Type == "" {
		return fmt.Sprintf("%v at offset %d", e.Err, e.Offset)
	}
	return fmt.Sprintf("%v in %s chunk at offset %d", e.Err, e.Type, e.Offset)
}

func (e *ChunkError) Unwrap() error {
	return e.Err
}
