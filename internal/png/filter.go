package png

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// chunk length (4) + type (4) + crc (4)
const chunkFraming = 12

type Stats struct {
	Kept     int
	Dropped  int
	Unknown  []string // unknown chunk types, in order of first appearance
	BytesIn  int64
	BytesOut int64
}

type filterOptions struct {
	lenientEOF bool
}

// Option configures a Filter pass.
type Option func(*filterOptions)

// WithLenientEOF accepts input that ends cleanly on a chunk boundary without
// an IEND chunk. A partial chunk header is still an error.
func WithLenientEOF() Option {
	return func(o *filterOptions) {
		o.lenientEOF = true
	}
}

// Filter copies the PNG datastream in r to w, dropping metadata chunks
// (tEXt, zTXt, iTXt, eXIf, tIME) and passing every other chunk through byte
// for byte. The pass stops after IEND; anything following it is not copied,
// though buffering may read ahead past it.
//
// On error w may hold a partial datastream. Callers that need an atomic
// result should write to a temporary file and publish it on success.
func Filter(r io.Reader, w io.Writer, opts ...Option) (Stats, error) {
	var o filterOptions
	for _, opt := range opts {
		opt(&o)
	}

	var stats Stats
	br := bufio.NewReader(r)
	bw := bufio.NewWriter(w)

	sig := make([]byte, len(Signature))
	if _, err := io.ReadFull(br, sig); err != nil {
		if isShortRead(err) {
			return stats, ErrNotPNG
		}
		return stats, fmt.Errorf("failed to read signature: %w", err)
	}
	if !IsPNG(sig) {
		return stats, ErrNotPNG
	}
	if _, err := bw.Write(sig); err != nil {
		return stats, err
	}

	offset := int64(len(Signature))
	stats.BytesIn, stats.BytesOut = offset, offset
	seen := make(map[string]bool)
	header := make([]byte, 8)
	crc := make([]byte, 4)

	for {
		n, err := io.ReadFull(br, header)
		if err != nil {
			if n == 0 && errors.Is(err, io.EOF) && o.lenientEOF {
				break
			}
			if isShortRead(err) {
				return stats, &ChunkError{Offset: offset, Err: ErrTruncatedChunkHeader}
			}
			return stats, fmt.Errorf("failed to read chunk header at offset %d: %w", offset, err)
		}

		length := int64(binary.BigEndian.Uint32(header[:4]))
		chunkType := string(header[4:8])
		class := Classify(chunkType)

		var dst io.Writer = io.Discard
		if class.Keep() {
			if _, err := bw.Write(header); err != nil {
				return stats, err
			}
			dst = bw
		}

		if _, err := io.CopyN(dst, br, length); err != nil {
			if isShortRead(err) {
				return stats, &ChunkError{Type: chunkType, Offset: offset, Err: ErrTruncatedChunkData}
			}
			return stats, fmt.Errorf("failed to copy %s chunk data: %w", chunkType, err)
		}

		if _, err := io.ReadFull(br, crc); err != nil {
			if isShortRead(err) {
				return stats, &ChunkError{Type: chunkType, Offset: offset, Err: ErrTruncatedChunkCrc}
			}
			return stats, fmt.Errorf("failed to read %s chunk crc: %w", chunkType, err)
		}

		size := length + chunkFraming
		stats.BytesIn += size
		offset += size

		if class.Keep() {
			if _, err := bw.Write(crc); err != nil {
				return stats, err
			}
			stats.Kept++
			stats.BytesOut += size
		} else {
			stats.Dropped++
		}

		if class == UnknownAncillary && !seen[chunkType] {
			seen[chunkType] = true
			stats.Unknown = append(stats.Unknown, chunkType)
		}

		if chunkType == TerminalChunk {
			break
		}
	}

	if err := bw.Flush(); err != nil {
		return stats, err
	}
	return stats, nil
}

func isShortRead(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
