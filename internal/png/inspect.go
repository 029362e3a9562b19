package png

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/klauspost/compress/zlib"
)

// text chunks larger than this are reported without keyword details
const maxTextChunk = 16 << 20

type ChunkInfo struct {
	Type      string         `json:"type"`
	Offset    int64          `json:"offset"`
	Length    uint32         `json:"length"`
	Class     Classification `json:"-"`
	ClassName string         `json:"class"`
	CRCValid  bool           `json:"crcValid"`
	Keyword   string         `json:"keyword,omitempty"`
	TextBytes int64          `json:"textBytes,omitempty"`
}

type Header struct {
	Width     uint32 `json:"width"`
	Height    uint32 `json:"height"`
	BitDepth  uint8  `json:"bitDepth"`
	ColorType uint8  `json:"colorType"`
	Interlace uint8  `json:"interlace"`
}

type Info struct {
	Header   *Header     `json:"header,omitempty"`
	Chunks   []ChunkInfo `json:"chunks"`
	Metadata int         `json:"metadataChunks"`
	Size     int64       `json:"size"`
}

// IHDR payload size
const headerLength = 13

// Inspect walks the chunk sequence in r without writing anything. It
// applies the same framing rules and options as Filter, and additionally
// checks each chunk's CRC and decodes text chunk keywords.
func Inspect(r io.Reader, opts ...Option) (*Info, error) {
	var o filterOptions
	for _, opt := range opts {
		opt(&o)
	}
	br := bufio.NewReader(r)

	sig := make([]byte, len(Signature))
	if _, err := io.ReadFull(br, sig); err != nil || !IsPNG(sig) {
		if err != nil && !isShortRead(err) {
			return nil, fmt.Errorf("failed to read signature: %w", err)
		}
		return nil, ErrNotPNG
	}

	info := &Info{Chunks: make([]ChunkInfo, 0, 8)}
	offset := int64(len(Signature))
	header := make([]byte, 8)
	crc := make([]byte, 4)

	for {
		if n, err := io.ReadFull(br, header); err != nil {
			if n == 0 && errors.Is(err, io.EOF) && o.lenientEOF {
				break
			}
			if isShortRead(err) {
				return nil, &ChunkError{Offset: offset, Err: ErrTruncatedChunkHeader}
			}
			return nil, err
		}

		length := binary.BigEndian.Uint32(header[:4])
		ci := ChunkInfo{
			Type:   string(header[4:8]),
			Offset: offset,
			Length: length,
			Class:  Classify(string(header[4:8])),
		}
		ci.ClassName = ci.Class.String()

		sum := crc32.NewIEEE()
		_, _ = sum.Write(header[4:8])

		// only payloads we decode are buffered, and never beyond what the
		// input actually holds
		var data []byte
		if (ci.Class == Metadata && length <= maxTextChunk) || (ci.Type == "IHDR" && length == headerLength) {
			var err error
			data, err = io.ReadAll(io.LimitReader(br, int64(length)))
			if err != nil {
				return nil, chunkReadErr(ci, ErrTruncatedChunkData, err)
			}
			if len(data) < int(length) {
				return nil, &ChunkError{Type: ci.Type, Offset: ci.Offset, Err: ErrTruncatedChunkData}
			}
			_, _ = sum.Write(data)
		} else if _, err := io.CopyN(sum, br, int64(length)); err != nil {
			return nil, chunkReadErr(ci, ErrTruncatedChunkData, err)
		}

		if _, err := io.ReadFull(br, crc); err != nil {
			return nil, chunkReadErr(ci, ErrTruncatedChunkCrc, err)
		}
		ci.CRCValid = binary.BigEndian.Uint32(crc) == sum.Sum32()

		switch ci.Type {
		case "IHDR":
			if len(data) == headerLength {
				info.Header = &Header{
					Width:     binary.BigEndian.Uint32(data[0:4]),
					Height:    binary.BigEndian.Uint32(data[4:8]),
					BitDepth:  data[8],
					ColorType: data[9],
					Interlace: data[12],
				}
			}
		case "tEXt", "zTXt", "iTXt":
			if data != nil {
				ci.Keyword, ci.TextBytes = textDetails(ci.Type, data)
			}
		}

		if ci.Class == Metadata {
			info.Metadata++
		}
		info.Chunks = append(info.Chunks, ci)
		offset += int64(length) + chunkFraming

		if ci.Type == TerminalChunk {
			break
		}
	}

	info.Size = offset
	return info, nil
}

func chunkReadErr(ci ChunkInfo, kind error, err error) error {
	if isShortRead(err) {
		return &ChunkError{Type: ci.Type, Offset: ci.Offset, Err: kind}
	}
	return fmt.Errorf("failed to read %s chunk: %w", ci.Type, err)
}

// textDetails extracts the keyword and the (decompressed) text size of a
// textual chunk. Malformed payloads yield whatever could be recovered.
func textDetails(chunkType string, data []byte) (string, int64) {
	keyword, rest, ok := bytes.Cut(data, []byte{0})
	if !ok {
		return string(data), 0
	}

	switch chunkType {
	case "tEXt":
		return string(keyword), int64(len(rest))

	case "zTXt":
		// compression method, then zlib stream
		if len(rest) < 1 {
			return string(keyword), 0
		}
		return string(keyword), inflatedSize(rest[1:])

	case "iTXt":
		// compression flag, compression method, language tag, translated keyword, text
		if len(rest) < 2 {
			return string(keyword), 0
		}
		compressed := rest[0] == 1
		_, rest, _ = bytes.Cut(rest[2:], []byte{0})
		_, text, _ := bytes.Cut(rest, []byte{0})
		if compressed {
			return string(keyword), inflatedSize(text)
		}
		return string(keyword), int64(len(text))
	}

	return string(keyword), 0
}

func inflatedSize(b []byte) int64 {
	zr, err := zlib.NewReader(bytes.NewReader(b))
	if err != nil {
		return 0
	}
	defer zr.Close()

	n, _ := io.Copy(io.Discard, zr)
	return n
}
