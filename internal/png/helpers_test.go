package png

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	stdpng "image/png"
	"testing"

	"github.com/stretchr/testify/require"
)

func chunk(chunkType string, data []byte) []byte {
	buf := make([]byte, 0, len(data)+chunkFraming)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, chunkType...)
	buf = append(buf, data...)
	return binary.BigEndian.AppendUint32(buf, crc32.ChecksumIEEE(buf[4:]))
}

func textChunk(keyword, text string) []byte {
	return chunk("tEXt", append([]byte(keyword+"\x00"), text...))
}

func ihdr(width, height uint32) []byte {
	data := make([]byte, 13)
	binary.BigEndian.PutUint32(data[0:4], width)
	binary.BigEndian.PutUint32(data[4:8], height)
	data[8] = 8 // bit depth
	data[9] = 2 // truecolour
	return chunk("IHDR", data)
}

func stream(chunks ...[]byte) []byte {
	return bytes.Join(append([][]byte{Signature}, chunks...), nil)
}

// encodedImage returns a real PNG produced by the standard encoder.
func encodedImage(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{uint8(x * 7), uint8(y * 13), uint8(x ^ y), 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, stdpng.Encode(&buf, img))
	return buf.Bytes()
}

// insertAfterIHDR splices extra chunks in right after the IHDR chunk.
func insertAfterIHDR(t *testing.T, file []byte, extra ...[]byte) []byte {
	t.Helper()
	require.True(t, IsPNG(file))
	ihdrEnd := len(Signature) + int(binary.BigEndian.Uint32(file[8:12])) + chunkFraming
	out := append([]byte{}, file[:ihdrEnd]...)
	for _, c := range extra {
		out = append(out, c...)
	}
	return append(out, file[ihdrEnd:]...)
}

// chunkTypes lists the chunk types in a well formed stream.
func chunkTypes(t *testing.T, file []byte) []string {
	t.Helper()
	info, err := Inspect(bytes.NewReader(file))
	require.NoError(t, err)
	types := make([]string, len(info.Chunks))
	for i, c := range info.Chunks {
		types[i] = c.Type
	}
	return types
}
