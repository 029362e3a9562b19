package internal

import (
	"bufio"
	"bytes"
	"path/filepath"
	"strings"

	"github.com/rm-hull/png-scrubber/internal/png"
)

type Format string

const (
	FormatPNG     Format = "png"
	FormatJPEG    Format = "jpeg"
	FormatGIF     Format = "gif"
	FormatBMP     Format = "bmp"
	FormatTIFF    Format = "tiff"
	FormatUnknown Format = "unknown"
)

var supportedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".bmp":  true,
	".gif":  true,
	".tiff": true,
}

// SupportedExtension reports whether the file name looks like an image we
// should pick up when scanning directories.
func SupportedExtension(name string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(name))]
}

// Sniff peeks at the leading bytes of br to identify the image format
// without consuming them.
func Sniff(br *bufio.Reader) Format {
	head, _ := br.Peek(8)
	return sniffBytes(head)
}

func sniffBytes(head []byte) Format {
	switch {
	case png.IsPNG(head):
		return FormatPNG
	case bytes.HasPrefix(head, []byte{0xff, 0xd8, 0xff}):
		return FormatJPEG
	case bytes.HasPrefix(head, []byte("GIF87a")), bytes.HasPrefix(head, []byte("GIF89a")):
		return FormatGIF
	case bytes.HasPrefix(head, []byte("BM")):
		return FormatBMP
	case bytes.HasPrefix(head, []byte("II*\x00")), bytes.HasPrefix(head, []byte("MM\x00*")):
		return FormatTIFF
	default:
		return FormatUnknown
	}
}
