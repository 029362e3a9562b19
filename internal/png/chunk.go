package png

import "bytes"

// Signature is the fixed 8 byte magic at the start of every PNG datastream:
// 137 80 78 71 13 10 26 10
var Signature = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a}

// TerminalChunk ends the chunk sequence.
const TerminalChunk = "IEND"

type Classification int

const (
	UnknownAncillary Classification = iota
	Critical
	SafeAncillary
	Metadata
)

func (c Classification) String() string {
	switch c {
	case Critical:
		return "critical"
	case SafeAncillary:
		return "safe-ancillary"
	case Metadata:
		return "metadata"
	default:
		return "unknown-ancillary"
	}
}

// Keep reports whether chunks of this class are copied to the output.
// Unknown chunk types are kept: dropping data we don't understand risks
// breaking rendering in readers that do.
func (c Classification) Keep() bool {
	return c != Metadata
}

var classes = map[string]Classification{
	"IHDR": Critical,
	"PLTE": Critical,
	"IDAT": Critical,
	"IEND": Critical,

	"sRGB": SafeAncillary,
	"gAMA": SafeAncillary,
	"iCCP": SafeAncillary,
	"pHYs": SafeAncillary,
	"cHRM": SafeAncillary,
	"bKGD": SafeAncillary,
	"hIST": SafeAncillary,
	"tRNS": SafeAncillary,

	"tEXt": Metadata,
	"zTXt": Metadata,
	"iTXt": Metadata,
	"eXIf": Metadata,
	"tIME": Metadata,
}

// Classify looks up a 4 byte chunk type tag.
func Classify(chunkType string) Classification {
	if c, ok := classes[chunkType]; ok {
		return c
	}
	return UnknownAncillary
}

// IsPNG reports whether b starts with the PNG signature.
func IsPNG(b []byte) bool {
	return len(b) >= len(Signature) && bytes.Equal(b[:len(Signature)], Signature)
}
