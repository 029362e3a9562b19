package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/rm-hull/png-scrubber/internal/png"
)

func Inspect(w io.Writer, files []string, asJSON bool, opts ...png.Option) error {
	var failed int
	for _, file := range files {
		info, err := inspectFile(file, opts)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", file, err)
			failed++
			continue
		}

		if asJSON {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			if err := enc.Encode(map[string]any{"file": file, "info": info}); err != nil {
				return err
			}
			continue
		}
		printInfo(w, file, info)
	}

	if failed > 0 {
		return fmt.Errorf("failed to inspect %d of %d files", failed, len(files))
	}
	return nil
}

func inspectFile(file string, opts []png.Option) (*png.Info, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Inspect(f, opts...)
}

func printInfo(w io.Writer, file string, info *png.Info) {
	fmt.Fprintf(w, "%s (%s)\n", file, humanize.Bytes(uint64(info.Size)))
	if h := info.Header; h != nil {
		fmt.Fprintf(w, "  %dx%d, bit depth %d, colour type %d\n", h.Width, h.Height, h.BitDepth, h.ColorType)
	}

	for _, c := range info.Chunks {
		line := fmt.Sprintf("  %8d  %s  %10d  %-17s", c.Offset, c.Type, c.Length, c.ClassName)
		if c.Keyword != "" {
			line += fmt.Sprintf("  %q (%s)", c.Keyword, humanize.Bytes(uint64(c.TextBytes)))
		}
		if !c.CRCValid {
			line += "  BAD CRC"
		}
		fmt.Fprintln(w, line)
	}
	fmt.Fprintf(w, "  %d metadata chunks would be removed\n", info.Metadata)
}
