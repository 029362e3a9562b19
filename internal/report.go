package internal

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
)

// Report is the outcome of one batch.
type Report struct {
	Total     int
	Processed []FileResult
	Failed    []FileResult
	Elapsed   time.Duration
}

func NewReport(total int, results []FileResult) *Report {
	r := &Report{Total: total}
	for _, res := range results {
		if res.Err != nil {
			r.Failed = append(r.Failed, res)
		} else {
			r.Processed = append(r.Processed, res)
		}
	}
	return r
}

// Skipped counts files that never reached a worker, e.g. after cancellation.
func (r *Report) Skipped() int {
	return r.Total - len(r.Processed) - len(r.Failed)
}

func (r *Report) Dropped() int {
	n := 0
	for _, res := range r.Processed {
		n += res.Stats.Dropped
	}
	return n
}

// Saved is the number of bytes removed across all processed files.
func (r *Report) Saved() int64 {
	var n int64
	for _, res := range r.Processed {
		n += res.Stats.BytesIn - res.Stats.BytesOut
	}
	return n
}

func (r *Report) Summary() string {
	s := fmt.Sprintf("%d/%d files processed, %d failed, %d metadata chunks removed (%s)",
		len(r.Processed), r.Total, len(r.Failed), r.Dropped(), humanize.Bytes(uint64(r.Saved())))
	if skipped := r.Skipped(); skipped > 0 {
		s += fmt.Sprintf(", %d skipped", skipped)
	}
	return s
}

func (r *Report) Print(w io.Writer) {
	for _, res := range r.Processed {
		fmt.Fprintf(w, "  ok    %s -> %s (kept=%d dropped=%d, %s -> %s)\n",
			filepath.Base(res.Input), res.Output, res.Stats.Kept, res.Stats.Dropped,
			humanize.Bytes(uint64(res.Stats.BytesIn)), humanize.Bytes(uint64(res.Stats.BytesOut)))
	}
	for _, res := range r.Failed {
		fmt.Fprintf(w, "  FAIL  %s: %v\n", filepath.Base(res.Input), res.Err)
	}
	fmt.Fprintln(w, r.Summary())
}
