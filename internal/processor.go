package internal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/lmittmann/tint"
	"github.com/rm-hull/png-scrubber/internal/png"
)

var ErrUnsupportedFormat = errors.New("unsupported image format")

type Options struct {
	OutputDir string
	Workers   int
	KeepNames bool
	Lenient   bool
}

type FileResult struct {
	Index  int
	Input  string
	Output string
	Format Format
	Stats  png.Stats
	Err    error
}

type job struct {
	index int
	input string
}

type Processor struct {
	startTime time.Time
	opts      Options
	files     []string
	jobs      chan job
	results   chan FileResult
	workers   sync.WaitGroup
	fetcher   *Fetcher
	now       func() time.Time
}

// NewProcessor prepares a batch over the given files, directories and
// http(s) URLs. Directories are expanded one level deep to files with a
// supported image extension; duplicate paths are processed once.
func NewProcessor(inputs []string, opts Options) (*Processor, error) {
	if opts.Workers < 1 {
		return nil, errors.New("pool size must be at least 1")
	}
	if opts.OutputDir == "" {
		return nil, errors.New("output directory not set")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	files, err := expandInputs(inputs)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.New("no files to process")
	}

	return &Processor{
		startTime: time.Now(),
		opts:      opts,
		files:     files,
		jobs:      make(chan job),
		results:   make(chan FileResult),
		fetcher:   NewFetcher(),
		now:       time.Now,
	}, nil
}

func expandInputs(inputs []string) ([]string, error) {
	seen := make(map[string]bool, len(inputs))
	files := make([]string, 0, len(inputs))
	add := func(path string) {
		if abs, err := filepath.Abs(path); err == nil && !IsURL(path) {
			path = abs
		}
		if !seen[path] {
			seen[path] = true
			files = append(files, path)
		}
	}

	for _, input := range inputs {
		if IsURL(input) {
			add(input)
			continue
		}
		info, err := os.Stat(input)
		if err != nil {
			// leave it to processFile to report per file
			add(input)
			continue
		}
		if !info.IsDir() {
			add(input)
			continue
		}

		entries, err := os.ReadDir(input)
		if err != nil {
			return nil, fmt.Errorf("failed to read directory %s: %w", input, err)
		}
		for _, entry := range entries {
			if entry.Type().IsRegular() && SupportedExtension(entry.Name()) {
				add(filepath.Join(input, entry.Name()))
			}
		}
	}
	return files, nil
}

func (p *Processor) Files() []string {
	return p.files
}

// DispatchJobs sends files to the workers until all are queued or ctx is
// cancelled. Files already handed to a worker run to completion.
func (p *Processor) DispatchJobs(ctx context.Context) {
	go func() {
		defer close(p.jobs)
		for i, file := range p.files {
			if ctx.Err() == nil {
				select {
				case <-ctx.Done():
				case p.jobs <- job{index: i, input: file}:
					continue
				}
			}
			slog.Warn("Stopping dispatch", "remaining", len(p.files)-i, tint.Err(ctx.Err()))
			return
		}
	}()
}

func (p *Processor) StartWorkers() {
	slog.Debug("Starting workers", "pool-size", p.opts.Workers)

	p.workers.Add(p.opts.Workers)
	for i := range p.opts.Workers {
		go p.worker(i)
	}
	go func() {
		p.workers.Wait()
		close(p.results)
	}()
}

func (p *Processor) worker(i int) {
	defer p.workers.Done()
	slog.Debug("Worker started", "worker", i)
	for j := range p.jobs {
		p.results <- p.processFile(j)
	}
	slog.Debug("Worker finished", "worker", i)
}

// Run processes the whole batch and blocks until every dispatched file has
// a result.
func (p *Processor) Run(ctx context.Context) *Report {
	p.StartWorkers()
	p.DispatchJobs(ctx)
	return p.Wait()
}

func (p *Processor) Wait() *Report {
	results := make([]FileResult, 0, len(p.files))
	for res := range p.results {
		if res.Err != nil {
			slog.Error("Failed", "file", filepath.Base(res.Input), tint.Err(res.Err))
		} else {
			slog.Info("Processed", "file", filepath.Base(res.Input),
				"kept", res.Stats.Kept, "dropped", res.Stats.Dropped)
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Index < results[j].Index
	})

	report := NewReport(len(p.files), results)
	report.Elapsed = time.Since(p.startTime)
	return report
}

func (p *Processor) outputName(j job) string {
	name := filepath.Base(j.input)
	if IsURL(j.input) {
		name = RemoteName(j.input)
	}
	if !p.opts.KeepNames {
		name = fmt.Sprintf("%d_%d%s", p.now().Unix(), j.index, filepath.Ext(name))
	}
	return filepath.Join(p.opts.OutputDir, name)
}

func (p *Processor) processFile(j job) FileResult {
	res := FileResult{Index: j.index, Input: j.input, Output: p.outputName(j)}
	res.Format, res.Stats, res.Err = p.scrub(j.input, res.Output)
	if res.Err != nil {
		res.Output = ""
	}
	return res
}

func (p *Processor) open(input string) (io.ReadCloser, error) {
	if IsURL(input) {
		return p.fetcher.Fetch(input)
	}
	f, err := os.Open(input)
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	return f, nil
}

func (p *Processor) scrub(input, output string) (Format, png.Stats, error) {
	var stats png.Stats

	inFile, err := p.open(input)
	if err != nil {
		return FormatUnknown, stats, err
	}
	defer func() {
		_ = inFile.Close()
	}()

	br := bufio.NewReader(inFile)
	// recognised images of another format are reported as such; anything
	// else is left to the filter, which rejects it with png.ErrNotPNG
	format := Sniff(br)
	if format != FormatPNG && format != FormatUnknown {
		return format, stats, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(output), "scrub-*.tmp")
	if err != nil {
		return format, stats, fmt.Errorf("failed to create temporary file: %w", err)
	}
	cleanupTemp := true
	defer func() {
		_ = tmpFile.Close()
		if cleanupTemp {
			_ = os.Remove(tmpFile.Name())
		}
	}()

	var opts []png.Option
	if p.opts.Lenient {
		opts = append(opts, png.WithLenientEOF())
	}

	stats, err = png.Filter(br, tmpFile, opts...)
	if err != nil {
		return format, stats, err
	}
	if len(stats.Unknown) > 0 {
		slog.Debug("Kept unknown chunks", "file", filepath.Base(input), "types", stats.Unknown)
	}

	if err := tmpFile.Close(); err != nil {
		return format, stats, fmt.Errorf("failed to close temporary file before rename: %w", err)
	}
	// the input may be replaced in place when output dir == input dir
	if err := inFile.Close(); err != nil {
		return format, stats, fmt.Errorf("failed to close input file: %w", err)
	}

	if err := os.Rename(tmpFile.Name(), output); err != nil {
		return format, stats, fmt.Errorf("failed to rename temporary file: %w", err)
	}

	cleanupTemp = false // Successfully renamed, don't delete
	return format, stats, nil
}
