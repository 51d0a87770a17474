// Package batch extracts many entries from their origin volumes at once.
package batch

import (
	"cmp"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Entry is one file to extract.
type Entry struct {
	// Path is the slash-separated destination path relative to the sink root.
	Path string

	Origin    string
	Offset    uint32
	Size      uint32
	Timestamp uint32
}

// Source provides random access to a volume.
type Source interface {
	io.ReaderAt
	io.Closer
}

// Opener opens the volume at origin for reading.
type Opener func(origin string) (Source, error)

// OpenFile is the default Opener.
func OpenFile(origin string) (Source, error) {
	return os.Open(origin) //nolint:gosec // origin comes from a mounted volume
}

// ProgressFunc is called after each entry completes. Calls may come from
// several goroutines.
type ProgressFunc func(entry *Entry, done, total int)

// Processor extracts entries, opening each origin volume once per call.
type Processor struct {
	open     Opener
	workers  int // 0 = auto, <0 = serial, >0 = fixed count
	maxSize  uint64
	progress ProgressFunc
	logger   *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of concurrent writers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithOpener replaces the function used to open origin volumes.
func WithOpener(open Opener) ProcessorOption {
	return func(p *Processor) {
		p.open = open
	}
}

// WithMaxFileSize rejects entries larger than limit. Zero disables the limit.
func WithMaxFileSize(limit uint64) ProcessorOption {
	return func(p *Processor) {
		p.maxSize = limit
	}
}

// WithProgress sets a callback invoked after each entry.
func WithProgress(fn ProgressFunc) ProcessorOption {
	return func(p *Processor) {
		p.progress = fn
	}
}

// WithLogger sets the logger used for per-volume debug records.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// ErrTooLarge is returned when an entry exceeds the configured size limit.
var ErrTooLarge = errors.New("vdfs: file exceeds size limit")

// NewProcessor creates a new batch processor.
func NewProcessor(opts ...ProcessorOption) *Processor {
	p := &Processor{open: OpenFile}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Processor) log() *slog.Logger {
	if p.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return p.logger
}

// Process writes every entry accepted by sink.
//
// Entries are grouped by origin and sorted by offset so each volume is read
// front to back. Every volume handle is closed before Process returns.
// Processing stops on the first error.
func (p *Processor) Process(entries []*Entry, sink Sink) (Stats, error) {
	var stats Stats

	todo := make([]*Entry, 0, len(entries))
	for _, e := range entries {
		if !sink.ShouldProcess(e) {
			stats.Skipped++
			continue
		}
		if p.maxSize > 0 && uint64(e.Size) > p.maxSize {
			return stats, fmt.Errorf("batch: %s: %w", e.Path, ErrTooLarge)
		}
		todo = append(todo, e)
	}
	if len(todo) == 0 {
		return stats, nil
	}

	slices.SortFunc(todo, func(a, b *Entry) int {
		if c := cmp.Compare(a.Origin, b.Origin); c != 0 {
			return c
		}
		return cmp.Compare(a.Offset, b.Offset)
	})

	sources := make(map[string]Source)
	defer func() {
		for _, src := range sources {
			src.Close()
		}
	}()
	for _, e := range todo {
		if _, ok := sources[e.Origin]; ok {
			continue
		}
		src, err := p.open(e.Origin)
		if err != nil {
			return stats, fmt.Errorf("batch: open volume %s: %w", e.Origin, err)
		}
		p.log().Debug("batch volume opened", slog.String("volume", e.Origin))
		sources[e.Origin] = src
	}

	var (
		mu   sync.Mutex
		done int
	)
	g := new(errgroup.Group)
	g.SetLimit(p.workerCount(len(todo)))
	for _, e := range todo {
		src := sources[e.Origin]
		g.Go(func() error {
			if err := p.processEntry(src, e, sink); err != nil {
				return err
			}
			mu.Lock()
			done++
			stats.Processed++
			stats.Bytes += uint64(e.Size)
			n := done
			mu.Unlock()
			if p.progress != nil {
				p.progress(e, n, len(todo))
			}
			return nil
		})
	}
	err := g.Wait()
	return stats, err
}

// processEntry copies one entry's byte range into the sink.
func (p *Processor) processEntry(src Source, e *Entry, sink Sink) error {
	w, err := sink.Writer(e)
	if err != nil {
		return fmt.Errorf("batch: %s: %w", e.Path, err)
	}

	section := io.NewSectionReader(src, int64(e.Offset), int64(e.Size))
	n, err := io.Copy(w, section)
	if err == nil && n != int64(e.Size) {
		err = fmt.Errorf("short read (%d of %d bytes): %w", n, e.Size, io.ErrUnexpectedEOF)
	}
	if err != nil {
		_ = w.Discard() //nolint:errcheck // best-effort cleanup
		return fmt.Errorf("batch: %s: %w", e.Path, err)
	}

	if err := w.Commit(); err != nil {
		return fmt.Errorf("batch: %s: commit: %w", e.Path, err)
	}
	return nil
}

func (p *Processor) workerCount(n int) int {
	switch {
	case p.workers < 0:
		return 1
	case p.workers > 0:
		return min(p.workers, n)
	default:
		return max(1, min(runtime.GOMAXPROCS(0), n))
	}
}
