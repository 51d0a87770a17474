package volume

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/meigma/vdfs/internal/tree"
)

// Result summarizes one successful load.
type Result struct {
	Header Header

	// Counts of file rows by merge outcome.
	Added     int
	Replaced  int
	Skipped   int
	Conflicts int

	// Unnamed counts rows whose name decoded to "" and were dropped.
	Unnamed int

	// DirsCreated counts directory rows that created a new directory.
	DirsCreated int
}

// LoadOption configures Load.
type LoadOption func(*loader)

// WithLogger traces header fields and every table row at debug level.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(l *loader) {
		l.logger = logger
	}
}

type loader struct {
	logger *slog.Logger
}

func (l *loader) log() *slog.Logger {
	if l.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l.logger
}

// LoadFile opens the volume at path, merges it into root and closes it.
func LoadFile(path string, root *tree.Directory, opts ...LoadOption) (*Result, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided volume path is intentional
	if err != nil {
		return nil, fmt.Errorf("open volume %s: %w", path, err)
	}
	defer f.Close()

	res, err := Load(bufio.NewReader(f), path, root, opts...)
	if err != nil {
		return res, fmt.Errorf("load volume %s: %w", path, err)
	}
	return res, nil
}

// Load decodes a volume from r and merges its entries into root. Every file
// added records origin as the volume it came from.
//
// The header is validated before root is touched. The table is then
// replayed breadth-first: rows are stored as consecutive runs of siblings,
// one run per directory, in the order the directories were first listed. A
// FIFO queue holds the directories still waiting for their run; the front
// receives rows until one carries FlagLast.
//
// A table that ends early returns ErrTruncated; rows merged before that
// point remain in root.
func Load(r io.Reader, origin string, root *tree.Directory, opts ...LoadOption) (*Result, error) {
	l := &loader{}
	for _, opt := range opts {
		opt(l)
	}
	log := l.log()

	hdr, err := ReadHeader(r)
	if err != nil {
		return nil, err
	}
	log.Debug("volume header",
		slog.String("volume", origin),
		slog.String("comment", hdr.Comment),
		slog.Uint64("entries", uint64(hdr.EntryCount)),
		slog.Uint64("files", uint64(hdr.FileCount)),
		slog.Time("created", hdr.CreatedAt()),
		slog.Uint64("size", uint64(hdr.DataSize)),
		slog.Uint64("table_offset", uint64(hdr.TableOffset)),
		slog.Uint64("entry_size", uint64(hdr.EntrySize)))

	res := &Result{Header: hdr}
	queue := []*tree.Directory{root}

	for i := range hdr.EntryCount {
		if len(queue) == 0 {
			return res, fmt.Errorf("%w: row %d has no parent directory", ErrFormat, i)
		}
		top := queue[0]

		e, err := ReadEntry(r)
		if err != nil {
			return res, fmt.Errorf("row %d: %w", i, err)
		}
		log.Debug("volume entry",
			slog.String("name", e.Name),
			slog.Uint64("offset", uint64(e.Offset)),
			slog.Uint64("size", uint64(e.Size)),
			slog.Bool("dir", e.IsDir()),
			slog.Bool("last", e.IsLast()),
			slog.String("attrs", e.Attrs.String()))

		switch {
		case e.Name == "":
			res.Unnamed++
			log.Warn("row has an empty name, skipping",
				slog.String("volume", origin), slog.Uint64("row", uint64(i)), slog.Bool("dir", e.IsDir()))
			if e.IsDir() {
				queue = append(queue, tree.New())
			}
		case e.IsDir():
			dir, created, ok := top.Mkdir(e.Name)
			if !ok {
				log.Warn("directory shadows a file, skipping its run",
					slog.String("volume", origin), slog.String("name", e.Name))
				// Its children still occupy a run in the table.
				dir = tree.New()
			}
			if created {
				res.DirsCreated++
			}
			queue = append(queue, dir)
		default:
			f := tree.NewFile(origin, e.Offset, e.Size, hdr.Timestamp)
			switch top.PutFile(e.Name, f) {
			case tree.Added:
				res.Added++
			case tree.Replaced:
				res.Replaced++
			case tree.Skipped:
				res.Skipped++
			case tree.Conflict:
				res.Conflicts++
				log.Warn("file shadows a directory, skipping",
					slog.String("volume", origin), slog.String("name", e.Name))
			}
		}

		if e.IsLast() {
			queue[0] = nil
			queue = queue[1:]
		}
	}

	return res, nil
}
