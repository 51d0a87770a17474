package main

import (
	"fmt"
	"io"
	"io/fs"
	"strings"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/meigma/vdfs"
)

func (a *app) lsCmd() *cobra.Command {
	var long bool

	cmd := &cobra.Command{
		Use:   "ls [dir]",
		Short: "List the merged directory tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix := ""
			if len(args) == 1 {
				prefix = vdfs.NormalizePath(args[0])
			}
			items, ok := a.registry.EnumerateDir(prefix)
			if !ok {
				return &fs.PathError{Op: "ls", Path: prefix, Err: fs.ErrNotExist}
			}

			out := cmd.OutOrStdout()
			dirColor := color.New(color.FgBlue, color.Bold)
			for _, item := range items {
				indent := strings.Repeat("  ", item.Depth)
				if item.IsDir {
					dirColor.Fprintf(out, "%s%s/\n", indent, item.Name)
					continue
				}
				if !long {
					fmt.Fprintf(out, "%s%s\n", indent, item.Name)
					continue
				}
				f := item.File
				fmt.Fprintf(out, "%s%s  %d  %s  %s\n",
					indent, item.Name, f.Size, f.ModTime().Format(time.DateTime), f.Origin)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&long, "long", "l", false, "show size, time and origin volume")
	return cmd
}

func (a *app) statCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stat <path>",
		Short: "Show where a file is stored",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			path := vdfs.NormalizePath(args[0])

			if f, ok := a.registry.FileInfo(path); ok {
				fmt.Fprintf(out, "path:   %s\n", path)
				fmt.Fprintf(out, "volume: %s\n", f.Origin)
				fmt.Fprintf(out, "offset: %d\n", f.Offset)
				fmt.Fprintf(out, "size:   %d\n", f.Size)
				fmt.Fprintf(out, "time:   %s\n", f.ModTime().Format(time.RFC3339))
				return nil
			}

			stats, ok := a.registry.DirStats(path)
			if !ok {
				return &fs.PathError{Op: "stat", Path: path, Err: fs.ErrNotExist}
			}
			fmt.Fprintf(out, "path:  %s/\n", path)
			fmt.Fprintf(out, "files: %d\n", stats.Files)
			fmt.Fprintf(out, "dirs:  %d\n", stats.Dirs)
			fmt.Fprintf(out, "bytes: %d\n", stats.Bytes)
			return nil
		},
	}
}

func (a *app) catCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <path>...",
		Short: "Write file contents to stdout",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, path := range args {
				content, err := a.registry.ExtractFile(path)
				if err != nil {
					return err
				}
				if _, err := cmd.OutOrStdout().Write(content); err != nil {
					return err
				}
			}
			return nil
		},
	}
}

func (a *app) extractCmd() *cobra.Command {
	var (
		overwrite     bool
		preserveTimes bool
		workers       int
		noProgress    bool
	)

	cmd := &cobra.Command{
		Use:   "extract <dest> [dir]",
		Short: "Extract a directory (default: everything) to disk",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dest := args[0]
			prefix := ""
			if len(args) == 2 {
				prefix = vdfs.NormalizePath(args[1])
			}

			opts := []vdfs.CopyOption{
				vdfs.CopyWithOverwrite(overwrite),
				vdfs.CopyWithPreserveTimes(preserveTimes),
				vdfs.CopyWithWorkers(workers),
			}
			if !noProgress {
				p := &extractProgress{out: cmd.ErrOrStderr()}
				defer p.finish()
				opts = append(opts, vdfs.CopyWithProgress(p.add))
			}

			return a.registry.CopyDir(dest, prefix, opts...)
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&overwrite, "overwrite", false, "overwrite existing files")
	flags.BoolVar(&preserveTimes, "preserve-times", true, "set file times to the volume timestamp")
	flags.IntVar(&workers, "workers", 0, "parallel writers (0 = GOMAXPROCS, <0 = serial)")
	flags.BoolVar(&noProgress, "no-progress", false, "disable the progress bar")
	return cmd
}

// extractProgress sizes its bar from the first callback, whose total counts
// only the files that will be written. Files already on disk are skipped
// before any callback fires.
type extractProgress struct {
	out io.Writer

	mu  sync.Mutex
	bar *progressbar.ProgressBar
}

func (p *extractProgress) add(_ string, _, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil {
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription("extracting"),
			progressbar.OptionShowCount(),
			progressbar.OptionSetPredictTime(true),
			progressbar.OptionOnCompletion(func() { fmt.Fprintln(p.out) }),
		)
	}
	_ = p.bar.Add(1) //nolint:errcheck // progress output is best-effort
}

func (p *extractProgress) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil {
		_ = p.bar.Finish() //nolint:errcheck // progress output is best-effort
	}
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Describe the mounted volumes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "VOLUME\tCREATED\tENTRIES\tFILES\tADDED\tREPLACED\tCOMMENT")
			for _, v := range a.registry.Volumes() {
				fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
					v.Path, v.CreatedAt.Format(time.DateTime), v.Entries, v.Files,
					v.Added, v.Replaced, firstLine(v.Comment))
			}
			if err := w.Flush(); err != nil {
				return err
			}

			stats := a.registry.Stats()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d files in %d directories, %d bytes\n",
				stats.Files, stats.Dirs, stats.Bytes)
			return nil
		},
	}
}

// firstLine trims multi-line volume comments for tabular output.
func firstLine(s string) string {
	s, _, _ = strings.Cut(s, "\n")
	return strings.TrimRight(s, "\r")
}
