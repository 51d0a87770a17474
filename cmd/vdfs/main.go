// Command vdfs lists, inspects and extracts the contents of VDF volumes.
//
// Volumes are merged in the order given: configuration file entries first,
// then every --volume flag. Newer volumes override files of older ones.
//
//	vdfs -v Data/Textures.vdf -v Data/Textures_Patch.vdf ls _WORK/DATA
//	vdfs --config vdfs.yml extract ./out _WORK/DATA/SCRIPTS
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/meigma/vdfs"
	"github.com/meigma/vdfs/cache/disk"
)

type app struct {
	volumes    []string
	configPath string
	logLevel   string
	cacheDir   string

	registry *vdfs.Registry
}

func newRootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:           "vdfs",
		Short:         "Inspect and extract Gothic VDF volumes",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringArrayVarP(&a.volumes, "volume", "v", nil, "volume to mount (repeatable, globs allowed)")
	flags.StringVar(&a.configPath, "config", "", "YAML configuration file")
	flags.StringVar(&a.logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "cache extracted content in this directory")

	cmd.AddCommand(
		a.lsCmd(),
		a.statCmd(),
		a.catCmd(),
		a.extractCmd(),
		a.infoCmd(),
	)
	return cmd
}

// setup merges configuration, installs the logger and mounts the volumes.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = a.logLevel
	}
	if flags.Changed("cache-dir") {
		cfg.CacheDir = a.cacheDir
	}
	cfg.Volumes = append(cfg.Volumes, a.volumes...)

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		return fmt.Errorf("invalid --log-level %q: %w", cfg.LogLevel, err)
	}
	logger := newLogger(cmd.ErrOrStderr(), level)
	slog.SetDefault(logger)

	opts := []vdfs.Option{vdfs.WithLogger(logger)}
	if cfg.CacheDir != "" {
		c, err := disk.New(cfg.CacheDir, disk.WithMaxBytes(cfg.CacheMaxBytes))
		if err != nil {
			return fmt.Errorf("open cache: %w", err)
		}
		opts = append(opts, vdfs.WithCache(c))
	}
	a.registry = vdfs.New(opts...)

	if len(cfg.Volumes) == 0 {
		return errors.New("no volumes given; use --volume or --config")
	}
	return mountVolumes(a.registry, cfg.Volumes)
}

// mountVolumes mounts each entry in order. Entries with glob metacharacters
// mount every match.
func mountVolumes(r *vdfs.Registry, volumes []string) error {
	var errs []error
	for _, v := range volumes {
		var err error
		if strings.ContainsAny(v, "*?[") {
			err = r.MountGlob(v)
		} else {
			err = r.Mount(v)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// newLogger returns a tint logger writing to w, colored only on a terminal.
func newLogger(w io.Writer, level slog.Level) *slog.Logger {
	noColor := true
	if f, ok := w.(*os.File); ok {
		noColor = !isatty.IsTerminal(f.Fd())
	}
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
		NoColor:    noColor,
	}))
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "vdfs:", err)
		os.Exit(1)
	}
}
