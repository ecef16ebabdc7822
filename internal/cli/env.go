package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cbout22/ghcp/internal/auth"
	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/manifest"
	"github.com/cbout22/ghcp/internal/mirror"
	"github.com/cbout22/ghcp/internal/resolver"
	"github.com/cbout22/ghcp/internal/wire"
)

// runtime is everything a command needs once flags and settings are read.
// Tests build one directly around a fake source.
type runtime struct {
	out      io.Writer
	logger   *slog.Logger
	settings config.Settings
	source   resolver.SourceRepository
	fs       mirror.FileWriter
	// progress prints one line per file as the mirror runs.
	progress bool
}

// paths locates the manifest, the lock file and the directory that
// manifest targets are relative to.
type paths struct {
	manifest string
	lock     string
	root     string
}

func pathsFor(manifestPath string) paths {
	root := filepath.Dir(manifestPath)
	return paths{
		manifest: manifestPath,
		lock:     filepath.Join(root, manifest.DefaultLockFile),
		root:     root,
	}
}

// newLogger builds the run logger: warn by default, error with -q, info
// with -v and debug with -vv. Every record carries the run id.
func newLogger(w io.Writer, verbose int, quiet bool) *slog.Logger {
	level := slog.LevelWarn
	switch {
	case quiet:
		level = slog.LevelError
	case verbose >= 2:
		level = slog.LevelDebug
	case verbose == 1:
		level = slog.LevelInfo
	}

	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})
	return slog.New(handler).With(slog.String("run_id", uuid.NewString()))
}

// setup reads the manifest settings, applies flag overrides and wires the
// wire client, resolver and filesystem together.
func (f *globalFlags) setup(cmd *cobra.Command) (*runtime, paths, error) {
	p := pathsFor(f.configPath)

	m, err := manifest.Load(p.manifest)
	if err != nil {
		return nil, p, fmt.Errorf("loading manifest: %w", err)
	}

	settings := m.Settings
	if f.parallel < 0 {
		return nil, p, fmt.Errorf("--parallel must be at least 1, got %d", f.parallel)
	}
	if f.parallel > 0 {
		settings.Parallel = f.parallel
	}

	logger := newLogger(cmd.ErrOrStderr(), f.verbose, f.quiet)

	token := auth.Resolve(f.token, os.Getenv)
	if token != "" {
		warning, err := auth.CheckFormat(token)
		if err != nil {
			return nil, p, err
		}
		if warning != "" {
			logger.Warn(warning)
		}
		logger.Debug("using GitHub token", slog.String("token", auth.Mask(token)))
	}

	client := wire.New(wire.Config{
		UserAgent: settings.UserAgent,
		Timeout:   settings.Timeout(),
		Tokens:    auth.NewTokenSource(token),
		Logger:    logger,
	})

	out := cmd.OutOrStdout()
	return &runtime{
		out:      out,
		logger:   logger,
		settings: settings,
		source:   resolver.New(client, resolver.OptionsFromSettings(settings, logger)),
		fs:       &mirror.OSFileWriter{},
		progress: !f.quiet && (f.verbose > 0 || isTerminal(out)),
	}, p, nil
}

// local builds a runtime for commands that only touch the filesystem.
func (f *globalFlags) local(cmd *cobra.Command) (*runtime, paths) {
	return &runtime{
		out:    cmd.OutOrStdout(),
		logger: newLogger(cmd.ErrOrStderr(), f.verbose, f.quiet),
		fs:     &mirror.OSFileWriter{},
	}, pathsFor(f.configPath)
}

// engine creates a mirror engine reporting progress to rt.out when enabled.
// replaceable may be nil.
func (rt *runtime) engine(replaceable func(string) bool) *mirror.Engine {
	var observer mirror.Observer
	if rt.progress {
		observer = newProgressPrinter(rt.out)
	}
	return mirror.New(rt.source, rt.fs, mirror.Options{
		Parallel: rt.settings.Parallel,
		Observer: observer,
		Logger:   rt.logger,

		Replaceable: replaceable,
	})
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
