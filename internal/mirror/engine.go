// Package mirror materialises GitHub files and folder trees on disk.
package mirror

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"sync"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/errdefs"
	"github.com/cbout22/ghcp/internal/payload"
	"github.com/cbout22/ghcp/internal/resolver"
)

// Options configures an Engine.
type Options struct {
	// Parallel bounds concurrent file fetches within one directory.
	Parallel int
	Observer Observer
	Logger   *slog.Logger

	// Replaceable reports whether an existing file at a local path may be
	// overwritten even without force. Nil means no file may.
	Replaceable func(path string) bool
}

// Engine downloads resources through a SourceRepository and writes them
// through a FileWriter.
type Engine struct {
	source   resolver.SourceRepository
	fs       FileWriter
	parallel int
	logger   *slog.Logger

	replaceable func(string) bool

	obsMu    sync.Mutex
	observer Observer
}

// New creates an Engine.
func New(source resolver.SourceRepository, fs FileWriter, opts Options) *Engine {
	e := &Engine{
		source:   source,
		fs:       fs,
		parallel: opts.Parallel,
		observer: opts.Observer,
		logger:   opts.Logger,

		replaceable: opts.Replaceable,
	}
	if e.parallel < 1 {
		e.parallel = 1
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	return e
}

// dirTask is a folder waiting to be listed.
type dirTask struct {
	res    config.Resource
	remote string // unescaped repository path, for reporting
	local  string
}

// fileTask is a file waiting to be fetched and written.
type fileTask struct {
	res    config.Resource
	remote string
	local  string
}

// Run mirrors res below dest: a file is copied, a folder is mirrored. An
// empty dest means the resource's own name in the working directory.
func (e *Engine) Run(ctx context.Context, res config.Resource, dest string, force bool) (*Outcome, error) {
	switch res.Kind {
	case config.File:
		out := &Outcome{}
		written, err := e.CopyFile(ctx, res, dest, force)
		if err != nil {
			return out, err
		}
		out.addFile(written)
		return out, nil
	case config.Folder:
		if dest == "" {
			dest = res.Name()
		}
		return e.Mirror(ctx, res, dest, force)
	}
	return nil, errdefs.New(errdefs.ErrUnsupported, "cannot download a whole repository (%s); point at a blob or tree URL", res.RepoFullName())
}

// CopyFile downloads a single file to dest. When dest is an existing
// directory, or ends in a separator, the file keeps its remote name inside it.
func (e *Engine) CopyFile(ctx context.Context, file config.Resource, dest string, force bool) (WrittenFile, error) {
	if file.Kind != config.File {
		return WrittenFile{}, errdefs.New(errdefs.ErrInvalidOperation, "%s is a %s, not a file", file, file.Kind)
	}

	switch {
	case dest == "":
		dest = file.Name()
	case e.fs.IsDir(dest), strings.HasSuffix(dest, "/"), strings.HasSuffix(dest, string(filepath.Separator)):
		dest = filepath.Join(dest, file.Name())
	}

	if dir := filepath.Dir(dest); dir != "." {
		if err := e.fs.MkdirAll(dir); err != nil {
			return WrittenFile{}, fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}

	var mu sync.Mutex
	written, err := e.fetchAndWrite(ctx, fileTask{res: file, remote: unescape(file.Path), local: dest}, force, &mu)
	if err != nil {
		e.emit(Event{Kind: EventFileFailed, Remote: unescape(file.Path), Local: dest, Err: err})
		return WrittenFile{}, err
	}
	e.emit(Event{Kind: EventFileWritten, Remote: written.Remote, Local: written.Local, Size: written.Size})
	return written, nil
}

// Mirror copies the folder tree rooted at folder into destRoot. Failures
// of individual entries and listings are recorded in the Outcome and do
// not stop the traversal; a failed root listing also sets RootErr. The
// returned error is
// non-nil only when the traversal could not start or ctx was cancelled.
func (e *Engine) Mirror(ctx context.Context, folder config.Resource, destRoot string, force bool) (*Outcome, error) {
	if folder.Kind != config.Folder {
		return nil, errdefs.New(errdefs.ErrInvalidOperation, "%s is a %s, not a folder", folder, folder.Kind)
	}

	out := &Outcome{}
	if err := e.fs.MkdirAll(destRoot); err != nil {
		return out, fmt.Errorf("creating %s: %w", destRoot, err)
	}
	out.addDir()
	e.emit(Event{Kind: EventDirCreated, Remote: unescape(folder.Path), Local: destRoot})

	// Depth-first, pre-order: children are pushed in reverse so the first
	// listed subdirectory is visited next.
	stack := []dirTask{{res: folder, remote: unescape(folder.Path), local: destRoot}}
	for root := true; len(stack) > 0; root = false {
		if err := ctx.Err(); err != nil {
			out.finalize()
			return out, err
		}

		task := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		subdirs, err := e.visit(ctx, task, force, out)
		if err != nil && root {
			out.RootErr = err
		}
		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	out.finalize()
	if err := ctx.Err(); err != nil {
		return out, err
	}

	e.logger.Info("mirror complete",
		slog.String("source", folder.String()),
		slog.Int("files", out.FilesWritten),
		slog.Int("dirs", out.DirsCreated),
		slog.Int("failures", len(out.Failures)),
	)
	return out, nil
}

// visit lists one directory, writes its files and returns the
// subdirectories still to be visited. A listing error is recorded in out
// and also returned.
func (e *Engine) visit(ctx context.Context, task dirTask, force bool, out *Outcome) ([]dirTask, error) {
	entries, err := e.source.ListDirectory(ctx, task.res)
	if err != nil {
		if ctx.Err() != nil {
			return nil, nil
		}
		e.logger.Warn("listing failed, skipping subtree", slog.String("path", task.remote), slog.Any("error", err))
		out.addFailure(task.remote, err)
		e.emit(Event{Kind: EventListingFailed, Remote: task.remote, Local: task.local, Err: err})
		return nil, err
	}
	e.emit(Event{Kind: EventListed, Remote: task.remote, Local: task.local, Entries: len(entries)})

	var (
		files   []fileTask
		subdirs []dirTask
	)

	for _, entry := range entries {
		remote := entry.Path
		if remote == "" {
			remote = strings.TrimPrefix(task.remote+"/"+entry.Name, "/")
		}

		if err := validateName(entry.Name); err != nil {
			out.addFailure(remote, err)
			e.emit(Event{Kind: EventFileFailed, Remote: remote, Err: err})
			continue
		}

		local := filepath.Join(task.local, entry.Name)

		switch entry.Type {
		case payload.EntryFile:
			files = append(files, fileTask{
				res:    task.res.Child(config.EscapePath(remote), config.File),
				remote: remote,
				local:  local,
			})

		case payload.EntryDir:
			if err := e.fs.MkdirAll(local); err != nil {
				out.addFailure(remote, err)
				e.emit(Event{Kind: EventFileFailed, Remote: remote, Local: local, Err: err})
				continue
			}
			out.addDir()
			e.emit(Event{Kind: EventDirCreated, Remote: remote, Local: local})
			subdirs = append(subdirs, dirTask{
				res:    task.res.Child(config.EscapePath(remote), config.Folder),
				remote: remote,
				local:  local,
			})

		default:
			e.logger.Debug("skipping entry", slog.String("path", remote), slog.String("type", string(entry.Type)))
			out.addSkipped()
			e.emit(Event{Kind: EventSkipped, Remote: remote, Reason: string(entry.Type)})
		}
	}

	e.fetchFiles(ctx, files, force, out)
	return subdirs, nil
}

// fetchFiles downloads the files of one directory with a bounded worker
// pool. Conflict resolution and the write itself are serialised per
// directory so two workers never claim the same _N name.
func (e *Engine) fetchFiles(ctx context.Context, files []fileTask, force bool, out *Outcome) {
	if len(files) == 0 {
		return
	}

	queue := make(chan fileTask, len(files))
	for _, f := range files {
		queue <- f
	}
	close(queue)

	var (
		dirMu sync.Mutex
		wg    sync.WaitGroup
	)

	for range min(e.parallel, len(files)) {
		wg.Go(func() {
			for task := range queue {
				if ctx.Err() != nil {
					return
				}

				written, err := e.fetchAndWrite(ctx, task, force, &dirMu)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					e.logger.Warn("file failed", slog.String("path", task.remote), slog.Any("error", err))
					out.addFailure(task.remote, err)
					e.emit(Event{Kind: EventFileFailed, Remote: task.remote, Local: task.local, Err: err})
					continue
				}

				out.addFile(written)
				e.emit(Event{Kind: EventFileWritten, Remote: written.Remote, Local: written.Local, Size: written.Size})
			}
		})
	}

	wg.Wait()
}

func (e *Engine) fetchAndWrite(ctx context.Context, task fileTask, force bool, dirMu *sync.Mutex) (WrittenFile, error) {
	fetched, err := e.source.DownloadFile(ctx, task.res)
	if err != nil {
		return WrittenFile{}, err
	}

	dirMu.Lock()
	defer dirMu.Unlock()

	target := task.local
	if !force {
		target, err = resolveConflict(e.fs, target, e.replaceable)
		if err != nil {
			return WrittenFile{}, err
		}
	}

	if err := e.fs.Write(target, fetched.Bytes); err != nil {
		return WrittenFile{}, fmt.Errorf("writing %s: %w", target, err)
	}

	e.logger.Debug("wrote file",
		slog.String("path", task.remote),
		slog.String("local", target),
		slog.Int("bytes", len(fetched.Bytes)),
		slog.String("source", string(fetched.Source)),
	)

	return WrittenFile{
		Remote:   task.remote,
		Local:    target,
		Size:     int64(len(fetched.Bytes)),
		Checksum: Checksum(fetched.Bytes),
		Source:   fetched.Source,
	}, nil
}

func (e *Engine) emit(ev Event) {
	if e.observer == nil {
		return
	}
	e.obsMu.Lock()
	defer e.obsMu.Unlock()
	e.observer.Observe(ev)
}

func unescape(p string) string {
	if s, err := url.PathUnescape(p); err == nil {
		return s
	}
	return p
}
