package cli

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/manifest"
	"github.com/cbout22/ghcp/internal/mirror"
)

// newSyncCmd creates the `sync` command.
// Usage: ghcp sync
func newSyncCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Sync every source defined in ghcp.toml",
		Long: `Downloads or updates every source declared in ghcp.toml and records the
written files in .ghcp.lock.

Files written by a previous sync are replaced in place. Files that were
edited locally since then are kept, and the fresh copy is written next to
them unless the source sets force = true.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, p, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			return runSyncWith(cmd.Context(), rt, p)
		},
	}
}

// runSyncWith is the testable core of the sync command.
func runSyncWith(ctx context.Context, rt *runtime, p paths) error {
	m, err := manifest.Load(p.manifest)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	entries := m.Entries()
	if len(entries) == 0 {
		fmt.Fprintln(rt.out, "📋 No sources in ghcp.toml, nothing to sync.")
		return nil
	}

	lock, err := manifest.LoadLock(p.lock)
	if err != nil {
		return fmt.Errorf("loading lock file: %w", err)
	}

	fmt.Fprintf(rt.out, "🔄 Syncing %d source(s)...\n\n", len(entries))

	var failed int
	for _, entry := range entries {
		if ctx.Err() != nil {
			break
		}
		if !reportSync(rt, entry, syncSource(ctx, rt, entry, lock, p.root)) {
			failed++
		}
	}

	if err := lock.Save(p.lock); err != nil {
		return fmt.Errorf("saving lock file: %w", err)
	}

	fmt.Fprintln(rt.out)
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed > 0 {
		return fmt.Errorf("sync completed with %d error(s)", failed)
	}

	fmt.Fprintln(rt.out, "✅ All sources synced successfully.")
	return nil
}

// syncResult is what syncSource reports for one source.
type syncResult struct {
	out *mirror.Outcome
	err error
}

// syncSource mirrors one manifest source and records what was written in
// lock. Unchanged files from the previous sync are overwritten in place.
// When nothing could be fetched the previous files and lock entry are left
// untouched.
func syncSource(ctx context.Context, rt *runtime, entry manifest.Entry, lock *manifest.LockFile, root string) syncResult {
	res, err := entry.Resource()
	if err != nil {
		return syncResult{err: err}
	}

	fmt.Fprintf(rt.out, "  📦 %s ← %s\n", entry.Name, entry.URL)

	prev, _ := lock.Get(entry.Name)
	owned := ownedFiles(rt, prev, root)

	target := filepath.Join(root, filepath.FromSlash(entry.Target()))
	if strings.HasSuffix(entry.Target(), "/") {
		// keep "dir/" meaning "inside dir" for single files
		target += string(filepath.Separator)
	}
	out, err := rt.engine(owned.replaceable).Run(ctx, res, target, entry.Force)
	if err != nil {
		return syncResult{out: out, err: err}
	}
	if out.RootErr != nil {
		return syncResult{out: out, err: out.RootErr}
	}

	written := make(map[string]bool, len(out.Files))
	files := make([]manifest.LockedFile, 0, len(out.Files))
	combined := make([]mirror.WrittenFile, 0, len(out.Files))
	for _, f := range out.Files {
		path := relSlash(root, f.Local)
		written[path] = true
		files = append(files, manifest.LockedFile{Path: path, Remote: f.Remote, Checksum: f.Checksum})
		combined = append(combined, f)
	}

	for _, f := range prev.Files {
		if _, ok := lockedPath(root, f); !ok {
			continue
		}
		switch {
		case written[f.Path]:
			// overwritten in place
		case failedBelow(out.Failures, f.Remote):
			// not refetched this time; the previous copy stays owned
			files = append(files, f)
			combined = append(combined, mirror.WrittenFile{Remote: f.Remote, Checksum: f.Checksum})
		default:
			owned.release(rt, prev.Name, f)
		}
	}

	lock.Set(entry.Name, entry.URL, res.RefOrDefault(), entry.Target(), files, mirror.CombinedChecksum(combined))

	return syncResult{out: out}
}

// reportSync prints the result line for one source and reports whether
// it synced without failures.
func reportSync(rt *runtime, entry manifest.Entry, r syncResult) bool {
	if r.err != nil {
		fmt.Fprintf(rt.out, "  ❌ %s: %s\n", entry.Name, r.err)
		return false
	}

	if !r.out.OK() {
		fmt.Fprintf(rt.out, "  ⚠️  %s → %s: %d file(s), %d failure(s)\n", entry.Name, entry.Target(), r.out.FilesWritten, len(r.out.Failures))
		for _, f := range r.out.Failures {
			fmt.Fprintf(rt.out, "      %s %s: %v\n", failStyle.Render("✗"), f.Path, f.Err)
		}
		return false
	}

	fmt.Fprintf(rt.out, "  ✅ %s → %s (%d file(s), %s)\n", entry.Name, entry.Target(), r.out.FilesWritten, formatSize(r.out.BytesWritten))
	return true
}

// ownedSet holds the files a previous sync wrote, keyed by local path.
// Entries pointing outside root are ignored.
type ownedSet struct {
	fs    mirror.FileWriter
	root  string
	files map[string]manifest.LockedFile
}

func ownedFiles(rt *runtime, prev manifest.LockEntry, root string) ownedSet {
	set := ownedSet{fs: rt.fs, root: root, files: make(map[string]manifest.LockedFile, len(prev.Files))}
	for _, f := range prev.Files {
		path, ok := lockedPath(root, f)
		if !ok {
			rt.logger.Warn("ignoring lock entry outside the project", slog.String("path", f.Path), slog.String("source", prev.Name))
			continue
		}
		set.files[path] = f
	}
	return set
}

// replaceable reports whether path holds an owned file that is unchanged
// since it was written.
func (s ownedSet) replaceable(path string) bool {
	f, ok := s.files[filepath.Clean(path)]
	if !ok {
		return false
	}
	data, err := s.fs.Read(path)
	return err == nil && f.Matches(data)
}

// release deletes an owned file that the new sync no longer produces,
// provided it is unchanged on disk. Locally edited files are kept.
func (s ownedSet) release(rt *runtime, source string, f manifest.LockedFile) {
	path, ok := lockedPath(s.root, f)
	if !ok || !s.fs.Exists(path) {
		return
	}
	if !s.replaceable(path) {
		rt.logger.Warn("keeping locally modified file", slog.String("path", f.Path), slog.String("source", source))
		return
	}
	if err := s.fs.Remove(path); err != nil {
		rt.logger.Warn("could not remove previously synced file", slog.String("path", f.Path), slog.Any("error", err))
	}
}

// failedBelow reports whether remote, or a folder containing it, is among
// the failures.
func failedBelow(failures []mirror.Failure, remote string) bool {
	for _, f := range failures {
		if f.Path == remote || strings.HasPrefix(remote, f.Path+"/") {
			return true
		}
	}
	return false
}

// lockedPath joins a lock file path to root, refusing paths that escape it.
func lockedPath(root string, f manifest.LockedFile) (string, bool) {
	path := filepath.Join(root, filepath.FromSlash(f.Path))
	return path, isBelow(root, path)
}

// relSlash returns path relative to root in slash form, as stored in the
// lock file.
func relSlash(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
