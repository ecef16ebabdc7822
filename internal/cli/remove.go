package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/manifest"
)

// newRemoveCmd creates the `remove` command.
// Usage: ghcp remove <name>
func newRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <name>",
		Aliases: []string{"rm"},
		Short:   "Remove a source and delete the files it wrote",
		Long: `Removes a source from ghcp.toml, deletes every file the last sync of
that source wrote, and drops it from .ghcp.lock. Directories left empty
are removed too. Files never written by ghcp are not touched.

Example:
  ghcp remove docs`,
		Args: cobra.ExactArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return resolveSourceName(flags.configPath, toComplete)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, p := flags.local(cmd)
			return runRemoveWith(rt, p, args[0])
		},
	}
}

// runRemoveWith is the testable core of the remove command.
func runRemoveWith(rt *runtime, p paths, name string) error {
	// Load the manifest
	m, err := manifest.Load(p.manifest)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	// Load the lock file
	lock, err := manifest.LoadLock(p.lock)
	if err != nil {
		return fmt.Errorf("loading lock file: %w", err)
	}

	// A source left only in the lock file can still be cleaned up
	entry, locked := lock.Get(name)
	if !m.Remove(name) && !locked {
		return fmt.Errorf("%s not found in %s", name, filepath.Base(p.manifest))
	}

	// Delete the files the last sync wrote
	deleted, err := deleteOwned(rt, entry, p.root)
	if err != nil {
		return err
	}

	lock.Remove(name)

	// Save the manifest
	if err := m.Save(p.manifest); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}

	// Save the lock file
	if err := lock.Save(p.lock); err != nil {
		return fmt.Errorf("saving lock file: %w", err)
	}

	fmt.Fprintf(rt.out, "🗑️  Removed %s from %s\n", name, filepath.Base(p.manifest))
	fmt.Fprintf(rt.out, "🧹 Deleted %d file(s)\n", deleted)
	return nil
}

// deleteOwned removes every locked file of entry that still exists, then
// prunes directories the removal left empty, deepest first, without
// climbing above root.
func deleteOwned(rt *runtime, entry manifest.LockEntry, root string) (int, error) {
	var deleted int
	dirs := make(map[string]struct{})

	for _, f := range entry.Files {
		path, ok := lockedPath(root, f)
		if !ok {
			rt.logger.Warn("ignoring lock entry outside the project", slog.String("path", f.Path), slog.String("source", entry.Name))
			continue
		}
		if !rt.fs.Exists(path) {
			continue
		}
		if err := rt.fs.Remove(path); err != nil {
			return deleted, fmt.Errorf("deleting %s: %w", path, err)
		}
		deleted++

		for dir := filepath.Dir(path); isBelow(root, dir); dir = filepath.Dir(dir) {
			dirs[dir] = struct{}{}
		}
	}

	ordered := make([]string, 0, len(dirs))
	for dir := range dirs {
		ordered = append(ordered, dir)
	}
	sort.Slice(ordered, func(i, j int) bool { return len(ordered[i]) > len(ordered[j]) })

	for _, dir := range ordered {
		if children, err := os.ReadDir(dir); err == nil && len(children) == 0 {
			_ = os.Remove(dir)
		}
	}

	return deleted, nil
}

// isBelow reports whether dir is strictly inside root.
func isBelow(root, dir string) bool {
	rel, err := filepath.Rel(root, dir)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
