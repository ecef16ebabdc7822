package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/manifest"
)

// newCheckCmd creates the `check` command.
// Usage: ghcp check [--strict]
func newCheckCmd(flags *globalFlags) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Check if local files are in sync with ghcp.toml",
		Long: `Validates that every source in ghcp.toml has been synced, that its URL
still matches the lock file, and that the files it wrote are present and
unchanged. Useful in CI/CD pipelines.

With --strict, the command exits with a non-zero code if any source is
missing, stale or modified.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, p := flags.local(cmd)
			return runCheckWith(rt, p, strict)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Exit with error code if sources are stale, missing or modified")

	return cmd
}

// runCheckWith is the testable core of the check command.
func runCheckWith(rt *runtime, p paths, strict bool) error {
	m, err := manifest.Load(p.manifest)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	lock, err := manifest.LoadLock(p.lock)
	if err != nil {
		return fmt.Errorf("loading lock file: %w", err)
	}

	entries := m.Entries()
	if len(entries) == 0 && len(lock.Entries) == 0 {
		fmt.Fprintln(rt.out, "📋 No sources in ghcp.toml, nothing to check.")
		return nil
	}

	results := CheckSources(entries, lock, rt.fs, p.root)

	fmt.Fprintf(rt.out, "🔍 Checking %d source(s)...\n\n", len(results))

	var issues int
	for _, r := range results {
		switch r.Status {
		case CheckOK:
			fmt.Fprintf(rt.out, "  ✅ %s: ok\n", r.Name)
			continue
		case CheckNeverSynced:
			fmt.Fprintf(rt.out, "  ❌ %s: missing (never synced)\n", r.Name)
		case CheckNotInLock:
			fmt.Fprintf(rt.out, "  ⚠️  %s: target exists but not in lock file (run 'ghcp sync')\n", r.Name)
		case CheckURLMismatch:
			fmt.Fprintf(rt.out, "  ⚠️  %s: URL changed: lock=%s manifest=%s\n", r.Name, r.LockURL, r.ManifestURL)
		case CheckFileMissing:
			fmt.Fprintf(rt.out, "  ❌ %s: %d file(s) missing: %s\n", r.Name, len(r.Paths), strings.Join(r.Paths, ", "))
		case CheckModified:
			fmt.Fprintf(rt.out, "  ⚠️  %s: %d file(s) modified locally: %s\n", r.Name, len(r.Paths), strings.Join(r.Paths, ", "))
		case CheckOrphaned:
			fmt.Fprintf(rt.out, "  ⚠️  %s: in lock file but not in ghcp.toml (run 'ghcp remove %s')\n", r.Name, r.Name)
		}
		issues++
	}

	fmt.Fprintln(rt.out)
	if issues > 0 {
		msg := fmt.Sprintf("Found %d issue(s). Run 'ghcp sync' to fix.", issues)
		if strict {
			return fmt.Errorf("%s", msg)
		}
		fmt.Fprintf(rt.out, "⚠️  %s\n", msg)
	} else {
		fmt.Fprintln(rt.out, "✅ All sources are in sync.")
	}
	return nil
}
