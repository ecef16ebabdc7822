package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/manifest"
)

// newAddCmd creates the `add` command.
// Usage: ghcp add <name> <url> [dest] [--force]
func newAddCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "add <name> <url> [dest]",
		Short: "Add a source to ghcp.toml and download it",
		Long: `Adds a [sources.<name>] entry to ghcp.toml and downloads it right away.
Adding an existing name replaces its URL and destination.

Example:
  ghcp add docs https://github.com/org/repo/tree/v1.2.0/docs vendor/docs
  ghcp add license https://github.com/org/repo/blob/main/LICENSE`,
		Args:              cobra.RangeArgs(2, 3),
		ValidArgsFunction: urlCompletion(flags, 1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, p, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			var dest string
			if len(args) == 3 {
				dest = args[2]
			}
			src := manifest.Source{URL: args[1], Dest: dest, Force: force}
			return runAddWith(cmd.Context(), rt, p, args[0], src)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files on every sync of this source")

	return cmd
}

// runAddWith is the testable core of the add command.
func runAddWith(ctx context.Context, rt *runtime, p paths, name string, src manifest.Source) error {
	// Load or create the manifest
	m, err := manifest.Load(p.manifest)
	if err != nil {
		return fmt.Errorf("loading manifest: %w", err)
	}

	// Validates the name and the URL before anything is downloaded
	if err := m.Set(name, src); err != nil {
		return err
	}

	lock, err := manifest.LoadLock(p.lock)
	if err != nil {
		return fmt.Errorf("loading lock file: %w", err)
	}

	fmt.Fprintf(rt.out, "📦 Adding %s from %s...\n", name, src.URL)

	entry := manifest.Entry{Name: name, Source: src}
	result := syncSource(ctx, rt, entry, lock, p.root)
	if result.err != nil {
		return fmt.Errorf("failed to download: %w", result.err)
	}

	if err := m.Save(p.manifest); err != nil {
		return fmt.Errorf("saving manifest: %w", err)
	}
	if err := lock.Save(p.lock); err != nil {
		return fmt.Errorf("saving lock file: %w", err)
	}

	if !reportSync(rt, entry, result) {
		return fmt.Errorf("%s added with %d failed file(s)", name, len(result.out.Failures))
	}
	return nil
}
