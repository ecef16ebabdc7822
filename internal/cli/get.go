package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/config"
)

// newGetCmd creates the `get` command.
// Usage: ghcp get <url> [dest] [--force]
func newGetCmd(flags *globalFlags) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "get <url> [dest]",
		Short: "Download a file or mirror a folder from a GitHub URL",
		Long: `Downloads the file behind a blob URL, or every file below a tree URL,
without touching ghcp.toml.

A file lands at dest (or inside dest when it is a directory); a folder is
mirrored into dest, which defaults to the folder's own name. Existing files
are kept and the download is written next to them as name_1.ext, name_2.ext
and so on, unless --force is given.

Example:
  ghcp get https://github.com/org/repo/blob/main/LICENSE
  ghcp get https://github.com/org/repo/tree/v2/docs third_party/docs`,
		Args:              cobra.RangeArgs(1, 2),
		ValidArgsFunction: urlCompletion(flags, 0),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, _, err := flags.setup(cmd)
			if err != nil {
				return err
			}
			var dest string
			if len(args) == 2 {
				dest = args[1]
			}
			return runGetWith(cmd.Context(), rt, args[0], dest, force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite existing files instead of writing numbered copies")

	return cmd
}

// runGetWith is the testable core of the get command.
func runGetWith(ctx context.Context, rt *runtime, rawURL, dest string, force bool) error {
	res, err := config.Parse(rawURL)
	if err != nil {
		return err
	}

	rt.logger.Info("download started",
		slog.String("source", res.String()),
		slog.String("kind", res.Kind.String()),
		slog.String("dest", dest),
	)

	out, err := rt.engine(nil).Run(ctx, res, dest, force)
	if out != nil && (err == nil || out.FilesWritten > 0 || len(out.Failures) > 0) {
		renderSummary(rt.out, fmt.Sprintf("Downloaded %s", res), out)
	}
	if err != nil {
		return err
	}

	if !out.OK() {
		return fmt.Errorf("%d of %d entries failed", len(out.Failures), out.FilesWritten+len(out.Failures))
	}
	return nil
}
