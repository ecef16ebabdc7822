package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/manifest"
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	token      string
	configPath string
	verbose    int
	quiet      bool
	parallel   int
}

// NewRootCmd creates the top-level `ghcp` command.
func NewRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "ghcp",
		Short: "Mirror files and folders from GitHub URLs onto local disk",
		Long: `ghcp copies a single file or a whole folder tree from a GitHub URL
into a local directory. Sources can be pinned in a ghcp.toml manifest and
re-synced later; a .ghcp.lock file records what was written.

  ghcp get https://github.com/org/repo/tree/main/docs vendor/docs
  ghcp add docs https://github.com/org/repo/tree/v1.2.0/docs
  ghcp sync`,
		Version:       config.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&flags.token, "token", "", "GitHub token (defaults to $GITHUB_TOKEN, then $GH_TOKEN)")
	pf.StringVar(&flags.configPath, "config", manifest.DefaultManifestFile, "Path to the ghcp.toml manifest")
	pf.CountVarP(&flags.verbose, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	pf.BoolVarP(&flags.quiet, "quiet", "q", false, "Only log errors and suppress progress lines")
	pf.IntVar(&flags.parallel, "parallel", 0, "Concurrent downloads per directory (overrides [settings] parallel)")
	root.MarkFlagsMutuallyExclusive("verbose", "quiet")

	root.AddCommand(newGetCmd(flags))
	root.AddCommand(newSyncCmd(flags))
	root.AddCommand(newAddCmd(flags))
	root.AddCommand(newRemoveCmd(flags))
	root.AddCommand(newCheckCmd(flags))

	return root
}

// Execute runs the root command.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := NewRootCmd()
	if err := root.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		stop()
		os.Exit(1)
	}
}
