package cli

import (
	"context"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/config"
	"github.com/cbout22/ghcp/internal/payload"
	"github.com/cbout22/ghcp/internal/resolver"
)

// completionTimeout keeps a slow API from blocking the shell.
const completionTimeout = 2 * time.Second

// urlCompletion returns a ValidArgsFunction completing the URL argument at
// position argIndex.
func urlCompletion(flags *globalFlags, argIndex int) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		if len(args) != argIndex {
			return nil, cobra.ShellCompDirectiveDefault
		}

		quiet := *flags
		quiet.quiet, quiet.verbose = true, 0
		rt, _, err := quiet.setup(cmd)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		ctx, cancel := context.WithTimeout(ctx, completionTimeout)
		defer cancel()

		return resolveURLCompletions(ctx, rt.source, toComplete)
	}
}

// resolveURLCompletions completes the last path segment of a tree or blob
// URL by listing its parent folder. Folders are offered as tree URLs with a
// trailing slash, files as blob URLs.
func resolveURLCompletions(ctx context.Context, source resolver.SourceRepository, toComplete string) ([]string, cobra.ShellCompDirective) {
	idx := strings.LastIndex(toComplete, "/")
	if idx < 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	parent, prefix := toComplete[:idx], toComplete[idx+1:]

	// Only the path part is completed: owner, repo and ref must be typed
	res, err := config.Parse(parent)
	if err != nil || res.Kind == config.Repository {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	res.Kind = config.Folder

	entries, err := source.ListDirectory(ctx, res)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	var completions []string
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name, prefix) {
			continue
		}

		childPath := strings.TrimPrefix(res.Path+"/"+config.EscapePath(entry.Name), "/")
		switch entry.Type {
		case payload.EntryDir:
			completions = append(completions, formatCompletionLine(res.Child(childPath, config.Folder).String()+"/", "Directory"))
		case payload.EntryFile:
			completions = append(completions, formatCompletionLine(res.Child(childPath, config.File).String(), "File"))
		}
	}

	return completions, cobra.ShellCompDirectiveNoSpace | cobra.ShellCompDirectiveNoFileComp
}
