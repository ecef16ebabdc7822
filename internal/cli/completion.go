package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/cbout22/ghcp/internal/manifest"
)

func resolveSourceName(manifestPath, toComplete string) ([]string, cobra.ShellCompDirective) {
	// Load the manifest
	m, err := manifest.Load(manifestPath)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	// Filter based on toComplete prefix
	var completions []string
	for _, entry := range m.Entries() {
		if strings.HasPrefix(entry.Name, toComplete) {
			completions = append(completions, formatCompletionLine(entry.Name, entry.URL))
		}
	}

	return completions, cobra.ShellCompDirectiveNoFileComp
}

// formatCompletionLine renders a completion candidate with its description
// in the "value\tdescription" form cobra understands.
func formatCompletionLine(value, description string) string {
	if description == "" {
		return value
	}
	return value + "\t" + description
}
