package cli

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"

	"github.com/cbout22/ghcp/internal/mirror"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	okStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	failStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
)

// progressPrinter is a mirror.Observer printing one line per file.
type progressPrinter struct {
	w io.Writer
}

func newProgressPrinter(w io.Writer) *progressPrinter {
	return &progressPrinter{w: w}
}

func (p *progressPrinter) Observe(ev mirror.Event) {
	switch ev.Kind {
	case mirror.EventFileWritten:
		fmt.Fprintf(p.w, "  %s %s → %s %s\n", okStyle.Render("✓"), ev.Remote, ev.Local, dimStyle.Render("("+formatSize(ev.Size)+")"))
	case mirror.EventFileFailed:
		fmt.Fprintf(p.w, "  %s %s: %v\n", failStyle.Render("✗"), ev.Remote, ev.Err)
	case mirror.EventListingFailed:
		fmt.Fprintf(p.w, "  %s %s/ (listing): %v\n", failStyle.Render("✗"), ev.Remote, ev.Err)
	case mirror.EventSkipped:
		fmt.Fprintf(p.w, "  %s\n", dimStyle.Render(fmt.Sprintf("- %s (%s, skipped)", ev.Remote, ev.Reason)))
	}
}

// renderSummary prints the totals of an outcome followed by every failure
// and its cause.
func renderSummary(w io.Writer, title string, out *mirror.Outcome) {
	fmt.Fprintln(w, titleStyle.Render(title))
	fmt.Fprintf(w, "  files    %d (%s)\n", out.FilesWritten, formatSize(out.BytesWritten))
	if out.DirsCreated > 0 {
		fmt.Fprintf(w, "  dirs     %d\n", out.DirsCreated)
	}
	if out.Skipped > 0 {
		fmt.Fprintf(w, "  skipped  %d\n", out.Skipped)
	}
	if len(out.Failures) == 0 {
		return
	}

	fmt.Fprintln(w, failStyle.Render(fmt.Sprintf("  failed   %d", len(out.Failures))))
	for _, f := range out.Failures {
		fmt.Fprintf(w, "    %s %s: %v\n", failStyle.Render("✗"), f.Path, f.Err)
	}
}

// formatSize formats a byte count for display.
func formatSize(size int64) string {
	if size < 1024 {
		return fmt.Sprintf("%d B", size)
	}

	if size < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(size)/1024)
	}

	if size < 1024*1024*1024 {
		return fmt.Sprintf("%.1f MB", float64(size)/(1024*1024))
	}

	return fmt.Sprintf("%.1f GB", float64(size)/(1024*1024*1024))
}
