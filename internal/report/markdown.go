package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/glamour"
	"golang.org/x/term"

	"dupdrive/internal/dedupe"
)

// PreviewLimit caps the deletion lines listed in the decision summary.
const PreviewLimit = 50

// ScanMarkdown renders the headline of a scan together with the decisions
// already loaded for it.
func ScanMarkdown(s dedupe.ScanSummary, stats dedupe.Statistics) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Results Summary\n\n")
	fmt.Fprintf(&b, "- **Total files scanned:** %s\n", Count(s.TotalFiles))
	fmt.Fprintf(&b, "- **Duplicate groups:** %s\n", Count(s.Groups))
	fmt.Fprintf(&b, "- **Duplicate pairs:** %s\n", Count(s.Pairs))
	fmt.Fprintf(&b, "- **Uncertain groups:** %s (same MD5, different size)\n", Count(s.Uncertain))
	fmt.Fprintf(&b, "- **Potential savings:** %s\n", dedupe.FormatSize(s.Savings))
	fmt.Fprintf(&b, "- **Skipped:** %s Google Workspace files (no MD5)\n\n", Count(s.Skipped))
	fmt.Fprintf(&b, "**Decisions loaded:** %s | **Pending:** %s\n", Count(stats.Decided+stats.Skipped), Count(stats.Pending))
	return b.String()
}

// DecisionMarkdown renders the decision statistics and a preview of the
// files the plan would delete.
func DecisionMarkdown(stats dedupe.Statistics, plan dedupe.DeletionPlan) string {
	var b strings.Builder
	fmt.Fprintf(&b, "### Decision Summary\n\n")
	fmt.Fprintf(&b, "- **Groups with decisions:** %s\n", Count(stats.Decided))
	fmt.Fprintf(&b, "- **Groups skipped:** %s\n", Count(stats.Skipped))
	fmt.Fprintf(&b, "- **Groups pending:** %s\n", Count(stats.Pending))
	fmt.Fprintf(&b, "- **Files to delete:** %s\n", Count(len(plan.Files)))
	fmt.Fprintf(&b, "- **Space to recover:** %s\n", dedupe.FormatSize(plan.TotalBytes))
	if plan.Stale > 0 {
		fmt.Fprintf(&b, "- **Stale decisions:** %s (group changed since the decision, review again)\n", Count(plan.Stale))
	}
	b.WriteString("\n")

	if len(plan.Files) == 0 {
		b.WriteString("No files marked for deletion.\n")
		return b.String()
	}
	for i, f := range plan.Files {
		if i == PreviewLimit {
			fmt.Fprintf(&b, "\n... and %s more files\n", Count(len(plan.Files)-PreviewLimit))
			break
		}
		fmt.Fprintf(&b, "- DELETE: `%s` (%s)\n", f.Path, dedupe.FormatSize(f.Size))
	}
	return b.String()
}

// Count formats n with thousands separators.
func Count(n int) string {
	s := strconv.Itoa(n)
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// Render writes markdown to w. A terminal gets glamour styling sized to its
// width; anything else gets the markdown source unchanged.
func Render(w io.Writer, markdown string) error {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		_, err := io.WriteString(w, markdown)
		return err
	}

	width := 80
	if cols, _, err := term.GetSize(int(f.Fd())); err == nil && cols > 0 {
		width = cols
	}
	out, err := RenderStyled(markdown, width)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, out)
	return err
}

// RenderStyled renders markdown with glamour, wrapping at width.
func RenderStyled(markdown string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width-2),
	)
	if err != nil {
		return "", fmt.Errorf("creating markdown renderer: %w", err)
	}
	out, err := r.Render(markdown)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return out, nil
}
