// package formatter renders run output for the terminal: the dry-run artist
// plan, the unmatched-track report and the per-profile summary.
package formatter

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	addStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	skipStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// ArtistRow is one line of the artist import plan.
type ArtistRow struct {
	Rank    int
	Name    string
	MBID    string
	Sources []string
	Status  string // "add", "exists", "unknown"
}

// RenderArtistPlan formats the ranked artist import plan shown on dry runs.
func RenderArtistPlan(rows []ArtistRow) string {
	var buf bytes.Buffer

	buf.WriteString(headerStyle.Render("Artist import plan"))
	buf.WriteString("\n")

	if len(rows) == 0 {
		buf.WriteString(dimStyle.Render("  (no recommended artists)"))
		buf.WriteString("\n")
		return buf.String()
	}

	for _, row := range rows {
		var status string
		switch row.Status {
		case "add":
			status = addStyle.Render("add")
		case "exists":
			status = skipStyle.Render("exists")
		default:
			status = warnStyle.Render(row.Status)
		}

		buf.WriteString(fmt.Sprintf("  %3d. %-40s %-8s %s\n",
			row.Rank, row.Name, status, dimStyle.Render(strings.Join(row.Sources, ","))))
	}

	return buf.String()
}

// UnmatchedRow is one feed track that found no catalog candidate.
type UnmatchedRow struct {
	Artist string
	Title  string
	Score  float64
}

// RenderUnmatched formats the unmatched-track report. Returns an empty
// string when every track matched.
func RenderUnmatched(rows []UnmatchedRow) string {
	if len(rows) == 0 {
		return ""
	}

	var buf bytes.Buffer
	buf.WriteString(headerStyle.Render(fmt.Sprintf("Unmatched tracks (%d)", len(rows))))
	buf.WriteString("\n")
	for _, row := range rows {
		buf.WriteString(fmt.Sprintf("  %s - %s %s\n",
			row.Artist, row.Title, dimStyle.Render(fmt.Sprintf("(best %.2f)", row.Score))))
	}
	return buf.String()
}

// RunSummary aggregates what one profile's run did.
type RunSummary struct {
	Profile         string
	DryRun          bool
	ArtistsAdded    int
	ArtistsSkipped  int
	TracksMatched   int
	TracksUnmatched int
	PlaylistTitle   string
}

// RenderSummary formats the per-profile run summary.
func RenderSummary(s RunSummary) string {
	var buf bytes.Buffer

	title := fmt.Sprintf("Run summary: %s", s.Profile)
	if s.DryRun {
		title += " (dry run)"
	}
	buf.WriteString(headerStyle.Render(title))
	buf.WriteString("\n")

	buf.WriteString(fmt.Sprintf("  artists added:   %d\n", s.ArtistsAdded))
	buf.WriteString(fmt.Sprintf("  artists skipped: %d\n", s.ArtistsSkipped))
	buf.WriteString(fmt.Sprintf("  tracks matched:  %d\n", s.TracksMatched))
	if s.TracksUnmatched > 0 {
		buf.WriteString(fmt.Sprintf("  tracks unmatched: %d\n", s.TracksUnmatched))
	}
	if s.PlaylistTitle != "" {
		buf.WriteString(fmt.Sprintf("  published: %s\n", s.PlaylistTitle))
	}

	return buf.String()
}
