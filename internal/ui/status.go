package ui

import (
	"encoding/json"
	"fmt"
	"io"
	"time"
)

// StatusInfo describes a notes directory and the state of its index.
type StatusInfo struct {
	NotesDir  string `json:"notes_dir"`
	OutputDir string `json:"output_dir"`

	Notes     int `json:"notes"`
	Generated int `json:"generated_pages"`
	Tags      int `json:"tags"`
	Dates     int `json:"dates"`
	Warnings  int `json:"warnings"`

	LastIndexed time.Time `json:"last_indexed,omitzero"`
	IndexSize   int64     `json:"index_size"`

	// Locked reports that another run currently holds the notes lock.
	Locked bool `json:"locked"`
}

// StatusRenderer displays index status.
type StatusRenderer struct {
	out    io.Writer
	styles Styles
}

// NewStatusRenderer creates a status renderer.
func NewStatusRenderer(out io.Writer, noColor bool) *StatusRenderer {
	return &StatusRenderer{
		out:    out,
		styles: GetStyles(noColor),
	}
}

// Render displays status info to terminal.
func (r *StatusRenderer) Render(info StatusInfo) error {
	_, _ = fmt.Fprintf(r.out, "%s\n\n", r.styles.Header.Render("Index Status: "+info.NotesDir))

	_, _ = fmt.Fprintf(r.out, "  Notes:        %d\n", info.Notes)
	_, _ = fmt.Fprintf(r.out, "  Tags:         %d\n", info.Tags)
	_, _ = fmt.Fprintf(r.out, "  Dates:        %d\n", info.Dates)
	if info.Warnings > 0 {
		_, _ = fmt.Fprintf(r.out, "  Warnings:     %s\n", r.styles.Warning.Render(fmt.Sprintf("%d", info.Warnings)))
	}
	_, _ = fmt.Fprintln(r.out)

	_, _ = fmt.Fprintln(r.out, "  Output:")
	_, _ = fmt.Fprintf(r.out, "    Directory:  %s\n", info.OutputDir)
	_, _ = fmt.Fprintf(r.out, "    Pages:      %d\n", info.Generated)
	if info.LastIndexed.IsZero() {
		_, _ = fmt.Fprintf(r.out, "    Index:      %s\n", r.styles.Warning.Render("not built"))
	} else {
		_, _ = fmt.Fprintf(r.out, "    Index:      %s, %s\n", FormatBytes(info.IndexSize), formatTime(info.LastIndexed))
	}
	_, _ = fmt.Fprintln(r.out)

	lock := r.styles.Success.Render("free")
	if info.Locked {
		lock = r.styles.Warning.Render("held by another run")
	}
	_, _ = fmt.Fprintf(r.out, "  Lock: %s\n", lock)

	return nil
}

// RenderJSON outputs status as JSON.
func (r *StatusRenderer) RenderJSON(info StatusInfo) error {
	encoder := json.NewEncoder(r.out)
	encoder.SetIndent("", "  ")
	return encoder.Encode(info)
}

// formatTime formats a time relative to now.
func formatTime(t time.Time) string {
	diff := time.Since(t)

	switch {
	case diff < time.Minute:
		return "just now"
	case diff < time.Hour:
		mins := int(diff.Minutes())
		if mins == 1 {
			return "1 minute ago"
		}
		return fmt.Sprintf("%d minutes ago", mins)
	case diff < 24*time.Hour:
		hours := int(diff.Hours())
		if hours == 1 {
			return "1 hour ago"
		}
		return fmt.Sprintf("%d hours ago", hours)
	case diff < 7*24*time.Hour:
		days := int(diff.Hours() / 24)
		if days == 1 {
			return "1 day ago"
		}
		return fmt.Sprintf("%d days ago", days)
	default:
		return t.Format("2006-01-02 15:04")
	}
}

// FormatBytes formats bytes to human-readable format.
func FormatBytes(bytes int64) string {
	const (
		KB = 1024
		MB = 1024 * KB
		GB = 1024 * MB
	)

	switch {
	case bytes >= GB:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(GB))
	case bytes >= MB:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(MB))
	case bytes >= KB:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(KB))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
