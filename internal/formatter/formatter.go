// package formatter renders playback state and play history as text, CSV, Markdown or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/spotctl/internal/models"
	"github.com/desertthunder/spotctl/internal/player"
	"github.com/desertthunder/spotctl/internal/shared"
)

// Format selects an output encoding.
type Format string

const (
	Text     Format = "text"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	JSON     Format = "json"
)

// Formats lists every supported [Format].
var Formats = []Format{Text, CSV, Markdown, JSON}

// ParseFormat resolves a --format value. "md" is accepted for Markdown.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "text", "txt":
		return Text, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "json":
		return JSON, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, s)
}

// Duration renders milliseconds as m:ss.
func Duration(ms int) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	return fmt.Sprintf("%d:%02d", total/60, total%60)
}

// History renders records in the given format.
func History(records []*models.PlayRecord, format Format) ([]byte, error) {
	switch format {
	case CSV:
		return HistoryToCSV(records)
	case Markdown:
		return HistoryToMarkdown(records), nil
	case JSON:
		return shared.MarshalJSON(records, true)
	default:
		return HistoryToText(records), nil
	}
}

// HistoryToCSV writes columns: Played At, Track ID, Track, Artists, Album, Duration.
func HistoryToCSV(records []*models.PlayRecord) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Played At", "Track ID", "Track", "Artists", "Album", "Duration"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, r := range records {
		row := []string{
			r.PlayedAt.UTC().Format(time.RFC3339),
			r.TrackID,
			r.TrackName,
			r.Artists,
			r.Album,
			strconv.Itoa(r.DurationMS / 1000),
		}
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// HistoryToMarkdown renders a numbered list under a heading.
func HistoryToMarkdown(records []*models.PlayRecord) []byte {
	var buf bytes.Buffer

	buf.WriteString("# Recently Played\n\n")
	fmt.Fprintf(&buf, "**Tracks**: %d\n\n", len(records))

	for i, r := range records {
		album := ""
		if r.Album != "" {
			album = fmt.Sprintf(" (%s)", r.Album)
		}
		fmt.Fprintf(&buf, "%d. %s - %s%s [%s] _%s_\n",
			i+1, r.Artists, r.TrackName, album, Duration(r.DurationMS), r.PlayedAt.Local().Format("Jan 2 15:04"))
	}
	return buf.Bytes()
}

// HistoryToText renders one line per play.
func HistoryToText(records []*models.PlayRecord) []byte {
	var buf bytes.Buffer
	if len(records) == 0 {
		buf.WriteString("No recently played tracks.\n")
		return buf.Bytes()
	}

	for i, r := range records {
		fmt.Fprintf(&buf, "%2d. %s  %s - %s [%s]\n",
			i+1, r.PlayedAt.Local().Format("Jan 2 15:04"), r.Artists, r.TrackName, Duration(r.DurationMS))
	}
	return buf.Bytes()
}

// Playback renders a playback snapshot. Only Text and JSON are meaningful; other formats fall back to Text.
func Playback(s player.State, format Format) ([]byte, error) {
	if format == JSON {
		return shared.MarshalJSON(s, true)
	}
	return []byte(PlaybackToText(s)), nil
}

// PlaybackToText renders the state as a few labelled lines.
func PlaybackToText(s player.State) string {
	var b strings.Builder

	status := "Paused"
	if s.IsPlaying {
		status = "Playing"
	}
	fmt.Fprintf(&b, "%s: %s\n", status, s.TrackName)
	fmt.Fprintf(&b, "Artist: %s\n", s.Artists)
	if s.Album != "" {
		fmt.Fprintf(&b, "Album: %s\n", s.Album)
	}
	fmt.Fprintf(&b, "Progress: %s / %s\n", Duration(s.ProgressMS), Duration(s.DurationMS))
	if s.Device != "" {
		fmt.Fprintf(&b, "Device: %s\n", s.Device)
	}
	return b.String()
}

// WriteFile writes rendered output to path, creating it with 0644 permissions.
func WriteFile(path string, data []byte) error {
	if path == "" {
		return fmt.Errorf("%w: output path", shared.ErrMissingArgument)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
