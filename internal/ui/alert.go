package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/formatter"
	"github.com/desertthunder/spotctl/internal/player"
)

const (
	noDeviceTitle   = "Open Spotify"
	noDeviceMessage = "No active device found. Start playing on any Spotify app, then try again."
)

// Alert renders a bordered title/message box.
func Alert(title, message string) string {
	body := lipgloss.JoinVertical(lipgloss.Left, styles.Err(title), message)
	return styles.box.Render(body)
}

// ErrorAlert renders the user-facing pair of err.
func ErrorAlert(err *api.Error) string {
	return Alert(err.Title(), err.Message())
}

// NoDeviceAlert renders the prompt shown when there is nothing to control.
func NoDeviceAlert() string {
	return Alert(noDeviceTitle, noDeviceMessage)
}

// StatusLine renders a single line summary such as "▶ Get Lucky · Daft Punk  1:01/6:09".
func StatusLine(s player.State) string {
	icon := styles.Warn("⏸")
	if s.IsPlaying {
		icon = styles.OK("▶")
	}

	parts := []string{icon, styles.Title(s.TrackName)}
	if s.Artists != "" {
		parts = append(parts, "·", s.Artists)
	}
	progress := fmt.Sprintf(" %s/%s", formatter.Duration(s.ProgressMS), formatter.Duration(s.DurationMS))
	return strings.Join(parts, " ") + styles.Help(progress)
}

// Printer writes controller notifications to a terminal.
type Printer struct {
	out    io.Writer
	errOut io.Writer
	json   bool
}

var _ player.Observer = (*Printer)(nil)

// NewPrinter creates a Printer writing state to out and alerts to errOut.
// When asJSON is set, state is written as JSON instead of a status line.
func NewPrinter(out, errOut io.Writer, asJSON bool) *Printer {
	return &Printer{out: out, errOut: errOut, json: asJSON}
}

func (p *Printer) PlaybackChanged(s player.State) {
	if p.json {
		data, err := formatter.Playback(s, formatter.JSON)
		if err != nil {
			fmt.Fprintln(p.errOut, Alert("Output Error", err.Error()))
			return
		}
		fmt.Fprintln(p.out, string(data))
		return
	}
	fmt.Fprintln(p.out, StatusLine(s))
}

func (p *Printer) PlaybackFailed(err *api.Error) {
	fmt.Fprintln(p.errOut, ErrorAlert(err))
}

func (p *Printer) NoActiveDevice() {
	fmt.Fprintln(p.errOut, NoDeviceAlert())
}
