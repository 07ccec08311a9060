// Package ui renders terminal output with lipgloss: alert boxes for API errors and
// the "open Spotify" prompt, plus a one-line playback status.
//
// [Printer] implements [player.Observer] so a [player.Controller] can report straight to the terminal.
package ui
