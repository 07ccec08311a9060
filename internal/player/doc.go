// package player wraps the Spotify playback endpoints under /v1/me/player.
//
// [Service] issues the raw calls; [Controller] runs a command, waits for Spotify to
// settle and reports the resulting [State] to an [Observer].
package player
