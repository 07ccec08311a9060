package player

import (
	"strings"
	"time"
)

// Spotify Web API response types, see https://developer.spotify.com/documentation/web-api/reference/

// Image is an album or artist artwork resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist is a simplified artist object.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album is a simplified album object.
type Album struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	ReleaseDate string   `json:"release_date"`
	Images      []Image  `json:"images"`
	Artists     []Artist `json:"artists"`
	URI         string   `json:"uri"`
}

// ImageURL returns the first (largest) artwork URL, or "".
func (a Album) ImageURL() string {
	if len(a.Images) == 0 {
		return ""
	}
	return a.Images[0].URL
}

// Track is a full track object.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	URI        string   `json:"uri"`
}

// ArtistNames joins the track's artist names with ", ".
func (t Track) ArtistNames() string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// Device is the playback device the user is currently controlling.
type Device struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Type          string `json:"type"`
	IsActive      bool   `json:"is_active"`
	VolumePercent *int   `json:"volume_percent"`
}

// Context is the playlist, album or artist playback started from.
type Context struct {
	Type string `json:"type"`
	URI  string `json:"uri"`
	Href string `json:"href"`
}

// CurrentlyPlaying is the response of GET /me/player.
type CurrentlyPlaying struct {
	Device       Device   `json:"device"`
	RepeatState  string   `json:"repeat_state"`
	ShuffleState bool     `json:"shuffle_state"`
	Context      *Context `json:"context"`
	Timestamp    int64    `json:"timestamp"`
	ProgressMS   *int     `json:"progress_ms"`
	IsPlaying    bool     `json:"is_playing"`
	Item         *Track   `json:"item"`
	Type         string   `json:"currently_playing_type"`
}

// PlayHistoryItem is a single entry of the recently played list.
type PlayHistoryItem struct {
	Track    Track     `json:"track"`
	PlayedAt time.Time `json:"played_at"`
	Context  *Context  `json:"context"`
}

// Cursors page through the recently played list.
type Cursors struct {
	After  string `json:"after"`
	Before string `json:"before"`
}

// PlayHistory is the response of GET /me/player/recently-played.
type PlayHistory struct {
	Items   []PlayHistoryItem `json:"items"`
	Next    *string           `json:"next"`
	Cursors *Cursors          `json:"cursors"`
	Limit   int               `json:"limit"`
	Href    string            `json:"href"`
}
