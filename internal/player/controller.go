package player

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/charmbracelet/log"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/shared"
)

const (
	DefaultSettleDelay  = 300 * time.Millisecond
	DefaultPollAttempts = 4
)

// State is the playback snapshot reported to an [Observer].
type State struct {
	IsPlaying     bool   `json:"is_playing"`
	TrackID       string `json:"track_id"`
	TrackName     string `json:"track_name"`
	Artists       string `json:"artists"`
	Album         string `json:"album"`
	AlbumImageURL string `json:"album_image_url,omitempty"`
	ProgressMS    int    `json:"progress_ms"`
	DurationMS    int    `json:"duration_ms"`
	Device        string `json:"device"`
	Shuffle       bool   `json:"shuffle"`
	Repeat        string `json:"repeat"`
}

// StateFrom flattens a [CurrentlyPlaying] response. It reports false when there is no track.
func StateFrom(cp *CurrentlyPlaying) (State, bool) {
	if cp == nil || cp.Item == nil {
		return State{}, false
	}

	s := State{
		IsPlaying:     cp.IsPlaying,
		TrackID:       cp.Item.ID,
		TrackName:     cp.Item.Name,
		Artists:       cp.Item.ArtistNames(),
		Album:         cp.Item.Album.Name,
		AlbumImageURL: cp.Item.Album.ImageURL(),
		DurationMS:    cp.Item.DurationMS,
		Device:        cp.Device.Name,
		Shuffle:       cp.ShuffleState,
		Repeat:        cp.RepeatState,
	}
	if cp.ProgressMS != nil {
		s.ProgressMS = *cp.ProgressMS
	}
	return s, true
}

// Observer receives playback updates. Calls happen synchronously on the caller's goroutine.
type Observer interface {
	PlaybackChanged(State)
	PlaybackFailed(*api.Error)
	// NoActiveDevice is called when Spotify has no device to control.
	NoActiveDevice()
}

// Playback is the set of calls the [Controller] needs. [*Service] satisfies it.
type Playback interface {
	CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error)
	Play(ctx context.Context) error
	Pause(ctx context.Context) error
	Next(ctx context.Context) error
	Previous(ctx context.Context) error
}

// Controller issues playback commands and reports the state that follows.
type Controller struct {
	playback   Playback
	observer   Observer
	settle     time.Duration
	attempts   uint
	newBackOff func() backoff.BackOff
	logger     *log.Logger

	mu   sync.Mutex
	last *State
}

// ControllerOption configures a [Controller].
type ControllerOption func(*Controller)

// WithSettleDelay sets the wait between a command and the first state read.
func WithSettleDelay(d time.Duration) ControllerOption {
	return func(c *Controller) {
		if d >= 0 {
			c.settle = d
		}
	}
}

// WithPollAttempts bounds how many state reads follow a command.
func WithPollAttempts(n int) ControllerOption {
	return func(c *Controller) {
		if n > 0 {
			c.attempts = uint(n)
		}
	}
}

// WithBackOff sets the policy between state reads.
func WithBackOff(fn func() backoff.BackOff) ControllerOption {
	return func(c *Controller) { c.newBackOff = fn }
}

// WithControllerLogger sets the logger.
func WithControllerLogger(l *log.Logger) ControllerOption {
	return func(c *Controller) { c.logger = l }
}

// NewController creates a Controller reporting to observer.
func NewController(p Playback, observer Observer, opts ...ControllerOption) *Controller {
	c := &Controller{
		playback: p,
		observer: observer,
		settle:   DefaultSettleDelay,
		attempts: DefaultPollAttempts,
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = 150 * time.Millisecond
			b.MaxInterval = time.Second
			return b
		},
		logger: log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Last returns the most recently observed state.
func (c *Controller) Last() (State, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return State{}, false
	}
	return *c.last, true
}

func (c *Controller) remember(s State) {
	c.mu.Lock()
	c.last = &s
	c.mu.Unlock()
}

// errNoTrack marks a successful response without a track.
var errNoTrack = errors.New("no track playing")

// errUnsettled marks a state read that does not yet reflect the last command.
var errUnsettled = errors.New("playback state not settled")

func (c *Controller) fetch(ctx context.Context) (State, error) {
	cp, err := c.playback.CurrentlyPlaying(ctx)
	if err != nil {
		return State{}, err
	}
	s, ok := StateFrom(cp)
	if !ok {
		return State{}, errNoTrack
	}
	return s, nil
}

// Refresh reads the current state and reports it.
func (c *Controller) Refresh(ctx context.Context) error {
	s, err := c.fetch(ctx)
	return c.report(s, err)
}

// Sync reads the current state and remembers it without notifying the observer.
// A successful response with nothing playing clears nothing and is not an error.
func (c *Controller) Sync(ctx context.Context) error {
	s, err := c.fetch(ctx)
	if errors.Is(err, errNoTrack) {
		return nil
	}
	if err != nil {
		return err
	}
	c.remember(s)
	return nil
}

// Play resumes playback and reports the resulting state.
func (c *Controller) Play(ctx context.Context) error {
	return c.command(ctx, "play", c.playback.Play, func(_ *State, after State) bool {
		return after.IsPlaying
	})
}

// Pause pauses playback and reports the resulting state.
func (c *Controller) Pause(ctx context.Context) error {
	return c.command(ctx, "pause", c.playback.Pause, func(_ *State, after State) bool {
		return !after.IsPlaying
	})
}

// Next skips forward and reports the resulting state.
func (c *Controller) Next(ctx context.Context) error {
	return c.command(ctx, "next", c.playback.Next, trackChanged)
}

// Previous skips back and reports the resulting state. Spotify restarts the current
// track instead when it is past its first seconds, so a rewind also counts.
func (c *Controller) Previous(ctx context.Context) error {
	return c.command(ctx, "previous", c.playback.Previous, func(before *State, after State) bool {
		return trackChanged(before, after) || (before != nil && after.ProgressMS < before.ProgressMS)
	})
}

func trackChanged(before *State, after State) bool {
	return before == nil || before.TrackID != after.TrackID
}

func (c *Controller) command(ctx context.Context, name string, send func(context.Context) error, settled func(*State, State) bool) error {
	var before *State
	if s, ok := c.Last(); ok {
		before = &s
	}

	if err := send(ctx); err != nil {
		return c.report(State{}, err)
	}

	if c.settle > 0 {
		select {
		case <-ctx.Done():
			return c.report(State{}, ctx.Err())
		case <-time.After(c.settle):
		}
	}

	var (
		observed State
		seen     bool
	)
	poll := func() (State, error) {
		s, err := c.fetch(ctx)
		if err != nil {
			return State{}, backoff.Permanent(err)
		}
		observed, seen = s, true
		if !settled(before, s) {
			return s, errUnsettled
		}
		return s, nil
	}

	s, err := backoff.Retry(ctx, poll,
		backoff.WithBackOff(c.newBackOff()),
		backoff.WithMaxTries(c.attempts),
	)
	if errors.Is(err, errUnsettled) && seen {
		c.logger.Debug("playback state did not settle, reporting last observed", "command", name, "attempts", c.attempts)
		s, err = observed, nil
	}
	return c.report(s, err)
}

// report notifies the observer and returns the error the caller should surface.
func (c *Controller) report(s State, err error) error {
	if err == nil {
		c.remember(s)
		c.observer.PlaybackChanged(s)
		return nil
	}

	if errors.Is(err, errNoTrack) || api.KindOf(err) == api.NotFound {
		c.observer.NoActiveDevice()
		return shared.ErrNoActiveDevice
	}

	apiErr := api.AsError(err)
	c.observer.PlaybackFailed(apiErr)
	return apiErr
}
