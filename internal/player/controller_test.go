package player

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/shared"
)

// scriptedPlayback returns the queued states in order and repeats the last one.
type scriptedPlayback struct {
	states     []*CurrentlyPlaying
	fetchErr   error
	commandErr error
	fetches    int
	commands   []string
}

func (s *scriptedPlayback) CurrentlyPlaying(context.Context) (*CurrentlyPlaying, error) {
	s.fetches++
	if s.fetchErr != nil {
		return nil, s.fetchErr
	}
	if len(s.states) == 0 {
		return nil, nil
	}
	cp := s.states[0]
	if len(s.states) > 1 {
		s.states = s.states[1:]
	}
	return cp, nil
}

func (s *scriptedPlayback) record(name string) error {
	s.commands = append(s.commands, name)
	return s.commandErr
}

func (s *scriptedPlayback) Play(context.Context) error     { return s.record("play") }
func (s *scriptedPlayback) Pause(context.Context) error    { return s.record("pause") }
func (s *scriptedPlayback) Next(context.Context) error     { return s.record("next") }
func (s *scriptedPlayback) Previous(context.Context) error { return s.record("previous") }

type recorder struct {
	changed  []State
	failed   []*api.Error
	noDevice int
}

func (r *recorder) PlaybackChanged(s State)       { r.changed = append(r.changed, s) }
func (r *recorder) PlaybackFailed(err *api.Error) { r.failed = append(r.failed, err) }
func (r *recorder) NoActiveDevice()               { r.noDevice++ }

func playing(id string, isPlaying bool, progress int) *CurrentlyPlaying {
	return &CurrentlyPlaying{
		IsPlaying:  isPlaying,
		ProgressMS: &progress,
		Device:     Device{Name: "Kitchen"},
		Item: &Track{
			ID:         id,
			Name:       "Track " + id,
			DurationMS: 200000,
			Artists:    []Artist{{Name: "Daft Punk"}, {Name: "Pharrell Williams"}},
			Album:      Album{Name: "Random Access Memories", Images: []Image{{URL: "https://i.scdn.co/image/ram"}}},
		},
	}
}

func newTestController(p Playback, o Observer, attempts int) *Controller {
	return NewController(p, o,
		WithSettleDelay(0),
		WithPollAttempts(attempts),
		WithBackOff(func() backoff.BackOff { return &backoff.ZeroBackOff{} }),
	)
}

func TestStateFrom(t *testing.T) {
	if _, ok := StateFrom(nil); ok {
		t.Error("nil response should not produce a state")
	}
	if _, ok := StateFrom(&CurrentlyPlaying{IsPlaying: true}); ok {
		t.Error("response without item should not produce a state")
	}

	s, ok := StateFrom(playing("a", true, 1500))
	if !ok {
		t.Fatal("expected state")
	}
	if s.TrackID != "a" || !s.IsPlaying || s.ProgressMS != 1500 || s.Device != "Kitchen" {
		t.Errorf("unexpected state %+v", s)
	}
	if s.Artists != "Daft Punk, Pharrell Williams" || s.AlbumImageURL != "https://i.scdn.co/image/ram" {
		t.Errorf("unexpected artists/artwork %+v", s)
	}
}

func TestController(t *testing.T) {
	ctx := context.Background()

	t.Run("Refresh reports state", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{playing("a", true, 0)}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if len(obs.changed) != 1 || obs.changed[0].TrackID != "a" {
			t.Errorf("unexpected notifications %+v", obs.changed)
		}
		if last, ok := c.Last(); !ok || last.TrackID != "a" {
			t.Errorf("Last() = %+v, %v", last, ok)
		}
	})

	t.Run("nothing playing prompts for a device", func(t *testing.T) {
		obs := &recorder{}
		c := newTestController(&scriptedPlayback{}, obs, 3)

		if err := c.Refresh(ctx); !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
		if obs.noDevice != 1 || len(obs.failed) != 0 {
			t.Errorf("unexpected notifications %+v", obs)
		}
	})

	t.Run("NotFound prompts for a device", func(t *testing.T) {
		p := &scriptedPlayback{fetchErr: &api.Error{Kind: api.NotFound, StatusCode: 404}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		if err := c.Refresh(ctx); !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
		if obs.noDevice != 1 {
			t.Error("expected NoActiveDevice notification")
		}
	})

	t.Run("other failures are reported", func(t *testing.T) {
		p := &scriptedPlayback{fetchErr: &api.Error{Kind: api.TooManyRequests, StatusCode: 429}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		err := c.Refresh(ctx)
		if api.KindOf(err) != api.TooManyRequests {
			t.Errorf("expected TooManyRequests, got %v", err)
		}
		if len(obs.failed) != 1 || obs.failed[0].Kind != api.TooManyRequests {
			t.Errorf("unexpected failures %+v", obs.failed)
		}
	})

	t.Run("Play polls until playing", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{
			playing("a", false, 0),
			playing("a", false, 0),
			playing("a", true, 100),
		}}
		obs := &recorder{}
		c := newTestController(p, obs, 5)

		if err := c.Play(ctx); err != nil {
			t.Fatalf("Play() error = %v", err)
		}
		if p.fetches != 3 {
			t.Errorf("fetches = %d, want 3", p.fetches)
		}
		if len(obs.changed) != 1 || !obs.changed[0].IsPlaying {
			t.Errorf("unexpected notifications %+v", obs.changed)
		}
		if len(p.commands) != 1 || p.commands[0] != "play" {
			t.Errorf("commands = %v", p.commands)
		}
	})

	t.Run("Pause reports last observed state when attempts run out", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{playing("a", true, 0)}}
		obs := &recorder{}
		c := newTestController(p, obs, 2)

		if err := c.Pause(ctx); err != nil {
			t.Fatalf("Pause() error = %v", err)
		}
		if p.fetches != 2 {
			t.Errorf("fetches = %d, want 2", p.fetches)
		}
		if len(obs.changed) != 1 || !obs.changed[0].IsPlaying {
			t.Errorf("expected last observed state, got %+v", obs.changed)
		}
	})

	t.Run("Next waits for a new track", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{
			playing("a", true, 0),
			playing("a", true, 0),
			playing("b", true, 0),
		}}
		obs := &recorder{}
		c := newTestController(p, obs, 5)

		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if err := c.Next(ctx); err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		last, _ := c.Last()
		if last.TrackID != "b" {
			t.Errorf("expected track b, got %+v", last)
		}
	})

	t.Run("Previous accepts a restarted track", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{
			playing("a", true, 90000),
			playing("a", true, 500),
		}}
		obs := &recorder{}
		c := newTestController(p, obs, 5)

		if err := c.Refresh(ctx); err != nil {
			t.Fatalf("Refresh() error = %v", err)
		}
		if err := c.Previous(ctx); err != nil {
			t.Fatalf("Previous() error = %v", err)
		}
		if p.fetches != 2 {
			t.Errorf("fetches = %d, want 2", p.fetches)
		}
		if last, _ := c.Last(); last.ProgressMS != 500 {
			t.Errorf("unexpected state %+v", last)
		}
	})

	t.Run("command failure skips polling", func(t *testing.T) {
		p := &scriptedPlayback{commandErr: &api.Error{Kind: api.Forbidden, StatusCode: 403}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		if err := c.Next(ctx); api.KindOf(err) != api.Forbidden {
			t.Errorf("expected Forbidden, got %v", err)
		}
		if p.fetches != 0 {
			t.Errorf("fetches = %d, want 0", p.fetches)
		}
		if len(obs.failed) != 1 {
			t.Error("expected PlaybackFailed notification")
		}
	})

	t.Run("command without device", func(t *testing.T) {
		p := &scriptedPlayback{commandErr: &api.Error{Kind: api.NotFound, StatusCode: 404}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		if err := c.Play(ctx); !errors.Is(err, shared.ErrNoActiveDevice) {
			t.Errorf("expected ErrNoActiveDevice, got %v", err)
		}
		if obs.noDevice != 1 {
			t.Error("expected NoActiveDevice notification")
		}
	})

	t.Run("poll error stops immediately", func(t *testing.T) {
		p := &scriptedPlayback{fetchErr: &api.Error{Kind: api.General, StatusCode: 500}}
		obs := &recorder{}
		c := newTestController(p, obs, 5)

		if err := c.Play(ctx); api.KindOf(err) != api.General {
			t.Errorf("expected General, got %v", err)
		}
		if p.fetches != 1 {
			t.Errorf("fetches = %d, want 1", p.fetches)
		}
	})

	t.Run("settle delay honours cancellation", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{playing("a", true, 0)}}
		obs := &recorder{}
		c := NewController(p, obs, WithSettleDelay(time.Hour))

		cctx, cancel := context.WithCancel(ctx)
		cancel()
		if err := c.Play(cctx); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if p.fetches != 0 {
			t.Error("no state read should happen after cancellation")
		}
	})
	t.Run("Sync remembers state quietly", func(t *testing.T) {
		p := &scriptedPlayback{states: []*CurrentlyPlaying{playing("a", true, 5000), playing("b", true, 0)}}
		obs := &recorder{}
		c := newTestController(p, obs, 3)

		if err := c.Sync(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(obs.changed) != 0 {
			t.Errorf("Sync should not notify, got %d updates", len(obs.changed))
		}
		if last, ok := c.Last(); !ok || last.TrackID != "a" {
			t.Fatalf("Last() = %+v, %v", last, ok)
		}

		if err := c.Next(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := obs.changed[len(obs.changed)-1].TrackID; got != "b" {
			t.Errorf("reported track = %q, want b", got)
		}
	})

	t.Run("Sync with nothing playing", func(t *testing.T) {
		c := newTestController(&scriptedPlayback{}, &recorder{}, 1)
		if err := c.Sync(ctx); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, ok := c.Last(); ok {
			t.Error("expected no remembered state")
		}
	})

	t.Run("Sync surfaces fetch errors", func(t *testing.T) {
		p := &scriptedPlayback{fetchErr: &api.Error{Kind: api.Forbidden, StatusCode: 403}}
		obs := &recorder{}
		c := newTestController(p, obs, 1)
		if err := c.Sync(ctx); api.KindOf(err) != api.Forbidden {
			t.Errorf("expected Forbidden, got %v", err)
		}
		if len(obs.failed) != 0 {
			t.Error("Sync should not notify on failure")
		}
	})
}
