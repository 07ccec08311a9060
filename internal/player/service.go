package player

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/shared"
)

// DefaultBaseURL is the current-user API root.
const DefaultBaseURL = "https://api.spotify.com/v1/me"

// MaxRecentlyPlayed is the largest page the recently-played endpoint returns.
const MaxRecentlyPlayed = 50

// Sender performs authenticated API calls. [*api.Client] satisfies it.
type Sender interface {
	Send(ctx context.Context, req api.Request) ([]byte, error)
}

// Service calls the playback endpoints.
type Service struct {
	client  Sender
	baseURL string
}

// NewService creates a Service rooted at baseURL ([DefaultBaseURL] when empty).
func NewService(client Sender, baseURL string) *Service {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Service{client: client, baseURL: strings.TrimSuffix(baseURL, "/")}
}

func (s *Service) url(path string) string {
	return s.baseURL + path
}

// CurrentlyPlaying returns the current playback state, or nil when nothing is playing.
func (s *Service) CurrentlyPlaying(ctx context.Context) (*CurrentlyPlaying, error) {
	body, err := s.client.Send(ctx, api.NewRequest(api.MethodGet, s.url("/player")))
	if err != nil {
		return nil, err
	}
	if len(body) == 0 {
		return nil, nil
	}

	var cp CurrentlyPlaying
	if err := json.Unmarshal(body, &cp); err != nil {
		return nil, &api.Error{Kind: api.General, Err: fmt.Errorf("decode playback state: %w", err)}
	}
	return &cp, nil
}

// Play resumes playback on the active device.
func (s *Service) Play(ctx context.Context) error {
	return s.command(ctx, api.MethodPut, "/player/play")
}

// Pause pauses playback on the active device.
func (s *Service) Pause(ctx context.Context) error {
	return s.command(ctx, api.MethodPut, "/player/pause")
}

// Next skips to the next track.
func (s *Service) Next(ctx context.Context) error {
	return s.command(ctx, api.MethodPost, "/player/next")
}

// Previous skips to the previous track.
func (s *Service) Previous(ctx context.Context) error {
	return s.command(ctx, api.MethodPost, "/player/previous")
}

func (s *Service) command(ctx context.Context, method api.Method, path string) error {
	_, err := s.client.Send(ctx, api.NewRequest(method, s.url(path)))
	return err
}

// RecentlyPlayed returns up to limit recently played tracks. A limit of 0 uses the API default.
func (s *Service) RecentlyPlayed(ctx context.Context, limit int) (*PlayHistory, error) {
	if limit < 0 || limit > MaxRecentlyPlayed {
		return nil, fmt.Errorf("%w: limit must be between 1 and %d", shared.ErrInvalidArgument, MaxRecentlyPlayed)
	}

	req := api.NewRequest(api.MethodGet, s.url("/player/recently-played"))
	if limit > 0 {
		req = req.WithParameters(api.Parameters{"limit": strconv.Itoa(limit)})
	}

	body, err := s.client.Send(ctx, req)
	if err != nil {
		return nil, err
	}

	var history PlayHistory
	if len(body) == 0 {
		return &history, nil
	}
	if err := json.Unmarshal(body, &history); err != nil {
		return nil, &api.Error{Kind: api.General, Err: fmt.Errorf("decode play history: %w", err)}
	}
	return &history, nil
}
