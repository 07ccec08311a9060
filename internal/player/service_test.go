package player

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/desertthunder/spotctl/internal/api"
	"github.com/desertthunder/spotctl/internal/credentials"
	"github.com/desertthunder/spotctl/internal/shared"
)

const currentlyPlayingJSON = `{
  "device": {"id": "dev1", "name": "Kitchen", "type": "Speaker", "is_active": true, "volume_percent": 40},
  "repeat_state": "off",
  "shuffle_state": false,
  "context": {"type": "album", "uri": "spotify:album:1", "href": "https://api.spotify.com/v1/albums/1"},
  "timestamp": 1700000000000,
  "progress_ms": 61000,
  "is_playing": true,
  "item": {
    "id": "track1",
    "name": "One More Time",
    "duration_ms": 320357,
    "artists": [{"id": "a1", "name": "Daft Punk"}],
    "album": {"id": "1", "name": "Discovery", "images": [{"url": "https://i.scdn.co/image/large", "height": 640, "width": 640}]}
  },
  "currently_playing_type": "track"
}`

const recentlyPlayedJSON = `{
  "items": [
    {"track": {"id": "t1", "name": "Digital Love", "duration_ms": 301373, "artists": [{"name": "Daft Punk"}], "album": {"name": "Discovery"}}, "played_at": "2024-03-01T16:54:02.651Z"},
    {"track": {"id": "t2", "name": "Around the World", "duration_ms": 429533, "artists": [{"name": "Daft Punk"}], "album": {"name": "Homework"}}, "played_at": "2024-03-01T16:49:00Z"}
  ],
  "limit": 2,
  "cursors": {"after": "1709312042651", "before": "1709311740000"}
}`

// fakeSender records requests and replays a canned response.
type fakeSender struct {
	requests []api.Request
	body     []byte
	err      error
}

func (f *fakeSender) Send(_ context.Context, req api.Request) ([]byte, error) {
	f.requests = append(f.requests, req)
	return f.body, f.err
}

func TestService(t *testing.T) {
	ctx := context.Background()

	t.Run("CurrentlyPlaying decodes state", func(t *testing.T) {
		sender := &fakeSender{body: []byte(currentlyPlayingJSON)}
		svc := NewService(sender, "")

		cp, err := svc.CurrentlyPlaying(ctx)
		if err != nil {
			t.Fatalf("CurrentlyPlaying() error = %v", err)
		}
		if cp == nil || cp.Item == nil {
			t.Fatal("expected a track")
		}
		if cp.Item.Name != "One More Time" || !cp.IsPlaying || *cp.ProgressMS != 61000 {
			t.Errorf("unexpected state %+v", cp)
		}
		if cp.Device.Name != "Kitchen" || cp.Context.Type != "album" || cp.Type != "track" {
			t.Errorf("unexpected device/context %+v %+v", cp.Device, cp.Context)
		}

		req := sender.requests[0]
		if req.Method != api.MethodGet || req.URL != DefaultBaseURL+"/player" {
			t.Errorf("unexpected request %+v", req)
		}
	})

	t.Run("CurrentlyPlaying empty body means nothing playing", func(t *testing.T) {
		svc := NewService(&fakeSender{body: []byte{}}, "")
		cp, err := svc.CurrentlyPlaying(ctx)
		if err != nil || cp != nil {
			t.Errorf("expected nil, nil; got %v, %v", cp, err)
		}
	})

	t.Run("CurrentlyPlaying decode failure is General", func(t *testing.T) {
		svc := NewService(&fakeSender{body: []byte("{")}, "")
		_, err := svc.CurrentlyPlaying(ctx)
		if api.KindOf(err) != api.General {
			t.Errorf("expected General, got %v", err)
		}
	})

	t.Run("commands use the right verbs", func(t *testing.T) {
		sender := &fakeSender{}
		svc := NewService(sender, "https://example.test/v1/me/")

		calls := []struct {
			fn     func(context.Context) error
			method api.Method
			path   string
		}{
			{svc.Play, api.MethodPut, "/player/play"},
			{svc.Pause, api.MethodPut, "/player/pause"},
			{svc.Next, api.MethodPost, "/player/next"},
			{svc.Previous, api.MethodPost, "/player/previous"},
		}

		for i, c := range calls {
			if err := c.fn(ctx); err != nil {
				t.Fatalf("command %d error = %v", i, err)
			}
			req := sender.requests[i]
			if req.Method != c.method || req.URL != "https://example.test/v1/me"+c.path {
				t.Errorf("command %d: got %s %s", i, req.Method, req.URL)
			}
		}
	})

	t.Run("command errors pass through", func(t *testing.T) {
		want := &api.Error{Kind: api.Forbidden, StatusCode: 403}
		svc := NewService(&fakeSender{err: want}, "")
		if err := svc.Pause(ctx); !errors.Is(err, want) {
			t.Errorf("expected forbidden error, got %v", err)
		}
	})

	t.Run("RecentlyPlayed", func(t *testing.T) {
		sender := &fakeSender{body: []byte(recentlyPlayedJSON)}
		svc := NewService(sender, "")

		history, err := svc.RecentlyPlayed(ctx, 2)
		if err != nil {
			t.Fatalf("RecentlyPlayed() error = %v", err)
		}
		if len(history.Items) != 2 {
			t.Fatalf("expected 2 items, got %d", len(history.Items))
		}
		if history.Items[0].Track.Name != "Digital Love" || history.Items[0].PlayedAt.IsZero() {
			t.Errorf("unexpected first item %+v", history.Items[0])
		}
		if sender.requests[0].Parameters["limit"] != "2" {
			t.Errorf("unexpected parameters %v", sender.requests[0].Parameters)
		}
	})

	t.Run("RecentlyPlayed default limit omits parameter", func(t *testing.T) {
		sender := &fakeSender{body: []byte(`{"items":[]}`)}
		if _, err := NewService(sender, "").RecentlyPlayed(ctx, 0); err != nil {
			t.Fatalf("RecentlyPlayed() error = %v", err)
		}
		if len(sender.requests[0].Parameters) != 0 {
			t.Errorf("expected no parameters, got %v", sender.requests[0].Parameters)
		}
	})

	t.Run("RecentlyPlayed rejects out of range limit", func(t *testing.T) {
		sender := &fakeSender{}
		for _, limit := range []int{-1, 51} {
			if _, err := NewService(sender, "").RecentlyPlayed(ctx, limit); !errors.Is(err, shared.ErrInvalidArgument) {
				t.Errorf("limit %d: expected ErrInvalidArgument, got %v", limit, err)
			}
		}
		if len(sender.requests) != 0 {
			t.Error("no request should be sent for an invalid limit")
		}
	})
}

func TestServiceWithClient(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer access" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		switch r.URL.Path {
		case "/v1/me/player":
			w.WriteHeader(http.StatusNoContent)
		case "/v1/me/player/play":
			w.WriteHeader(http.StatusNotFound)
			w.Write([]byte(`{"error":{"status":404,"message":"Player command failed: No active device found","reason":"NO_ACTIVE_DEVICE"}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	store := credentials.NewMemoryStore(credentials.Credential{AccessToken: "access", RefreshToken: "refresh"})
	client, err := api.NewClient(store, api.RefresherFunc(func(context.Context) (string, error) {
		return "", shared.ErrRefreshFailed
	}))
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	svc := NewService(client, ts.URL+"/v1/me")

	cp, err := svc.CurrentlyPlaying(context.Background())
	if err != nil || cp != nil {
		t.Errorf("204 should decode to nil state, got %v, %v", cp, err)
	}

	err = svc.Play(context.Background())
	if api.KindOf(err) != api.NotFound {
		t.Errorf("expected NotFound, got %v", err)
	}
}
