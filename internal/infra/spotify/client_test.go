package spotify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zmb3/spotify/v2"

	"github.com/osa030/smartlist/internal/app/smartplaylist"
	"github.com/osa030/smartlist/internal/domain/track"
)

type recordedRequest struct {
	Method string
	Path   string
	Query  string
	Body   string
}

type fakeAPI struct {
	mu       sync.Mutex
	requests []recordedRequest
	handler  func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Query:  r.URL.RawQuery,
		Body:   string(body),
	})
	f.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	f.handler(w, r)
}

func (f *fakeAPI) paths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.requests))
	for i, r := range f.requests {
		out[i] = r.Method + " " + r.Path
	}
	return out
}

func newTestClient(t *testing.T, handler func(w http.ResponseWriter, r *http.Request), opts ...Option) (*Client, *fakeAPI) {
	t.Helper()
	api := &fakeAPI{handler: handler}
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	sc := spotify.New(server.Client(), spotify.WithBaseURL(server.URL+"/"))
	opts = append([]Option{WithRetryDelay(time.Millisecond)}, opts...)
	return NewWithHTTPClient(sc, Config{Market: "JP"}, opts...), api
}

type fallbackFunc func(ctx context.Context, name string) ([]string, error)

func (f fallbackFunc) ArtistGenres(ctx context.Context, name string) ([]string, error) {
	return f(ctx, name)
}

func TestFetchTrackPage(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/me/tracks", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))
		assert.Equal(t, "100", r.URL.Query().Get("offset"))
		assert.Equal(t, "JP", r.URL.Query().Get("market"))
		fmt.Fprint(w, `{
			"limit": 50, "offset": 100, "total": 102,
			"items": [
				{
					"added_at": "2024-03-01T10:00:00Z",
					"track": {
						"id": "t1", "uri": "spotify:track:t1", "name": "First",
						"duration_ms": 215000, "popularity": 61, "explicit": true,
						"artists": [{"id": "a1", "name": "Artist A"}, {"id": "a2", "name": "Artist B"}],
						"album": {"name": "Album", "release_date": "2019-05-17"}
					}
				},
				{"added_at": "2024-03-02T10:00:00Z", "track": {"name": "Gone"}}
			]
		}`)
	})

	page, err := client.FetchTrackPage(context.Background(), 2, 50)
	require.NoError(t, err)
	require.Len(t, api.requests, 1)

	assert.Equal(t, 100, page.Offset)
	assert.Equal(t, 50, page.Limit)
	assert.Equal(t, 102, page.Total)
	assert.True(t, page.IsLast())
	require.Len(t, page.Items, 2, "unavailable tracks stay on the page")
	assert.False(t, page.Items[1].Available())
	assert.Empty(t, page.Items[1].URL)
	require.Len(t, page.Available(), 1)

	got := page.Items[0]
	assert.Equal(t, "t1", got.ID)
	assert.Equal(t, "spotify:track:t1", got.URI)
	assert.Equal(t, "First", got.Name)
	assert.Equal(t, "Album", got.Album)
	assert.Equal(t, "2019-05-17", got.ReleaseDate)
	assert.Equal(t, "2024-03-01T10:00:00Z", got.AddedAt)
	assert.Equal(t, []string{"Artist A", "Artist B"}, got.Artists)
	assert.Equal(t, []string{"a1", "a2"}, got.ArtistIDs)
	assert.Equal(t, 215000, got.DurationMs)
	assert.Equal(t, 61, got.Popularity)
	assert.True(t, got.Explicit)
	assert.Equal(t, "https://open.spotify.com/track/t1", got.URL)
}

func TestFetchTrackPage_UnavailablePageFeedsPipeline(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("offset") {
		case "0":
			fmt.Fprint(w, `{
				"limit": 2, "offset": 0, "total": 4,
				"items": [
					{"added_at": "2024-03-01T10:00:00Z", "track": {"name": "Removed"}},
					{"added_at": "2024-03-02T10:00:00Z", "track": {"name": "Region locked"}}
				]
			}`)
		default:
			fmt.Fprint(w, `{
				"limit": 2, "offset": 2, "total": 4,
				"items": [
					{"added_at": "2024-03-03T10:00:00Z", "track": {"id": "t3", "name": "Third", "duration_ms": 1000}},
					{"added_at": "2024-03-04T10:00:00Z", "track": {"id": "t4", "name": "Fourth", "duration_ms": 1000}}
				]
			}`)
		}
	})

	settings, err := smartplaylist.ParseSettings(nil, false)
	require.NoError(t, err)

	result, err := smartplaylist.NewPipeline(client, client, 2).Generate(context.Background(), settings)
	require.NoError(t, err)

	assert.Equal(t, []string{"GET /me/tracks", "GET /me/tracks"}, api.paths())
	assert.Equal(t, 2, result.Pages)
	require.Len(t, result.Tracks, 2)
	assert.Equal(t, "t3", result.Tracks[0].ID)
	assert.Equal(t, "t4", result.Tracks[1].ID)
}

func TestFetchTrackPage_InvalidPage(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
	_, err := client.FetchTrackPage(context.Background(), -1, 50)
	assert.Error(t, err)
	assert.Empty(t, api.requests)
}

func TestFetchArtistGenres(t *testing.T) {
	var fallbackCalls []string
	fallback := fallbackFunc(func(_ context.Context, name string) ([]string, error) {
		fallbackCalls = append(fallbackCalls, name)
		if name == "Broken" {
			return nil, errors.New("tag lookup failed")
		}
		return []string{"city pop"}, nil
	})

	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/artists", r.URL.Path)
		assert.Equal(t, "a1,a2,a3,missing", r.URL.Query().Get("ids"))
		fmt.Fprint(w, `{"artists": [
			{"id": "a1", "name": "Artist A", "genres": ["indie rock", "shoegaze"]},
			{"id": "a2", "name": "Obscure", "genres": []},
			{"id": "a3", "name": "Broken", "genres": []},
			null
		]}`)
	}, WithGenreFallback(fallback))

	genres, err := client.FetchArtistGenres(context.Background(), []string{"a1", "a2", "a3", "missing"})
	require.NoError(t, err)

	assert.Equal(t, []string{"indie rock", "shoegaze"}, genres["a1"])
	assert.Equal(t, []string{"city pop"}, genres["a2"])
	assert.Contains(t, genres, "a3", "fallback failure is not fatal")
	assert.Empty(t, genres["a3"])
	assert.NotContains(t, genres, "missing")
	assert.Equal(t, []string{"Obscure", "Broken"}, fallbackCalls)
}

func TestFetchArtistGenres_Batches(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"artists": []}`)
	})

	ids := make([]string, 120)
	for i := range ids {
		ids[i] = fmt.Sprintf("a%d", i)
	}
	_, err := client.FetchArtistGenres(context.Background(), ids)
	require.NoError(t, err)

	require.Len(t, api.requests, 3)
	for i, want := range []int{50, 50, 20} {
		query := strings.TrimPrefix(api.requests[i].Query, "ids=")
		assert.Len(t, strings.Split(strings.ReplaceAll(query, "%2C", ","), ","), want)
	}
}

func TestFetchAudioFeatures(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/audio-features", r.URL.Path)
		fmt.Fprint(w, `{"audio_features": [
			{"id": "t1", "tempo": 120.5, "energy": 0.8, "valence": 0.25, "danceability": 0.5,
			 "acousticness": 0.1, "instrumentalness": 0, "liveness": 0.2, "speechiness": 0.05,
			 "loudness": -6.5, "time_signature": 4, "key": 7, "mode": 1},
			null
		]}`)
	})

	features, err := client.FetchAudioFeatures(context.Background(), []string{"t1", "t2"})
	require.NoError(t, err)

	require.Contains(t, features, "t1")
	assert.NotContains(t, features, "t2")
	af := features["t1"]
	assert.InDelta(t, 120.5, af[track.FeatureTempo], 1e-4)
	assert.InDelta(t, 0.8, af[track.FeatureEnergy], 1e-4)
	assert.InDelta(t, -6.5, af[track.FeatureLoudness], 1e-4)
	assert.Equal(t, 4.0, af[track.FeatureTimeSignature])
	assert.Equal(t, 7.0, af[track.FeatureKey])
	assert.Equal(t, 1.0, af[track.FeatureMode])
}

func TestCreatePlaylist(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/me":
			fmt.Fprint(w, `{"id": "user1"}`)
		case "/users/user1/playlists":
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"id": "pl1", "name": "Focus"}`)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	})

	id, err := client.CreatePlaylist(context.Background(), "Focus", "Sorted by tempo in ascending order.")
	require.NoError(t, err)
	assert.Equal(t, "pl1", id)
	assert.Equal(t, []string{"GET /me", "POST /users/user1/playlists"}, api.paths())
	assert.Contains(t, api.requests[1].Body, `"name":"Focus"`)
	assert.Equal(t, "https://open.spotify.com/playlist/pl1", client.GetPlaylistURL(id))
}

func TestAddTracksToPlaylist_Batches(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"snapshot_id": "s1"}`)
	})

	ids := make([]string, 250)
	for i := range ids {
		ids[i] = fmt.Sprintf("spotify:track:t%d", i)
	}
	require.NoError(t, client.AddTracksToPlaylist(context.Background(), "pl1", ids))

	require.Len(t, api.requests, 3)
	for _, req := range api.requests {
		assert.Equal(t, "POST /playlists/pl1/tracks", req.Method+" "+req.Path)
	}
	assert.Contains(t, api.requests[0].Body, "spotify:track:t0")
	assert.Contains(t, api.requests[2].Body, "spotify:track:t249")
}

func TestReplacePlaylistTracks(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"snapshot_id": "s1"}`)
	})

	ids := make([]string, 150)
	for i := range ids {
		ids[i] = fmt.Sprintf("t%d", i)
	}
	require.NoError(t, client.ReplacePlaylistTracks(context.Background(), "pl1", ids))

	assert.Equal(t, []string{"PUT /playlists/pl1/tracks", "POST /playlists/pl1/tracks"}, api.paths())
}

func TestChangePlaylistDescription(t *testing.T) {
	client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.ChangePlaylistDescription(context.Background(), "pl1", "Limited to 2 songs."))
	require.Len(t, api.requests, 1)
	assert.Equal(t, "PUT /playlists/pl1", api.paths()[0])
	assert.Contains(t, api.requests[0].Body, "Limited to 2 songs.")
}

func TestRetry(t *testing.T) {
	t.Run("retries server errors", func(t *testing.T) {
		var calls int
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			if calls < 3 {
				w.WriteHeader(http.StatusServiceUnavailable)
				fmt.Fprint(w, `{"error": {"status": 503, "message": "service unavailable"}}`)
				return
			}
			fmt.Fprint(w, `{"limit": 50, "offset": 0, "total": 0, "items": []}`)
		})

		page, err := client.FetchTrackPage(context.Background(), 0, 50)
		require.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Empty(t, page.Items)
	})

	t.Run("does not retry client errors", func(t *testing.T) {
		var calls int
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"error": {"status": 404, "message": "not found"}}`)
		})

		_, err := client.FetchAudioFeatures(context.Background(), []string{"t1"})
		require.Error(t, err)
		assert.Equal(t, 1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		var calls int
		client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			calls++
			w.WriteHeader(http.StatusBadGateway)
			fmt.Fprint(w, `{"error": {"status": 502, "message": "bad gateway"}}`)
		})

		_, err := client.FetchArtistGenres(context.Background(), []string{"a1"})
		require.Error(t, err)
		assert.Equal(t, 3, calls)
		assert.Contains(t, err.Error(), "max retries exceeded")
	})

	t.Run("stops on cancelled context", func(t *testing.T) {
		client, api := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {})
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := client.FetchTrackPage(ctx, 0, 50)
		require.Error(t, err)
		assert.Empty(t, api.requests)
	})
}

func TestExtractPlaylistID(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "Spotify URI format",
			input:    "spotify:playlist:37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL format",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Spotify URL with query params",
			input:    "https://open.spotify.com/playlist/37i9dQZF1DXcBWIGoYBM5M?si=abc123",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Localized URL",
			input:    "https://open.spotify.com/intl-ja/playlist/abc123/",
			expected: "abc123",
		},
		{
			name:     "Plain playlist ID",
			input:    "37i9dQZF1DXcBWIGoYBM5M",
			expected: "37i9dQZF1DXcBWIGoYBM5M",
		},
		{
			name:     "Empty string",
			input:    "",
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ExtractPlaylistID(tt.input))
		})
	}
}

func TestExtractTrackID(t *testing.T) {
	assert.Equal(t, "abc", extractTrackID("spotify:track:abc"))
	assert.Equal(t, "abc", extractTrackID("https://open.spotify.com/track/abc?si=1"))
	assert.Equal(t, "abc", extractTrackID(" abc "))
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "api 429", err: spotify.Error{Status: 429, Message: "slow down"}, expected: true},
		{name: "api 500", err: spotify.Error{Status: 500, Message: "oops"}, expected: true},
		{name: "api 404", err: spotify.Error{Status: 404, Message: "missing"}, expected: false},
		{name: "rate limit text", err: errors.New("rate limit exceeded"), expected: true},
		{name: "server error 503", err: errors.New("503 Service Unavailable"), expected: true},
		{name: "client error 400", err: errors.New("400 Bad Request"), expected: false},
		{name: "generic error", err: errors.New("something went wrong"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, isRetryable(tt.err))
		})
	}
}
