// Package spotify provides a client for the Spotify API.
package spotify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"
	"golang.org/x/time/rate"

	"github.com/osa030/smartlist/internal/domain/track"
)

// Request ceilings imposed by the Web API.
const (
	maxPageSize        = 50
	maxArtistsPerCall  = 50
	maxFeaturesPerCall = 100
	maxTracksPerWrite  = 100
)

// GenreFallback supplies genres for artists Spotify has none for.
type GenreFallback interface {
	ArtistGenres(ctx context.Context, artistName string) ([]string, error)
}

// Client is a Spotify API client.
type Client struct {
	client     *spotify.Client
	market     string
	limiter    *rate.Limiter
	fallback   GenreFallback
	maxRetries int
	retryDelay time.Duration
}

// Config represents Spotify client configuration.
type Config struct {
	ClientID          string
	ClientSecret      string
	RefreshToken      string
	Market            string
	RequestsPerSecond float64
}

// Option configures a Client.
type Option func(*Client)

// WithGenreFallback sets the source used for artists without Spotify genres.
func WithGenreFallback(f GenreFallback) Option {
	return func(c *Client) {
		c.fallback = f
	}
}

// WithRetryDelay overrides the base back-off between retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		c.retryDelay = d
	}
}

// Scopes are the OAuth scopes the client needs.
var Scopes = []string{
	spotifyauth.ScopeUserLibraryRead,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
}

// New creates a new Spotify client authenticated with a refresh token.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" || cfg.RefreshToken == "" {
		return nil, errors.New("spotify credentials are required")
	}

	auth := spotifyauth.New(
		spotifyauth.WithClientID(cfg.ClientID),
		spotifyauth.WithClientSecret(cfg.ClientSecret),
		spotifyauth.WithScopes(Scopes...),
	)

	// The token source refreshes the access token as needed
	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	httpClient := auth.Client(ctx, token)

	return NewWithHTTPClient(spotify.New(httpClient), cfg, opts...), nil
}

// NewWithHTTPClient wraps an already configured API client.
func NewWithHTTPClient(client *spotify.Client, cfg Config, opts ...Option) *Client {
	market := cfg.Market
	if market == "" {
		market = "US"
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	c := &Client{
		client:     client,
		market:     market,
		limiter:    rate.NewLimiter(limit, 1),
		maxRetries: 3,
		retryDelay: time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchTrackPage retrieves one page of the current user's saved tracks.
// Page numbers start at 0.
func (c *Client) FetchTrackPage(ctx context.Context, pageNumber, pageSize int) (*track.Page, error) {
	if pageNumber < 0 {
		return nil, errors.Newf("invalid page number %d", pageNumber)
	}
	if pageSize <= 0 || pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	offset := pageNumber * pageSize

	var page *spotify.SavedTrackPage
	err := c.retry(ctx, func() error {
		p, err := c.client.CurrentUsersTracks(ctx,
			spotify.Limit(pageSize),
			spotify.Offset(offset),
			spotify.Market(c.market),
		)
		if err != nil {
			return err
		}
		page = p
		return nil
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get saved tracks at offset %d", offset)
	}

	// Unavailable entries are kept so the page reflects what Spotify returned
	items := make([]*track.Track, 0, len(page.Tracks))
	for i := range page.Tracks {
		saved := &page.Tracks[i]
		t := c.convertTrack(&saved.FullTrack)
		t.AddedAt = saved.AddedAt
		items = append(items, t)
	}

	return &track.Page{
		Items:  items,
		Offset: int(page.Offset),
		Limit:  int(page.Limit),
		Total:  int(page.Total),
	}, nil
}

// FetchArtistGenres resolves artist IDs to genre names. Artists Spotify
// does not return are absent from the result.
func (c *Client) FetchArtistGenres(ctx context.Context, artistIDs []string) (map[string][]string, error) {
	result := make(map[string][]string, len(artistIDs))

	for _, batch := range batches(toIDs(artistIDs), maxArtistsPerCall) {
		var artists []*spotify.FullArtist
		err := c.retry(ctx, func() error {
			a, err := c.client.GetArtists(ctx, batch...)
			if err != nil {
				return err
			}
			artists = a
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get artists")
		}

		for _, a := range artists {
			if a == nil || a.ID == "" {
				continue
			}
			genres := a.Genres
			if len(genres) == 0 {
				genres = c.fallbackGenres(ctx, a.Name)
			}
			result[string(a.ID)] = genres
		}
	}

	return result, nil
}

// fallbackGenres never fails; lookup errors are logged and yield no genres.
func (c *Client) fallbackGenres(ctx context.Context, artistName string) []string {
	if c.fallback == nil || artistName == "" {
		return nil
	}
	genres, err := c.fallback.ArtistGenres(ctx, artistName)
	if err != nil {
		zlog.Warn().Err(err).Msgf("genre fallback failed for artist: %s", artistName)
		return nil
	}
	return genres
}

// FetchAudioFeatures resolves track IDs to audio features. Tracks without
// analysis are absent from the result.
func (c *Client) FetchAudioFeatures(ctx context.Context, trackIDs []string) (map[string]track.AudioFeatures, error) {
	result := make(map[string]track.AudioFeatures, len(trackIDs))

	for _, batch := range batches(toIDs(trackIDs), maxFeaturesPerCall) {
		var features []*spotify.AudioFeatures
		err := c.retry(ctx, func() error {
			f, err := c.client.GetAudioFeatures(ctx, batch...)
			if err != nil {
				return err
			}
			features = f
			return nil
		})
		if err != nil {
			return nil, errors.Wrap(err, "failed to get audio features")
		}

		for _, f := range features {
			if f == nil || f.ID == "" {
				continue
			}
			result[string(f.ID)] = convertAudioFeatures(f)
		}
	}

	return result, nil
}

// CreatePlaylist creates a new private playlist for the current user.
func (c *Client) CreatePlaylist(ctx context.Context, name, description string) (string, error) {
	var user *spotify.PrivateUser
	err := c.retry(ctx, func() error {
		u, err := c.client.CurrentUser(ctx)
		if err != nil {
			return err
		}
		user = u
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to get current user")
	}

	var playlist *spotify.FullPlaylist
	err = c.retry(ctx, func() error {
		p, err := c.client.CreatePlaylistForUser(ctx, user.ID, name, description, false, false)
		if err != nil {
			return err
		}
		playlist = p
		return nil
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to create playlist")
	}

	return string(playlist.ID), nil
}

// AddTracksToPlaylist appends tracks to a playlist.
// trackIDs can be Spotify IDs, URLs, or URIs.
func (c *Client) AddTracksToPlaylist(ctx context.Context, playlistID string, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, trackID := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(trackID))
	}

	for _, batch := range batches(ids, maxTracksPerWrite) {
		err := c.retry(ctx, func() error {
			_, err := c.client.AddTracksToPlaylist(ctx, spotify.ID(playlistID), batch...)
			return err
		})
		if err != nil {
			return errors.Wrap(err, "failed to add tracks to playlist")
		}
	}

	return nil
}

// ReplacePlaylistTracks replaces the contents of a playlist. The first
// batch replaces, the rest are appended.
func (c *Client) ReplacePlaylistTracks(ctx context.Context, playlistID string, trackIDs []string) error {
	ids := make([]spotify.ID, len(trackIDs))
	for i, trackID := range trackIDs {
		ids[i] = spotify.ID(extractTrackID(trackID))
	}

	first := ids
	if len(first) > maxTracksPerWrite {
		first = ids[:maxTracksPerWrite]
	}
	err := c.retry(ctx, func() error {
		return c.client.ReplacePlaylistTracks(ctx, spotify.ID(playlistID), first...)
	})
	if err != nil {
		return errors.Wrap(err, "failed to replace playlist tracks")
	}

	if len(ids) > maxTracksPerWrite {
		rest := make([]string, 0, len(ids)-maxTracksPerWrite)
		for _, id := range ids[maxTracksPerWrite:] {
			rest = append(rest, string(id))
		}
		return c.AddTracksToPlaylist(ctx, playlistID, rest)
	}
	return nil
}

// ChangePlaylistDescription updates a playlist's description.
func (c *Client) ChangePlaylistDescription(ctx context.Context, playlistID, description string) error {
	err := c.retry(ctx, func() error {
		return c.client.ChangePlaylistDescription(ctx, spotify.ID(playlistID), description)
	})
	if err != nil {
		return errors.Wrap(err, "failed to change playlist description")
	}
	return nil
}

// GetPlaylistURL returns the Spotify URL for a playlist.
func (c *Client) GetPlaylistURL(playlistID string) string {
	return fmt.Sprintf("https://open.spotify.com/playlist/%s", playlistID)
}

// GetTrackURL returns the Spotify URL for a track.
func (c *Client) GetTrackURL(trackID string) string {
	return fmt.Sprintf("https://open.spotify.com/track/%s", trackID)
}

// ExtractPlaylistID accepts a playlist ID, URL or URI.
func ExtractPlaylistID(input string) string {
	return extractPlaylistID(input)
}

// convertTrack converts a Spotify FullTrack to domain Track.
func (c *Client) convertTrack(t *spotify.FullTrack) *track.Track {
	artists := make([]string, len(t.Artists))
	artistIDs := make([]string, 0, len(t.Artists))
	for i, a := range t.Artists {
		artists[i] = a.Name
		if a.ID != "" {
			artistIDs = append(artistIDs, string(a.ID))
		}
	}

	var url string
	if t.ID != "" {
		url = c.GetTrackURL(string(t.ID))
	}

	return &track.Track{
		ID:          string(t.ID),
		URI:         string(t.URI),
		Name:        t.Name,
		Album:       t.Album.Name,
		ReleaseDate: t.Album.ReleaseDate,
		Artists:     artists,
		ArtistIDs:   artistIDs,
		DurationMs:  int(t.Duration),
		Popularity:  int(t.Popularity),
		Explicit:    t.Explicit,
		URL:         url,
	}
}

func convertAudioFeatures(f *spotify.AudioFeatures) track.AudioFeatures {
	return track.AudioFeatures{
		track.FeatureTempo:            float64(f.Tempo),
		track.FeatureEnergy:           float64(f.Energy),
		track.FeatureValence:          float64(f.Valence),
		track.FeatureDanceability:     float64(f.Danceability),
		track.FeatureAcousticness:     float64(f.Acousticness),
		track.FeatureInstrumentalness: float64(f.Instrumentalness),
		track.FeatureLiveness:         float64(f.Liveness),
		track.FeatureSpeechiness:      float64(f.Speechiness),
		track.FeatureLoudness:         float64(f.Loudness),
		track.FeatureTimeSignature:    float64(f.TimeSignature),
		track.FeatureKey:              float64(f.Key),
		track.FeatureMode:             float64(f.Mode),
	}
}

// retry paces and retries an operation with linear back-off.
func (c *Client) retry(ctx context.Context, fn func() error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return errors.Wrap(err, "rate limiter wait aborted")
		}

		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryable(err) {
			return err
		}

		if i < c.maxRetries-1 {
			zlog.Debug().Msgf("retrying spotify request (attempt %d): %v", i+2, err)
			select {
			case <-ctx.Done():
				return errors.Wrap(ctx.Err(), "retry aborted")
			case <-time.After(c.retryDelay * time.Duration(i+1)):
			}
		}
	}
	return errors.Wrap(lastErr, "max retries exceeded")
}

// isRetryable checks if an error is retryable.
func isRetryable(err error) bool {
	if err == nil {
		return false
	}

	var apiErr spotify.Error
	if errors.As(err, &apiErr) && apiErr.Status != 0 {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}

	// Rate limit errors and server errors are retryable
	errStr := err.Error()
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "500") ||
		strings.Contains(errStr, "502") ||
		strings.Contains(errStr, "503") ||
		strings.Contains(errStr, "504")
}

func toIDs(ids []string) []spotify.ID {
	out := make([]spotify.ID, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, spotify.ID(id))
		}
	}
	return out
}

func batches[T any](items []T, size int) [][]T {
	var out [][]T
	for i := 0; i < len(items); i += size {
		end := min(i+size, len(items))
		out = append(out, items[i:end])
	}
	return out
}

// extractPlaylistID extracts the playlist ID from a Spotify playlist URL or URI.
func extractPlaylistID(input string) string {
	input = strings.TrimSpace(input)
	// Handle Spotify URI format: spotify:playlist:PLAYLIST_ID
	if strings.HasPrefix(input, "spotify:playlist:") {
		return strings.TrimPrefix(input, "spotify:playlist:")
	}

	// Handle URL format: https://open.spotify.com/playlist/PLAYLIST_ID or https://open.spotify.com/intl-XX/playlist/PLAYLIST_ID
	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/playlist/") {
		parts := strings.Split(input, "/playlist/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}

// extractTrackID extracts the track ID from a Spotify track URL or URI.
func extractTrackID(input string) string {
	input = strings.TrimSpace(input)
	if strings.HasPrefix(input, "spotify:track:") {
		return strings.TrimPrefix(input, "spotify:track:")
	}

	if strings.Contains(input, "open.spotify.com") && strings.Contains(input, "/track/") {
		parts := strings.Split(input, "/track/")
		id := strings.Split(parts[len(parts)-1], "?")[0]
		return strings.TrimRight(id, "/")
	}

	return input
}
