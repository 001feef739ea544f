// Package lastfm provides a client for the Last.fm API.
package lastfm

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	zlog "github.com/rs/zerolog/log"
)

const defaultBaseURL = "https://ws.audioscrobbler.com/2.0/"

// Client is a Last.fm API client.
type Client struct {
	apiKey      string
	baseURL     string
	httpClient  *http.Client
	minTagCount int
	maxTags     int

	// Cache for artist tags, keyed by lower-cased artist name
	artistTagCache map[string][]Tag
	cacheMu        sync.RWMutex
}

// Config represents Last.fm client configuration.
type Config struct {
	APIKey      string
	MinTagCount int // Tags weighted below this are ignored as genres
	MaxTags     int // Upper bound on genres taken per artist
}

// Tag represents a Last.fm tag.
type Tag struct {
	Name  string
	Count int // Tag weight, 0-100
}

// GetTopTagsResponse represents the response from artist.getTopTags API.
type GetTopTagsResponse struct {
	TopTags struct {
		Tag []struct {
			Name  string `json:"name"`
			Count int    `json:"count"`
		} `json:"tag"`
	} `json:"toptags"`
}

// LastFMError represents an error response from Last.fm API.
type LastFMError struct {
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// New creates a new Last.fm client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("last.fm API key is required")
	}

	maxTags := cfg.MaxTags
	if maxTags <= 0 {
		maxTags = 5
	}

	return &Client{
		apiKey:         cfg.APIKey,
		baseURL:        defaultBaseURL,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		minTagCount:    cfg.MinTagCount,
		maxTags:        maxTags,
		artistTagCache: make(map[string][]Tag),
	}, nil
}

// GetArtistTopTags retrieves the top tags for an artist, highest weight first.
// Reference: https://www.last.fm/api/show/artist.getTopTags
func (c *Client) GetArtistTopTags(ctx context.Context, artistName string) ([]Tag, error) {
	if strings.TrimSpace(artistName) == "" {
		return nil, errors.New("artist name is required")
	}

	cacheKey := strings.ToLower(strings.TrimSpace(artistName))
	c.cacheMu.RLock()
	if tags, ok := c.artistTagCache[cacheKey]; ok {
		c.cacheMu.RUnlock()
		zlog.Debug().Msgf("using cached tags for artist: %s", artistName)
		return tags, nil
	}
	c.cacheMu.RUnlock()

	params := url.Values{}
	params.Set("method", "artist.getTopTags")
	params.Set("api_key", c.apiKey)
	params.Set("artist", artistName)
	params.Set("format", "json")
	params.Set("autocorrect", "1")

	body, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	var response GetTopTagsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, errors.Wrap(err, "failed to parse response")
	}

	tags := make([]Tag, 0, len(response.TopTags.Tag))
	for _, t := range response.TopTags.Tag {
		tags = append(tags, Tag{
			Name:  t.Name,
			Count: t.Count,
		})
	}

	c.cacheMu.Lock()
	c.artistTagCache[cacheKey] = tags
	c.cacheMu.Unlock()
	zlog.Debug().Msgf("cached tags for artist: %s (count: %d)", artistName, len(tags))

	return tags, nil
}

// ArtistGenres returns an artist's top tags usable as genres: at most
// MaxTags names, each weighted at least MinTagCount.
func (c *Client) ArtistGenres(ctx context.Context, artistName string) ([]string, error) {
	tags, err := c.GetArtistTopTags(ctx, artistName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get tags for artist %q", artistName)
	}

	var genres []string
	for _, t := range tags {
		if len(genres) >= c.maxTags {
			break
		}
		if t.Count < c.minTagCount || strings.TrimSpace(t.Name) == "" {
			continue
		}
		genres = append(genres, strings.ToLower(strings.TrimSpace(t.Name)))
	}
	return genres, nil
}

func (c *Client) get(ctx context.Context, params url.Values) ([]byte, error) {
	reqURL := c.baseURL + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, "failed to send request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read response body")
	}

	// Last.fm reports most failures as a JSON error object
	var apiError LastFMError
	if err := json.Unmarshal(body, &apiError); err == nil && apiError.Error != 0 {
		return nil, errors.Errorf("last.fm API error %d: %s", apiError.Error, apiError.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errors.Newf("last.fm API returned status %d", resp.StatusCode)
	}

	return body, nil
}
